package dnswire

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// maxPointerDepth caps compression-pointer indirections per name. Offsets
// come from untrusted responses; without a bound a pointer cycle decodes
// forever.
const maxPointerDepth = 20

// EncodeName encodes a domain name to DNS wire format (RFC 1035 Section 3.1).
//
// DNS names are encoded as a sequence of labels, where each label is:
//   - 1 byte: length (0-63)
//   - N bytes: label characters
//
// The name is terminated by a zero-length label (single 0x00 byte).
//
// Example: "4.4.8.8.in-addr.arpa" encodes as:
//
//	[1]4 [1]4 [1]8 [1]8 [7]in-addr [4]arpa [0]
//
// Constraints: each label max 63 bytes, total encoded name max 255 bytes,
// ASCII only.
func EncodeName(domain string) ([]byte, error) {
	if domain == "" {
		return nil, fmt.Errorf("%w: domain name must be non-empty", ErrMalformed)
	}
	domain = trimDot(domain)
	if domain == "" {
		return []byte{0}, nil // Root domain
	}

	out := make([]byte, 0, len(domain)+2)
	labelStart := 0
	for i := 0; i <= len(domain); i++ {
		if i == len(domain) || domain[i] == '.' {
			if i == labelStart {
				return nil, fmt.Errorf("%w: empty label in %q", ErrMalformed, domain)
			}
			label := domain[labelStart:i]

			for j := range len(label) {
				if label[j] > 0x7F {
					return nil, fmt.Errorf("%w: domain name must be ASCII", ErrMalformed)
				}
			}
			if len(label) > 63 {
				return nil, fmt.Errorf("%w: label too long (%d > 63): %q", ErrMalformed, len(label), label)
			}

			out = append(out, byte(len(label)))
			out = append(out, label...)
			labelStart = i + 1
		}
	}
	out = append(out, 0) // Terminating zero-length label

	if len(out) > 255 {
		return nil, fmt.Errorf("%w: encoded name too long (%d > 255)", ErrMalformed, len(out))
	}
	return out, nil
}

// DecodeName decodes a possibly-compressed DNS name from wire format.
//
// DNS name compression (RFC 1035 Section 4.1.4) uses pointers to reduce
// message size. A compression pointer is identified by the two high bits
// of a label length byte being set (11xxxxxx pattern = 0xC0); the
// remaining 14 bits form an offset from the start of the message:
//
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//	| 1  1|                OFFSET                   |
//	+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+--+
//
// This function reads from msg starting at *off, advancing *off past the
// encoded name (including any compression pointer bytes). Decompression
// work is bounded: each pointer target may be visited once and at most
// maxPointerDepth indirections are followed, so cyclic or deeply nested
// pointers fail with ErrMalformed instead of looping.
//
// Returns an ASCII, dot-separated name without a trailing dot.
func DecodeName(msg []byte, off *int) (string, error) {
	return decodeName(msg, off, 0, map[int]struct{}{})
}

// decodeName is the recursive implementation of DecodeName.
func decodeName(msg []byte, off *int, depth int, visited map[int]struct{}) (string, error) {
	if depth > maxPointerDepth {
		return "", fmt.Errorf("%w: too many compression pointer indirections", ErrMalformed)
	}
	if *off < 0 || *off >= len(msg) {
		return "", fmt.Errorf("%w: name offset out of bounds", ErrMalformed)
	}

	labels := make([]string, 0, 8)
	for {
		if *off >= len(msg) {
			return "", fmt.Errorf("%w: unexpected EOF while decoding name", ErrMalformed)
		}
		labelLen := msg[*off]
		*off++

		// Zero-length label marks end of name
		if labelLen == 0 {
			break
		}

		// Compression pointer (high 2 bits = 11); always terminal
		if isPointer(labelLen) {
			rest, err := followPointer(msg, off, labelLen, depth, visited)
			if err != nil {
				return "", err
			}
			if rest != "" {
				labels = append(labels, rest)
			}
			break
		}

		// Reserved label types (high 2 bits = 01 or 10)
		if labelLen&0xC0 != 0 {
			return "", fmt.Errorf("%w: reserved label type 0x%02x", ErrMalformed, labelLen&0xC0)
		}

		label, err := readLabel(msg, off, int(labelLen))
		if err != nil {
			return "", err
		}
		labels = append(labels, label)
	}

	return strings.Join(labels, "."), nil
}

// isPointer checks if the length byte introduces a compression pointer.
func isPointer(b byte) bool {
	return b&0xC0 == 0xC0
}

// followPointer resolves a compression pointer and returns the name at its
// target offset. The pointer value is the low 6 bits of the first byte
// combined with the following byte.
func followPointer(msg []byte, off *int, firstByte byte, depth int, visited map[int]struct{}) (string, error) {
	if *off >= len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF in compression pointer", ErrMalformed)
	}

	target := int(binary.BigEndian.Uint16([]byte{firstByte & 0x3F, msg[*off]}))
	*off++

	if target >= len(msg) {
		return "", fmt.Errorf("%w: compression pointer out of bounds (%d)", ErrMalformed, target)
	}
	if _, ok := visited[target]; ok {
		return "", fmt.Errorf("%w: compression pointer loop", ErrMalformed)
	}
	visited[target] = struct{}{}

	targetOff := target
	return decodeName(msg, &targetOff, depth+1, visited)
}

// readLabel reads a single label of the given length.
func readLabel(msg []byte, off *int, length int) (string, error) {
	if *off+length > len(msg) {
		return "", fmt.Errorf("%w: unexpected EOF while reading label", ErrMalformed)
	}
	label := msg[*off : *off+length]
	*off += length

	for _, b := range label {
		if b > 0x7F {
			return "", fmt.Errorf("%w: decoded name was not ASCII", ErrMalformed)
		}
	}
	return string(label), nil
}

// trimDot removes all trailing dots from a string.
func trimDot(s string) string {
	for len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

// EqualNames compares two DNS names case-insensitively, ignoring trailing
// dots (RFC 4343).
func EqualNames(a, b string) bool {
	return strings.EqualFold(trimDot(a), trimDot(b))
}
