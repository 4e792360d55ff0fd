package dnswire

import (
	"encoding/binary"
	"fmt"
)

// MaxResponseSize bounds incoming DNS messages to prevent resource
// exhaustion from an oversized upstream body.
const MaxResponseSize = 4096

// maxAnswers caps the answer records walked per response so a forged
// ANCount cannot drive excessive parsing work.
const maxAnswers = 100

// Answer is a parsed answer-section resource record. Only PTR RDATA is
// decoded; other record types are skipped opaquely and carry an empty
// Target.
type Answer struct {
	Name   string
	Type   uint16
	Class  uint16
	TTL    uint32
	Target string
}

// Response is a decoded DNS response, reduced to the sections a reverse
// lookup needs: the echoed question and the answer records.
type Response struct {
	Header    Header
	Questions []Question
	Answers   []Answer
}

// ParseResponse decodes a DNS response. The input is untrusted: every
// offset is bounds-checked before it is dereferenced, and any violation is
// reported as ErrMalformed rather than producing a truncated result.
//
// Layout walked (RFC 1035 Section 4.1):
//  1. 12-byte header
//  2. question section, skipped byte-exactly via its length-prefixed labels
//  3. answer records: NAME (possibly a compression pointer back into the
//     question), TYPE, CLASS, TTL, RDLENGTH, then RDATA
//
// PTR RDATA is decoded with the bounded name-decompression routine, which
// resolves pointers against the whole message.
func ParseResponse(msg []byte) (Response, error) {
	if len(msg) > MaxResponseSize {
		return Response{}, fmt.Errorf("%w: message too large (%d bytes)", ErrMalformed, len(msg))
	}

	off := 0
	h, err := ParseHeader(msg, &off)
	if err != nil {
		return Response{}, err
	}
	if !h.IsResponse() {
		return Response{}, fmt.Errorf("%w: QR flag not set on response", ErrMalformed)
	}

	r := Response{Header: h}

	r.Questions = make([]Question, 0, min(int(h.QDCount), 4))
	for range h.QDCount {
		q, err := ParseQuestion(msg, &off)
		if err != nil {
			return Response{}, err
		}
		r.Questions = append(r.Questions, q)
	}

	if int(h.ANCount) > maxAnswers {
		return Response{}, fmt.Errorf("%w: too many answer records (%d)", ErrMalformed, h.ANCount)
	}
	r.Answers = make([]Answer, 0, int(h.ANCount))
	for range h.ANCount {
		a, err := parseAnswer(msg, &off)
		if err != nil {
			return Response{}, err
		}
		r.Answers = append(r.Answers, a)
	}

	// Authority and additional sections are irrelevant to a PTR lookup and
	// are not walked.
	return r, nil
}

// parseAnswer parses one answer-section resource record at *off.
func parseAnswer(msg []byte, off *int) (Answer, error) {
	name, err := DecodeName(msg, off)
	if err != nil {
		return Answer{}, err
	}
	if *off+10 > len(msg) {
		return Answer{}, fmt.Errorf("%w: unexpected EOF while reading answer record", ErrMalformed)
	}
	a := Answer{
		Name:  name,
		Type:  binary.BigEndian.Uint16(msg[*off : *off+2]),
		Class: binary.BigEndian.Uint16(msg[*off+2 : *off+4]),
		TTL:   binary.BigEndian.Uint32(msg[*off+4 : *off+8]),
	}
	rdlen := int(binary.BigEndian.Uint16(msg[*off+8 : *off+10]))
	*off += 10
	start := *off
	if start+rdlen > len(msg) {
		return Answer{}, fmt.Errorf("%w: unexpected EOF while reading answer rdata", ErrMalformed)
	}

	if RecordType(a.Type) == TypePTR {
		target, err := DecodeName(msg, off)
		if err != nil {
			return Answer{}, err
		}
		if *off-start != rdlen {
			return Answer{}, fmt.Errorf("%w: PTR rdata length mismatch", ErrMalformed)
		}
		a.Target = target
		return a, nil
	}

	// Skip non-PTR RDATA opaquely.
	*off = start + rdlen
	return a, nil
}

// FirstPTR returns the first PTR answer's target name.
func (r Response) FirstPTR() (string, bool) {
	for _, a := range r.Answers {
		if RecordType(a.Type) == TypePTR && a.Target != "" {
			return a.Target, true
		}
	}
	return "", false
}

// ExtractPTR decodes a response and returns the domain name held by its
// first PTR answer. A well-formed response without a usable PTR answer
// (an error RCODE or an empty answer section) yields ErrNoAnswer; any
// wire-format violation yields ErrMalformed.
func ExtractPTR(msg []byte) (string, error) {
	r, err := ParseResponse(msg)
	if err != nil {
		return "", err
	}
	if rc := RCodeFromFlags(r.Header.Flags); rc != RCodeNoError {
		return "", fmt.Errorf("%w: rcode %d", ErrNoAnswer, rc)
	}
	target, ok := r.FirstPTR()
	if !ok {
		return "", ErrNoAnswer
	}
	return target, nil
}
