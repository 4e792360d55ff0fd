package dnswire

import (
	"fmt"
	"net/netip"
	"strconv"
)

// DefaultTransactionID is the fixed transaction id stamped on every query.
// DoH correlates queries to responses via the HTTP request/response pair,
// not via transaction id matching, so a fixed id keeps query encoding
// deterministic.
const DefaultTransactionID uint16 = 0x1234

// reverseSuffix is the fixed zone under which IPv4 reverse names live.
const reverseSuffix = "in-addr.arpa"

// ReverseName derives the PTR question name for an IPv4 address: octets in
// reverse order followed by "in-addr.arpa". For 8.8.4.4 the result is
// "4.4.8.8.in-addr.arpa".
func ReverseName(addr netip.Addr) string {
	o := addr.As4()
	return strconv.Itoa(int(o[3])) + "." +
		strconv.Itoa(int(o[2])) + "." +
		strconv.Itoa(int(o[1])) + "." +
		strconv.Itoa(int(o[0])) + "." + reverseSuffix
}

// BuildPTRQuery constructs the wire-format PTR query for an IPv4 address:
// a 12-byte header (standard recursive query, one question, empty answer,
// authority and additional sections) followed by the reverse name as
// length-prefixed labels, QTYPE=PTR and QCLASS=IN. The result is a fresh
// byte slice; encoding is deterministic and has no side effects.
func BuildPTRQuery(addr netip.Addr) ([]byte, error) {
	if !addr.Is4() {
		return nil, fmt.Errorf("not an IPv4 address: %s", addr)
	}

	h := Header{
		ID:      DefaultTransactionID,
		Flags:   RDFlag, // standard query, recursion desired (0x0100)
		QDCount: 1,
	}
	q := Question{
		Name:  ReverseName(addr),
		Type:  uint16(TypePTR),
		Class: uint16(ClassIN),
	}

	qb, err := q.Marshal()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(qb))
	out = append(out, h.Marshal()...)
	return append(out, qb...), nil
}
