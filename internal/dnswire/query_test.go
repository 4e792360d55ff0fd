package dnswire

import (
	"bytes"
	"net/netip"
	"testing"
)

func TestBuildPTRQuery(t *testing.T) {
	addr := netip.MustParseAddr("8.8.8.8")
	got, err := BuildPTRQuery(addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []byte{
		0x12, 0x34, // transaction id
		0x01, 0x00, // flags: standard query, RD
		0x00, 0x01, // QDCOUNT = 1
		0x00, 0x00, // ANCOUNT
		0x00, 0x00, // NSCOUNT
		0x00, 0x00, // ARCOUNT
		1, '8', 1, '8', 1, '8', 1, '8',
		7, 'i', 'n', '-', 'a', 'd', 'd', 'r',
		4, 'a', 'r', 'p', 'a',
		0x00,       // name terminator
		0x00, 0x0C, // QTYPE = PTR
		0x00, 0x01, // QCLASS = IN
	}
	if !bytes.Equal(got, want) {
		t.Errorf("query bytes:\ngot  % x\nwant % x", got, want)
	}
}

func TestBuildPTRQueryReparse(t *testing.T) {
	tests := []struct {
		ip   string
		name string
	}{
		{"8.8.8.8", "8.8.8.8.in-addr.arpa"},
		{"1.2.3.4", "4.3.2.1.in-addr.arpa"},
		{"192.168.0.1", "1.0.168.192.in-addr.arpa"},
		{"255.255.255.255", "255.255.255.255.in-addr.arpa"},
		{"0.0.0.0", "0.0.0.0.in-addr.arpa"},
	}

	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			query, err := BuildPTRQuery(netip.MustParseAddr(tt.ip))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			off := 0
			h, err := ParseHeader(query, &off)
			if err != nil {
				t.Fatalf("header: %v", err)
			}
			if h.ID != DefaultTransactionID {
				t.Errorf("transaction id %#04x, want %#04x", h.ID, DefaultTransactionID)
			}
			if h.Flags != RDFlag {
				t.Errorf("flags %#04x, want %#04x", h.Flags, RDFlag)
			}
			if h.QDCount != 1 || h.ANCount != 0 || h.NSCount != 0 || h.ARCount != 0 {
				t.Errorf("section counts %d/%d/%d/%d, want 1/0/0/0",
					h.QDCount, h.ANCount, h.NSCount, h.ARCount)
			}

			q, err := ParseQuestion(query, &off)
			if err != nil {
				t.Fatalf("question: %v", err)
			}
			if q.Name != tt.name {
				t.Errorf("question name %q, want %q", q.Name, tt.name)
			}
			if q.Type != uint16(TypePTR) {
				t.Errorf("qtype %d, want %d", q.Type, TypePTR)
			}
			if q.Class != uint16(ClassIN) {
				t.Errorf("qclass %d, want %d", q.Class, ClassIN)
			}
			if off != len(query) {
				t.Errorf("question section ends at %d, want %d", off, len(query))
			}
		})
	}
}

func TestBuildPTRQueryRejectsIPv6(t *testing.T) {
	_, err := BuildPTRQuery(netip.MustParseAddr("2001:db8::1"))
	if err == nil {
		t.Fatal("expected error for IPv6 address")
	}
}

func TestReverseName(t *testing.T) {
	got := ReverseName(netip.MustParseAddr("10.20.30.40"))
	if got != "40.30.20.10.in-addr.arpa" {
		t.Errorf("got %q, want %q", got, "40.30.20.10.in-addr.arpa")
	}
}
