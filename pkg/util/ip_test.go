package util

import (
	"net/netip"
	"testing"
)

func TestLinkAddr(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		bits  int
		index int
		side  int
		want  string
		err   bool
	}{
		{name: "/24 from /16", base: "10.0.0.0/16", bits: 24, index: 3, side: 2, want: "10.0.3.2/24"},
		{name: "/30 pairs", base: "10.1.0.0/24", bits: 30, index: 2, side: 1, want: "10.1.0.9/30"},
		{name: "/31 first side", base: "10.1.0.0/24", bits: 31, index: 2, side: 1, want: "10.1.0.4/31"},
		{name: "/31 second side", base: "10.1.0.0/24", bits: 31, index: 2, side: 2, want: "10.1.0.5/31"},
		{name: "unmasked base", base: "10.0.9.9/16", bits: 24, index: 1, side: 1, want: "10.0.1.1/24"},
		{name: "index overflows parent", base: "10.1.0.0/24", bits: 30, index: 64, side: 1, err: true},
		{name: "negative index", base: "10.0.0.0/16", bits: 24, index: -1, side: 1, err: true},
		{name: "network address", base: "10.0.0.0/16", bits: 24, index: 1, side: 0, err: true},
		{name: "broadcast address", base: "10.1.0.0/24", bits: 30, index: 0, side: 3, err: true},
		{name: "/31 side three", base: "10.1.0.0/24", bits: 31, index: 0, side: 3, err: true},
		{name: "subnet wider than base", base: "10.0.0.0/24", bits: 16, index: 0, side: 1, err: true},
		{name: "/32 subnet", base: "10.0.0.0/24", bits: 32, index: 0, side: 1, err: true},
		{name: "ipv6 base", base: "fd00::/48", bits: 64, index: 0, side: 1, err: true},
		{name: "bad base", base: "10.0.0.0", bits: 24, index: 0, side: 1, err: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LinkAddr(tt.base, tt.bits, tt.index, tt.side)
			if (err != nil) != tt.err {
				t.Fatalf("LinkAddr() error = %v, wantErr %v", err, tt.err)
			}
			if !tt.err && got.String() != tt.want {
				t.Errorf("LinkAddr() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPeerAddr(t *testing.T) {
	tests := []struct {
		cidr string
		want string
		err  bool
	}{
		{cidr: "10.1.1.0/31", want: "10.1.1.1/31"},
		{cidr: "10.1.1.1/31", want: "10.1.1.0/31"},
		{cidr: "10.1.1.1/30", want: "10.1.1.2/30"},
		{cidr: "10.1.1.2/30", want: "10.1.1.1/30"},
		{cidr: "10.1.1.0/30", err: true},
		{cidr: "10.1.1.3/30", err: true},
		{cidr: "10.1.1.1/24", err: true},
		{cidr: "fd00::1/127", err: true},
		{cidr: "garbage", err: true},
	}

	for _, tt := range tests {
		t.Run(tt.cidr, func(t *testing.T) {
			got, err := PeerAddr(tt.cidr)
			if (err != nil) != tt.err {
				t.Fatalf("PeerAddr(%q) error = %v, wantErr %v", tt.cidr, err, tt.err)
			}
			if !tt.err && got.String() != tt.want {
				t.Errorf("PeerAddr(%q) = %s, want %s", tt.cidr, got, tt.want)
			}
		})
	}
}

func TestNetmask(t *testing.T) {
	tests := map[string]string{
		"10.0.0.1/32": "255.255.255.255",
		"10.0.3.1/24": "255.255.255.0",
		"10.0.0.4/31": "255.255.255.254",
		"10.0.0.0/8":  "255.0.0.0",
		"0.0.0.0/0":   "0.0.0.0",
	}
	for in, want := range tests {
		if got := Netmask(netip.MustParsePrefix(in)); got != want {
			t.Errorf("Netmask(%s) = %s, want %s", in, got, want)
		}
	}
}
