package util

import (
	"fmt"
	"net/netip"
)

// LinkAddr carves the index-th subnet of length bits out of base and
// returns host number side inside it, in CIDR form. For /31 subnets side 1
// and 2 map to the two addresses of the pair; otherwise side is the host
// number itself, so side 0 (the network address) is rejected.
//
//	LinkAddr("10.0.0.0/16", 24, 3, 2) => 10.0.3.2/24
//	LinkAddr("10.1.0.0/24", 31, 2, 1) => 10.1.0.4/31
func LinkAddr(base string, bits, index, side int) (netip.Prefix, error) {
	parent, err := netip.ParsePrefix(base)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid link prefix %q: %w", base, err)
	}
	if !parent.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("link prefix %q is not IPv4", base)
	}
	if bits < parent.Bits() || bits > 31 {
		return netip.Prefix{}, fmt.Errorf("subnet length /%d does not fit in %s", bits, parent)
	}
	if index < 0 || uint64(index) >= uint64(1)<<(bits-parent.Bits()) {
		return netip.Prefix{}, fmt.Errorf("link index %d out of range for /%d subnets of %s", index, bits, parent)
	}

	host := side
	if bits == 31 {
		host = side - 1
	}
	size := uint32(1) << (32 - bits)
	if host < 0 || uint32(host) >= size || (bits < 31 && (host == 0 || uint32(host) == size-1)) {
		return netip.Prefix{}, fmt.Errorf("side %d is not a host address in a /%d", side, bits)
	}

	network := toUint32(parent.Masked().Addr()) + uint32(index)*size
	return netip.PrefixFrom(fromUint32(network+uint32(host)), bits), nil
}

// PeerAddr returns the other end of a point-to-point /30 or /31 address.
func PeerAddr(cidr string) (netip.Prefix, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid address %q: %w", cidr, err)
	}
	if !p.Addr().Is4() {
		return netip.Prefix{}, fmt.Errorf("address %q is not IPv4", cidr)
	}
	ip := toUint32(p.Addr())
	switch p.Bits() {
	case 31:
		return netip.PrefixFrom(fromUint32(ip^1), 31), nil
	case 30:
		switch ip & 3 {
		case 1:
			return netip.PrefixFrom(fromUint32(ip+1), 30), nil
		case 2:
			return netip.PrefixFrom(fromUint32(ip-1), 30), nil
		}
		return netip.Prefix{}, fmt.Errorf("%s is not a host address", cidr)
	}
	return netip.Prefix{}, fmt.Errorf("%s is not a point-to-point subnet", cidr)
}

// Netmask formats the mask of p in dotted-quad form.
func Netmask(p netip.Prefix) string {
	if p.Bits() <= 0 {
		return "0.0.0.0"
	}
	return fromUint32(^uint32(0) << (32 - p.Bits())).String()
}

func toUint32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func fromUint32(n uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
}
