package ipupdate

import "net/netip"

// Address ranges treated as non-routable in addition to what the netip
// predicates already cover (loopback, link-local, multicast, unspecified,
// RFC 1918 private, and IPv6 unique-local via IsPrivate):
//
//	IPv4: 0.0.0.0/8, shared CGNAT space 100.64.0.0/10, TEST-NET-1/2/3,
//	      benchmarking 198.18.0.0/15, reserved 240.0.0.0/4, broadcast.
//	IPv6: documentation 2001:db8::/32, benchmarking 2001:2::/48,
//	      discard-only 100::/64.
var (
	nonRoutable4 = []netip.Prefix{
		netip.MustParsePrefix("0.0.0.0/8"),
		netip.MustParsePrefix("100.64.0.0/10"),
		netip.MustParsePrefix("192.0.2.0/24"),
		netip.MustParsePrefix("198.18.0.0/15"),
		netip.MustParsePrefix("198.51.100.0/24"),
		netip.MustParsePrefix("203.0.113.0/24"),
		netip.MustParsePrefix("240.0.0.0/4"),
	}
	nonRoutable6 = []netip.Prefix{
		netip.MustParsePrefix("100::/64"),
		netip.MustParsePrefix("2001:2::/48"),
		netip.MustParsePrefix("2001:db8::/32"),
	}
)

// Routable reports whether addr is valid for delivery across the public
// internet. IPv4-mapped IPv6 addresses are classified as their IPv4 form.
func Routable(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsMulticast(),
		addr.IsPrivate():
		return false
	}

	ranges := nonRoutable6
	if addr.Is4() {
		if addr == netip.AddrFrom4([4]byte{255, 255, 255, 255}) {
			return false
		}
		ranges = nonRoutable4
	}
	for _, prefix := range ranges {
		if prefix.Contains(addr) {
			return false
		}
	}
	return true
}

// SelectAddress reduces a pool of candidates to at most one address.
// Non-routable candidates are dropped unless allowNonroutable is set. An IP
// service candidate wins over interface candidates because it reflects the
// externally visible address of a NAT'd host; otherwise the first interface
// candidate in enumeration order is chosen. The choice depends only on the
// pool contents and order, so repeated runs with unchanged network state
// never oscillate.
func SelectAddress(candidates []Candidate, allowNonroutable bool) (netip.Addr, bool) {
	var first netip.Addr
	for _, c := range candidates {
		if !allowNonroutable && !Routable(c.Addr) {
			continue
		}
		if c.Source == SourceIPService {
			return c.Addr, true
		}
		if !first.IsValid() {
			first = c.Addr
		}
	}
	return first, first.IsValid()
}
