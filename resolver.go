package ipupdate

import (
	"context"
	"net/netip"
)

// SourceIPService is the provenance tag for candidates reported by the
// configured IP echo service. All other candidates carry the name of the
// network interface they were found on.
const SourceIPService = "ip-service"

// Family is an IP address family.
type Family int

const (
	IPv4 Family = iota
	IPv6
)

func (f Family) String() string {
	if f == IPv4 {
		return "IPv4"
	}
	return "IPv6"
}

// network returns the dial network that restricts connections to this family.
func (f Family) network() string {
	if f == IPv4 {
		return "tcp4"
	}
	return "tcp6"
}

// FamilyOf reports the family of addr. IPv4-mapped IPv6 addresses count as IPv4.
func FamilyOf(addr netip.Addr) Family {
	if addr.Unmap().Is4() {
		return IPv4
	}
	return IPv6
}

// Candidate is one discovered address along with where it came from.
type Candidate struct {
	Addr   netip.Addr
	Source string
}

// Resolver produces candidate addresses from one source.
type Resolver interface {
	Resolve(context.Context) ([]Candidate, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) ([]Candidate, error)

func (f ResolverFunc) Resolve(ctx context.Context) ([]Candidate, error) { return f(ctx) }

// Resolved holds the single chosen address per family for one run.
// The zero Addr for a family means discovery found nothing usable.
type Resolved struct {
	IPv4 netip.Addr
	IPv6 netip.Addr
}

// Addr returns the resolved address for the given family, if any.
func (r Resolved) Addr(f Family) (netip.Addr, bool) {
	if f == IPv4 {
		return r.IPv4, r.IPv4.IsValid()
	}
	return r.IPv6, r.IPv6.IsValid()
}
