package ipupdate

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that reports the addresses bound
// to local network interfaces, skipping any whose name is in ignore.
// Candidates carry the interface name as their source, in enumeration order.
func InterfaceResolver(ignore ...string) Resolver {
	ignored := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		ignored[name] = true
	}
	return &interfaceResolver{ignored: ignored, enumerate: enumerateInterfaces}
}

// boundInterface is one local interface with its bound addresses.
type boundInterface struct {
	name  string
	addrs []netip.Addr
}

type interfaceResolver struct {
	ignored   map[string]bool
	enumerate func() ([]boundInterface, error)
}

func (r *interfaceResolver) Resolve(ctx context.Context) ([]Candidate, error) {
	interfaces, err := r.enumerate()
	if err != nil && interfaces == nil {
		return nil, fmt.Errorf("error enumerating network interfaces: %w", err)
	}

	// Partial enumeration still yields candidates; the error is reported
	// alongside them.
	var candidates []Candidate
	for _, iface := range interfaces {
		if r.ignored[iface.name] {
			continue
		}
		for _, addr := range iface.addrs {
			candidates = append(candidates, Candidate{Addr: addr, Source: iface.name})
		}
	}
	return candidates, err
}

func enumerateInterfaces() ([]boundInterface, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	var result []boundInterface
	var parseErrors []error
	for _, iface := range interfaces {
		addrs, err := iface.Addrs()
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("error looking up addresses for interface %s: %w", iface.Name, err))
			continue
		}
		bound := boundInterface{name: iface.Name}
		for _, addr := range addrs {
			prefix, err := netip.ParsePrefix(addr.String())
			if err != nil {
				parseErrors = append(parseErrors, fmt.Errorf("error parsing local ip %s for interface %s: %w", addr.String(), iface.Name, err))
				continue
			}
			bound.addrs = append(bound.addrs, prefix.Addr())
		}
		result = append(result, bound)
	}
	return result, errors.Join(parseErrors...)
}
