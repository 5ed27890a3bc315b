package ipupdate

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// WebResolver constructs a resolver which asks an external web service for
// the host's public address of one family.
//
// The service must speak http and return status "200 OK",
// with a valid address of the requested family as the first line of the
// response body. All other responses are considered an error.
//
// The request is forced onto tcp4 or tcp6 so that the service sees (and
// echoes) the address of the requested family; services that need separate
// queries per family are therefore queried once per WebResolver.
func WebResolver(serviceURL string, family Family, timeout time.Duration) (Resolver, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return nil, fmt.Errorf("error parsing IP service URL: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &webResolver{serviceURL: u, family: family, timeout: timeout}, nil
}

type webResolver struct {
	httpClient *http.Client
	serviceURL *url.URL
	family     Family
	timeout    time.Duration
}

// Resolve implements Resolver.
func (wr *webResolver) Resolve(ctx context.Context) ([]Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, wr.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wr.serviceURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", "route53-ip-update/"+Version)

	resp, err := wr.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request to IP service failed: %w", wr.family, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("IP service returned %s", resp.Status)
	}

	scanner := bufio.NewReader(resp.Body)
	line, _ := scanner.ReadString('\n')
	addr, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return nil, fmt.Errorf("error parsing %s address from IP service response: %w", wr.family, err)
	}
	if FamilyOf(addr) != wr.family {
		return nil, fmt.Errorf("IP service returned %s, which is not an %s address", addr, wr.family)
	}
	return []Candidate{{Addr: addr, Source: SourceIPService}}, nil
}

func (wr *webResolver) client() *http.Client {
	if wr.httpClient != nil {
		return wr.httpClient
	}
	dialer := &net.Dialer{}
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.DialContext(ctx, wr.family.network(), addr)
			},
		},
	}
}
