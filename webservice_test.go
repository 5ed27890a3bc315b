package ipupdate_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	ipupdate "github.com/dacut/route53-ip-update"
)

func echoServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebResolverLookup(t *testing.T) {
	srv := echoServer(t, "93.184.216.34")
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	candidates, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate; got %d", len(candidates))
	}
	if expected, got := netip.MustParseAddr("93.184.216.34"), candidates[0].Addr; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
	if candidates[0].Source != ipupdate.SourceIPService {
		t.Fatalf("Expected source %q; got %q", ipupdate.SourceIPService, candidates[0].Source)
	}
}

func TestWebResolverTrimsResponse(t *testing.T) {
	srv := echoServer(t, "  93.184.216.34\nsecond line ignored\n")
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	candidates, err := wr.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve failed: %s", err)
	}
	if expected, got := netip.MustParseAddr("93.184.216.34"), candidates[0].Addr; expected != got {
		t.Fatalf("Expected %q; got %q", expected, got)
	}
}

func TestWebResolverMalformedResponse(t *testing.T) {
	srv := echoServer(t, "not an ip address")
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatal("Expected error response; got err == nil")
	}
}

func TestWebResolverEmptyResponse(t *testing.T) {
	srv := echoServer(t, "")
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatal("Expected error response; got err == nil")
	}
}

func TestWebResolverHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatal("Expected error response; got err == nil")
	}
}

func TestWebResolverWrongFamily(t *testing.T) {
	srv := echoServer(t, "2606:4700:4700::1111")
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, time.Second)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatal("Expected an error for an IPv6 answer to an IPv4 query; got err == nil")
	}
}

func TestWebResolverTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(250 * time.Millisecond)
		io.WriteString(w, "93.184.216.34")
	}))
	defer srv.Close()
	wr, err := ipupdate.WebResolver(srv.URL, ipupdate.IPv4, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("WebResolver failed: %s", err)
	}
	if _, err := wr.Resolve(context.Background()); err == nil {
		t.Fatal("Expected timeout error; got err == nil")
	}
}

func TestWebResolverBadURL(t *testing.T) {
	if _, err := ipupdate.WebResolver("://not a url", ipupdate.IPv4, time.Second); err == nil {
		t.Fatal("Expected error for invalid URL; got err == nil")
	}
}
