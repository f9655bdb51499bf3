package app

import (
	"net/http"
	"strings"
	"testing"
)

func TestNewHTTPClient_PoolFollowsImageConcurrency(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{0, defaultImageConcurrency + 1}, {1, 2}, {12, 13}} {
		c := newHTTPClient(tc.in)
		if c.Timeout != 0 {
			t.Fatalf("expected no client timeout, got %v", c.Timeout)
		}
		tr, ok := c.Transport.(*http.Transport)
		if !ok || tr == http.DefaultTransport {
			t.Fatalf("expected a dedicated *http.Transport")
		}
		if tr.MaxIdleConnsPerHost != tc.want {
			t.Fatalf("concurrency %d: idle per host = %d, want %d", tc.in, tr.MaxIdleConnsPerHost, tc.want)
		}
	}
}

func TestVersion(t *testing.T) {
	if v := Version(); !strings.HasPrefix(v, "notelink "+BuildVersion) || !strings.Contains(v, BuildCommit) {
		t.Fatalf("unexpected version %q", v)
	}
}
