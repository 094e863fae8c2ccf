package testutil

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewHTTPServerT serves handler on an IPv4 loopback port and skips the test
// when the sandbox does not allow listening. The server is closed on cleanup.
func NewHTTPServerT(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	ln := ListenT(t)

	srv := &httptest.Server{
		Listener: ln,
		Config:   &http.Server{Handler: handler},
	}
	srv.Start()
	t.Cleanup(srv.Close)
	return srv
}

// ListenT opens a tcp4 listener on a free loopback port or skips the test.
func ListenT(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("tcp4 listener unavailable: %v", err)
	}
	return ln
}

// FreeAddrT returns a loopback address that was free a moment ago.
func FreeAddrT(t *testing.T) string {
	t.Helper()
	ln := ListenT(t)
	addr := ln.Addr().String()
	_ = ln.Close()
	return addr
}
