package web_test

import (
	"net/http/httptest"
	"testing"

	"xdao.co/hermes/account"
	"xdao.co/hermes/accounttest"
	"xdao.co/hermes/transport"
	"xdao.co/hermes/transport/web"
)

func newWebBinding(text bool) accounttest.NewBinding {
	return func(t *testing.T, srv account.AccountServiceServer) transport.Binding {
		t.Helper()
		h, stop := accounttest.WebHandler(srv)
		hs := httptest.NewServer(h)
		t.Cleanup(stop)
		t.Cleanup(hs.Close)
		conn, err := web.New(hs.URL, web.Options{Text: text})
		if err != nil {
			t.Fatalf("web.New: %v", err)
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	}
}

func TestWebConformanceBinary(t *testing.T) {
	accounttest.RunBindingConformance(t, newWebBinding(false))
}

func TestWebConformanceText(t *testing.T) {
	accounttest.RunBindingConformance(t, newWebBinding(true))
}
