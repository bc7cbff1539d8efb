package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"xdao.co/hermes/client"
	"xdao.co/hermes/transport/native"
	"xdao.co/hermes/transport/web"
)

func TestParseSeed(t *testing.T) {
	r, err := parseSeed("connie:usd:2:500")
	if err != nil {
		t.Fatalf("parseSeed: %v", err)
	}
	if r.AccountID != "connie" || r.AssetCode != "USD" || r.AssetScale != 2 || r.Balance.Decimal.String() != "500" {
		t.Fatalf("unexpected record:\n%s", r)
	}

	for _, bad := range []string{"", "connie:USD:2", ":USD:2:500", "connie:USD:256:500", "connie:USD:2:lots"} {
		if _, err := parseSeed(bad); err == nil {
			t.Fatalf("parseSeed(%q): expected error", bad)
		}
	}
}

func TestRunServesBothBindings(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	type addrs struct{ native, web string }
	readyc := make(chan addrs, 1)
	done := make(chan int, 1)
	var errOut bytes.Buffer
	go func() {
		done <- run(ctx, []string{"--listen", "127.0.0.1:0", "--web-listen", "127.0.0.1:0", "--log-level", "error", "--seed", "connie:USD:2:500"}, &errOut,
			func(n, w string) { readyc <- addrs{n, w} })
	}()

	var a addrs
	select {
	case a = <-readyc:
	case code := <-done:
		t.Fatalf("run exited early with %d: %s", code, errOut.String())
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for listeners")
	}

	nc, err := native.Dial(a.native, native.DialOptions{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("native.Dial: %v", err)
	}
	wc, err := web.New("http://"+a.web, web.Options{})
	if err != nil {
		t.Fatalf("web.New: %v", err)
	}
	for _, c := range []*client.Client{client.New(nc), client.New(wc)} {
		o := c.GetAccount(context.Background(), "connie").Wait()
		if !o.OK() {
			t.Fatalf("%s: GetAccount failed: %v", c.Binding().Name(), o.Err)
		}
		_ = c.Close()
	}

	resp, err := http.Get("http://" + a.web + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `hermes_stubd_requests_total{code="OK",method="GetAccount"} 2`) {
		t.Fatalf("metrics missing request count:\n%s", body)
	}

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("exit %d: %s", code, errOut.String())
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop")
	}
}
