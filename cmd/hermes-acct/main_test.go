package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xdao.co/hermes/accounttest"
)

func startLedger(t *testing.T) string {
	t.Helper()
	h, stop := accounttest.WebHandler(accounttest.NewLedger(accounttest.Connie()))
	hs := httptest.NewServer(h)
	t.Cleanup(stop)
	t.Cleanup(hs.Close)
	return hs.URL
}

func TestRunGetAccountWeb(t *testing.T) {
	url := startLedger(t)
	var out, errOut bytes.Buffer
	code := run([]string{"get-account", "--binding", "web", "--web-base-url", url, "connie"}, &out, &errOut)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	got := out.String()
	for _, want := range []string{"accountId: connie", "assetCode: USD", "assetScale: 2", "balance: \"500\"", "snapshot: b"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestRunGetBalanceFromConfig(t *testing.T) {
	url := startLedger(t)
	cfgPath := filepath.Join(t.TempDir(), "hermes.yaml")
	cfg := "binding: web\nlog_level: error\nweb:\n  base_url: " + url + "\n  text: true\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out, errOut bytes.Buffer
	if code := run([]string{"get-balance", "--config", cfgPath, "connie"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "accountId: connie") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunFailures(t *testing.T) {
	url := startLedger(t)
	cases := []struct {
		name string
		args []string
		want string
	}{
		{"empty id", []string{"get-balance", "--binding", "web", "--web-base-url", url, ""}, "InvalidArgument: "},
		{"unknown account", []string{"get-account", "--binding", "web", "--web-base-url", url, "ghost"}, "TransportOrEmptyResponse: "},
		{"missing asset code", []string{"create-account", "--binding", "web", "--web-base-url", url, "--id", "dora"}, "InvalidArgument: "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			if code := run(tc.args, &out, &errOut); code != 1 {
				t.Fatalf("exit %d, want 1 (stderr: %s)", code, errOut.String())
			}
			if !strings.HasPrefix(errOut.String(), tc.want) {
				t.Fatalf("stderr = %q, want prefix %q", errOut.String(), tc.want)
			}
		})
	}
}

func TestRunCreateAccount(t *testing.T) {
	url := startLedger(t)
	var out, errOut bytes.Buffer
	args := []string{"create-account", "--binding", "web", "--web-base-url", url, "--id", "dora", "--asset-code", "EUR", "--description", "savings"}
	if code := run(args, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	if !strings.Contains(out.String(), "description: savings") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRunBindings(t *testing.T) {
	var out bytes.Buffer
	if code := run([]string{"bindings"}, &out, &out); code != 0 {
		t.Fatalf("exit %d", code)
	}
	for _, name := range []string{"native\t", "web\t"} {
		if !strings.Contains(out.String(), name) {
			t.Fatalf("bindings output missing %q:\n%s", name, out.String())
		}
	}
}

func TestRunUnknownBindingListsChoices(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run([]string{"get-account", "--binding", "carrier-pigeon", "connie"}, &out, &errOut); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
	if !strings.Contains(errOut.String(), `unknown binding "carrier-pigeon" (have: native, web)`) {
		t.Fatalf("stderr = %q", errOut.String())
	}
}

func TestRunUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(nil, &out, &errOut); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
	if code := run([]string{"transfer"}, &out, &errOut); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
}
