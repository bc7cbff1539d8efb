package accounttest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/hermes/account"
	"xdao.co/hermes/transport/web"
)

func TestLedgerGetAccount(t *testing.T) {
	l := NewLedger(Connie())
	out, err := l.GetAccount(context.Background(), wrapperspb.String("connie"))
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	r, err := account.DecodeRecord(out)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !r.Equal(Connie()) {
		t.Fatalf("unexpected record:\n%s", r)
	}

	_, err = l.GetAccount(context.Background(), wrapperspb.String("ghost"))
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if n := l.Calls(account.OpGetAccount); n != 2 {
		t.Fatalf("Calls = %d", n)
	}
}

func TestLedgerCreateAccount(t *testing.T) {
	stamp := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewLedger()
	l.Now = func() time.Time { return stamp }

	in := account.EncodeCreateRequest(account.CreateRequest{AccountID: "dora", AssetCode: "EUR", AssetScale: 2})
	out, err := l.CreateAccount(context.Background(), in)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	r, err := account.DecodeRecord(out)
	if err != nil {
		t.Fatalf("DecodeRecord: %v", err)
	}
	if !r.CreatedAt.Equal(stamp) || !r.Balance.Valid || !r.Balance.Decimal.IsZero() {
		t.Fatalf("unexpected created record:\n%s", r)
	}
	if _, ok := l.Get("dora"); !ok {
		t.Fatalf("account not stored")
	}

	if _, err := l.CreateAccount(context.Background(), in); status.Code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	bad := account.EncodeCreateRequest(account.CreateRequest{AccountID: "eve"})
	if _, err := l.CreateAccount(context.Background(), bad); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestLedgerRecordsMetadata(t *testing.T) {
	l := NewLedger(Connie())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "abc"))
	if _, err := l.GetBalance(ctx, wrapperspb.String("connie")); err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if v := l.LastMetadata().Get("x-request-id"); len(v) != 1 || v[0] != "abc" {
		t.Fatalf("LastMetadata = %v", v)
	}
}

func TestWebHandlerRejectsNonGRPCWeb(t *testing.T) {
	h, stop := WebHandler(NewLedger())
	defer stop()
	hs := httptest.NewServer(h)
	defer hs.Close()

	cases := []struct {
		name        string
		method      string
		contentType string
	}{
		{"GET", http.MethodGet, "application/grpc-web+proto"},
		{"JSON", http.MethodPost, "application/json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, hs.URL+account.OpGetAccount.FullMethod(), strings.NewReader(""))
			if err != nil {
				t.Fatalf("NewRequest: %v", err)
			}
			req.Header.Set("Content-Type", tc.contentType)
			resp, err := hs.Client().Do(req)
			if err != nil {
				t.Fatalf("Do: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
			}
		})
	}
}

func TestWebHandlerUnknownMethod(t *testing.T) {
	h, stop := WebHandler(NewLedger())
	defer stop()
	hs := httptest.NewServer(h)
	defer hs.Close()

	conn, err := web.New(hs.URL, web.Options{})
	if err != nil {
		t.Fatalf("web.New: %v", err)
	}
	defer conn.Close()
	out := &structpb.Struct{}
	err = conn.Invoke(context.Background(), "/"+account.ServiceName+"/Transfer", wrapperspb.String("connie"), out)
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("expected Unimplemented, got %v", err)
	}
}
