package accounttest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"xdao.co/hermes/account"
	"xdao.co/hermes/client"
	"xdao.co/hermes/outcome"
	"xdao.co/hermes/transport"
)

// NewBinding serves srv over a fresh endpoint and returns a binding
// connected to it. The endpoint and binding MUST be isolated from other tests
// and torn down via t.Cleanup.
type NewBinding func(t *testing.T, srv account.AccountServiceServer) transport.Binding

// Connie is the reference account used by the conformance suite.
func Connie() account.Record {
	return account.Record{
		AccountID:  "connie",
		AssetCode:  "USD",
		AssetScale: 2,
		Balance:    decimal.NullDecimal{Decimal: decimal.RequireFromString("500"), Valid: true},
	}
}

func RunBindingConformance(t *testing.T, newBinding NewBinding) {
	t.Helper()

	setup := func(t *testing.T, records ...account.Record) (*Ledger, *client.Client) {
		t.Helper()
		l := NewLedger(records...)
		b := newBinding(t, l)
		return l, client.New(b)
	}

	t.Run("ConnieGetAccount", func(t *testing.T) {
		_, c := setup(t, Connie())
		o := c.GetAccount(context.Background(), "connie").Wait()
		if !o.OK() {
			t.Fatalf("GetAccount failed: %v", o.Err)
		}
		if !o.Record.Equal(Connie()) {
			t.Fatalf("record mismatch:\n%s\nwant:\n%s", o.Record, Connie())
		}
	})

	t.Run("GetBalance", func(t *testing.T) {
		want := Connie()
		want.Description = "petty cash"
		want.PrepaidAmount = decimal.NullDecimal{Decimal: decimal.RequireFromString("12.5"), Valid: true}
		_, c := setup(t, want)

		o := c.GetBalance(context.Background(), "connie").Wait()
		if !o.OK() {
			t.Fatalf("GetBalance failed: %v", o.Err)
		}
		if !o.Record.Equal(BalanceView(want)) {
			t.Fatalf("balance view mismatch:\n%s", o.Record)
		}
	})

	t.Run("EmptyIDNeverReachesService", func(t *testing.T) {
		l, c := setup(t, Connie())
		for _, p := range []*client.Pending{
			c.GetAccount(context.Background(), ""),
			c.GetBalance(context.Background(), ""),
			c.CreateAccount(context.Background(), account.CreateRequest{AssetCode: "USD"}),
		} {
			o := p.Wait()
			if o.Err == nil || o.Err.Kind != outcome.KindInvalidArgument {
				t.Fatalf("expected InvalidArgument, got %+v", o)
			}
		}
		if n := l.TotalCalls(); n != 0 {
			t.Fatalf("service saw %d calls", n)
		}
	})

	t.Run("RemoteErrorKeepsCode", func(t *testing.T) {
		l, c := setup(t)
		o := c.GetAccount(context.Background(), "ghost").Wait()
		if o.Record != nil || o.Err == nil {
			t.Fatalf("expected failure, got %+v", o)
		}
		if o.Err.Kind != outcome.KindTransportOrEmptyResponse || o.Err.Code != codes.NotFound {
			t.Fatalf("expected TransportOrEmptyResponse/NotFound, got %s/%s", o.Err.Kind, o.Err.Code)
		}

		l.SetStub(func(context.Context, account.Op, proto.Message) (*structpb.Struct, error) {
			return nil, status.Error(codes.PermissionDenied, "jwt rejected: bad signature")
		})
		o = c.GetAccount(context.Background(), "connie").Wait()
		if o.Err == nil || o.Err.Code != codes.PermissionDenied || o.Err.Message != "jwt rejected: bad signature" {
			t.Fatalf("remote status not preserved: %+v", o.Err)
		}
	})

	t.Run("EmptyResponse", func(t *testing.T) {
		l, c := setup(t)
		l.SetStub(func(context.Context, account.Op, proto.Message) (*structpb.Struct, error) {
			return nil, nil
		})
		o := c.GetBalance(context.Background(), "connie").Wait()
		if o.Err == nil || o.Err.Kind != outcome.KindTransportOrEmptyResponse {
			t.Fatalf("expected TransportOrEmptyResponse, got %+v", o)
		}
	})

	t.Run("MalformedResponse", func(t *testing.T) {
		l, c := setup(t)
		l.SetStub(func(context.Context, account.Op, proto.Message) (*structpb.Struct, error) {
			return structpb.NewStruct(map[string]any{"accountId": "connie", "assetCode": "USD", "assetScale": "two"})
		})
		o := c.GetAccount(context.Background(), "connie").Wait()
		if o.Err == nil || o.Err.Kind != outcome.KindMalformedResponse {
			t.Fatalf("expected MalformedResponse, got %+v", o)
		}
	})

	t.Run("UndecodablePayload", func(t *testing.T) {
		l, c := setup(t)
		l.SetStub(UndecodableReply)
		for _, p := range []*client.Pending{
			c.GetAccount(context.Background(), "connie"),
			c.GetBalance(context.Background(), "connie"),
		} {
			o := p.Wait()
			if o.Record != nil || o.Err == nil || o.Err.Kind != outcome.KindMalformedResponse {
				t.Fatalf("expected MalformedResponse, got %+v", o)
			}
		}
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		_, c := setup(t)
		req := account.CreateRequest{AccountID: "dora", AssetCode: "EUR", AssetScale: 2, Description: "savings"}
		created := c.CreateAccount(context.Background(), req).Wait()
		if !created.OK() {
			t.Fatalf("CreateAccount failed: %v", created.Err)
		}
		got := c.GetAccount(context.Background(), "dora").Wait()
		if !got.OK() {
			t.Fatalf("GetAccount failed: %v", got.Err)
		}
		if !got.Record.Equal(*created.Record) {
			t.Fatalf("created and fetched records differ:\n%s\n---\n%s", created.Record, got.Record)
		}

		dup := c.CreateAccount(context.Background(), req).Wait()
		if dup.Err == nil || dup.Err.Code != codes.AlreadyExists {
			t.Fatalf("expected AlreadyExists, got %+v", dup)
		}
	})

	t.Run("ReadsAreIdempotent", func(t *testing.T) {
		l, c := setup(t, Connie())
		first := c.GetAccount(context.Background(), "connie").Wait()
		second := c.GetAccount(context.Background(), "connie").Wait()
		if !first.OK() || !second.OK() {
			t.Fatalf("reads failed: %v / %v", first.Err, second.Err)
		}
		if !first.Record.Equal(*second.Record) {
			t.Fatalf("repeated reads differ")
		}
		if n := l.Calls(account.OpGetAccount); n != 2 {
			t.Fatalf("expected 2 calls, got %d", n)
		}
	})

	t.Run("ConcurrentCallsDoNotCrossTalk", func(t *testing.T) {
		const n = 32
		records := make([]account.Record, n)
		for i := range records {
			records[i] = account.Record{
				AccountID:  account.ID(fmt.Sprintf("acct-%02d", i)),
				AssetCode:  "USD",
				AssetScale: 2,
				Balance:    decimal.NullDecimal{Decimal: decimal.NewFromInt(int64(i * 100)), Valid: true},
			}
		}
		_, c := setup(t, records...)

		outcomes := make([]outcome.Outcome, n)
		var wg sync.WaitGroup
		for i := range records {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i] = c.GetBalance(context.Background(), records[i].AccountID).Wait()
			}(i)
		}
		wg.Wait()

		for i, o := range outcomes {
			if !o.OK() {
				t.Fatalf("call %d failed: %v", i, o.Err)
			}
			if !o.Record.Equal(BalanceView(records[i])) {
				t.Fatalf("call %d got %s", i, o.Record.AccountID)
			}
		}
	})

	t.Run("RequestIDForwarded", func(t *testing.T) {
		l, c := setup(t, Connie())
		if o := c.GetAccount(context.Background(), "connie").Wait(); !o.OK() {
			t.Fatalf("GetAccount failed: %v", o.Err)
		}
		if v := l.LastMetadata().Get(client.RequestIDHeader); len(v) != 1 || v[0] == "" {
			t.Fatalf("expected one %s value, got %v", client.RequestIDHeader, v)
		}
	})

	t.Run("CanceledCall", func(t *testing.T) {
		l, c := setup(t)
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		entered := make(chan struct{}, 1)
		l.SetStub(func(ctx context.Context, _ account.Op, _ proto.Message) (*structpb.Struct, error) {
			entered <- struct{}{}
			select {
			case <-ctx.Done():
			case <-release:
			}
			return nil, status.FromContextError(context.Canceled).Err()
		})

		ctx, cancel := context.WithCancel(context.Background())
		p := c.GetAccount(ctx, "connie")
		<-entered
		cancel()
		o := p.Wait()
		if o.Err == nil || o.Err.Kind != outcome.KindTransportOrEmptyResponse || o.Err.Code != codes.Canceled {
			t.Fatalf("expected TransportOrEmptyResponse/Canceled, got %+v", o.Err)
		}
	})

	t.Run("TargetIsFixed", func(t *testing.T) {
		_, c := setup(t, Connie())
		before := c.Binding().Target()
		c.GetAccount(context.Background(), "connie").Wait()
		if after := c.Binding().Target(); after != before {
			t.Fatalf("target changed from %q to %q", before, after)
		}
	})
}
