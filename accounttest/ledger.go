// Package accounttest provides an in-memory account service and a conformance
// suite for transport bindings.
package accounttest

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/hermes/account"
)

// StubFunc replaces the ledger's behavior for every call while installed.
// Its reply is sent as is; a nil reply is sent as an empty message.
type StubFunc func(ctx context.Context, op account.Op, in proto.Message) (*structpb.Struct, error)

// Ledger is an in-memory account.AccountServiceServer.
type Ledger struct {
	account.UnimplementedAccountServiceServer

	mu       sync.Mutex
	accounts map[account.ID]account.Record
	calls    map[account.Op]int
	lastMD   metadata.MD
	stub     StubFunc

	// Now stamps created accounts; defaults to time.Now in UTC.
	Now func() time.Time
}

func NewLedger(records ...account.Record) *Ledger {
	l := &Ledger{
		accounts: make(map[account.ID]account.Record, len(records)),
		calls:    make(map[account.Op]int),
	}
	for _, r := range records {
		l.accounts[r.AccountID] = r
	}
	return l
}

// Put stores r, replacing any account with the same id.
func (l *Ledger) Put(r account.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[r.AccountID] = r
}

func (l *Ledger) Get(id account.ID) (account.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.accounts[id]
	return r, ok
}

// SetStub installs fn; nil restores the in-memory behavior.
func (l *Ledger) SetStub(fn StubFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stub = fn
}

// Calls returns how many times op reached the ledger.
func (l *Ledger) Calls(op account.Op) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, c := range l.calls {
		n += c
	}
	return n
}

// LastMetadata returns the incoming metadata of the most recent call.
func (l *Ledger) LastMetadata() metadata.MD {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastMD.Copy()
}

func (l *Ledger) enter(ctx context.Context, op account.Op) StubFunc {
	md, _ := metadata.FromIncomingContext(ctx)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls[op]++
	l.lastMD = md
	return l.stub
}

// UndecodableReply is a StubFunc whose reply goes on the wire as 0a 01 78:
// well-formed protobuf, but field 1 does not hold a valid Struct entry.
func UndecodableReply(context.Context, account.Op, proto.Message) (*structpb.Struct, error) {
	s := &structpb.Struct{}
	s.ProtoReflect().SetUnknown(protoreflect.RawFields{0x0a, 0x01, 0x78})
	return s, nil
}

func stubbed(ctx context.Context, fn StubFunc, op account.Op, in proto.Message) (*structpb.Struct, error) {
	out, err := fn(ctx, op, in)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = &structpb.Struct{}
	}
	return out, nil
}

func (l *Ledger) GetAccount(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if fn := l.enter(ctx, account.OpGetAccount); fn != nil {
		return stubbed(ctx, fn, account.OpGetAccount, in)
	}
	r, ok := l.Get(account.ID(in.GetValue()))
	if !ok {
		return nil, status.Errorf(codes.NotFound, "account %q not found", in.GetValue())
	}
	return account.EncodeRecord(r), nil
}

// GetBalance answers with the balance view: identity, asset and amounts only.
func (l *Ledger) GetBalance(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	if fn := l.enter(ctx, account.OpGetBalance); fn != nil {
		return stubbed(ctx, fn, account.OpGetBalance, in)
	}
	r, ok := l.Get(account.ID(in.GetValue()))
	if !ok {
		return nil, status.Errorf(codes.NotFound, "account %q not found", in.GetValue())
	}
	return account.EncodeRecord(BalanceView(r)), nil
}

func (l *Ledger) CreateAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if fn := l.enter(ctx, account.OpCreateAccount); fn != nil {
		return stubbed(ctx, fn, account.OpCreateAccount, in)
	}
	req, err := account.DecodeCreateRequest(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	now := time.Now().UTC()
	if l.Now != nil {
		now = l.Now()
	}
	zero := decimal.NullDecimal{Decimal: decimal.Zero, Valid: true}
	r := account.Record{
		AccountID:       req.AccountID,
		AssetCode:       req.AssetCode,
		AssetScale:      req.AssetScale,
		Description:     req.Description,
		Balance:         zero,
		PrepaidAmount:   zero,
		ClearingBalance: zero,
		CreatedAt:       now,
		ModifiedAt:      now,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.accounts[r.AccountID]; exists {
		return nil, status.Errorf(codes.AlreadyExists, "account %q already exists", r.AccountID)
	}
	l.accounts[r.AccountID] = r
	return account.EncodeRecord(r), nil
}

// BalanceView strips r down to what GetBalance reports.
func BalanceView(r account.Record) account.Record {
	return account.Record{
		AccountID:       r.AccountID,
		AssetCode:       r.AssetCode,
		AssetScale:      r.AssetScale,
		Balance:         r.Balance,
		PrepaidAmount:   r.PrepaidAmount,
		ClearingBalance: r.ClearingBalance,
	}
}
