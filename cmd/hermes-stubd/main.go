package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/hermes/account"
	"xdao.co/hermes/accounttest"
	"xdao.co/hermes/internal/logging"
)

func main() {
	os.Exit(serve())
}

// serve returns the exit code so the signal handler is released before exit.
func serve() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stderr, nil)
}

// seedList collects repeated --seed id:CODE:scale:balance values.
type seedList []account.Record

func (s *seedList) String() string { return fmt.Sprintf("%d accounts", len(*s)) }

func (s *seedList) Set(v string) error {
	r, err := parseSeed(v)
	if err != nil {
		return err
	}
	*s = append(*s, r)
	return nil
}

func parseSeed(v string) (account.Record, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 4 {
		return account.Record{}, fmt.Errorf("seed %q: want id:CODE:scale:balance", v)
	}
	id := account.ID(strings.TrimSpace(parts[0]))
	if err := id.Validate(); err != nil {
		return account.Record{}, fmt.Errorf("seed %q: %w", v, err)
	}
	scale, err := strconv.ParseUint(parts[2], 10, 8)
	if err != nil {
		return account.Record{}, fmt.Errorf("seed %q: invalid scale: %w", v, err)
	}
	bal, err := decimal.NewFromString(parts[3])
	if err != nil {
		return account.Record{}, fmt.Errorf("seed %q: invalid balance: %w", v, err)
	}
	now := time.Now().UTC()
	return account.Record{
		AccountID:  id,
		AssetCode:  strings.ToUpper(strings.TrimSpace(parts[1])),
		AssetScale: uint32(scale),
		Balance:    decimal.NewNullDecimal(bal),
		CreatedAt:  now,
		ModifiedAt: now,
	}, nil
}

// ready, when non-nil, receives the bound native and web addresses.
func run(ctx context.Context, args []string, errOut io.Writer, ready func(nativeAddr, webAddr string)) int {
	fs := flag.NewFlagSet("hermes-stubd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:7777", "native gRPC listen address")
	webListen := fs.String("web-listen", "127.0.0.1:8080", "gRPC-Web and /metrics listen address")
	logLevel := fs.String("log-level", "info", "log level (debug, info, warn, error)")
	var seeds seedList
	fs.Var(&seeds, "seed", "account to preload as id:CODE:scale:balance (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	log, err := logging.New(*logLevel)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	reg := prometheus.NewRegistry()
	served := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hermes",
		Subsystem: "stubd",
		Name:      "requests_total",
		Help:      "Account service requests served by the stub ledger.",
	}, []string{"method", "code"})
	reg.MustRegister(served)

	svc := &instrumented{next: accounttest.NewLedger(seeds...), served: served, log: log}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer lis.Close()
	webLis, err := net.Listen("tcp", *webListen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer webLis.Close()

	gs := grpc.NewServer()
	account.RegisterAccountServiceServer(gs, svc)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/"+account.ServiceName+"/", accounttest.WrapWeb(gs))
	hs := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 2)
	go func() { errc <- gs.Serve(lis) }()
	go func() { errc <- hs.Serve(webLis) }()

	log.Info("hermes-stubd listening",
		zap.String("native", lis.Addr().String()),
		zap.String("web", webLis.Addr().String()),
		zap.Int("seeded", len(seeds)))
	if ready != nil {
		ready(lis.Addr().String(), webLis.Addr().String())
	}

	code := 0
	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve failed", zap.Error(err))
			code = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = hs.Shutdown(shutdownCtx)
	gs.GracefulStop()
	log.Info("hermes-stubd stopped")
	return code
}

// instrumented counts and logs every request before delegating.
type instrumented struct {
	account.UnimplementedAccountServiceServer
	next   account.AccountServiceServer
	served *prometheus.CounterVec
	log    *zap.Logger
}

func (s *instrumented) observe(op account.Op, id string, err error) {
	code := status.Code(err)
	s.served.WithLabelValues(op.String(), code.String()).Inc()
	s.log.Debug("served", zap.String("method", op.String()), zap.String("account_id", id), zap.String("code", code.String()))
}

func (s *instrumented) GetAccount(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	out, err := s.next.GetAccount(ctx, in)
	s.observe(account.OpGetAccount, in.GetValue(), err)
	return out, err
}

func (s *instrumented) GetBalance(ctx context.Context, in *wrapperspb.StringValue) (*structpb.Struct, error) {
	out, err := s.next.GetBalance(ctx, in)
	s.observe(account.OpGetBalance, in.GetValue(), err)
	return out, err
}

func (s *instrumented) CreateAccount(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	out, err := s.next.CreateAccount(ctx, in)
	s.observe(account.OpCreateAccount, in.GetFields()[account.FieldAccountID].GetStringValue(), err)
	return out, err
}
