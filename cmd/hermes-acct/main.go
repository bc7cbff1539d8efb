package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"xdao.co/hermes/account"
	"xdao.co/hermes/client"
	"xdao.co/hermes/config"
	"xdao.co/hermes/internal/logging"
	"xdao.co/hermes/outcome"
	"xdao.co/hermes/transport"
	"xdao.co/hermes/transport/registry"

	_ "xdao.co/hermes/transport/native"
	_ "xdao.co/hermes/transport/web"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "get-account":
		return cmdGet(account.OpGetAccount, args[1:], out, errOut)
	case "get-balance":
		return cmdGet(account.OpGetBalance, args[1:], out, errOut)
	case "create-account":
		return cmdCreate(args[1:], out, errOut)
	case "bindings":
		return cmdBindings(out)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "hermes-acct: ledger account client")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  hermes-acct get-account [connection flags] <account-id>")
	fmt.Fprintln(w, "  hermes-acct get-balance [connection flags] <account-id>")
	fmt.Fprintln(w, "  hermes-acct create-account [connection flags] --id <id> --asset-code <code> [--asset-scale <n>] [--description <text>] [--jwt <token>]")
	fmt.Fprintln(w, "  hermes-acct bindings")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Connection flags:")
	fmt.Fprintln(w, "  --config <file>          yaml/json/toml config (HERMES_* env vars override)")
	fmt.Fprintln(w, "  --binding native|web     binding to use when --config is not given")
	fmt.Fprintln(w, "  --native-target, --web-base-url, ...  per-binding flags (see bindings)")
	fmt.Fprintln(w, "  --timeout <duration>     overall deadline for the call")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - the record is printed as a field: value listing followed by its snapshot CID")
	fmt.Fprintln(w, "  - failures print <kind>: <message> to stderr and exit 1")
}

// conn holds the flags shared by every call subcommand.
type conn struct {
	configPath string
	binding    *registry.Selector
	logLevel   string
	timeout    time.Duration
}

func (c *conn) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Config file (overrides --binding and per-binding flags)")
	fs.StringVar(&c.logLevel, "log-level", "", "Diagnostics level (debug, info, warn, error); default error")
	fs.DurationVar(&c.timeout, "timeout", 10*time.Second, "Call deadline; 0 disables")
	c.binding = registry.Flags(fs, "native")
}

func (c *conn) open() (*client.Client, func(), error) {
	var (
		b     transport.Binding
		level = c.logLevel
		err   error
	)
	if c.configPath != "" {
		cfg, lerr := config.Load(c.configPath)
		if lerr != nil {
			return nil, nil, lerr
		}
		if level == "" {
			level = cfg.LogLevel
		}
		b, err = cfg.Open()
	} else {
		b, err = c.binding.Open()
	}
	if err != nil {
		return nil, nil, err
	}
	if level == "" {
		level = "error"
	}
	log, err := logging.New(level)
	if err != nil {
		_ = b.Close()
		return nil, nil, err
	}
	cl := client.New(b, client.WithLogger(log))
	cleanup := func() {
		_ = cl.Close()
		_ = log.Sync()
	}
	return cl, cleanup, nil
}

func (c *conn) callContext() (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(context.Background(), c.timeout)
	}
	return context.WithCancel(context.Background())
}

func cmdGet(op account.Op, args []string, out io.Writer, errOut io.Writer) int {
	name := "get-account"
	if op == account.OpGetBalance {
		name = "get-balance"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(errOut)
	var c conn
	c.register(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(errOut, "usage: hermes-acct %s [connection flags] <account-id>\n", name)
		return 2
	}

	cl, cleanup, err := c.open()
	if err != nil {
		fmt.Fprintf(errOut, "open binding: %v\n", err)
		return 2
	}
	defer cleanup()

	ctx, cancel := c.callContext()
	defer cancel()
	id := account.ID(fs.Arg(0))
	var p *client.Pending
	if op == account.OpGetBalance {
		p = cl.GetBalance(ctx, id)
	} else {
		p = cl.GetAccount(ctx, id)
	}
	return report(p.Wait(), out, errOut)
}

func cmdCreate(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("create-account", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var (
		c     conn
		req   account.CreateRequest
		id    string
		scale uint
	)
	c.register(fs)
	fs.StringVar(&id, "id", "", "Account id")
	fs.StringVar(&req.AssetCode, "asset-code", "", "Asset code, e.g. USD")
	fs.UintVar(&scale, "asset-scale", 2, "Asset scale (0-255)")
	fs.StringVar(&req.Description, "description", "", "Free-form description")
	fs.StringVar(&req.JWT, "jwt", os.Getenv("HERMES_JWT"), "Bearer token forwarded to the service (default $HERMES_JWT)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: hermes-acct create-account [connection flags] --id <id> --asset-code <code> ...")
		return 2
	}
	if scale > 255 {
		fmt.Fprintf(errOut, "%s: asset scale %d out of range\n", outcome.KindInvalidArgument, scale)
		return 1
	}
	req.AccountID = account.ID(id)
	req.AssetScale = uint32(scale)

	cl, cleanup, err := c.open()
	if err != nil {
		fmt.Fprintf(errOut, "open binding: %v\n", err)
		return 2
	}
	defer cleanup()

	ctx, cancel := c.callContext()
	defer cancel()
	return report(cl.CreateAccount(ctx, req).Wait(), out, errOut)
}

func cmdBindings(out io.Writer) int {
	for _, b := range registry.List() {
		if b.Description == "" {
			_, _ = fmt.Fprintf(out, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
	}
	return 0
}

func report(o outcome.Outcome, out io.Writer, errOut io.Writer) int {
	r, err := o.Unwrap()
	if err != nil {
		var oe *outcome.Error
		if errors.As(err, &oe) {
			fmt.Fprintf(errOut, "%s: %s\n", oe.Kind, oe.Message)
		} else {
			fmt.Fprintln(errOut, err)
		}
		return 1
	}
	_, _ = fmt.Fprintln(out, r.String())
	id, err := account.SnapshotID(r)
	if err != nil {
		fmt.Fprintf(errOut, "snapshot id: %v\n", err)
		return 0
	}
	_, _ = fmt.Fprintf(out, "snapshot: %s\n", id)
	return 0
}
