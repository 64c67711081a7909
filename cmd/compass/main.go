// Command compass is a terminal client for the Trade Compass screener.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/trade-compass/compass-go/internal/config"
	"github.com/trade-compass/compass-go/pkg/compass"
)

// app holds what every command needs
type app struct {
	cfg     config.Config
	client  *compass.Client
	logger  *slog.Logger
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	jsonOut bool
}

type command struct {
	usage string
	run   func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"login":     {"login -email EMAIL", cmdLogin},
	"logout":    {"logout", cmdLogout},
	"whoami":    {"whoami", cmdWhoami},
	"sectors":   {"sectors", cmdSectors},
	"companies": {"companies [-sector ID]", cmdCompanies},
	"company":   {"company TICKER", cmdCompany},
	"candles":   {"candles TICKER [-days N] [-interval H]", cmdCandles},
	"reports":   {"reports TICKER", cmdReports},
	"analyses":  {"analyses TICKER", cmdAnalyses},
	"drafts":    {"drafts TICKER", cmdDrafts},
	"confirm":   {"confirm TICKER -year YYYY -period Q1|Q2|Q3|YEAR", cmdConfirm},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one command and returns the process exit code
func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("compass", flag.ContinueOnError)
	fs.SetOutput(errOut)
	configPath := fs.String("config", config.DefaultPath(), "Path to config file")
	jsonOut := fs.Bool("json", false, "Print JSON instead of tables")
	verbose := fs.Bool("v", false, "Debug logging")
	fs.Usage = func() { printUsage(errOut, fs) }

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(errOut, "unknown command %q\n\n", name)
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to load config: %v\n", err)
		return 1
	}
	if *verbose {
		cfg.LogLevel = "debug"
	}

	a, err := newApp(cfg, in, out, errOut, *jsonOut)
	if err != nil {
		fmt.Fprintf(errOut, "Failed to create client: %v\n", err)
		return 1
	}
	defer a.client.Close()

	if err := cmd.run(ctx, a, fs.Args()[1:]); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		if errors.Is(err, compass.ErrSessionExpired) || errors.Is(err, compass.ErrNotAuthenticated) {
			fmt.Fprintln(errOut, "Your session has ended. Run `compass login` to sign in again.")
		}
		return 1
	}
	return 0
}

func newApp(cfg config.Config, in io.Reader, out, errOut io.Writer, jsonOut bool) (*app, error) {
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: cfg.Level()}))

	opts := &compass.ClientOptions{
		BaseURL:     cfg.BaseURL,
		Timeout:     cfg.Timeout,
		SessionFile: cfg.SessionFile,
		AdminAPIKey: cfg.AdminAPIKey,
		SentryDSN:   cfg.SentryDSN,
		RetryConfig: cfg.Retry,
		Logger:      logger,
	}

	opts.OnSessionExpired = compass.SessionExpiredFunc(func(ctx context.Context, redirectTo string) {
		logger.Warn("Session could not be renewed", "login", redirectTo)
	})

	if cfg.RateLimit.RPS > 0 {
		burst := cfg.RateLimit.Burst
		if burst == 0 {
			burst = 1
		}
		opts.RateLimiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), burst)
	}

	client, err := compass.NewClient(opts)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		in:      in,
		out:     out,
		errOut:  errOut,
		jsonOut: jsonOut,
	}, nil
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintln(w, "Usage: compass [flags] COMMAND [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
