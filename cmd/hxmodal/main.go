package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/pthm/hxmodal"
	"github.com/pthm/hxmodal/lib/accounts"
	"github.com/pthm/hxmodal/lib/config"
	"github.com/pthm/hxmodal/lib/encoding"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "serve":
		if err := runServe(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "demo":
		if err := runDemo(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("hxmodal version %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`hxmodal - create-account dialog demo server

Usage:
  hxmodal <command> [arguments]

Commands:
  serve                 Run the account server
  demo                  Drive the create-account dialog against an in-process server
  version               Print version
  help                  Show this help

Options:
  --config <path>       YAML configuration file (default: hxmodal.yaml)

Environment variables prefixed with HXMODAL_ override the file, e.g.
HXMODAL_HTTP_PORT=9000 or HXMODAL_LOG_FORMAT=json.

Examples:
  hxmodal serve --config ./hxmodal.yaml
  hxmodal demo`)
}

// loadConfig reads the --config flag from args and loads the configuration.
func loadConfig(args []string) (config.Config, error) {
	path := "hxmodal.yaml"
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--config":
			if i+1 >= len(args) {
				return config.Config{}, errors.New("--config requires a path")
			}
			i++
			path = args[i]
		case strings.HasPrefix(arg, "--config="):
			path = strings.TrimPrefix(arg, "--config=")
		default:
			return config.Config{}, fmt.Errorf("unknown argument: %s", arg)
		}
	}
	return config.Load(path)
}

func newAccountsServer(cfg config.Config, logger *slog.Logger) (*accounts.Server, error) {
	enc, err := encoding.NewEncoder([]byte(cfg.TicketSecret))
	if err != nil {
		return nil, err
	}
	return accounts.NewServer(enc,
		accounts.WithTicketTTL(cfg.TicketTTL),
		accounts.WithEncryptedTickets(cfg.EncryptTickets),
		accounts.WithMinPasswordLength(cfg.MinPasswordLength),
		accounts.WithSuccessMessage(cfg.SuccessMessage),
		accounts.WithLogger(logger),
	), nil
}

func runServe(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)
	srv, err := newAccountsServer(cfg, logger)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("account server listening", "addr", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

type demoResult struct {
	step string
	text string
	err  error
}

// runDemo serves the account site on a loopback port and walks the dialog
// through a rejected and then an accepted submission.
func runDemo(args []string) error {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger := cfg.Logger(os.Stderr)
	srv, err := newAccountsServer(cfg, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	httpSrv := &http.Server{Handler: srv.Handler(), ReadTimeout: cfg.ReadTimeout, WriteTimeout: cfg.WriteTimeout}
	go func() { _ = httpSrv.Serve(ln) }()
	defer httpSrv.Close()

	origin := "http://" + ln.Addr().String() + "/"
	markup, err := fetchPage(origin)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	loop := hxmodal.NewLoop()
	go func() { _ = loop.Run(ctx) }()

	page, doc, err := hxmodal.BootstrapMarkup(markup,
		[]hxmodal.ModalOption{hxmodal.WithScheduler(loop), hxmodal.WithModalLogger(logger)},
		hxmodal.WithOrigin(origin),
		hxmodal.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	results := make(chan demoResult, 4)
	password := strings.Repeat("x", cfg.MinPasswordLength)
	attempt := map[string]string{
		"username":  "demo",
		"email":     "demo@example.com",
		"password":  password,
		"password2": password + "-typo",
	}

	page.On(hxmodal.EventFormInit, func(args ...any) {
		var session *hxmodal.FormSession
		if len(args) > 1 {
			session, _ = args[1].(*hxmodal.FormSession)
		}
		if session == nil {
			results <- demoResult{step: "init", err: errors.New("form init without a session")}
			return
		}
		session.On(hxmodal.EventSubmitErrors, func(args ...any) {
			var errs map[string][]string
			if len(args) > 0 {
				errs, _ = args[0].(map[string][]string)
			}
			results <- demoResult{step: "rejected", text: formatErrors(errs)}

			attempt["password2"] = password
			session.Fill(attempt)
			if err := session.Submit(ctx); err != nil {
				results <- demoResult{step: "resubmit", err: err}
			}
		})
		session.On(hxmodal.EventSubmitSuccess, func(...any) {
			toasts := doc.Find(hxmodal.ToastContainerSelector + " .toast")
			results <- demoResult{step: "created", text: strings.TrimSpace(toasts.Last().Text())}
		})

		session.Fill(attempt)
		if err := session.Submit(ctx); err != nil {
			results <- demoResult{step: "submit", err: err}
		}
	})

	loop.Post(func() {
		if err := page.Click(ctx, hxmodal.CreateAccountSelector); err != nil {
			results <- demoResult{step: "click", err: err}
		}
	})

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("demo timed out: %w", ctx.Err())
		case r := <-results:
			if r.err != nil {
				return fmt.Errorf("%s: %w", r.step, r.err)
			}
			fmt.Printf("%-9s %s\n", r.step, r.text)
			if r.step != "created" {
				continue
			}
			for _, u := range srv.Store().List() {
				fmt.Printf("%-9s %s <%s> id=%s\n", "user", u.Username, u.Email, u.ID)
			}
			return nil
		}
	}
}

func fetchPage(url string) (string, error) {
	resp, err := http.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	return string(raw), err
}

func formatErrors(errs map[string][]string) string {
	fields := make([]string, 0, len(errs))
	for f := range errs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(errs[f], " "))
	}
	return strings.Join(parts, "; ")
}
