package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~jakintosh/storefront/internal/config"
	"git.sr.ht/~jakintosh/storefront/pkg/client"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
	"git.sr.ht/~jakintosh/storefront/pkg/storefront"
)

const usage = `usage: storefront [--config path] <command> [args]

commands:
  login      -email E -password P
  register   -username U -email E -password P
  logout
  whoami     [-verify]
  password   -new P | reset-request -email E | reset -email E -code C -new P
  products   [-category C] | show ID | top [-limit N]
  cart       [list] | add ID | inc ID | dec ID | remove ID | clear
  wishlist   [list] | add ID | remove ID
  orders     [list] | show ID | create -address A | cancel ID | reorder ID
  users      [list] | block ID | unblock ID | promote ID | delete ID
  contact    -name N -email E -message M
  messages   [list] | read ID | replied ID | delete ID
  analytics
  session    watch
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// app is one invocation: a configured client over the session store.
type app struct {
	cfg   *config.Config
	log   *slog.Logger
	store credentials.Store
	shop  *storefront.Shop
	out   io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "", "path to config file (overrides CONFIG_PATH env)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "storefront: %v\n", err)
		return 1
	}
	log := setupLogger(cfg.Env, stderr)

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		fmt.Fprintf(stderr, "storefront: %v\n", err)
		return 1
	}
	defer closeStore()

	c, err := client.New(cfg.API.BaseURL, store,
		client.WithLogger(log),
		client.WithRequestTimeout(cfg.API.RequestTimeout),
		client.WithRefreshTimeout(cfg.API.RefreshTimeout),
		client.WithSignInRoute(cfg.API.SignInRoute),
		client.WithSignOut(func(_ context.Context, route string, cause error) {
			fmt.Fprintf(stderr, "session ended (%v); sign in again with `storefront %s`\n", cause, signInCommand(route))
		}),
	)
	if err != nil {
		fmt.Fprintf(stderr, "storefront: %v\n", err)
		return 1
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		store: store,
		shop:  storefront.New(c),
		out:   stdout,
	}
	if err := a.dispatch(ctx, fs.Arg(0), fs.Args()[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(stderr, usage)
			return 2
		}
		fmt.Fprintf(stderr, "storefront: %v\n", describe(err))
		return 1
	}
	return 0
}

func signInCommand(route string) string {
	if route == "" || route == client.DefaultSignInRoute {
		return "login"
	}
	return route
}

func setupLogger(env string, w io.Writer) *slog.Logger {
	var log *slog.Logger

	switch env {
	case config.EnvLocal:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}),
		)
	case config.EnvDev:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case config.EnvProd:
		log = slog.New(
			slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}),
		)
	}

	return log
}

// describe turns API failures into one readable line.
func describe(err error) string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || apiErr.Transport() {
		return err.Error()
	}
	if detail := apiErr.Detail(); detail != "" {
		return detail
	}
	if summary := apiErr.FieldSummary(); summary != "" {
		return summary
	}
	return err.Error()
}
