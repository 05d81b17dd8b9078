package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sethvargo/go-envconfig"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
	"github.com/bugtracker/tracker-system/internal/client/session"
	"github.com/bugtracker/tracker-system/internal/pkg/config"
	"github.com/bugtracker/tracker-system/pkg/logger"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// loginHint is the navigator of a terminal: it can only tell the user where
// to go.
func loginHint(w io.Writer) apiclient.Navigator {
	return apiclient.NavigatorFunc(func(string) {
		fmt.Fprintln(w, "Session expired. Run `bugctl login` to sign in again.")
	})
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := setup(ctx, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bugctl: %v\n", err)
		os.Exit(1)
	}

	if err := newCLIApp(env).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(ctx context.Context, stdout, stderr io.Writer) (*cliEnv, error) {
	cfg, err := config.LoadClient(ctx, envconfig.OsLookuper())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, Pretty: true, Output: stderr, Service: "bugctl"})

	storage, err := session.NewFileStorage(cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	client, err := apiclient.New(apiclient.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		Storage:   storage,
		Navigator: loginHint(stderr),
		Logger:    log,
	})
	if err != nil {
		return nil, err
	}
	return newCLIEnv(client, storage, stdout, log)
}
