package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"maintenance-ledger/internal/adapters/cli"
	"maintenance-ledger/internal/adapters/repl"
	"maintenance-ledger/internal/bootstrap"
	"maintenance-ledger/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	if err := run(context.Background(), os.Args[1:]); err != nil {
		if errors.Is(err, cli.ErrUsage) {
			fmt.Fprintln(os.Stderr, cli.Usage)
		}
		log.Fatalf("%v", err)
	}
}

func run(ctx context.Context, args []string) error {
	cfg := config.Load()
	// stdout carries the command output; only errors are logged, to stderr.
	cfg.Logger.Level = "error"
	cfg.Logger.Output = "stderr"

	infra, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("unable to start: %w", err)
	}
	defer infra.Shutdown(ctx)

	session, rest, err := cli.ParseGlobal(cli.Session{TenantID: cfg.Ledger.Tenant, ActorID: cfg.Ledger.Actor}, args)
	if err != nil {
		return err
	}
	if len(rest) == 0 {
		return repl.Run(ctx, infra.Service, session, os.Stdin, os.Stdout)
	}
	return cli.Run(ctx, infra.Service, session, rest, os.Stdout)
}
