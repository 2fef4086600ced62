// Package main seeds the configured database with a small demo data set:
// an admin, a head coach, a coach, a player login and two teams.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hollandstar/sportteams/internal/auth/app"
	"github.com/hollandstar/sportteams/pkg/cryptox"
)

func main() {
	var password string
	flag.StringVar(&password, "password", "changeme", "password set on every demo account")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, password string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	data := app.DemoData(password)
	res, err := app.Seed(ctx, db, cryptox.PasswordHasher{Pepper: cfg.Pepper}, data, time.Now())
	if errors.Is(err, app.ErrAlreadySeeded) {
		fmt.Println("Demo data already present, nothing to do.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d teams, %d accounts, %d memberships, %d players.\n",
		res.Teams, res.Accounts, res.Memberships, res.Players)
	for _, a := range data.Accounts {
		fmt.Printf("  %-22s %s\n", a.Email, a.Role)
	}
	return nil
}
