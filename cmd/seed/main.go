// seed creates a development user in the configured store, or revokes every
// session of a user (-revoke-user). Idempotent: an existing email is skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"journal-identity/internal/bootstrap"
	"journal-identity/internal/config"
	identity "journal-identity/internal/identity/service"
)

const (
	devUserEmail = "dev@example.com"
	devPassword  = "Dev-Password-123"
	devUserName  = "Dev User"
)

func main() {
	email := flag.String("email", devUserEmail, "Email of the user to create")
	password := flag.String("password", devPassword, "Password of the user to create")
	name := flag.String("name", devUserName, "Display name of the user to create")
	revokeUser := flag.String("revoke-user", "", "Revoke all sessions of this user ID instead of seeding")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	if err := run(logger, *email, *password, *name, *revokeUser); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, email, password, name, revokeUser string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" && cfg.SQLitePath == "" {
		return errors.New("DATABASE_URL or SQLITE_PATH must be set; the in-memory store does not outlive this process")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	app, err := bootstrap.New(ctx, cfg, logger, bootstrap.WithoutSecrets())
	if err != nil {
		return err
	}
	defer app.Close()

	if revokeUser != "" {
		n, err := app.Sessions.RevokeAllForUser(ctx, revokeUser)
		if err != nil {
			return err
		}
		logger.Info("sessions revoked", "user_id", revokeUser, "count", n)
		return nil
	}

	u, err := app.Authenticator.Register(ctx, email, password, name)
	if errors.Is(err, identity.ErrEmailAlreadyRegistered) {
		logger.Info("user already exists; skipping", "email", email)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("user created", "user_id", u.ID, "email", u.Email, "store", string(app.Store))
	return nil
}
