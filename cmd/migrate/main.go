// Command migrate applies database migrations and can create a staff or
// superuser account.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/theatre-box-office/internal/config"
	"github.com/iliyamo/theatre-box-office/internal/database"
	"github.com/iliyamo/theatre-box-office/internal/logger"
	"github.com/iliyamo/theatre-box-office/internal/model"
	"github.com/iliyamo/theatre-box-office/internal/repository"
)

func main() {
	var (
		status      = flag.Bool("status", false, "Show pending migrations and exit")
		createAdmin = flag.Bool("create-admin", false, "Create a staff account after migrating")
		email       = flag.String("email", "", "Email of the account to create")
		password    = flag.String("password", "", "Password of the account to create")
		superuser   = flag.Bool("superuser", false, "Make the created account a superuser")
	)
	flag.Parse()

	if err := run(*status, *createAdmin, *email, *password, *superuser); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(status, createAdmin bool, email, password string, superuser bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New("theatre-migrate", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBDriver, database.DSN(cfg))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	m := database.NewMigrator(db, cfg.DBDriver, log)
	if status {
		pending, err := m.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("All migrations are up to date!")
			return nil
		}
		fmt.Println("Pending migrations:")
		for _, p := range pending {
			fmt.Printf("%s | %s\n", p.Version, p.Name)
		}
		return nil
	}

	if err := m.Migrate(ctx); err != nil {
		return err
	}
	if !createAdmin {
		return nil
	}

	if email == "" || password == "" {
		return errors.New("-create-admin needs -email and -password")
	}
	users := repository.NewUserRepo(db)
	u := model.User{Email: email, IsStaff: true, IsSuperuser: superuser}
	err = users.Create(ctx, &u, password, cfg.BcryptCost)
	if errors.Is(err, repository.ErrDuplicate) {
		// promote the existing account instead
		existing, gerr := users.GetByEmail(ctx, email)
		if gerr != nil {
			return gerr
		}
		u = *existing
		err = users.SetFlags(ctx, u.ID, true, superuser || u.IsSuperuser)
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	log.Info("staff account ready", zap.Uint64("user_id", u.ID), zap.String("email", repository.NormalizeEmail(email)),
		zap.Bool("superuser", superuser))
	return nil
}
