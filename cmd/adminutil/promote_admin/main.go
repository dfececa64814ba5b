package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/gighub/internal/config"
	"github.com/sudo-init-do/gighub/internal/db"
	"github.com/sudo-init-do/gighub/internal/logging"
	"github.com/sudo-init-do/gighub/internal/store"
	"github.com/sudo-init-do/gighub/internal/user"
)

func main() {
	email := flag.String("email", "", "Email of the user to promote to admin")
	configPath := flag.String("config", "", "optional config file")
	flag.Parse()

	if *email == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/promote_admin -email user@example.com")
	}
	if err := run(*configPath, *email); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("User %s promoted to admin.\n", *email)
}

func run(configPath, email string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	if err := s.SetRole(ctx, email, user.RoleAdmin); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user found with email: %s", email)
		}
		return fmt.Errorf("failed to promote user to admin: %w", err)
	}
	return nil
}
