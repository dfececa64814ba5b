package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/config"
	"github.com/sudo-init-do/gighub/internal/db"
	"github.com/sudo-init-do/gighub/internal/logging"
	"github.com/sudo-init-do/gighub/internal/marketplace"
)

// Rebuilds every freelancer's stored rating summary from the ratings
// collection. Use it after a failed aggregate update or a manual data fix.
func main() {
	configPath := flag.String("config", "", "optional config file")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall deadline")
	flag.Parse()

	if err := run(*configPath, *timeout); err != nil {
		log.Fatalf("recompute ratings: %v", err)
	}
}

func run(configPath string, timeout time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s, err := db.Connect(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	svc := marketplace.NewService(s, s, alerts.NewEmitter(s, logger), logger)
	n, err := svc.RecomputeAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Recomputed ratings for %d freelancers.\n", n)
	return nil
}
