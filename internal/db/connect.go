package db

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/sudo-init-do/gighub/internal/alerts"
	"github.com/sudo-init-do/gighub/internal/config"
	"github.com/sudo-init-do/gighub/internal/db/memdb"
	"github.com/sudo-init-do/gighub/internal/db/mongodb"
	"github.com/sudo-init-do/gighub/internal/marketplace"
	"github.com/sudo-init-do/gighub/internal/user"
)

// Backend is any store the binaries can run on.
type Backend interface {
	marketplace.Store
	user.Store
	alerts.Store
	Close()
}

// Connect opens the store selected by DB_DRIVER.
func Connect(ctx context.Context, cfg *config.Config, log *logrus.Logger) (Backend, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		return Open(ctx, cfg.PostgresDSN(), log)
	case config.DriverMongoDB:
		return mongodb.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memdb.New(), nil
	}
	return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
}
