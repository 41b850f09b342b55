package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/iliyamo/study-spot-reservation/internal/config"
	"github.com/iliyamo/study-spot-reservation/internal/database"
	"github.com/iliyamo/study-spot-reservation/internal/handler"
	"github.com/iliyamo/study-spot-reservation/internal/repository"
	"github.com/iliyamo/study-spot-reservation/internal/repository/memory"
)

const migrateTimeout = time.Minute

var StorageModule = fx.Module("storage",
	fx.Provide(
		NewStorage,
	),
)

// Storage is the unit of work every service runs in plus, for MySQL, the
// pinger behind /healthz.
type Storage struct {
	fx.Out

	UnitOfWork repository.UnitOfWork
	Pinger     handler.Pinger
}

// NewStorage opens the store chosen by STORAGE_DRIVER. For MySQL it applies
// pending migrations unless DB_MIGRATE=false.
func NewStorage(lc fx.Lifecycle, cfg config.Config, loc *time.Location, log *slog.Logger) (Storage, error) {
	if cfg.App.StorageDriver == config.StorageMemory {
		log.Warn("using in-memory storage; data is lost on restart")
		return Storage{UnitOfWork: memory.NewStore()}, nil
	}

	db, err := database.Open(context.Background(), cfg.DB, loc)
	if err != nil {
		return Storage{}, err
	}
	lc.Append(fx.StopHook(db.Close))

	if cfg.DB.Migrate {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()
		if err := database.Migrate(ctx, db, log); err != nil {
			return Storage{}, err
		}
	}
	log.Info("connected to mysql", slog.String("host", cfg.DB.Host), slog.String("database", cfg.DB.Name))
	return Storage{UnitOfWork: repository.NewMySQLStore(db), Pinger: db}, nil
}
