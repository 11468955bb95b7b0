package backend

import (
	"context"
	"fmt"

	"github.com/fdg312/cityfix/internal/config"
	"github.com/fdg312/cityfix/internal/dbmigrate"
	"github.com/fdg312/cityfix/internal/storage"
	"github.com/fdg312/cityfix/internal/storage/memory"
	"github.com/fdg312/cityfix/internal/storage/mongo"
	"github.com/fdg312/cityfix/internal/storage/postgres"
	"github.com/fdg312/cityfix/internal/storage/sqlite"
)

type Logger interface {
	Printf(format string, v ...any)
}

// Open выбирает адаптер хранилища по STORAGE_MODE и возвращает его вместе
// с фактическим режимом (auto раскрывается в memory или postgres).
func Open(ctx context.Context, cfg *config.Config, logger Logger) (storage.ReportsStorage, string, error) {
	mode := cfg.ResolvedStorageMode()

	switch mode {
	case config.StorageModeMemory:
		logf(logger, "INFO storage: mode=memory")
		return memory.New(), mode, nil

	case config.StorageModeFile:
		st, err := sqlite.New(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite storage: %w", err)
		}
		logf(logger, "INFO storage: mode=file path=%s", cfg.SQLitePath)
		return st, mode, nil

	case config.StorageModePostgres:
		if cfg.DatabaseURL == "" {
			return nil, "", fmt.Errorf("STORAGE_MODE=postgres requires DATABASE_URL")
		}
		if cfg.RunMigrationsOnStartup {
			if err := migrate(cfg, logger); err != nil {
				return nil, "", err
			}
		}
		st, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, "", fmt.Errorf("open postgres storage: %w", err)
		}
		logf(logger, "INFO storage: mode=postgres")
		return st, mode, nil

	case config.StorageModeMongo:
		if cfg.MongoURI == "" {
			return nil, "", fmt.Errorf("STORAGE_MODE=mongo requires MONGO_URI")
		}
		st, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, "", fmt.Errorf("open mongo storage: %w", err)
		}
		logf(logger, "INFO storage: mode=mongo db=%s", cfg.MongoDB)
		return st, mode, nil

	default:
		return nil, "", fmt.Errorf("unsupported storage mode: %s", mode)
	}
}

func migrate(cfg *config.Config, logger Logger) error {
	dbURL, source, warning, err := dbmigrate.SelectDatabaseURL(cfg, false)
	if err != nil {
		return fmt.Errorf("startup migrations: %w", err)
	}
	if warning != "" {
		logf(logger, "WARN storage.migrate: %s", warning)
	}
	logf(logger, "INFO storage.migrate: running up (source=%s)", source)
	if err := dbmigrate.Run("up", dbURL, dbmigrate.DefaultMigrationsDir); err != nil {
		return fmt.Errorf("startup migrations: %w", err)
	}
	return nil
}

func logf(logger Logger, format string, v ...any) {
	if logger == nil {
		return
	}
	logger.Printf(format, v...)
}
