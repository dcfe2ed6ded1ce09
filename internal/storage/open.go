package storage

import (
	"fmt"
	"log/slog"

	"clawchat/internal/config"
	"clawchat/internal/domain"
)

// Open returns the key/value backend selected by the storage config.
func Open(cfg config.StorageConfig, logger *slog.Logger) (domain.KVStore, error) {
	switch cfg.Driver {
	case "", "sqlite":
		kv, err := NewSQLiteKV(config.ExpandPath(cfg.DBPath), logger)
		if err != nil {
			return nil, err
		}
		logger.Debug("storage opened", "driver", "sqlite", "path", cfg.DBPath)
		return kv, nil
	case "redis":
		kv, err := NewRedisKV(cfg.RedisURL, cfg.KeyPrefix)
		if err != nil {
			return nil, err
		}
		logger.Debug("storage opened", "driver", "redis", "namespace", cfg.KeyPrefix)
		return kv, nil
	case "memory":
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
