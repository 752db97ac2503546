package store

import (
	"fmt"

	"github.com/BaSui01/submind/config"
	"go.uber.org/zap"
)

// New creates the Store selected by cfg.Type.
func New(cfg config.StoreConfig, logger *zap.Logger) (Store, error) {
	switch Type(cfg.Type) {
	case TypeNone:
		return NopStore{}, nil
	case TypeMemory, "":
		return NewMemoryStore(), nil
	case TypeFile:
		return NewFileStore(cfg.Dir)
	case TypeRedis:
		return NewRedisStore(cfg.Redis, cfg.TTL, logger)
	case TypePostgres, TypeMySQL, TypeSQLite:
		db := cfg.Database
		if db.Driver == "" {
			db.Driver = cfg.Type
		}
		return OpenSQLStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported discussion store type: %s", cfg.Type)
	}
}
