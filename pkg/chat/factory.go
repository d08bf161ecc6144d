package chat

import (
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/cache"
	"github.com/chatcore-ai/chatcore/pkg/cache/memory"
	"github.com/chatcore-ai/chatcore/pkg/cache/rediscache"
	"github.com/chatcore-ai/chatcore/pkg/config"
	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/provider"
	"github.com/chatcore-ai/chatcore/pkg/storage"
	"github.com/chatcore-ai/chatcore/pkg/storage/dynamo"
	"github.com/chatcore-ai/chatcore/pkg/storage/sqlite"
)

// Build assembles a Service from configuration. Backend choices are
// resolved here, exactly once; nothing downstream switches on config.
func Build(cfg *config.Config, logger *zap.Logger) (*Service, error) {
	repo, err := BuildRepository(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	c, err := BuildCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}
	p, err := provider.New(cfg.Provider, logger)
	if err != nil {
		return nil, err
	}
	return New(repo, c, p, cfg.Cache.TTL, logger), nil
}

// BuildRepository resolves the configured storage backend. Also used by
// CLI subcommands that need the store without the full service.
func BuildRepository(cfg config.StorageConfig, logger *zap.Logger) (storage.Repository, error) {
	switch cfg.Backend {
	case "sqlite":
		return sqlite.New(cfg.Path, logger), nil
	case "dynamodb":
		return dynamo.New(cfg.Table, cfg.Region, cfg.TTLDays, logger), nil
	default:
		return nil, errs.Configf("unknown storage backend %q", cfg.Backend)
	}
}

// BuildCache resolves the configured cache backend.
func BuildCache(cfg config.CacheConfig, logger *zap.Logger) (cache.Cache, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(cfg.MaxEntries), nil
	case "redis":
		return rediscache.New(cfg.Addr, cfg.Password, cfg.DB, cfg.MaxEntries, logger), nil
	default:
		return nil, errs.Configf("unknown cache backend %q", cfg.Backend)
	}
}
