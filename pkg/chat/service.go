// Package chat implements the message-processing orchestrator: cache
// lookup, provider invocation, persistence, and cache population, in
// that order.
package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/cache"
	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
	"github.com/chatcore-ai/chatcore/pkg/provider"
	"github.com/chatcore-ai/chatcore/pkg/storage"
)

const (
	// cacheLookupTimeout bounds the cache read so a slow cache backend
	// cannot dominate request latency. On expiry the lookup is a miss.
	cacheLookupTimeout = 500 * time.Millisecond
	// saveTimeout bounds the persistence write.
	saveTimeout = 5 * time.Second
	// maxHistoryLimit caps how much history one call can request.
	maxHistoryLimit = 100
	// healthCacheTTL bounds how often dependency health is re-probed.
	healthCacheTTL = 30 * time.Second
)

// Service orchestrates message processing across the cache, the
// provider, and the interaction store.
type Service struct {
	repo     storage.Repository
	cache    cache.Cache
	provider provider.Provider
	logger   *zap.Logger
	cacheTTL time.Duration

	healthMu sync.Mutex
	healthAt time.Time
	health   models.HealthStatus
}

// New wires a Service from its dependencies. Callers that load from a
// config file use Build instead.
func New(repo storage.Repository, c cache.Cache, p provider.Provider, cacheTTL time.Duration, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		cache:    c,
		provider: p,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Startup brings up the storage and cache backends.
func (s *Service) Startup(ctx context.Context) error {
	if err := s.repo.Startup(ctx); err != nil {
		return err
	}
	return s.cache.Startup(ctx)
}

// Shutdown releases backends in reverse startup order.
func (s *Service) Shutdown(ctx context.Context) error {
	cacheErr := s.cache.Shutdown(ctx)
	repoErr := s.repo.Shutdown(ctx)
	return errors.Join(cacheErr, repoErr)
}

// ProcessMessage handles one user message end to end.
//
// The flow is cache-aside: on a cache hit the stored response is
// returned without touching the provider or the store. On a miss the
// provider is invoked (with its internal retry), the interaction is
// persisted, and only then is the cache populated. Persistence is
// required for success; the cache write is best-effort.
func (s *Service) ProcessMessage(ctx context.Context, userID, content string) (*models.ChatResult, error) {
	content = strings.TrimSpace(content)
	if err := validateInput(userID, content); err != nil {
		return nil, err
	}

	key := cache.Key(userID, content)

	lookupCtx, cancel := context.WithTimeout(ctx, cacheLookupTimeout)
	entry, hit := s.cache.Get(lookupCtx, key)
	cancel()
	if hit {
		s.logger.Debug("cache hit", zap.String("user_id", userID))
		return &models.ChatResult{
			ID:      entry.ID,
			Content: entry.Content,
			Model:   entry.Model,
			Cached:  true,
		}, nil
	}

	resp, err := s.provider.Complete(ctx, content)
	if err != nil {
		if !errors.Is(err, errs.ErrProvider) {
			err = errs.Provider(err)
		}
		return nil, err
	}

	in := &models.Interaction{
		ID:       uuid.NewString(),
		UserID:   userID,
		Content:  content,
		Response: resp.Text,
		Model:    resp.Model,
		Usage:    resp.Usage,
	}

	saveCtx, cancel := context.WithTimeout(ctx, saveTimeout)
	err = s.repo.Save(saveCtx, in)
	cancel()
	if err != nil {
		// Nothing is cached on a failed save: a cached response with no
		// persisted interaction would vanish from history.
		return nil, err
	}

	if u := resp.Usage; u != nil {
		s.logger.Info("interaction complete",
			zap.String("user_id", userID),
			zap.String("model", resp.Model),
			zap.Int("prompt_tokens", u.PromptTokens),
			zap.Int("completion_tokens", u.CompletionTokens),
			zap.Int("total_tokens", u.TotalTokens))
	} else {
		s.logger.Info("interaction complete",
			zap.String("user_id", userID),
			zap.String("model", resp.Model))
	}

	cacheEntry := &models.CacheEntry{ID: in.ID, Content: resp.Text, Model: resp.Model}
	if err := s.cache.Set(ctx, key, cacheEntry, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}

	return &models.ChatResult{
		ID:      in.ID,
		Content: resp.Text,
		Model:   resp.Model,
		Cached:  false,
		Usage:   resp.Usage,
	}, nil
}

// GetHistory returns up to limit past interactions for userID, newest
// first. A non-positive limit uses the default; limits above the cap
// are clamped.
func (s *Service) GetHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if userID == "" {
		return nil, errs.Validationf("user id is required")
	}
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.GetHistory(ctx, userID, limit)
}

// HealthCheck reports per-dependency health. Results are memoized for a
// short window so health polling cannot hammer the store.
func (s *Service) HealthCheck(ctx context.Context) models.HealthStatus {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()

	if time.Since(s.healthAt) < healthCacheTTL {
		return s.health
	}

	s.health = models.HealthStatus{
		Storage: s.repo.HealthCheck(ctx),
		LLM:     s.provider.HealthCheck(ctx),
	}
	s.healthAt = time.Now()
	return s.health
}

func validateInput(userID, content string) error {
	switch {
	case userID == "":
		return errs.Validationf("user id is required")
	case len(userID) > models.MaxUserIDLength:
		return errs.Validationf("user id exceeds %d characters", models.MaxUserIDLength)
	case content == "":
		return errs.Validationf("message content is required")
	case len(content) > models.MaxContentLength:
		return errs.Validationf("message content exceeds %d characters", models.MaxContentLength)
	default:
		return nil
	}
}
