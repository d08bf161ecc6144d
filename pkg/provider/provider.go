// Package provider abstracts the remote text-generation backend.
//
// Concrete providers differ only in endpoint and credentials; retry
// behavior and error classification are shared. Requests use a low fixed
// temperature and a fixed seed so identical prompts tend to produce
// repeatable output, which is what makes caching them meaningful. That
// is a tendency, not a guarantee of bit-identical output across
// provider-side model updates.
package provider

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/config"
	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

// Sampling policy shared by all providers.
const (
	defaultTemperature = 0.1
	defaultSeed        = 42
	defaultTimeout     = 30 * time.Second
)

// Response is the in-flight result of a completion call. It is never
// persisted as-is.
type Response struct {
	Text  string
	Model string
	Usage *models.Usage
}

// Provider generates chat completions.
type Provider interface {
	// Complete generates a reply for prompt. Failures surface as
	// errs.ErrProvider; transient ones are retried internally and only
	// reach the caller once attempts are exhausted.
	Complete(ctx context.Context, prompt string) (*Response, error)
	// HealthCheck reports whether the provider is usable. It is a
	// configuration check and performs no remote call.
	HealthCheck(ctx context.Context) bool
}

// New constructs the configured provider. The provider set is a closed
// enum selected once at startup; adding a provider means adding a case
// here, not touching call sites.
func New(cfg config.ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch strings.ToLower(cfg.Type) {
	case "gemini":
		return newGemini(cfg, logger)
	case "openrouter":
		return newOpenRouter(cfg, logger)
	default:
		return nil, errs.Configf("unknown provider type %q", cfg.Type)
	}
}

// classifyHTTPStatus maps a non-2xx upstream status onto the provider
// error taxonomy. 429 and 5xx are transient; everything else is a
// terminal provider error.
func classifyHTTPStatus(providerName string, status int, body string) error {
	err := errs.Providerf("%s returned HTTP %d: %s", providerName, status, truncate(body, 200))
	if status == http.StatusTooManyRequests || status >= 500 {
		return errs.Retryable(err)
	}
	return err
}

// classifyTransportError maps a transport failure onto the taxonomy.
// Timeouts and connection failures are transient. A canceled context is
// not: retrying it cannot succeed.
func classifyTransportError(providerName string, err error) error {
	wrapped := errs.Provider(errors.New(providerName + ": " + err.Error()))
	if errors.Is(err, context.Canceled) {
		return wrapped
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return errs.Retryable(wrapped)
	}
	// Remaining transport errors (DNS, refused connections wrapped by
	// net/http) are treated as transient too.
	return errs.Retryable(wrapped)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
