package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/chatcore-ai/chatcore/pkg/config"
	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
)

const openRouterDefaultBaseURL = "https://openrouter.ai/api/v1"

type openRouterProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   RetryConfig
	logger  *zap.Logger
}

// OpenRouter speaks the OpenAI chat-completions dialect.
type openRouterRequest struct {
	Model       string              `json:"model"`
	Messages    []openRouterMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
	Seed        int                 `json:"seed,omitempty"`
}

type openRouterMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openRouterResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message openRouterMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

func newOpenRouter(cfg config.ProviderConfig, logger *zap.Logger) (*openRouterProvider, error) {
	if cfg.APIKey == "" {
		return nil, errs.Configf("openrouter api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openRouterDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &openRouterProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}, nil
}

func (p *openRouterProvider) Complete(ctx context.Context, prompt string) (*Response, error) {
	return WithRetry(ctx, p.retry, p.logger, func() (*Response, error) {
		return p.doComplete(ctx, prompt)
	})
}

func (p *openRouterProvider) doComplete(ctx context.Context, prompt string) (*Response, error) {
	body, err := json.Marshal(openRouterRequest{
		Model:       p.model,
		Messages:    []openRouterMessage{{Role: "user", Content: prompt}},
		Temperature: defaultTemperature,
		Seed:        defaultSeed,
	})
	if err != nil {
		return nil, errs.Provider(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, errs.Provider(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError("openrouter", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError("openrouter", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus("openrouter", resp.StatusCode, string(respBody))
	}

	var out openRouterResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errs.Provider(fmt.Errorf("decode openrouter response: %w", err))
	}
	if len(out.Choices) == 0 {
		return nil, errs.Providerf("openrouter returned no choices")
	}

	model := out.Model
	if model == "" {
		model = p.model
	}

	result := &Response{Text: out.Choices[0].Message.Content, Model: model}
	if u := out.Usage; u != nil {
		result.Usage = &models.Usage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	return result, nil
}

// HealthCheck verifies configuration only, matching the gemini variant.
func (p *openRouterProvider) HealthCheck(ctx context.Context) bool {
	return p.apiKey != ""
}
