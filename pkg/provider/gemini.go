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

const geminiDefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

type geminiProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	retry   RetryConfig
	logger  *zap.Logger
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature float64 `json:"temperature"`
	Seed        int     `json:"seed,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata,omitempty"`
	ModelVersion string `json:"modelVersion,omitempty"`
}

func newGemini(cfg config.ProviderConfig, logger *zap.Logger) (*geminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errs.Configf("gemini api key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = geminiDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &geminiProvider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
		retry:   DefaultRetryConfig(),
		logger:  logger,
	}, nil
}

func (p *geminiProvider) Complete(ctx context.Context, prompt string) (*Response, error) {
	return WithRetry(ctx, p.retry, p.logger, func() (*Response, error) {
		return p.doComplete(ctx, prompt)
	})
}

func (p *geminiProvider) doComplete(ctx context.Context, prompt string) (*Response, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature: defaultTemperature,
			Seed:        defaultSeed,
		},
	})
	if err != nil {
		return nil, errs.Provider(fmt.Errorf("marshal request: %w", err))
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, p.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errs.Provider(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, classifyTransportError("gemini", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError("gemini", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus("gemini", resp.StatusCode, string(respBody))
	}

	var out geminiResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, errs.Provider(fmt.Errorf("decode gemini response: %w", err))
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return nil, errs.Providerf("gemini returned no candidates")
	}

	var text strings.Builder
	for _, part := range out.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	model := out.ModelVersion
	if model == "" {
		model = p.model
	}

	result := &Response{Text: text.String(), Model: model}
	if um := out.UsageMetadata; um != nil {
		result.Usage = &models.Usage{
			PromptTokens:     um.PromptTokenCount,
			CompletionTokens: um.CandidatesTokenCount,
			TotalTokens:      um.TotalTokenCount,
		}
	}
	return result, nil
}

// HealthCheck verifies configuration only; probing the remote endpoint
// would spend quota on every health poll.
func (p *geminiProvider) HealthCheck(ctx context.Context) bool {
	return p.apiKey != ""
}
