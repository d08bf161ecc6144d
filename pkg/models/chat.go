package models

// ChatResult is the outcome of processing one message. Usage is nil when
// the result was served from cache.
type ChatResult struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Model   string `json:"model"`
	Cached  bool   `json:"cached"`
	Usage   *Usage `json:"usage,omitempty"`
}

// HealthStatus reports per-component health.
type HealthStatus struct {
	Storage bool `json:"storage"`
	LLM     bool `json:"llm"`
}
