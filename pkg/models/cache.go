package models

// CacheEntry is the ephemeral value cached per (user, content) pair.
// It deliberately carries no usage data: cost accounting must reflect
// real provider calls only, never cache replays.
type CacheEntry struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Model   string `json:"model"`
}

// CacheStats reports cache performance counters.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
