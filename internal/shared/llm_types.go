package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for one generation call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
	Failed    bool
}

// Reached reports whether the call got far enough to be worth recording.
func (m AgentMeta) Reached() bool {
	return m.AgentName != "" && (m.Latency > 0 || m.Usage.PromptTokens > 0 || m.Usage.CompletionTokens > 0)
}
