package llm

import (
	"context"
	"fmt"

	"meal-calendar/internal/config"
	"meal-calendar/internal/shared"
)

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// Type is the JSON type of a schema node.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
	TypeObject  Type = "object"
)

// Schema declares the JSON shape a structured generation must return.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
}

// StructuredGenerator produces JSON text conforming to a schema.
type StructuredGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, schema *Schema) (ContentResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}

// Client is a structured generator holding provider resources.
type Client interface {
	StructuredGenerator
	Closer
}

// NewClient returns the client for the configured provider.
func NewClient(ctx context.Context, cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case config.ProviderGroq:
		return NewGroqClient(cfg.GroqAPIKey, cfg.GroqModel), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLMProvider)
	}
}
