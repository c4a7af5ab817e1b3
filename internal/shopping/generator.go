package shopping

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/shared"

	"github.com/go-playground/validator/v10"
)

const agentName = "Shopper"

//go:embed shopping_prompt.md
var shoppingPrompt string

var shoppingTemplate = template.Must(template.New("Shopping").Parse(shoppingPrompt))

var validate = validator.New()

// Result is a consolidated list with the metadata of the model call.
type Result struct {
	Categories []Category
	Meta       shared.AgentMeta
}

// Generator turns raw recipe ingredients into a categorized shopping list.
type Generator struct {
	gen      llm.StructuredGenerator
	language string
}

// NewGenerator creates a Generator writing lists in the given language.
func NewGenerator(gen llm.StructuredGenerator, language string) *Generator {
	return &Generator{gen: gen, language: language}
}

// Generate consolidates ingredients. An empty list is rejected before the
// model is called.
func (g *Generator) Generate(ctx context.Context, ingredients []string) (Result, error) {
	cleaned := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		if s := strings.TrimSpace(ing); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return Result{}, apperr.Validation("no ingredients to build a shopping list from")
	}

	var buf bytes.Buffer
	if err := shoppingTemplate.Execute(&buf, struct {
		Ingredients []string
		Language    string
	}{cleaned, g.language}); err != nil {
		return Result{}, fmt.Errorf("failed to build shopping prompt: %w", err)
	}

	start := time.Now()
	resp, err := g.gen.GenerateJSON(ctx, buf.String(), listSchema)
	meta := shared.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		meta.Failed = true
		return Result{Meta: meta}, apperr.Generation("generate shopping list", err)
	}

	var categories []Category
	if err := json.Unmarshal([]byte(resp.Content), &categories); err != nil {
		meta.Failed = true
		return Result{Meta: meta}, apperr.Generation("generate shopping list",
			fmt.Errorf("failed to parse shopping list JSON: %w. Response: %s", err, resp.Content))
	}
	for i, c := range categories {
		if err := validate.Struct(c); err != nil {
			meta.Failed = true
			return Result{Meta: meta}, apperr.Generation("generate shopping list",
				fmt.Errorf("category %d does not match the schema: %w", i, err))
		}
	}
	if categories == nil {
		categories = []Category{}
	}

	return Result{Categories: categories, Meta: meta}, nil
}

var listSchema = &llm.Schema{
	Type: llm.TypeArray,
	Items: &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"category": {Type: llm.TypeString, Description: "e.g., Produce, Dairy, Meat, Pantry"},
			"items":    {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
		},
		Required: []string{"category", "items"},
	},
}
