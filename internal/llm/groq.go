package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"meal-calendar/internal/shared"
)

const groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// arrayKey wraps top-level arrays, since json_object mode only returns objects.
const arrayKey = "items"

// groqClient is a client for the Groq API.
type groqClient struct {
	apiKey     string
	model      string
	url        string
	httpClient *http.Client
}

// NewGroqClient creates a new Groq API client.
func NewGroqClient(apiKey, model string) Client {
	return &groqClient{
		apiKey: apiKey,
		model:  model,
		url:    groqAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// GenerateJSON sends the prompt together with the schema in JSON mode and
// returns the JSON document the schema describes.
func (c *groqClient) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (ContentResponse, error) {
	wireSchema := schema
	wrapped := schema != nil && schema.Type == TypeArray
	if wrapped {
		wireSchema = &Schema{
			Type:       TypeObject,
			Properties: map[string]*Schema{arrayKey: schema},
			Required:   []string{arrayKey},
		}
	}

	schemaJSON, err := json.Marshal(wireSchema)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal schema: %w", err)
	}
	fullPrompt := fmt.Sprintf("%s\n\nRespond only with a JSON object matching this JSON schema:\n%s", prompt, schemaJSON)

	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": fullPrompt,
			},
		},
		"temperature":     0.3,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return ContentResponse{}, fmt.Errorf("groq api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var groqResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(groqResp.Choices) == 0 {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	content := groqResp.Choices[0].Message.Content
	if wrapped {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal([]byte(content), &envelope); err != nil {
			return ContentResponse{}, fmt.Errorf("failed to parse json envelope: %w. Response: %s", err, content)
		}
		items, ok := envelope[arrayKey]
		if !ok {
			return ContentResponse{}, fmt.Errorf("json envelope has no %q field. Response: %s", arrayKey, content)
		}
		content = string(items)
	}

	return ContentResponse{
		Content: content,
		Usage: shared.TokenUsage{
			PromptTokens:     groqResp.Usage.PromptTokens,
			CompletionTokens: groqResp.Usage.CompletionTokens,
			TotalTokens:      groqResp.Usage.TotalTokens,
			Model:            c.model,
		},
	}, nil
}

func (c *groqClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
