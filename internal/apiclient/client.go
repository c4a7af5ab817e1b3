// Package apiclient talks to the meal calendar HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/auth"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"
)

const tokenSubject = "telegram-bot"

// Client is an HTTP client for the API. When a secret is set, every
// mutating call carries a freshly minted bearer token.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL, secret string) *Client {
	return &Client{
		baseURL: baseURL,
		secret:  secret,
		httpClient: &http.Client{
			// Plan generation waits on the model.
			Timeout: 3 * time.Minute,
		},
	}
}

// Health checks that the API answers.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil, "check health")
}

// ListMeals returns the meals dated between start and end inclusive.
func (c *Client) ListMeals(ctx context.Context, start, end string) ([]meals.Record, error) {
	q := url.Values{}
	q.Set("startDate", start)
	q.Set("endDate", end)

	records := []meals.Record{}
	if err := c.do(ctx, http.MethodGet, "/api/meals?"+q.Encode(), nil, &records, "list meals"); err != nil {
		return nil, err
	}
	return records, nil
}

// SavePlan replaces the meals of [start, end] with plan.
func (c *Client) SavePlan(ctx context.Context, plan []meals.Meal, start, end string) (int, error) {
	body := map[string]interface{}{
		"mealPlan":  plan,
		"startDate": start,
		"endDate":   end,
	}
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/meals/save", body, &resp, "save meal plan"); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// SetSkipped marks one meal as skipped or not.
func (c *Client) SetSkipped(ctx context.Context, id int64, skipped bool) error {
	path := "/api/meals/" + strconv.FormatInt(id, 10) + "/skip"
	return c.do(ctx, http.MethodPut, path, map[string]bool{"skipped": skipped}, nil, "update meal")
}

// DeleteMeal removes one meal.
func (c *Client) DeleteMeal(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, "/api/meals/"+strconv.FormatInt(id, 10), nil, nil, "delete meal")
}

// GeneratePlan asks the server to generate and store a plan.
func (c *Client) GeneratePlan(ctx context.Context, req planner.Request) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/plans/generate", req, &resp, "generate meal plan"); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GenerateShoppingList asks the server to consolidate ingredients.
func (c *Client) GenerateShoppingList(ctx context.Context, ingredients []string) ([]shopping.Category, error) {
	var list []shopping.Category
	body := map[string][]string{"ingredients": ingredients}
	if err := c.do(ctx, http.MethodPost, "/api/shopping-list", body, &list, "generate shopping list"); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out interface{}, op string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.secret != "" && method != http.MethodGet {
		token, err := auth.CreateToken(c.secret, tokenSubject, auth.DefaultTTL)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp, op)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// statusError turns an error response back into a classified error.
func statusError(resp *http.Response, op string) error {
	var payload struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Error == "" {
		payload.Error = fmt.Sprintf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	switch resp.StatusCode {
	case http.StatusBadRequest:
		return apperr.Validation("%s", payload.Error)
	case http.StatusUnauthorized:
		return apperr.Unauthorized(payload.Error)
	case http.StatusBadGateway:
		return apperr.Generation(op, errors.New(payload.Error))
	default:
		return apperr.Storage(op, errors.New(payload.Error))
	}
}
