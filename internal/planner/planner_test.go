package planner

import (
	"context"
	"errors"
	"testing"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockGenerator struct {
	response llm.ContentResponse
	err      error

	calls  int
	prompt string
	schema *llm.Schema
}

func (m *mockGenerator) GenerateJSON(_ context.Context, prompt string, schema *llm.Schema) (llm.ContentResponse, error) {
	m.calls++
	m.prompt = prompt
	m.schema = schema
	return m.response, m.err
}

func validRequest() Request {
	return Request{
		StartDate:      "2024-03-04",
		EndDate:        "2024-03-10",
		MealsPerDay:    2,
		CaloriesLevel:  "low",
		Vegetarian:     true,
		RedMeat:        false,
		BudgetFriendly: true,
	}
}

const twoMeals = `[
	{"date": "2024-03-04", "meal_type": "Lunch", "recipe_name": "Pasta al pomodoro",
	 "ingredients": ["200g pasta", "300g pomodori"], "instructions": ["Bollire", "Condire"], "calories": 550},
	{"date": "2024-03-04", "meal_type": "Dinner", "recipe_name": "Minestrone",
	 "ingredients": ["1 carota"], "instructions": ["Tagliare", "Cuocere"], "calories": 320}
]`

func TestGeneratePlan(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		gen := &mockGenerator{response: llm.ContentResponse{
			Content: twoMeals,
			Usage:   shared.TokenUsage{PromptTokens: 100, CompletionTokens: 50, Model: "test-model"},
		}}
		p := NewPlanner(gen, "Italian")

		result, err := p.GeneratePlan(ctx, validRequest())
		require.NoError(t, err)
		require.Len(t, result.Meals, 2)

		first := result.Meals[0]
		assert.Equal(t, "2024-03-04", first.Date)
		assert.Equal(t, "Lunch", first.MealType)
		assert.Equal(t, []string{"200g pasta", "300g pomodori"}, first.Ingredients)
		require.NotNil(t, first.Calories)
		assert.Equal(t, 550, *first.Calories)

		assert.Equal(t, "Planner", result.Meta.AgentName)
		assert.Equal(t, 100, result.Meta.Usage.PromptTokens)
		assert.False(t, result.Meta.Failed)

		assert.Equal(t, llm.TypeArray, gen.schema.Type)
		assert.Contains(t, gen.schema.Items.Required, "calories")
	})

	t.Run("PromptCarriesSettings", func(t *testing.T) {
		gen := &mockGenerator{response: llm.ContentResponse{Content: "[]"}}
		p := NewPlanner(gen, "Italian")

		_, err := p.GeneratePlan(ctx, validRequest())
		require.NoError(t, err)

		assert.Contains(t, gen.prompt, "from 2024-03-04 to 2024-03-10")
		assert.Contains(t, gen.prompt, "text in Italian")
		assert.Contains(t, gen.prompt, "Meals per day: 2 meals per day (Lunch and Dinner)")
		assert.Contains(t, gen.prompt, "Calories level: low")
		assert.Contains(t, gen.prompt, "Vegetarian: Yes")
		assert.Contains(t, gen.prompt, "Red Meat allowed: No")
		assert.Contains(t, gen.prompt, "Budget-friendly: Yes")
		assert.Contains(t, gen.prompt, "Additional notes: None")
	})

	t.Run("PromptCarriesNotes", func(t *testing.T) {
		gen := &mockGenerator{response: llm.ContentResponse{Content: "[]"}}
		req := validRequest()
		req.Notes = "no mushrooms"

		_, err := NewPlanner(gen, "English").GeneratePlan(ctx, req)
		require.NoError(t, err)
		assert.Contains(t, gen.prompt, "Additional notes: no mushrooms")
		assert.Contains(t, gen.prompt, "text in English")
	})

	t.Run("InvalidRequestSkipsModel", func(t *testing.T) {
		gen := &mockGenerator{}
		req := validRequest()
		req.MealsPerDay = 4

		_, err := NewPlanner(gen, "Italian").GeneratePlan(ctx, req)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeValidationFailed))
		assert.Zero(t, gen.calls)
	})

	t.Run("ModelFailure", func(t *testing.T) {
		gen := &mockGenerator{err: errors.New("quota exceeded")}

		result, err := NewPlanner(gen, "Italian").GeneratePlan(ctx, validRequest())
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeExternalServiceError))
		assert.True(t, result.Meta.Failed)
		assert.Empty(t, result.Meals)
	})

	t.Run("NonJSONResponse", func(t *testing.T) {
		gen := &mockGenerator{response: llm.ContentResponse{Content: "Sorry, I cannot help"}}

		_, err := NewPlanner(gen, "Italian").GeneratePlan(ctx, validRequest())
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeExternalServiceError))
		assert.Contains(t, err.Error(), "Sorry, I cannot help")
	})

	t.Run("MissingRequiredField", func(t *testing.T) {
		gen := &mockGenerator{response: llm.ContentResponse{Content: `[
			{"date": "2024-03-04", "meal_type": "Lunch", "recipe_name": "Pasta",
			 "ingredients": ["pasta"], "instructions": ["boil"]}
		]`}}

		_, err := NewPlanner(gen, "Italian").GeneratePlan(ctx, validRequest())
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.CodeExternalServiceError))
	})
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		valid  bool
	}{
		{"valid", func(*Request) {}, true},
		{"single day", func(r *Request) { r.EndDate = r.StartDate }, true},
		{"missing start", func(r *Request) { r.StartDate = "" }, false},
		{"bad end format", func(r *Request) { r.EndDate = "10/03/2024" }, false},
		{"end before start", func(r *Request) { r.EndDate = "2024-03-01" }, false},
		{"zero meals", func(r *Request) { r.MealsPerDay = 0 }, false},
		{"unknown calories level", func(r *Request) { r.CaloriesLevel = "extreme" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			err := req.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestMealsDescription(t *testing.T) {
	assert.Equal(t, "1 meal per day (Lunch)", Request{MealsPerDay: 1}.MealsDescription())
	assert.Equal(t, "2 meals per day (Lunch and Dinner)", Request{MealsPerDay: 2}.MealsDescription())
	assert.Equal(t, "3 meals per day (Breakfast, Lunch, and Dinner)", Request{MealsPerDay: 3}.MealsDescription())
}

func TestDefaultRequest(t *testing.T) {
	today := time.Date(2024, 3, 6, 15, 0, 0, 0, time.UTC)
	req := DefaultRequest(today)

	assert.Equal(t, "2024-03-06", req.StartDate)
	assert.Equal(t, "2024-03-12", req.EndDate)
	assert.Equal(t, 3, req.MealsPerDay)
	assert.Equal(t, "medium", req.CaloriesLevel)
	assert.False(t, req.Vegetarian)
	assert.True(t, req.RedMeat)
	assert.True(t, req.BudgetFriendly)
	assert.Empty(t, req.Notes)
	assert.NoError(t, req.Validate())
}
