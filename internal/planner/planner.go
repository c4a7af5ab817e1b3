package planner

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/llm"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/shared"

	"github.com/go-playground/validator/v10"
)

const agentName = "Planner"

//go:embed plan_prompt.md
var planPrompt string

var planTemplate = template.Must(template.New("Plan").Funcs(template.FuncMap{
	"yesno": func(b bool) string {
		if b {
			return "Yes"
		}
		return "No"
	},
}).Parse(planPrompt))

var validate = validator.New()

// Request carries the plan settings chosen by the user.
type Request struct {
	StartDate      string `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate        string `json:"endDate" validate:"required,datetime=2006-01-02"`
	MealsPerDay    int    `json:"mealsPerDay" validate:"min=1,max=3"`
	CaloriesLevel  string `json:"caloriesLevel" validate:"oneof=low medium high"`
	Vegetarian     bool   `json:"vegetarian"`
	RedMeat        bool   `json:"redMeat"`
	BudgetFriendly bool   `json:"budgetFriendly"`
	Notes          string `json:"notes"`
}

// DefaultRequest returns the settings a new plan form starts with.
func DefaultRequest(today time.Time) Request {
	return Request{
		StartDate:      meals.FormatDate(today),
		EndDate:        meals.FormatDate(today.AddDate(0, 0, 6)),
		MealsPerDay:    3,
		CaloriesLevel:  "medium",
		Vegetarian:     false,
		RedMeat:        true,
		BudgetFriendly: true,
	}
}

// Validate rejects settings that cannot produce a plan.
func (r Request) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperr.Validation("invalid plan request: %v", err)
	}
	if r.EndDate < r.StartDate {
		return apperr.Validation("endDate %s is before startDate %s", r.EndDate, r.StartDate)
	}
	return nil
}

// MealsDescription names the meals the plan should cover each day.
func (r Request) MealsDescription() string {
	switch r.MealsPerDay {
	case 1:
		return "1 meal per day (Lunch)"
	case 2:
		return "2 meals per day (Lunch and Dinner)"
	default:
		return "3 meals per day (Breakfast, Lunch, and Dinner)"
	}
}

// Result is a generated plan with the metadata of the model call.
type Result struct {
	Meals []meals.Meal
	Meta  shared.AgentMeta
}

// Planner handles the generation of meal plans.
type Planner struct {
	gen      llm.StructuredGenerator
	language string
}

// NewPlanner creates a new Planner writing plans in the given language.
func NewPlanner(gen llm.StructuredGenerator, language string) *Planner {
	return &Planner{gen: gen, language: language}
}

// generatedMeal mirrors the response schema; every field is required.
type generatedMeal struct {
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	MealType     string   `json:"meal_type" validate:"required"`
	RecipeName   string   `json:"recipe_name" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required"`
	Instructions []string `json:"instructions" validate:"required"`
	Calories     *int     `json:"calories" validate:"required"`
}

// GeneratePlan asks the model for the meals covering req. The metadata is
// returned even when the call fails after reaching the model.
func (p *Planner) GeneratePlan(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	prompt, err := p.buildPrompt(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build plan prompt: %w", err)
	}

	start := time.Now()
	resp, err := p.gen.GenerateJSON(ctx, prompt, planSchema)
	meta := shared.AgentMeta{
		AgentName: agentName,
		Usage:     resp.Usage,
		Latency:   time.Since(start),
	}
	if err != nil {
		meta.Failed = true
		return Result{Meta: meta}, apperr.Generation("generate meal plan", err)
	}

	var generated []generatedMeal
	if err := json.Unmarshal([]byte(resp.Content), &generated); err != nil {
		meta.Failed = true
		return Result{Meta: meta}, apperr.Generation("generate meal plan",
			fmt.Errorf("failed to parse meal plan JSON: %w. Response: %s", err, resp.Content))
	}

	out := make([]meals.Meal, 0, len(generated))
	for i, g := range generated {
		if err := validate.Struct(g); err != nil {
			meta.Failed = true
			return Result{Meta: meta}, apperr.Generation("generate meal plan",
				fmt.Errorf("meal %d does not match the schema: %w", i, err))
		}
		out = append(out, meals.Meal{
			Date:         g.Date,
			MealType:     g.MealType,
			RecipeName:   g.RecipeName,
			Ingredients:  g.Ingredients,
			Instructions: g.Instructions,
			Calories:     g.Calories,
		})
	}

	return Result{Meals: out, Meta: meta}, nil
}

func (p *Planner) buildPrompt(req Request) (string, error) {
	data := struct {
		Request
		MealsDescription string
		Language         string
	}{
		Request:          req,
		MealsDescription: req.MealsDescription(),
		Language:         p.language,
	}

	var buf bytes.Buffer
	if err := planTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var planSchema = &llm.Schema{
	Type: llm.TypeArray,
	Items: &llm.Schema{
		Type: llm.TypeObject,
		Properties: map[string]*llm.Schema{
			"date":         {Type: llm.TypeString, Description: "Date in YYYY-MM-DD format"},
			"meal_type":    {Type: llm.TypeString, Description: "e.g., Breakfast, Lunch, Dinner"},
			"recipe_name":  {Type: llm.TypeString},
			"ingredients":  {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"instructions": {Type: llm.TypeArray, Items: &llm.Schema{Type: llm.TypeString}},
			"calories":     {Type: llm.TypeInteger},
		},
		Required: []string{"date", "meal_type", "recipe_name", "ingredients", "instructions", "calories"},
	},
}
