package meals

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is the calendar-date format used for every stored and exchanged date.
const DateLayout = "2006-01-02"

var validate = validator.New()

// Meal is a single planned meal as produced by generation and accepted by save.
type Meal struct {
	Date         string   `json:"date" validate:"required,datetime=2006-01-02"`
	MealType     string   `json:"meal_type" validate:"required"`
	RecipeName   string   `json:"recipe_name" validate:"required"`
	Ingredients  []string `json:"ingredients" validate:"required"`
	Instructions []string `json:"instructions" validate:"required"`
	Calories     *int     `json:"calories"`
}

// Record is a persisted meal.
type Record struct {
	ID int64 `json:"id"`
	Meal
	Skipped bool `json:"skipped"`
}

// Validate checks that the meal can be stored.
func (m Meal) Validate() error {
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid meal %s/%s: %w", m.Date, m.MealType, err)
	}
	return nil
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders t as a calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Ingredients flattens the ingredient lists of records, keeping their order.
func Ingredients(records []Record) []string {
	var out []string
	for _, r := range records {
		out = append(out, r.Ingredients...)
	}
	return out
}
