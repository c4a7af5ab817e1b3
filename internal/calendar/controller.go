package calendar

import (
	"context"
	"errors"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"

	"go.uber.org/zap"
)

// Alerts shown to the user.
const (
	AlertLoadFailed      = "Failed to fetch meals. Please try again."
	AlertGenerateFailed  = "Failed to generate meal plan. Please try again."
	AlertSkipFailed      = "Failed to update meal. Please try again."
	AlertShoppingFailed  = "Failed to generate shopping list. Please try again."
	AlertNoMealsSelected = "Please select at least one meal."
)

// Backend is what the calendar needs from the meal service.
type Backend interface {
	ListMeals(ctx context.Context, start, end string) ([]meals.Record, error)
	GeneratePlan(ctx context.Context, req planner.Request) (int, error)
	SetSkipped(ctx context.Context, id int64, skipped bool) error
	GenerateShoppingList(ctx context.Context, ingredients []string) ([]shopping.Category, error)
}

// Controller runs the side effects of user actions and folds their outcome
// back into a State.
type Controller struct {
	backend Backend
	logger  *zap.Logger
}

// NewController creates a controller over backend.
func NewController(backend Backend, logger *zap.Logger) *Controller {
	return &Controller{backend: backend, logger: logger}
}

// Reload fetches the meals of the visible week. On failure the previous
// meals are kept and an alert is raised.
func (c *Controller) Reload(ctx context.Context, s State) State {
	start, end := s.Week()
	records, err := c.backend.ListMeals(ctx, start, end)
	if err != nil {
		c.logger.Warn("failed to load meals",
			zap.String("start_date", start),
			zap.String("end_date", end),
			zap.Error(err),
		)
		s.Alert = AlertLoadFailed
		return s
	}
	return s.MealsLoaded(records)
}

// Navigate moves the visible week by n weeks and fetches it.
func (c *Controller) Navigate(ctx context.Context, s State, n int) State {
	if n == 0 {
		return s
	}
	return c.Reload(ctx, s.NavigateWeeks(n))
}

// GoToday shows today, fetching its week when it was not visible.
func (c *Controller) GoToday(ctx context.Context, s State, now time.Time) State {
	return c.Show(ctx, s.GoToday(now), now)
}

// Show makes the week containing t visible, fetching it when the visible
// week changes.
func (c *Controller) Show(ctx context.Context, s State, t time.Time) State {
	before, _ := s.Week()
	s = s.ShowDate(t)
	if after, _ := s.Week(); after != before {
		return c.Reload(ctx, s)
	}
	return s
}

// SubmitPlan generates and stores a plan for req, then refreshes the week.
// On failure the form stays open with an alert and the meals are untouched.
func (c *Controller) SubmitPlan(ctx context.Context, s State, req planner.Request) State {
	if s.Submitting {
		return s
	}
	s = s.UpdateSettings(req).BeginGenerate()

	count, err := c.backend.GeneratePlan(ctx, s.Settings)
	if err != nil {
		c.logger.Warn("failed to generate meal plan", zap.Error(err))
		return s.GenerateFailed(alertFor(err, AlertGenerateFailed))
	}

	c.logger.Info("meal plan stored", zap.Int("count", count))
	return c.Reload(ctx, s).GenerateSucceeded()
}

// ToggleSkip flips the skipped flag of a meal once the backend confirms it.
func (c *Controller) ToggleSkip(ctx context.Context, s State, id int64) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	skipped := !s.Meals[i].Skipped

	if err := c.backend.SetSkipped(ctx, id, skipped); err != nil {
		c.logger.Warn("failed to toggle skip", zap.Int64("meal_id", id), zap.Error(err))
		return s.SkipFailed(AlertSkipFailed)
	}
	return s.SkipConfirmed(id, skipped)
}

// GenerateShoppingList builds a list from the selected meals. An empty
// selection is rejected without contacting the backend.
func (c *Controller) GenerateShoppingList(ctx context.Context, s State) State {
	if s.Shopping.Phase == ShoppingClosed {
		s = s.OpenShopping()
	}

	ingredients := s.SelectedIngredients()
	if len(ingredients) == 0 {
		return s.ShoppingFailed(AlertNoMealsSelected)
	}

	list, err := c.backend.GenerateShoppingList(ctx, ingredients)
	if err != nil {
		c.logger.Warn("failed to generate shopping list", zap.Error(err))
		return s.ShoppingFailed(alertFor(err, AlertShoppingFailed))
	}
	return s.ShoppingGenerated(list)
}

// alertFor shows validation messages as they are and hides everything else
// behind fallback.
func alertFor(err error, fallback string) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Code == apperr.CodeValidationFailed {
		return appErr.Message
	}
	return fallback
}
