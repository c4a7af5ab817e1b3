package app

import (
	"context"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/metrics"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shared"
	"meal-calendar/internal/shopping"

	"go.uber.org/zap"
)

// MealStore persists planned meals.
type MealStore interface {
	ListRange(ctx context.Context, start, end string) ([]meals.Record, error)
	ReplaceRange(ctx context.Context, meals []meals.Meal, start, end string) (int, error)
	SetSkipped(ctx context.Context, id int64, skipped bool) error
	Delete(ctx context.Context, id int64) error
}

// PlanGenerator produces meal plans.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, req planner.Request) (planner.Result, error)
}

// ShoppingGenerator produces consolidated shopping lists.
type ShoppingGenerator interface {
	Generate(ctx context.Context, ingredients []string) (shopping.Result, error)
}

// UsageRecorder keeps a ledger of model calls.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// App holds the application's dependencies.
type App struct {
	store      MealStore
	plans      PlanGenerator
	lists      ShoppingGenerator
	usage      UsageRecorder
	collectors *metrics.Collectors
	logger     *zap.Logger
}

// NewApp creates and initializes a new App instance.
func NewApp(
	store MealStore,
	plans PlanGenerator,
	lists ShoppingGenerator,
	usage UsageRecorder,
	collectors *metrics.Collectors,
	logger *zap.Logger,
) *App {
	return &App{
		store:      store,
		plans:      plans,
		lists:      lists,
		usage:      usage,
		collectors: collectors,
		logger:     logger,
	}
}

// ListMeals returns the meals dated between start and end inclusive.
func (a *App) ListMeals(ctx context.Context, start, end string) ([]meals.Record, error) {
	if start == "" || end == "" {
		return nil, apperr.Validation("startDate and endDate are required")
	}
	if _, err := meals.ParseDate(start); err != nil {
		return nil, apperr.Validation("invalid startDate %q", start)
	}
	if _, err := meals.ParseDate(end); err != nil {
		return nil, apperr.Validation("invalid endDate %q", end)
	}
	return a.store.ListRange(ctx, start, end)
}

// SavePlan replaces the meals of [start, end] with plan in one transaction.
// When either bound is empty nothing is cleared first.
func (a *App) SavePlan(ctx context.Context, plan []meals.Meal, start, end string) (int, error) {
	count, err := a.store.ReplaceRange(ctx, plan, start, end)
	if err != nil {
		a.logger.Error("failed to save meal plan",
			zap.String("start_date", start),
			zap.String("end_date", end),
			zap.Int("meals", len(plan)),
			zap.Error(err),
		)
		return 0, err
	}
	a.collectors.ObserveSaved(count)
	a.logger.Info("meal plan saved",
		zap.String("start_date", start),
		zap.String("end_date", end),
		zap.Int("count", count),
	)
	return count, nil
}

// SetSkipped marks one meal as skipped or not.
func (a *App) SetSkipped(ctx context.Context, id int64, skipped bool) error {
	return a.store.SetSkipped(ctx, id, skipped)
}

// DeleteMeal removes one meal.
func (a *App) DeleteMeal(ctx context.Context, id int64) error {
	return a.store.Delete(ctx, id)
}

// GeneratePlan generates meals for req and saves them over the requested
// range. It returns the number of meals stored.
func (a *App) GeneratePlan(ctx context.Context, req planner.Request) (int, error) {
	result, err := a.plans.GeneratePlan(ctx, req)
	a.recordUsage(ctx, result.Meta)
	if err != nil {
		a.logger.Warn("meal plan generation failed",
			zap.String("start_date", req.StartDate),
			zap.String("end_date", req.EndDate),
			zap.Error(err),
		)
		return 0, err
	}

	a.logger.Info("meal plan generated",
		zap.Int("meals", len(result.Meals)),
		zap.String("model", result.Meta.Usage.Model),
		zap.Duration("latency", result.Meta.Latency),
	)
	return a.SavePlan(ctx, result.Meals, req.StartDate, req.EndDate)
}

// GenerateShoppingList consolidates the ingredients of the chosen meals.
func (a *App) GenerateShoppingList(ctx context.Context, ingredients []string) ([]shopping.Category, error) {
	result, err := a.lists.Generate(ctx, ingredients)
	a.recordUsage(ctx, result.Meta)
	if err != nil {
		if !apperr.Is(err, apperr.CodeValidationFailed) {
			a.logger.Warn("shopping list generation failed", zap.Error(err))
		}
		return nil, err
	}
	return result.Categories, nil
}

// recordUsage writes the ledger entry even when ctx is already canceled.
func (a *App) recordUsage(ctx context.Context, meta shared.AgentMeta) {
	if !meta.Reached() {
		return
	}
	a.collectors.ObserveGeneration(meta)
	if err := a.usage.RecordMeta(context.WithoutCancel(ctx), meta); err != nil {
		a.logger.Warn("failed to record generation usage",
			zap.String("agent", meta.AgentName),
			zap.Error(err),
		)
	}
}
