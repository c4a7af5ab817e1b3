package meals

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/meals/mealsdb"
)

// Repository is the database-backed store for planned meals.
type Repository struct {
	queries *mealsdb.Queries
	db      *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{
		queries: mealsdb.New(d),
		db:      d,
	}
}

// ListRange returns the meals dated between start and end inclusive,
// ordered by date and then meal type.
func (r *Repository) ListRange(ctx context.Context, start, end string) ([]Record, error) {
	rows, err := r.queries.ListMealsInRange(ctx, mealsdb.ListMealsInRangeParams{
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return nil, apperr.Storage("list meals", err)
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := fromRow(row)
		if err != nil {
			return nil, apperr.Storage("decode meal", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// ReplaceRange stores meals in a single transaction. When both start and end
// are set, every meal already stored in that range is removed first. Any
// failure rolls the whole batch back. Stored meals always start unskipped.
func (r *Repository) ReplaceRange(ctx context.Context, meals []Meal, start, end string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperr.Storage("begin transaction", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	if start != "" && end != "" {
		if _, err := qtx.DeleteMealsInRange(ctx, mealsdb.DeleteMealsInRangeParams{
			StartDate: start,
			EndDate:   end,
		}); err != nil {
			return 0, apperr.Storage("clear meal range", err)
		}
	}

	for _, m := range meals {
		params, err := toInsertParams(m)
		if err != nil {
			return 0, apperr.Storage("save meal plan", err)
		}
		if _, err := qtx.InsertMeal(ctx, params); err != nil {
			return 0, apperr.Storage("save meal plan", fmt.Errorf("insert %s/%s: %w", m.Date, m.MealType, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, apperr.Storage("commit meal plan", err)
	}
	return len(meals), nil
}

// SetSkipped sets the skipped flag of one meal. Unknown ids are ignored.
func (r *Repository) SetSkipped(ctx context.Context, id int64, skipped bool) error {
	if err := r.queries.UpdateMealSkipped(ctx, mealsdb.UpdateMealSkippedParams{
		Skipped: skipped,
		ID:      id,
	}); err != nil {
		return apperr.Storage("update meal", err)
	}
	return nil
}

// Delete removes one meal. Unknown ids are ignored.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	if err := r.queries.DeleteMeal(ctx, id); err != nil {
		return apperr.Storage("delete meal", err)
	}
	return nil
}

func toInsertParams(m Meal) (mealsdb.InsertMealParams, error) {
	if err := m.Validate(); err != nil {
		return mealsdb.InsertMealParams{}, err
	}

	ingredients, err := json.Marshal(m.Ingredients)
	if err != nil {
		return mealsdb.InsertMealParams{}, fmt.Errorf("failed to marshal ingredients: %w", err)
	}
	instructions, err := json.Marshal(m.Instructions)
	if err != nil {
		return mealsdb.InsertMealParams{}, fmt.Errorf("failed to marshal instructions: %w", err)
	}

	var calories sql.NullInt64
	if m.Calories != nil {
		calories = sql.NullInt64{Int64: int64(*m.Calories), Valid: true}
	}

	return mealsdb.InsertMealParams{
		Date:         m.Date,
		MealType:     m.MealType,
		RecipeName:   m.RecipeName,
		Ingredients:  string(ingredients),
		Instructions: string(instructions),
		Calories:     calories,
	}, nil
}

func fromRow(row mealsdb.MealPlan) (Record, error) {
	rec := Record{
		ID:      row.ID,
		Skipped: row.Skipped,
		Meal: Meal{
			Date:       row.Date,
			MealType:   row.MealType,
			RecipeName: row.RecipeName,
		},
	}
	if err := json.Unmarshal([]byte(row.Ingredients), &rec.Ingredients); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal ingredients of meal %d: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Instructions), &rec.Instructions); err != nil {
		return Record{}, fmt.Errorf("failed to unmarshal instructions of meal %d: %w", row.ID, err)
	}
	if row.Calories.Valid {
		c := int(row.Calories.Int64)
		rec.Calories = &c
	}
	return rec, nil
}
