// Package calendar models the meal calendar screen as plain data. Every
// transition is a method returning a new State, so a front-end can store the
// state anywhere (a URL, a chat session row) and replay user actions on it.
package calendar

import (
	"slices"
	"time"

	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"
)

// ShoppingPhase is the step of the shopping list flow.
type ShoppingPhase string

const (
	ShoppingClosed    ShoppingPhase = ""
	ShoppingSelecting ShoppingPhase = "selecting"
	ShoppingGenerated ShoppingPhase = "generated"
)

// Shopping is the state of the shopping list flow.
type Shopping struct {
	Phase    ShoppingPhase       `json:"phase,omitempty"`
	Selected []int64             `json:"selected,omitempty"`
	List     []shopping.Category `json:"list,omitempty"`
}

// State is everything the calendar screen shows.
type State struct {
	CurrentDate   string          `json:"currentDate"`
	SelectedDate  string          `json:"selectedDate"`
	Meals         []meals.Record  `json:"meals"`
	Settings      planner.Request `json:"settings"`
	SettingsOpen  bool            `json:"settingsOpen,omitempty"`
	Submitting    bool            `json:"submitting,omitempty"`
	FocusedMealID int64           `json:"focusedMealId,omitempty"`
	Shopping      Shopping        `json:"shopping"`
	Alert         string          `json:"alert,omitempty"`
}

// New returns the state of a freshly opened calendar.
func New(now time.Time) State {
	today := meals.FormatDate(now)
	return State{
		CurrentDate:  today,
		SelectedDate: today,
		Meals:        []meals.Record{},
		Settings:     planner.DefaultRequest(now),
	}
}

// WeekStart returns the Monday of the week containing t.
func WeekStart(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Week returns the first and last day of the visible week.
func (s State) Week() (start, end string) {
	monday := WeekStart(parse(s.CurrentDate))
	return meals.FormatDate(monday), meals.FormatDate(monday.AddDate(0, 0, 6))
}

// Days lists the seven days of the visible week, Monday first.
func (s State) Days() []string {
	monday := WeekStart(parse(s.CurrentDate))
	days := make([]string, 7)
	for i := range days {
		days[i] = meals.FormatDate(monday.AddDate(0, 0, i))
	}
	return days
}

// NavigateWeeks moves the visible week by n weeks.
func (s State) NavigateWeeks(n int) State {
	s.CurrentDate = meals.FormatDate(parse(s.CurrentDate).AddDate(0, 0, 7*n))
	return s
}

// GoToday shows and selects the day of now.
func (s State) GoToday(now time.Time) State {
	s.CurrentDate = meals.FormatDate(now)
	s.SelectedDate = s.CurrentDate
	return s
}

// ShowDate makes the week containing t visible without changing the selection.
func (s State) ShowDate(t time.Time) State {
	s.CurrentDate = meals.FormatDate(t)
	return s
}

// SelectDate selects a day.
func (s State) SelectDate(t time.Time) State {
	s.SelectedDate = meals.FormatDate(t)
	return s
}

// OpenSettings opens the plan form for the week starting at the selected day.
func (s State) OpenSettings() State {
	selected := parse(s.SelectedDate)
	s.Settings.StartDate = meals.FormatDate(selected)
	s.Settings.EndDate = meals.FormatDate(selected.AddDate(0, 0, 6))
	s.SettingsOpen = true
	return s
}

// CloseSettings closes the plan form. A form being submitted stays open.
func (s State) CloseSettings() State {
	if !s.Submitting {
		s.SettingsOpen = false
	}
	return s
}

// UpdateSettings replaces the form values. It is ignored while submitting.
func (s State) UpdateSettings(req planner.Request) State {
	if !s.Submitting {
		s.Settings = req
	}
	return s
}

// BeginGenerate disables the plan form.
func (s State) BeginGenerate() State {
	s.Submitting = true
	s.Alert = ""
	return s
}

// GenerateSucceeded closes the plan form.
func (s State) GenerateSucceeded() State {
	s.Submitting = false
	s.SettingsOpen = false
	return s
}

// GenerateFailed re-enables the plan form and raises an alert.
func (s State) GenerateFailed(alert string) State {
	s.Submitting = false
	s.Alert = alert
	return s
}

// MealsLoaded replaces the meals of the visible week. A focused meal that
// disappeared is unfocused and vanished meals leave the shopping selection.
func (s State) MealsLoaded(records []meals.Record) State {
	s.Meals = slices.Clone(records)
	if s.Meals == nil {
		s.Meals = []meals.Record{}
	}
	if _, ok := s.FocusedMeal(); !ok {
		s.FocusedMealID = 0
	}
	if len(s.Shopping.Selected) > 0 {
		kept := make([]int64, 0, len(s.Shopping.Selected))
		for _, id := range s.Shopping.Selected {
			if s.indexOf(id) >= 0 {
				kept = append(kept, id)
			}
		}
		s.Shopping.Selected = kept
	}
	return s
}

// SkipConfirmed applies a skip change the server accepted.
func (s State) SkipConfirmed(id int64, skipped bool) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	s.Meals = slices.Clone(s.Meals)
	s.Meals[i].Skipped = skipped
	return s
}

// SkipFailed raises an alert and leaves the meal untouched.
func (s State) SkipFailed(alert string) State {
	s.Alert = alert
	return s
}

// FocusMeal opens the detail of a meal of the visible week.
func (s State) FocusMeal(id int64) State {
	if s.indexOf(id) >= 0 {
		s.FocusedMealID = id
	}
	return s
}

// CloseMeal closes the meal detail.
func (s State) CloseMeal() State {
	s.FocusedMealID = 0
	return s
}

// OpenShopping starts the shopping flow with every non-skipped meal of the
// visible week selected.
func (s State) OpenShopping() State {
	selected := []int64{}
	for _, m := range s.Meals {
		if !m.Skipped {
			selected = append(selected, m.ID)
		}
	}
	s.Shopping = Shopping{Phase: ShoppingSelecting, Selected: selected}
	return s
}

// ToggleShoppingSelection adds or removes a meal from the selection. Changing
// the selection discards a generated list.
func (s State) ToggleShoppingSelection(id int64) State {
	if s.Shopping.Phase == ShoppingClosed || s.indexOf(id) < 0 {
		return s
	}

	selected := slices.Clone(s.Shopping.Selected)
	if i := slices.Index(selected, id); i >= 0 {
		selected = slices.Delete(selected, i, i+1)
	} else {
		selected = append(selected, id)
	}
	s.Shopping = Shopping{Phase: ShoppingSelecting, Selected: selected}
	return s
}

// ShoppingGenerated shows a generated list.
func (s State) ShoppingGenerated(list []shopping.Category) State {
	s.Shopping.Phase = ShoppingGenerated
	s.Shopping.List = list
	s.Alert = ""
	return s
}

// ShoppingFailed raises an alert and keeps the selection.
func (s State) ShoppingFailed(alert string) State {
	s.Alert = alert
	return s
}

// CloseShopping leaves the shopping flow.
func (s State) CloseShopping() State {
	s.Shopping = Shopping{}
	return s
}

// DismissAlert clears the alert.
func (s State) DismissAlert() State {
	s.Alert = ""
	return s
}

// MealsForDate returns the meals of one day in stored order.
func (s State) MealsForDate(date string) []meals.Record {
	var out []meals.Record
	for _, m := range s.Meals {
		if m.Date == date {
			out = append(out, m)
		}
	}
	return out
}

// FocusedMeal returns the meal whose detail is open.
func (s State) FocusedMeal() (meals.Record, bool) {
	if s.FocusedMealID == 0 {
		return meals.Record{}, false
	}
	i := s.indexOf(s.FocusedMealID)
	if i < 0 {
		return meals.Record{}, false
	}
	return s.Meals[i], true
}

// IsSelectedForShopping reports whether a meal is part of the shopping selection.
func (s State) IsSelectedForShopping(id int64) bool {
	return slices.Contains(s.Shopping.Selected, id)
}

// SelectedIngredients flattens the ingredients of the selected meals in
// calendar order.
func (s State) SelectedIngredients() []string {
	var chosen []meals.Record
	for _, m := range s.Meals {
		if s.IsSelectedForShopping(m.ID) {
			chosen = append(chosen, m)
		}
	}
	return meals.Ingredients(chosen)
}

func (s State) indexOf(id int64) int {
	return slices.IndexFunc(s.Meals, func(m meals.Record) bool { return m.ID == id })
}

// parse reads a stored date. States are built through the transitions above,
// so a malformed date only comes from a hand-edited session and falls back to
// the zero day.
func parse(date string) time.Time {
	t, err := meals.ParseDate(date)
	if err != nil {
		return time.Time{}
	}
	return t
}
