// Package web renders the meal calendar as server-side HTML pages. Each
// request rebuilds the calendar state from its query or form values, so the
// pages keep working with plain links and form posts.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Handler serves the calendar pages.
type Handler struct {
	controller *calendar.Controller
	templates  *template.Template
	logger     *zap.Logger
	now        func() time.Time
}

// NewHandler creates the web front-end over backend.
func NewHandler(backend calendar.Backend, logger *zap.Logger) (*Handler, error) {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return &Handler{
		controller: calendar.NewController(backend, logger),
		templates:  tmpl,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Routes returns the router of the pages.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.handleCalendar)
	r.Post("/plan", h.handlePlan)
	r.Post("/meals/{id}/skip", h.handleSkip)
	r.Get("/shopping", h.handleShopping)
	r.Post("/shopping", h.handleShoppingList)
	return r
}

var funcMap = template.FuncMap{
	"calories": func(c *int) string {
		if c == nil {
			return "n/a"
		}
		return strconv.Itoa(*c) + " kcal"
	},
	"shortDate": func(date string) string {
		t, err := meals.ParseDate(date)
		if err != nil {
			return date
		}
		return t.Format("Jan 2")
	},
}

type dayView struct {
	Date     string
	Weekday  string
	Number   string
	Today    bool
	Selected bool
	Meals    []meals.Record
}

type calendarPage struct {
	State         calendar.State
	Month         string
	Days          []dayView
	SelectedTitle string
	SelectedMeals []meals.Record
	Focused       *meals.Record
	PrevDate      string
	NextDate      string
	Today         string
	Week          string
}

type shoppingPage struct {
	State calendar.State
	Week  string
}

func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s := h.stateFrom(r.URL.Query())
	s = h.controller.Reload(r.Context(), s)
	if id, err := strconv.ParseInt(r.URL.Query().Get("meal"), 10, 64); err == nil {
		s = s.FocusMeal(id)
	}
	if r.URL.Query().Get("settings") == "1" {
		s = s.OpenSettings()
	}
	h.render(w, http.StatusOK, "calendar", h.calendarPage(s))
}

func (h *Handler) handlePlan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s := h.controller.Reload(r.Context(), h.stateFrom(r.PostForm)).OpenSettings()
	s = h.controller.SubmitPlan(r.Context(), s, requestFromForm(r.PostForm))
	if s.Alert != "" {
		h.render(w, http.StatusOK, "calendar", h.calendarPage(s))
		return
	}
	http.Redirect(w, r, calendarURL(s, 0), http.StatusSeeOther)
}

func (h *Handler) handleSkip(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s := h.controller.Reload(r.Context(), h.stateFrom(r.PostForm))
	s = h.controller.ToggleSkip(r.Context(), s, id)
	if s.Alert != "" {
		h.render(w, http.StatusOK, "calendar", h.calendarPage(s))
		return
	}

	focus := int64(0)
	if r.PostForm.Get("meal") != "" {
		focus = id
	}
	http.Redirect(w, r, calendarURL(s, focus), http.StatusSeeOther)
}

func (h *Handler) handleShopping(w http.ResponseWriter, r *http.Request) {
	s := h.controller.Reload(r.Context(), h.stateFrom(r.URL.Query())).OpenShopping()
	h.render(w, http.StatusOK, "shopping", shoppingPage{State: s, Week: weekLabel(s)})
}

func (h *Handler) handleShoppingList(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	s := h.controller.Reload(r.Context(), h.stateFrom(r.PostForm)).OpenShopping()
	s = applySelection(s, r.PostForm["meal"])
	s = h.controller.GenerateShoppingList(r.Context(), s)
	h.render(w, http.StatusOK, "shopping", shoppingPage{State: s, Week: weekLabel(s)})
}

// stateFrom rebuilds the navigation part of the state. Unparseable dates
// fall back to today.
func (h *Handler) stateFrom(values url.Values) calendar.State {
	now := h.now()
	s := calendar.New(now)
	if t, err := meals.ParseDate(values.Get("date")); err == nil {
		s = s.ShowDate(t)
	}
	if t, err := meals.ParseDate(values.Get("selected")); err == nil {
		s = s.SelectDate(t)
	}
	return s
}

func (h *Handler) calendarPage(s calendar.State) calendarPage {
	today := meals.FormatDate(h.now())
	current, _ := meals.ParseDate(s.CurrentDate)

	page := calendarPage{
		State:         s,
		Month:         current.Format("January 2006"),
		SelectedMeals: s.MealsForDate(s.SelectedDate),
		PrevDate:      meals.FormatDate(current.AddDate(0, 0, -7)),
		NextDate:      meals.FormatDate(current.AddDate(0, 0, 7)),
		Today:         today,
		Week:          weekLabel(s),
	}

	for _, date := range s.Days() {
		t, _ := meals.ParseDate(date)
		page.Days = append(page.Days, dayView{
			Date:     date,
			Weekday:  t.Format("Mon"),
			Number:   t.Format("2"),
			Today:    date == today,
			Selected: date == s.SelectedDate,
			Meals:    s.MealsForDate(date),
		})
	}

	if s.SelectedDate == today {
		page.SelectedTitle = "Today's Plan"
	} else if t, err := meals.ParseDate(s.SelectedDate); err == nil {
		page.SelectedTitle = t.Format("Monday, January 2")
	}

	if m, ok := s.FocusedMeal(); ok {
		page.Focused = &m
	}
	return page
}

func (h *Handler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf strings.Builder
	if err := h.templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error("Failed to render template",
			zap.String("template", name),
			zap.Error(err),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

// applySelection makes the shopping selection match the submitted meal ids.
func applySelection(s calendar.State, ids []string) calendar.State {
	want := map[int64]bool{}
	for _, raw := range ids {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			want[id] = true
		}
	}
	for _, m := range s.Meals {
		if s.IsSelectedForShopping(m.ID) != want[m.ID] {
			s = s.ToggleShoppingSelection(m.ID)
		}
	}
	return s
}

func requestFromForm(values url.Values) planner.Request {
	mealsPerDay, _ := strconv.Atoi(values.Get("mealsPerDay"))
	return planner.Request{
		StartDate:      values.Get("startDate"),
		EndDate:        values.Get("endDate"),
		MealsPerDay:    mealsPerDay,
		CaloriesLevel:  values.Get("caloriesLevel"),
		Vegetarian:     values.Get("vegetarian") != "",
		RedMeat:        values.Get("redMeat") != "",
		BudgetFriendly: values.Get("budgetFriendly") != "",
		Notes:          strings.TrimSpace(values.Get("notes")),
	}
}

func calendarURL(s calendar.State, focus int64) string {
	q := url.Values{}
	q.Set("date", s.CurrentDate)
	q.Set("selected", s.SelectedDate)
	if focus != 0 {
		q.Set("meal", strconv.FormatInt(focus, 10))
	}
	return "/?" + q.Encode()
}

func weekLabel(s calendar.State) string {
	start, end := s.Week()
	return start + " / " + end
}
