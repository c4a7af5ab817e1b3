package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"meal-calendar/internal/apperr"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"
	"meal-calendar/internal/shopping"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	records     []meals.Record
	ranges      [][2]string
	plans       []planner.Request
	planErr     error
	skips       map[int64]bool
	skipErr     error
	ingredients []string
	list        []shopping.Category
}

func (f *fakeBackend) ListMeals(_ context.Context, start, end string) ([]meals.Record, error) {
	f.ranges = append(f.ranges, [2]string{start, end})
	return f.records, nil
}

func (f *fakeBackend) GeneratePlan(_ context.Context, req planner.Request) (int, error) {
	f.plans = append(f.plans, req)
	return 3, f.planErr
}

func (f *fakeBackend) SetSkipped(_ context.Context, id int64, skipped bool) error {
	if f.skipErr != nil {
		return f.skipErr
	}
	if f.skips == nil {
		f.skips = map[int64]bool{}
	}
	f.skips[id] = skipped
	return nil
}

func (f *fakeBackend) GenerateShoppingList(_ context.Context, ingredients []string) ([]shopping.Category, error) {
	f.ingredients = ingredients
	return f.list, nil
}

func newTestHandler(t *testing.T, backend *fakeBackend) http.Handler {
	t.Helper()
	h, err := NewHandler(backend, zap.NewNop())
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC) }
	return h.Routes()
}

func weekRecords() []meals.Record {
	calories := 650
	return []meals.Record{
		{ID: 1, Meal: meals.Meal{Date: "2024-03-06", MealType: "Lunch", RecipeName: "Risotto",
			Ingredients: []string{"rice", "parmesan"}, Instructions: []string{"stir"}, Calories: &calories}},
		{ID: 2, Meal: meals.Meal{Date: "2024-03-06", MealType: "Dinner", RecipeName: "Minestrone",
			Ingredients: []string{"beans"}, Instructions: []string{"simmer"}}, Skipped: true},
		{ID: 3, Meal: meals.Meal{Date: "2024-03-08", MealType: "Lunch", RecipeName: "Focaccia",
			Ingredients: []string{"flour", "oil"}, Instructions: []string{"bake"}}},
	}
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, *goquery.Document) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	return rec, doc
}

func post(t *testing.T, h http.Handler, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCalendarPage(t *testing.T) {
	backend := &fakeBackend{records: weekRecords()}
	h := newTestHandler(t, backend)

	t.Run("RendersTheCurrentWeek", func(t *testing.T) {
		rec, doc := get(t, h, "/")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, [2]string{"2024-03-04", "2024-03-10"}, backend.ranges[len(backend.ranges)-1])

		assert.Equal(t, "March 2024", strings.TrimSpace(doc.Find("#month").Text()))
		assert.Equal(t, 7, doc.Find(".week .day").Length())
		assert.Equal(t, "2024-03-04", doc.Find(".week .day").First().AttrOr("data-date", ""))

		selected := doc.Find(".day.selected")
		assert.Equal(t, "2024-03-06", selected.AttrOr("data-date", ""))
		assert.Equal(t, 2, selected.Find(".marker").Length())
		assert.Equal(t, 1, selected.Find(".marker.skipped").Length())

		assert.Contains(t, doc.Find("#selected-day h2").Text(), "Today's Plan")
		assert.Equal(t, 2, doc.Find(".meal-card").Length())
		assert.Equal(t, "Minestrone", strings.TrimSpace(doc.Find(".meal-card.skipped .recipe").Text()))
		assert.Equal(t, "650 kcal", strings.TrimSpace(doc.Find(".meal-card .calories").First().Text()))
		assert.Zero(t, doc.Find("#meal-detail").Length())
		assert.Zero(t, doc.Find("#settings-form").Length())
	})

	t.Run("NavigationLinks", func(t *testing.T) {
		_, doc := get(t, h, "/?date=2024-03-06&selected=2024-03-08")
		assert.Contains(t, doc.Find("#prev-week").AttrOr("href", ""), "date=2024-02-28")
		assert.Contains(t, doc.Find("#next-week").AttrOr("href", ""), "date=2024-03-13")
		assert.Contains(t, doc.Find("#selected-day h2").Text(), "Friday, March 8")
		assert.Equal(t, 1, doc.Find(".meal-card").Length())
	})

	t.Run("OtherWeek", func(t *testing.T) {
		get(t, h, "/?date=2024-03-13")
		assert.Equal(t, [2]string{"2024-03-11", "2024-03-17"}, backend.ranges[len(backend.ranges)-1])
	})

	t.Run("MealDetail", func(t *testing.T) {
		_, doc := get(t, h, "/?meal=1")
		detail := doc.Find("#meal-detail")
		require.Equal(t, 1, detail.Length())
		assert.Equal(t, "Risotto", detail.Find("h2").Text())
		assert.Equal(t, 2, detail.Find(".ingredients li").Length())
		assert.Equal(t, "stir", detail.Find(".instructions li").Text())
	})

	t.Run("SettingsPrefillFromSelectedDate", func(t *testing.T) {
		_, doc := get(t, h, "/?selected=2024-03-08&settings=1")
		form := doc.Find("#settings-form")
		require.Equal(t, 1, form.Length())
		assert.Equal(t, "2024-03-08", form.Find("input[name=startDate]").AttrOr("value", ""))
		assert.Equal(t, "2024-03-14", form.Find("input[name=endDate]").AttrOr("value", ""))
		assert.Equal(t, "3", form.Find("select[name=mealsPerDay] option[selected]").AttrOr("value", ""))
		_, checked := form.Find("input[name=redMeat]").Attr("checked")
		assert.True(t, checked)
		_, checked = form.Find("input[name=vegetarian]").Attr("checked")
		assert.False(t, checked)
	})
}

func TestPlanForm(t *testing.T) {
	form := url.Values{
		"date":           {"2024-03-06"},
		"selected":       {"2024-03-06"},
		"startDate":      {"2024-03-06"},
		"endDate":        {"2024-03-08"},
		"mealsPerDay":    {"2"},
		"caloriesLevel":  {"low"},
		"vegetarian":     {"on"},
		"budgetFriendly": {"on"},
		"notes":          {"  no mushrooms "},
	}

	t.Run("SuccessRedirectsToCalendar", func(t *testing.T) {
		backend := &fakeBackend{records: weekRecords()}
		rec := post(t, newTestHandler(t, backend), "/plan", form)

		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?date=2024-03-06&selected=2024-03-06", rec.Header().Get("Location"))
		require.Len(t, backend.plans, 1)
		assert.Equal(t, planner.Request{
			StartDate:      "2024-03-06",
			EndDate:        "2024-03-08",
			MealsPerDay:    2,
			CaloriesLevel:  "low",
			Vegetarian:     true,
			BudgetFriendly: true,
			Notes:          "no mushrooms",
		}, backend.plans[0])
	})

	t.Run("FailureKeepsFormOpenWithAlert", func(t *testing.T) {
		backend := &fakeBackend{
			records: weekRecords(),
			planErr: apperr.Generation("generate meal plan", errors.New("quota")),
		}
		rec := post(t, newTestHandler(t, backend), "/plan", form)
		assert.Equal(t, http.StatusOK, rec.Code)

		doc, err := goquery.NewDocumentFromReader(rec.Body)
		require.NoError(t, err)
		assert.Contains(t, doc.Find(".alert").Text(), "Failed to generate meal plan")
		assert.Equal(t, "no mushrooms", doc.Find("#settings-form textarea[name=notes]").Text())
		assert.Equal(t, 2, doc.Find(".meal-card").Length())
	})
}

func TestSkipForm(t *testing.T) {
	t.Run("TogglesAndRedirects", func(t *testing.T) {
		backend := &fakeBackend{records: weekRecords()}
		h := newTestHandler(t, backend)

		rec := post(t, h, "/meals/2/skip", url.Values{"date": {"2024-03-06"}, "selected": {"2024-03-06"}, "meal": {"2"}})
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/?date=2024-03-06&meal=2&selected=2024-03-06", rec.Header().Get("Location"))
		assert.Equal(t, map[int64]bool{2: false}, backend.skips)
	})

	t.Run("FailureShowsAlert", func(t *testing.T) {
		backend := &fakeBackend{records: weekRecords(), skipErr: errors.New("locked")}
		rec := post(t, newTestHandler(t, backend), "/meals/1/skip", url.Values{"date": {"2024-03-06"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Failed to update meal")
	})

	t.Run("BadID", func(t *testing.T) {
		rec := post(t, newTestHandler(t, &fakeBackend{}), "/meals/abc/skip", url.Values{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestShoppingPages(t *testing.T) {
	t.Run("PreselectsNonSkippedMeals", func(t *testing.T) {
		h := newTestHandler(t, &fakeBackend{records: weekRecords()})
		_, doc := get(t, h, "/shopping?date=2024-03-06")

		assert.Equal(t, 3, doc.Find("input[name=meal]").Length())
		assert.Equal(t, 2, doc.Find("input[name=meal][checked]").Length())
		_, checked := doc.Find("input[name=meal][value='2']").Attr("checked")
		assert.False(t, checked)
	})

	t.Run("GeneratesFromSubmittedSelection", func(t *testing.T) {
		backend := &fakeBackend{
			records: weekRecords(),
			list: []shopping.Category{
				{Category: "Grains", Items: []string{"rice", "flour"}},
				{Category: "Dairy", Items: []string{"parmesan"}},
			},
		}
		rec := post(t, newTestHandler(t, backend), "/shopping", url.Values{"date": {"2024-03-06"}, "meal": {"1", "3"}})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []string{"rice", "parmesan", "flour", "oil"}, backend.ingredients)

		doc, err := goquery.NewDocumentFromReader(rec.Body)
		require.NoError(t, err)
		assert.Equal(t, 2, doc.Find("#shopping-list .category").Length())
		assert.Equal(t, "Grains", doc.Find("#shopping-list .category h3").First().Text())
	})

	t.Run("EmptySelectionIsRejectedWithoutCall", func(t *testing.T) {
		backend := &fakeBackend{records: weekRecords()}
		rec := post(t, newTestHandler(t, backend), "/shopping", url.Values{"date": {"2024-03-06"}})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, backend.ingredients)
		assert.Contains(t, rec.Body.String(), "Please select at least one meal.")
		assert.NotContains(t, rec.Body.String(), `id="shopping-list"`)
	})
}
