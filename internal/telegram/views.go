package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/shopping"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback actions, sent as "action|data".
const (
	actionNavigate      = "nav"
	actionToday         = "today"
	actionWeek          = "week"
	actionDay           = "day"
	actionMeal          = "meal"
	actionSkip          = "skip"
	actionShopping      = "shop"
	actionShopToggle    = "shopsel"
	actionShopGenerate  = "shopgen"
	actionShoppingClose = "shopclose"
)

const helpText = "🍽 *Meal Calendar*\n\n" +
	"/week - show the current week\n" +
	"/today - jump to today\n" +
	"/plan YYYY-MM-DD YYYY-MM-DD [notes] - generate a plan for a date range\n" +
	"/plan - generate a plan for the 7 days from the selected day\n" +
	"/shopping - build a shopping list from this week's meals"

type view struct {
	text     string
	keyboard tgbotapi.InlineKeyboardMarkup
}

func callbackData(action, data string) string {
	return action + "|" + data
}

// parseCallback splits "action|data". Data may be empty.
func parseCallback(raw string) (action, data string, ok bool) {
	action, data, ok = strings.Cut(raw, "|")
	if !ok || action == "" {
		return "", "", false
	}
	return action, data, true
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escape(s string) string {
	return markdownEscaper.Replace(s)
}

func dayLabel(date string) string {
	t, err := meals.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Mon 2")
}

func longDayLabel(date string) string {
	t, err := meals.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 2")
}

func caloriesLabel(c *int) string {
	if c == nil {
		return ""
	}
	return fmt.Sprintf(" · %d kcal", *c)
}

func weekView(s calendar.State) view {
	start, end := s.Week()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 *Week %s / %s*\n", start, end))
	for _, date := range s.Days() {
		marker := ""
		if date == s.SelectedDate {
			marker = " 👉"
		}
		sb.WriteString(fmt.Sprintf("\n*%s*%s\n", dayLabel(date), marker))

		dayMeals := s.MealsForDate(date)
		if len(dayMeals) == 0 {
			sb.WriteString("_nothing planned_\n")
		}
		for _, m := range dayMeals {
			sb.WriteString(mealLine(m))
		}
	}

	days := s.Days()
	var first, second []tgbotapi.InlineKeyboardButton
	for i, date := range days {
		label := dayLabel(date)
		if date == s.SelectedDate {
			label = "• " + label
		}
		button := tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionDay, date))
		if i < 4 {
			first = append(first, button)
		} else {
			second = append(second, button)
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		first,
		second,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("◀️", callbackData(actionNavigate, "-1")),
			tgbotapi.NewInlineKeyboardButtonData("Today", callbackData(actionToday, "")),
			tgbotapi.NewInlineKeyboardButtonData("▶️", callbackData(actionNavigate, "1")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🛒 Shopping list", callbackData(actionShopping, "")),
		),
	)
	return view{text: sb.String(), keyboard: keyboard}
}

func mealLine(m meals.Record) string {
	if m.Skipped {
		return fmt.Sprintf("• %s: %s _(skipped)_\n", escape(m.MealType), escape(m.RecipeName))
	}
	return fmt.Sprintf("• %s: %s\n", escape(m.MealType), escape(m.RecipeName))
}

func dayView(s calendar.State) view {
	dayMeals := s.MealsForDate(s.SelectedDate)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 *%s*\n\n", longDayLabel(s.SelectedDate)))
	if len(dayMeals) == 0 {
		sb.WriteString("_No meals planned for this day._\n\nUse /plan to generate some.")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range dayMeals {
		sb.WriteString(mealLine(m))

		label := m.MealType + ": " + m.RecipeName
		if m.Skipped {
			label = "⏭ " + label
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionMeal, strconv.FormatInt(m.ID, 10))),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Week", callbackData(actionWeek, "")),
	))
	return view{text: sb.String(), keyboard: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

func mealView(m meals.Record) view {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🍽 *%s*\n", escape(m.RecipeName)))
	sb.WriteString(fmt.Sprintf("%s · %s%s\n", escape(m.MealType), longDayLabel(m.Date), caloriesLabel(m.Calories)))
	if m.Skipped {
		sb.WriteString("_Skipped_\n")
	}

	sb.WriteString("\n*Ingredients*\n")
	for _, ing := range m.Ingredients {
		sb.WriteString("• " + escape(ing) + "\n")
	}
	sb.WriteString("\n*Instructions*\n")
	for i, step := range m.Instructions {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, escape(step)))
	}

	skipLabel := "⏭ Skip"
	if m.Skipped {
		skipLabel = "↩️ Restore"
	}
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(skipLabel, callbackData(actionSkip, strconv.FormatInt(m.ID, 10))),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Day", callbackData(actionDay, m.Date)),
		),
	)
	return view{text: sb.String(), keyboard: keyboard}
}

func shoppingSelectView(s calendar.State) view {
	start, end := s.Week()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🛒 *Shopping list for %s / %s*\n\n", start, end))
	if len(s.Meals) == 0 {
		sb.WriteString("_No meals planned this week._")
	} else {
		sb.WriteString("Choose the meals to shop for, then tap Generate.")
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	for _, m := range s.Meals {
		box := "⬜️"
		if s.IsSelectedForShopping(m.ID) {
			box = "☑️"
		}
		label := fmt.Sprintf("%s %s %s: %s", box, dayLabel(m.Date), m.MealType, m.RecipeName)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, callbackData(actionShopToggle, strconv.FormatInt(m.ID, 10))),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✨ Generate", callbackData(actionShopGenerate, "")),
		tgbotapi.NewInlineKeyboardButtonData("✖️ Close", callbackData(actionShoppingClose, "")),
	))
	return view{text: sb.String(), keyboard: tgbotapi.NewInlineKeyboardMarkup(rows...)}
}

func shoppingListView(list []shopping.Category) view {
	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n")
	if len(list) == 0 {
		sb.WriteString("\n_Nothing to buy._\n")
	}
	for _, c := range list {
		sb.WriteString(fmt.Sprintf("\n*%s*\n", escape(c.Category)))
		for _, item := range c.Items {
			sb.WriteString("• " + escape(item) + "\n")
		}
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✏️ Change meals", callbackData(actionShopping, "")),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Week", callbackData(actionShoppingClose, "")),
		),
	)
	return view{text: sb.String(), keyboard: keyboard}
}

// currentView picks the screen matching the state.
func currentView(s calendar.State) view {
	switch s.Shopping.Phase {
	case calendar.ShoppingGenerated:
		return shoppingListView(s.Shopping.List)
	case calendar.ShoppingSelecting:
		return shoppingSelectView(s)
	}
	if m, ok := s.FocusedMeal(); ok {
		return mealView(m)
	}
	return weekView(s)
}
