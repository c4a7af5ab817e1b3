// Package telegram serves the meal calendar as a Telegram chat.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"meal-calendar/internal/calendar"
	"meal-calendar/internal/meals"
	"meal-calendar/internal/planner"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the part of the Telegram API the bot talks to.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// SessionStore keeps the calendar state of each chat.
type SessionStore interface {
	Load(ctx context.Context, chatID int64) (calendar.State, bool, error)
	Save(ctx context.Context, chatID int64, state calendar.State) error
}

// Bot answers chat commands and inline keyboard callbacks.
type Bot struct {
	api        Sender
	controller *calendar.Controller
	sessions   SessionStore
	allowed    func(userID int64) bool
	logger     *zap.Logger
	now        func() time.Time

	// chatLocks serializes updates of one chat so session writes do not race.
	chatLocks sync.Map
}

// NewBotAPI connects to Telegram and points its webhook at webhookURL.
func NewBotAPI(token, webhookURL string, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook url %s: %w", webhookURL, err)
	}
	resp, err := api.Request(wh)
	if err != nil {
		return nil, fmt.Errorf("failed to set webhook to %s: %w", webhookURL, err)
	}
	logger.Info("Webhook set", zap.String("description", resp.Description))
	return api, nil
}

// NewBot creates a bot driving backend through the calendar controller.
func NewBot(
	api Sender,
	backend calendar.Backend,
	sessions SessionStore,
	allowed func(userID int64) bool,
	logger *zap.Logger,
) *Bot {
	return &Bot{
		api:        api,
		controller: calendar.NewController(backend, logger),
		sessions:   sessions,
		allowed:    allowed,
		logger:     logger,
		now:        time.Now,
	}
}

// RegisterHandlers registers the webhook and health endpoints on mux.
func (b *Bot) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", b.handleWebhook)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		b.logger.Warn("Error parsing update", zap.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	// Telegram retries updates that are not acknowledged quickly, and plan
	// generation takes a while.
	go b.HandleUpdate(context.WithoutCancel(r.Context()), update)
}

// HandleUpdate processes one update from an allowed user.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var from *tgbotapi.User
	var chatID int64
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.Message != nil:
		from = update.CallbackQuery.From
		chatID = update.CallbackQuery.Message.Chat.ID
	case update.Message != nil:
		from = update.Message.From
		chatID = update.Message.Chat.ID
	default:
		return
	}

	if from == nil || !b.allowed(from.ID) {
		if from != nil {
			b.logger.Warn("Unauthorized access attempt",
				zap.Int64("user_id", from.ID),
				zap.String("username", from.UserName),
			)
		}
		return
	}

	unlock := b.lockChat(chatID)
	defer unlock()

	if update.CallbackQuery != nil {
		b.handleCallbackQuery(ctx, update.CallbackQuery)
		return
	}
	b.handleMessage(ctx, update.Message)
}

func (b *Bot) lockChat(chatID int64) func() {
	v, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		s := b.controller.Reload(ctx, calendar.New(b.now()))
		b.send(chatID, view{text: helpText})
		b.reply(ctx, chatID, s, weekView(s))

	case "week":
		s := b.controller.Reload(ctx, b.load(ctx, chatID).CloseShopping().CloseMeal())
		b.reply(ctx, chatID, s, weekView(s))

	case "today":
		s := b.load(ctx, chatID).CloseShopping().CloseMeal()
		s = b.controller.GoToday(ctx, s, b.now())
		b.reply(ctx, chatID, s, weekView(s))

	case "plan":
		b.handlePlanCommand(ctx, chatID, msg.CommandArguments())

	case "shopping":
		s := b.load(ctx, chatID).CloseMeal().OpenShopping()
		b.reply(ctx, chatID, s, shoppingSelectView(s))

	default:
		b.send(chatID, view{text: helpText})
	}
}

func (b *Bot) handlePlanCommand(ctx context.Context, chatID int64, args string) {
	s := b.load(ctx, chatID).CloseShopping().CloseMeal().OpenSettings()

	req, err := planArguments(s.Settings, args)
	if err != nil {
		b.send(chatID, view{text: "❌ " + escape(err.Error()) + "\n\n" + helpText})
		return
	}

	status := fmt.Sprintf("🧑‍🍳 *Generating your plan...*\n%s to %s", req.StartDate, req.EndDate)
	sent, err := b.api.Send(markdownMessage(chatID, view{text: status}))
	if err != nil {
		b.logger.Error("Failed to send initial reply", zap.Error(err))
		return
	}

	s = b.controller.SubmitPlan(ctx, s, req)
	if s.Alert != "" {
		b.edit(chatID, sent.MessageID, view{text: "❌ " + escape(s.Alert)})
		b.save(ctx, chatID, s.DismissAlert().CloseSettings())
		return
	}

	// Show the week the plan starts in.
	if start, err := meals.ParseDate(req.StartDate); err == nil {
		s = b.controller.Show(ctx, s.SelectDate(start), start)
	}
	v := weekView(s)
	v.text = "✅ *Plan saved!*\n\n" + v.text
	b.edit(chatID, sent.MessageID, v)
	b.save(ctx, chatID, s)
}

// planArguments reads "/plan [start end] [notes]". Without dates the
// prefilled settings are used.
func planArguments(settings planner.Request, args string) (planner.Request, error) {
	fields := strings.Fields(args)
	req := settings

	if len(fields) >= 1 {
		if _, err := meals.ParseDate(fields[0]); err == nil {
			if len(fields) < 2 {
				return req, fmt.Errorf("missing end date")
			}
			if _, err := meals.ParseDate(fields[1]); err != nil {
				return req, fmt.Errorf("invalid end date %q", fields[1])
			}
			req.StartDate, req.EndDate = fields[0], fields[1]
			fields = fields[2:]
		}
	}
	req.Notes = strings.Join(fields, " ")
	return req, nil
}

func (b *Bot) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID

	action, data, ok := parseCallback(query.Data)
	if !ok {
		b.answer(query.ID, "")
		return
	}

	s := b.load(ctx, chatID)
	var v view

	switch action {
	case actionNavigate:
		n, err := strconv.Atoi(data)
		if err != nil {
			b.answer(query.ID, "")
			return
		}
		s = b.controller.Navigate(ctx, s.CloseMeal(), n)
		v = weekView(s)

	case actionToday:
		s = b.controller.GoToday(ctx, s.CloseMeal(), b.now())
		v = weekView(s)

	case actionWeek:
		s = s.CloseMeal()
		v = weekView(s)

	case actionDay:
		date, err := meals.ParseDate(data)
		if err != nil {
			b.answer(query.ID, "")
			return
		}
		s = b.controller.Show(ctx, s.CloseMeal().SelectDate(date), date)
		v = dayView(s)

	case actionMeal, actionSkip:
		id, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			b.answer(query.ID, "")
			return
		}
		if action == actionSkip {
			s = b.controller.ToggleSkip(ctx, s, id)
		}
		s = s.FocusMeal(id)
		m, ok := s.FocusedMeal()
		if !ok {
			b.alert(query.ID, "This meal is no longer planned.")
			return
		}
		v = mealView(m)

	case actionShopping:
		s = s.CloseMeal().OpenShopping()
		v = shoppingSelectView(s)

	case actionShopToggle:
		id, err := strconv.ParseInt(data, 10, 64)
		if err != nil {
			b.answer(query.ID, "")
			return
		}
		s = s.ToggleShoppingSelection(id)
		v = shoppingSelectView(s)

	case actionShopGenerate:
		b.answer(query.ID, "Generating shopping list...")
		s = b.controller.GenerateShoppingList(ctx, s)
		if s.Alert != "" {
			b.send(chatID, view{text: "❌ " + escape(s.Alert)})
			b.save(ctx, chatID, s.DismissAlert())
			return
		}
		b.edit(chatID, messageID, currentView(s))
		b.save(ctx, chatID, s)
		return

	case actionShoppingClose:
		s = s.CloseShopping()
		v = weekView(s)

	default:
		b.answer(query.ID, "")
		return
	}

	if s.Alert != "" {
		b.alert(query.ID, s.Alert)
	} else {
		b.answer(query.ID, "")
	}
	b.edit(chatID, messageID, v)
	b.save(ctx, chatID, s.DismissAlert())
}

// load returns the chat's state, starting a fresh calendar when the chat has
// none.
func (b *Bot) load(ctx context.Context, chatID int64) calendar.State {
	s, ok, err := b.sessions.Load(ctx, chatID)
	if err != nil {
		b.logger.Warn("Failed to load session", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	if err != nil || !ok {
		return b.controller.Reload(ctx, calendar.New(b.now()))
	}
	return s
}

func (b *Bot) save(ctx context.Context, chatID int64, s calendar.State) {
	if err := b.sessions.Save(ctx, chatID, s); err != nil {
		b.logger.Error("Failed to save session", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// reply sends v as a new message and stores s. An alert raised while
// building s is shown above the view.
func (b *Bot) reply(ctx context.Context, chatID int64, s calendar.State, v view) {
	if s.Alert != "" {
		v.text = "⚠️ " + escape(s.Alert) + "\n\n" + v.text
	}
	b.send(chatID, v)
	b.save(ctx, chatID, s.DismissAlert())
}

func markdownMessage(chatID int64, v view) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, v.text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if len(v.keyboard.InlineKeyboard) > 0 {
		msg.ReplyMarkup = v.keyboard
	}
	return msg
}

func (b *Bot) send(chatID int64, v view) {
	if _, err := b.api.Send(markdownMessage(chatID, v)); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) edit(chatID int64, messageID int, v view) {
	var edit tgbotapi.EditMessageTextConfig
	if len(v.keyboard.InlineKeyboard) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, v.text, v.keyboard)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, v.text)
	}
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Warn("Failed to edit message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// answer acknowledges a callback, optionally with a short toast.
func (b *Bot) answer(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(queryID, text)); err != nil {
		b.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}

// alert acknowledges a callback with a dialog the user has to dismiss.
func (b *Bot) alert(queryID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(queryID, text)); err != nil {
		b.logger.Debug("Failed to answer callback", zap.Error(err))
	}
}
