package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shop-chatter/internal/analytics"
	"shop-chatter/internal/auth"
	"shop-chatter/internal/chat"
	"shop-chatter/internal/shopapi"
)

const (
	helpText = "I can help you find and buy products.\n\n" +
		"/login <username> <password> - sign in\n" +
		"/register <username> <password> - create an account\n" +
		"/logout - sign out\n" +
		"/category [name] - filter by category\n" +
		"/price <min> <max> - filter by price\n" +
		"/reset - start a new conversation\n\n" +
		"Once signed in, just tell me what you are looking for."

	loginFirstText = "Please log in first: /login <username> <password>"
	busyText       = "I'm still working on your previous request. Please wait a moment."
	genericError   = "Sorry, something went wrong. Please try again later."
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.handleStart(ctx, msg)
	case "login":
		b.handleLogin(ctx, msg)
	case "register":
		b.handleRegister(ctx, msg)
	case "logout":
		b.handleLogout(ctx, msg)
	case "reset":
		b.handleReset(ctx, msg)
	case "category":
		b.handleCategory(ctx, msg)
	case "price":
		b.handlePrice(ctx, msg)
	case "report":
		b.handleReportCommand(msg)
	default:
		b.sendMessage(msg.Chat.ID, "Unknown command.\n\n"+helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	us, ok := b.session(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	if us.Auth.State() == auth.StateAuthenticated {
		b.sendMessage(msg.Chat.ID, chat.WelcomeText(us.Auth.DisplayName()))
		return
	}
	b.sendMessage(msg.Chat.ID, helpText)
}

func (b *Bot) handleLogin(ctx context.Context, msg *tgbotapi.Message) {
	b.deleteMessage(msg.Chat.ID, msg.MessageID)

	username, password, ok := parseCredentials(msg.CommandArguments())
	if !ok {
		b.sendMessage(msg.Chat.ID, "Usage: /login <username> <password>")
		return
	}
	us, ok := b.session(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	if !us.busy.TryLock() {
		b.sendMessage(msg.Chat.ID, busyText)
		return
	}
	defer us.busy.Unlock()

	sess, err := us.Login(ctx, username, password)
	if err != nil {
		b.log.WithError(err).WithField("telegram_id", msg.From.ID).Info("telegram login failed")
		b.sendMessage(msg.Chat.ID, "Login failed: "+shopapi.UserMessage(err, "please try again later."))
		return
	}

	msgs := us.Chat.Messages()
	if len(msgs) > 1 {
		b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s\n\nRestored %d messages from your chat history.", chat.WelcomeText(sess.Username), len(msgs)))
		return
	}
	b.sendMessage(msg.Chat.ID, chat.WelcomeText(sess.Username))
}

func (b *Bot) handleRegister(ctx context.Context, msg *tgbotapi.Message) {
	b.deleteMessage(msg.Chat.ID, msg.MessageID)

	username, password, ok := parseCredentials(msg.CommandArguments())
	if !ok {
		b.sendMessage(msg.Chat.ID, "Usage: /register <username> <password>")
		return
	}
	us, ok := b.session(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	reply, err := us.Auth.Register(ctx, username, password)
	if err != nil {
		b.sendMessage(msg.Chat.ID, "Registration failed: "+shopapi.UserMessage(err, "please try again later."))
		return
	}
	if reply == "" {
		reply = "Registration successful"
	}
	b.sendMessage(msg.Chat.ID, strings.TrimSuffix(reply, ".")+". Please log in: /login <username> <password>")
}

// handleLogout is not gated: it must be able to cancel a running turn.
func (b *Bot) handleLogout(ctx context.Context, msg *tgbotapi.Message) {
	us, ok := b.session(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	if err := us.Logout(); err != nil {
		b.log.WithError(err).WithField("telegram_id", msg.From.ID).Warn("logout did not clear the store")
	}
	b.sendMessage(msg.Chat.ID, "You have been logged out.")
}

func (b *Bot) handleReset(ctx context.Context, msg *tgbotapi.Message) {
	us, ok := b.authenticated(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	us.Chat.ResetConversation()
	b.sendMessage(msg.Chat.ID, chat.WelcomeText(us.Auth.DisplayName()))
}

func (b *Bot) handleCategory(ctx context.Context, msg *tgbotapi.Message) {
	us, ok := b.authenticated(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		out := tgbotapi.NewMessage(msg.Chat.ID, "Choose a category:")
		out.ReplyMarkup = b.categoryKeyboard()
		b.send(out)
		return
	}
	b.applyCategory(msg.Chat.ID, us, arg)
}

func (b *Bot) applyCategory(chatID int64, us *userSession, category string) {
	us.Chat.SetCategory(category)
	if c := us.Chat.Filters().Category; c != "" {
		b.sendMessage(chatID, "Category set to "+c+".")
		return
	}
	b.sendMessage(chatID, "Showing all categories.")
}

func (b *Bot) handlePrice(ctx context.Context, msg *tgbotapi.Message) {
	us, ok := b.authenticated(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	const usage = "Usage: /price <min> <max>, for example /price 10 250"
	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		b.sendMessage(msg.Chat.ID, usage)
		return
	}
	lo, err1 := strconv.ParseFloat(fields[0], 64)
	hi, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		b.sendMessage(msg.Chat.ID, usage)
		return
	}
	if err := us.Chat.SetPriceRange(lo, hi); err != nil {
		b.sendMessage(msg.Chat.ID, "The minimum must be between 0 and the maximum.\n"+usage)
		return
	}
	b.sendMessage(msg.Chat.ID, fmt.Sprintf("Price range set to %s - %s.", formatMoney(lo), formatMoney(hi)))
}

// handleIncomingMessage runs a search turn for free text.
func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	us, ok := b.authenticated(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return
	}
	if !us.busy.TryLock() {
		b.sendMessage(msg.Chat.ID, busyText)
		return
	}
	defer us.busy.Unlock()

	b.log.WithField("telegram_id", msg.From.ID).Debug("incoming search")
	if err := us.Chat.SendMessage(ctx, msg.Text); err != nil {
		if errors.Is(err, chat.ErrTurnInProgress) {
			b.sendMessage(msg.Chat.ID, busyText)
			return
		}
		b.sendMessage(msg.Chat.ID, genericError)
		return
	}
	b.replyTurn(msg.Chat.ID, us)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer b.answerCallback(cb.ID)
	if cb.Message == nil || cb.Message.Chat == nil || cb.From == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, buyPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, buyPrefix), 10, 64)
		if err != nil {
			return
		}
		b.handleBuy(ctx, chatID, cb.Message.MessageID, cb.From.ID, id)
	case strings.HasPrefix(cb.Data, categoryPrefix):
		us, ok := b.authenticated(ctx, chatID, cb.From.ID)
		if !ok {
			return
		}
		b.applyCategory(chatID, us, strings.TrimPrefix(cb.Data, categoryPrefix))
	}
}

func (b *Bot) handleBuy(ctx context.Context, chatID int64, cardID int, userID, productID int64) {
	us, ok := b.authenticated(ctx, chatID, userID)
	if !ok {
		return
	}
	if !us.busy.TryLock() {
		b.sendMessage(chatID, busyText)
		return
	}
	defer us.busy.Unlock()

	p, shown := us.Chat.Product(productID)
	if !shown {
		b.sendMessage(chatID, "That product is no longer in the current results. Please search again.")
		return
	}
	if p.Stock <= 0 {
		b.sendMessage(chatID, "Sorry, "+p.Name+" is out of stock.")
		return
	}
	if err := us.Chat.Purchase(ctx, productID); err != nil {
		if errors.Is(err, chat.ErrTurnInProgress) {
			b.sendMessage(chatID, busyText)
			return
		}
		b.sendMessage(chatID, genericError)
		return
	}
	b.replyTurn(chatID, us)

	if t, _ := us.Chat.LastTurn(); t.Status == chat.TurnCommitted {
		if updated, ok := us.Chat.Product(productID); ok {
			b.editCard(chatID, cardID, updated)
		}
	}
}

// replyTurn relays the outcome of the turn that just finished. Discarded
// turns stay silent.
func (b *Bot) replyTurn(chatID int64, us *userSession) {
	t, ok := us.Chat.LastTurn()
	if !ok || t.Status == chat.TurnDiscarded || t.Status == chat.TurnPending {
		return
	}
	b.sendMessage(chatID, t.Reply)
	if t.Kind == chat.TurnSearch && t.Status == chat.TurnCommitted {
		b.sendProducts(chatID, us.Chat.Products())
	}
}

func (b *Bot) sendProducts(chatID int64, products []shopapi.Product) {
	shown := products
	if len(shown) > maxCards {
		shown = shown[:maxCards]
	}
	for _, p := range shown {
		out := tgbotapi.NewMessage(chatID, b.productCard(p))
		out.ParseMode = b.parseModeValue()
		if kb, ok := productKeyboard(p); ok {
			out.ReplyMarkup = kb
		}
		b.send(out)
	}
	if len(products) > maxCards {
		b.sendMessage(chatID, fmt.Sprintf("Showing the first %d of %d results. Narrow the search with /category or /price.", maxCards, len(products)))
	}
}

func (b *Bot) editCard(chatID int64, messageID int, p shopapi.Product) {
	var edit tgbotapi.EditMessageTextConfig
	if kb, ok := productKeyboard(p); ok {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, b.productCard(p), kb)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, b.productCard(p))
	}
	edit.ParseMode = b.parseModeValue()
	b.send(edit)
}

// handleReportCommand sends today's usage report to the admin on demand.
func (b *Bot) handleReportCommand(msg *tgbotapi.Message) {
	if b.adminUserID == 0 || msg.From.ID != b.adminUserID {
		b.sendMessage(msg.Chat.ID, "This command is only available to the administrator.")
		return
	}
	report, err := b.dailyReport(b.now())
	if err != nil {
		b.log.WithError(err).Error("report generation failed")
		b.sendMessage(msg.Chat.ID, "Failed to generate the report: "+err.Error())
		return
	}
	b.sendMessage(msg.Chat.ID, report)
}

// SendDailyReport delivers the usage report for the current day to the
// admin. It is the scheduler's report function.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	if b.adminUserID == 0 {
		return errors.New("no admin user configured")
	}
	report, err := b.dailyReport(b.now())
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = b.s.Send(b.newMessage(b.adminUserID, report))
	return err
}

func (b *Bot) dailyReport(day time.Time) (string, error) {
	if b.recorder == nil {
		return "", errors.New("turn recording is disabled")
	}
	events, err := b.recorder.LoadEvents()
	if err != nil {
		return "", fmt.Errorf("load events: %w", err)
	}
	return analytics.AnalyzeDailyEvents(events, day).GenerateReportSummary(), nil
}

func (b *Bot) session(ctx context.Context, chatID, userID int64) (*userSession, bool) {
	us, err := b.sessions.get(ctx, userID)
	if err != nil {
		b.log.WithError(err).WithField("telegram_id", userID).Error("failed to open session")
		b.sendMessage(chatID, genericError)
		return nil, false
	}
	return us, true
}

func (b *Bot) authenticated(ctx context.Context, chatID, userID int64) (*userSession, bool) {
	us, ok := b.session(ctx, chatID, userID)
	if !ok {
		return nil, false
	}
	if us.Auth.State() != auth.StateAuthenticated {
		b.sendMessage(chatID, loginFirstText)
		return nil, false
	}
	return us, true
}

func parseCredentials(args string) (string, string, bool) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

func (b *Bot) newMessage(chatID int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, b.escapeIfNeeded(text))
	msg.ParseMode = b.parseModeValue()
	return msg
}

func (b *Bot) sendMessage(chatID int64, text string) {
	b.send(b.newMessage(chatID, text))
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.s.Send(c); err != nil {
		b.log.WithError(err).Warn("failed to send message")
	}
}

// deleteMessage removes a message carrying credentials from the chat.
func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if _, err := b.s.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.WithError(err).Debug("failed to delete message")
	}
}

func (b *Bot) answerCallback(id string) {
	if id == "" {
		return
	}
	if _, err := b.s.Request(tgbotapi.NewCallback(id, "")); err != nil {
		b.log.WithError(err).Debug("failed to answer callback")
	}
}
