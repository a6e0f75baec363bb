package telegram

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"shop-chatter/internal/app"
	"shop-chatter/internal/auth"
	"shop-chatter/internal/config"
	"shop-chatter/internal/logger"
	"shop-chatter/internal/storage"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

// texts returns the text of every plain message sent so far.
func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m.Text)
		}
	}
	return out
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

func (f *fakeSender) last() string {
	t := f.texts()
	if len(t) == 0 {
		return ""
	}
	return t[len(t)-1]
}

type shopBackend struct {
	mu       sync.Mutex
	products []map[string]interface{}
}

func (s *shopBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var creds struct{ Username, Password string }
		_ = json.NewDecoder(r.Body).Decode(&creds)
		if creds.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"message":"Invalid credentials"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"token":"T1","user":"`+creds.Username+`"}`)
	})
	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"message":"User registered successfully"}`)
	})
	mux.HandleFunc("/chat_history", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		_ = json.NewEncoder(w).Encode(s.products)
	})
	mux.HandleFunc("/purchase", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"success":true,"message":"Purchase successful"}`)
	})
	return mux
}

type memRecorder struct {
	mu     sync.Mutex
	events []storage.Event
}

func (m *memRecorder) AppendEvent(e storage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memRecorder) LoadEvents() ([]storage.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]storage.Event(nil), m.events...), nil
}

const (
	userID  int64 = 42
	adminID int64 = 999
)

func newTestBot(t *testing.T, products []map[string]interface{}) (*Bot, *fakeSender, *memRecorder) {
	t.Helper()
	backend := &shopBackend{products: products}
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		BackendURL:       srv.URL,
		RequestTimeout:   2 * time.Second,
		MaxPrice:         1000,
		Categories:       []string{"Electronics", "Books", "Toys"},
		AdminUserID:      adminID,
		MessageParseMode: "HTML",
	}
	rec := &memRecorder{}
	factory := func(id int64) (*app.Session, error) {
		return app.NewSession(cfg, auth.NewMemoryStore(), rec, logger.Discard())
	}
	fs := &fakeSender{}
	b := newBot(fs, cfg, factory, rec, logger.Discard())
	b.now = func() time.Time { return time.Now().UTC() }
	return b, fs, rec
}

func command(from int64, text string) tgbotapi.Update {
	cmd := strings.SplitN(text, " ", 2)[0]
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 7,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      text,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd)}},
	}}
}

func text(from int64, s string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 8,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from},
		Text:      s,
	}}
}

func callback(from int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: from},
		Message: &tgbotapi.Message{MessageID: 3, Chat: &tgbotapi.Chat{ID: from}},
		Data:    data,
	}}
}

var laptopAndBook = []map[string]interface{}{
	{"id": 1, "name": "Laptop", "category": "Electronics", "price": 999.99, "description": "Fast <and> light", "stock": 3},
	{"id": 2, "name": "Old Book", "category": "Books", "price": 5, "description": "", "stock": 0},
}

func TestStart_AnonymousGetsHelp(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), command(userID, "/start"))
	if !strings.Contains(fs.last(), "/login &lt;username&gt; &lt;password&gt;") {
		t.Fatalf("expected escaped help text, got %q", fs.last())
	}
}

func TestSearch_RequiresLogin(t *testing.T) {
	b, fs, _ := newTestBot(t, laptopAndBook)
	b.handleUpdate(context.Background(), text(userID, "laptop"))
	if fs.last() != b.escapeIfNeeded(loginFirstText) {
		t.Fatalf("expected login prompt, got %q", fs.last())
	}
}

func TestLogin_DeletesCredentialsAndWelcomes(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), command(userID, "/login alice pw"))

	if len(fs.requests) == 0 {
		t.Fatalf("credentials message was not deleted")
	}
	if del, ok := fs.requests[0].(tgbotapi.DeleteMessageConfig); !ok || del.MessageID != 7 {
		t.Fatalf("unexpected request: %#v", fs.requests[0])
	}
	if fs.last() != "Welcome back, alice! How can I assist you today?" {
		t.Fatalf("unexpected welcome: %q", fs.last())
	}
}

func TestLogin_FailureShowsBackendMessage(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), command(userID, "/login alice nope"))
	if fs.last() != "Login failed: Invalid credentials" {
		t.Fatalf("unexpected reply: %q", fs.last())
	}
	b.handleUpdate(context.Background(), command(userID, "/login alice"))
	if !strings.HasPrefix(fs.last(), "Usage: /login") {
		t.Fatalf("expected usage, got %q", fs.last())
	}
}

func TestRegister_AsksToLogIn(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	b.handleUpdate(context.Background(), command(userID, "/register bob pw"))
	if !strings.HasPrefix(fs.last(), "User registered successfully") || !strings.Contains(fs.last(), "/login") {
		t.Fatalf("unexpected reply: %q", fs.last())
	}
	us, _ := b.sessions.get(context.Background(), userID)
	if us.Auth.State() == auth.StateAuthenticated {
		t.Fatalf("register must not log in")
	}
}

func TestSearch_SendsCardsWithBuyButtons(t *testing.T) {
	b, fs, rec := newTestBot(t, laptopAndBook)
	ctx := context.Background()
	b.handleUpdate(ctx, command(userID, "/login alice pw"))
	fs.reset()

	b.handleUpdate(ctx, text(userID, "laptop"))

	msgs := fs.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected reply plus 2 cards, got %d: %+v", len(msgs), fs.texts())
	}
	if msgs[0].Text != "I found 2 products matching your query. Here are the results:" {
		t.Fatalf("unexpected reply: %q", msgs[0].Text)
	}

	card := msgs[1]
	if card.ParseMode != tgbotapi.ModeHTML || !strings.Contains(card.Text, "<b>Laptop</b>") || !strings.Contains(card.Text, "Fast &lt;and&gt; light") {
		t.Fatalf("unexpected card: %q", card.Text)
	}
	kb, ok := card.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || kb.InlineKeyboard[0][0].CallbackData == nil || *kb.InlineKeyboard[0][0].CallbackData != "buy:1" {
		t.Fatalf("missing buy button: %#v", card.ReplyMarkup)
	}
	if msgs[2].ReplyMarkup != nil || !strings.Contains(msgs[2].Text, "Out of stock") {
		t.Fatalf("out of stock product must not be buyable: %#v", msgs[2])
	}

	events, _ := rec.LoadEvents()
	if len(events) != 1 || events[0].Username != "alice" {
		t.Fatalf("turn not recorded: %+v", events)
	}
}

func TestBuyCallback_PurchasesAndEditsCard(t *testing.T) {
	b, fs, _ := newTestBot(t, laptopAndBook)
	ctx := context.Background()
	b.handleUpdate(ctx, command(userID, "/login alice pw"))
	b.handleUpdate(ctx, text(userID, "laptop"))
	fs.reset()

	b.handleUpdate(ctx, callback(userID, "buy:1"))

	if fs.last() != "Purchase successful" {
		t.Fatalf("unexpected reply: %q", fs.last())
	}
	var edit *tgbotapi.EditMessageTextConfig
	for _, c := range fs.sent {
		if e, ok := c.(tgbotapi.EditMessageTextConfig); ok {
			edit = &e
		}
	}
	if edit == nil || edit.MessageID != 3 || !strings.Contains(edit.Text, "In stock: 2") {
		t.Fatalf("card not updated: %#v", edit)
	}
	answered := false
	for _, r := range fs.requests {
		if c, ok := r.(tgbotapi.CallbackConfig); ok && c.CallbackQueryID == "cb1" {
			answered = true
		}
	}
	if !answered {
		t.Fatalf("callback not answered")
	}

	fs.reset()
	b.handleUpdate(ctx, callback(userID, "buy:2"))
	if fs.last() != "Sorry, Old Book is out of stock." {
		t.Fatalf("unexpected reply for stock 0: %q", fs.last())
	}
}

func TestBusyUserIsRefused(t *testing.T) {
	b, fs, _ := newTestBot(t, laptopAndBook)
	ctx := context.Background()
	b.handleUpdate(ctx, command(userID, "/login alice pw"))

	us, _ := b.sessions.get(ctx, userID)
	us.busy.Lock()
	b.handleUpdate(ctx, text(userID, "laptop"))
	us.busy.Unlock()

	if fs.last() != b.escapeIfNeeded(busyText) {
		t.Fatalf("expected busy reply, got %q", fs.last())
	}
}

func TestFilters(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	ctx := context.Background()
	b.handleUpdate(ctx, command(userID, "/login alice pw"))
	us, _ := b.sessions.get(ctx, userID)

	b.handleUpdate(ctx, command(userID, "/category"))
	msgs := fs.messages()
	kb, ok := msgs[len(msgs)-1].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 3 {
		t.Fatalf("expected 2 category rows plus All, got %#v", msgs[len(msgs)-1].ReplyMarkup)
	}

	b.handleUpdate(ctx, callback(userID, "cat:Books"))
	if us.Chat.Filters().Category != "Books" || fs.last() != "Category set to Books." {
		t.Fatalf("category not applied: %q", fs.last())
	}
	b.handleUpdate(ctx, command(userID, "/category all"))
	if us.Chat.Filters().Category != "" {
		t.Fatalf("all should clear the category")
	}

	b.handleUpdate(ctx, command(userID, "/price 10 250"))
	if f := us.Chat.Filters(); f.MinPrice != 10 || f.MaxPrice != 250 {
		t.Fatalf("price not applied: %+v", f)
	}
	b.handleUpdate(ctx, command(userID, "/price 300 20"))
	if f := us.Chat.Filters(); f.MinPrice != 10 || f.MaxPrice != 250 {
		t.Fatalf("invalid range changed filters: %+v", f)
	}
	if !strings.Contains(fs.last(), "Usage: /price") {
		t.Fatalf("expected usage, got %q", fs.last())
	}
}

func TestLogout_EndsConversation(t *testing.T) {
	b, fs, _ := newTestBot(t, laptopAndBook)
	ctx := context.Background()
	b.handleUpdate(ctx, command(userID, "/login alice pw"))
	b.handleUpdate(ctx, text(userID, "laptop"))

	b.handleUpdate(ctx, command(userID, "/logout"))
	if fs.last() != "You have been logged out." {
		t.Fatalf("unexpected reply: %q", fs.last())
	}
	us, _ := b.sessions.get(ctx, userID)
	if len(us.Chat.Messages()) != 0 || len(us.Chat.Products()) != 0 {
		t.Fatalf("conversation survived logout")
	}
	b.handleUpdate(ctx, text(userID, "laptop"))
	if fs.last() != b.escapeIfNeeded(loginFirstText) {
		t.Fatalf("expected login prompt after logout, got %q", fs.last())
	}
}

func TestReport_AdminOnly(t *testing.T) {
	b, fs, rec := newTestBot(t, nil)
	_ = rec.AppendEvent(storage.Event{Timestamp: time.Now().UTC(), Username: "alice", Kind: "search", Status: "committed", Query: "laptop"})

	b.handleUpdate(context.Background(), command(userID, "/report"))
	if fs.last() != "This command is only available to the administrator." {
		t.Fatalf("non-admin got %q", fs.last())
	}

	b.handleUpdate(context.Background(), command(adminID, "/report"))
	if !strings.Contains(fs.last(), "- Searches: 1") {
		t.Fatalf("unexpected report: %q", fs.last())
	}
}

func TestSendDailyReport_GoesToAdmin(t *testing.T) {
	b, fs, _ := newTestBot(t, nil)
	if err := b.SendDailyReport(context.Background()); err != nil {
		t.Fatal(err)
	}
	msgs := fs.messages()
	if len(msgs) != 1 || msgs[0].ChatID != adminID || !strings.Contains(msgs[0].Text, "- Turns: 0") {
		t.Fatalf("unexpected report delivery: %+v", msgs)
	}

	b.adminUserID = 0
	if err := b.SendDailyReport(context.Background()); err == nil {
		t.Fatalf("expected error without admin")
	}
}

func TestEscapeIfNeeded(t *testing.T) {
	cases := map[string]string{
		"HTML":       "a &lt;b&gt; &amp; c",
		"MarkdownV2": `a <b\> & c`,
		"":           "a <b> & c",
	}
	for mode, want := range cases {
		b := &Bot{parseMode: mode}
		if got := b.escapeIfNeeded("a <b> & c"); got != want {
			t.Errorf("mode %q: got %q want %q", mode, got, want)
		}
	}
}
