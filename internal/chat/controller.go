package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"shop-chatter/internal/history"
	"shop-chatter/internal/shopapi"
	"shop-chatter/internal/storage"
)

const (
	DefaultTimeout  = 5 * time.Second
	DefaultMaxPrice = 1000

	searchApology   = "Sorry, I encountered an error while searching for products. Please try again later."
	purchaseApology = "Sorry, I encountered an error while processing your purchase. Please try again later."
)

var ErrTurnInProgress = errors.New("another turn is still in progress")

func WelcomeText(name string) string {
	return fmt.Sprintf("Welcome back, %s! How can I assist you today?", name)
}

func ResultsText(n int) string {
	return fmt.Sprintf("I found %d products matching your query. Here are the results:", n)
}

// API is the part of the shop backend the controller drives.
type API interface {
	Search(ctx context.Context, q shopapi.SearchQuery) ([]shopapi.Product, error)
	Purchase(ctx context.Context, productID int64) (string, error)
	ChatHistory(ctx context.Context) ([]shopapi.HistoryEntry, error)
	SaveChat(ctx context.Context, message, sender string) error
}

// Identity supplies the name used in the welcome line.
type Identity interface {
	DisplayName() string
}

type Options struct {
	// Timeout bounds every backend call of a turn.
	Timeout time.Duration
	// MaxPrice is the upper end of the default price filter.
	MaxPrice float64
	// SyncHistory mirrors every appended line to /save_chat.
	SyncHistory bool
	Recorder    storage.Recorder
	Logger      logrus.FieldLogger
}

// Controller owns the transcript, the displayed products and the filters of
// one conversation. Turns are serialized: while one is outstanding further
// sends and purchases are refused with ErrTurnInProgress.
type Controller struct {
	api      API
	identity Identity
	opts     Options
	log      logrus.FieldLogger

	// turnMu is held for the whole of a turn, mu only around state changes.
	turnMu sync.Mutex
	mu     sync.Mutex

	transcript *history.Transcript
	products   []shopapi.Product
	filters    Filters
	phase      Phase
	last       Turn
	gen        uint64
	cancel     context.CancelFunc
	observers  []func(history.Message)
}

func NewController(api API, identity Identity, opts Options) *Controller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxPrice <= 0 {
		opts.MaxPrice = DefaultMaxPrice
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	c := &Controller{
		api:        api,
		identity:   identity,
		opts:       opts,
		log:        opts.Logger.WithField("component", "chat"),
		transcript: history.NewTranscript(),
	}
	c.filters = c.defaultFilters()
	return c
}

// OnMessage registers fn to be called after every appended line.
func (c *Controller) OnMessage(fn func(history.Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// Open starts a conversation for the current identity: welcome line first,
// then the stored history if the backend has any.
func (c *Controller) Open(ctx context.Context) error {
	c.ResetConversation()
	return c.LoadHistory(ctx)
}

// SendMessage runs one search turn. Blank input is ignored. The user line
// is appended before the request goes out; failures become an apology line
// and are not returned.
func (c *Controller) SendMessage(ctx context.Context, text string) error {
	query := strings.TrimSpace(text)
	if query == "" {
		return nil
	}
	if !c.turnMu.TryLock() {
		return ErrTurnInProgress
	}
	defer c.turnMu.Unlock()

	t, tctx, cancel := c.beginTurn(ctx, TurnSearch)
	defer cancel()
	t.Query = query

	c.mu.Lock()
	userMsg := c.transcript.AppendUser(text)
	c.mu.Unlock()
	c.notify(userMsg)

	products, err := c.api.Search(tctx, shopapi.SearchQuery{
		Text:     query,
		Category: t.filters.Category,
		MinPrice: t.filters.MinPrice,
		MaxPrice: t.filters.MaxPrice,
	})

	c.mu.Lock()
	if t.gen != c.gen {
		c.finishLocked(t, TurnDiscarded, err)
		c.mu.Unlock()
		c.afterTurn(ctx, t)
		return nil
	}
	if err != nil {
		t.Reply = searchApology
		c.finishLocked(t, TurnRolledBack, err)
	} else {
		c.products = products
		t.Results = len(products)
		t.Reply = ResultsText(len(products))
		c.finishLocked(t, TurnCommitted, nil)
	}
	botMsg := c.transcript.AppendBot(t.Reply)
	c.mu.Unlock()

	c.notify(botMsg)
	c.afterTurn(ctx, t, userMsg, botMsg)
	return nil
}

// Purchase buys one unit. Stock is only touched after the backend
// acknowledges, and never drops below zero.
func (c *Controller) Purchase(ctx context.Context, productID int64) error {
	if !c.turnMu.TryLock() {
		return ErrTurnInProgress
	}
	defer c.turnMu.Unlock()

	t, tctx, cancel := c.beginTurn(ctx, TurnPurchase)
	defer cancel()
	t.ProductID = productID

	reply, err := c.api.Purchase(tctx, productID)

	c.mu.Lock()
	if t.gen != c.gen {
		c.finishLocked(t, TurnDiscarded, err)
		c.mu.Unlock()
		c.afterTurn(ctx, t)
		return nil
	}
	if err != nil {
		t.Reply = purchaseApology
		c.finishLocked(t, TurnRolledBack, err)
	} else {
		if reply == "" {
			reply = "Purchase successful"
		}
		t.Reply = reply
		for i := range c.products {
			if c.products[i].ID == productID && c.products[i].Stock > 0 {
				c.products[i].Stock--
			}
		}
		c.finishLocked(t, TurnCommitted, nil)
	}
	botMsg := c.transcript.AppendBot(t.Reply)
	c.mu.Unlock()

	c.notify(botMsg)
	c.afterTurn(ctx, t, botMsg)
	return nil
}

// ResetConversation aborts any outstanding turn, clears products and
// filters and reseeds the transcript with the welcome line.
func (c *Controller) ResetConversation() {
	c.mu.Lock()
	c.abortLocked()
	c.transcript.Reset(WelcomeText(c.displayName()))
	welcome, _ := c.transcript.Last()
	c.mu.Unlock()
	c.notify(welcome)
}

// Clear is the logout counterpart of ResetConversation: the transcript is
// left empty.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.abortLocked()
	c.transcript.Reset("")
}

// LoadHistory replaces the transcript with the stored conversation. An
// empty history keeps the current transcript. It counts as a turn: while a
// send or purchase is outstanding it is refused with ErrTurnInProgress.
func (c *Controller) LoadHistory(ctx context.Context) error {
	if !c.turnMu.TryLock() {
		return ErrTurnInProgress
	}
	defer c.turnMu.Unlock()

	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	hctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	entries, err := c.api.ChatHistory(hctx)
	if err != nil {
		c.log.WithError(err).Warn("failed to load chat history")
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	msgs := make([]history.Message, 0, len(entries))
	for _, e := range entries {
		sender := history.SenderBot
		if e.Sender == string(history.SenderUser) {
			sender = history.SenderUser
		}
		msgs = append(msgs, history.Message{Text: e.Message, Sender: sender, Timestamp: e.Timestamp.Time})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return nil
	}
	c.transcript.Replace(msgs)
	return nil
}

func (c *Controller) SetCategory(category string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters.Category = normalizeCategory(category)
}

func (c *Controller) SetPriceRange(minPrice, maxPrice float64) error {
	if err := validatePriceRange(minPrice, maxPrice); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters.MinPrice, c.filters.MaxPrice = minPrice, maxPrice
	return nil
}

func (c *Controller) Filters() Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

func (c *Controller) Messages() []history.Message {
	return c.transcript.All()
}

// Products returns a copy of the displayed results.
func (c *Controller) Products() []shopapi.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]shopapi.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Controller) Product(id int64) (shopapi.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return shopapi.Product{}, false
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// LastTurn returns the most recent turn, finished or not.
func (c *Controller) LastTurn() (Turn, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.last.ID != ""
}

func (c *Controller) beginTurn(ctx context.Context, kind TurnKind) (*turn, context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	user := c.displayName()

	c.mu.Lock()
	defer c.mu.Unlock()
	t := &turn{
		Turn: Turn{
			ID:      uuid.NewString(),
			Kind:    kind,
			Status:  TurnPending,
			Started: time.Now().UTC(),
		},
		gen:     c.gen,
		filters: c.filters,
		user:    user,
	}
	c.cancel = cancel
	c.phase = PhaseAwaitingResponse
	c.last = t.Turn
	return t, tctx, cancel
}

func (c *Controller) finishLocked(t *turn, status TurnStatus, err error) {
	t.Status = status
	t.Err = err
	t.Finished = time.Now().UTC()
	c.last = t.Turn
	if status != TurnDiscarded {
		c.phase = PhaseIdle
		c.cancel = nil
	}
}

// abortLocked cancels the outstanding turn and invalidates its result.
func (c *Controller) abortLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.phase = PhaseIdle
	c.products = nil
	c.filters = c.defaultFilters()
}

// afterTurn logs the outcome, mirrors the turn's lines to the backend in
// order and records the turn. Lines of a discarded turn are no longer in the
// transcript and are not mirrored.
func (c *Controller) afterTurn(ctx context.Context, t *turn, lines ...history.Message) {
	entry := c.log.WithFields(logrus.Fields{
		"turn_id": t.ID,
		"kind":    t.Kind,
		"status":  t.Status,
		"elapsed": t.Finished.Sub(t.Started).Round(time.Millisecond),
	})
	switch {
	case t.Status == TurnDiscarded:
		entry.Debug("turn discarded")
	case t.Err != nil:
		entry.WithError(t.Err).Warn("turn failed")
	default:
		entry.Debug("turn committed")
	}

	if t.Status != TurnDiscarded {
		c.sync(ctx, lines...)
	}
	c.record(t)
}

func (c *Controller) sync(ctx context.Context, lines ...history.Message) {
	if !c.opts.SyncHistory || len(lines) == 0 {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()
	for _, msg := range lines {
		if err := c.api.SaveChat(sctx, msg.Text, string(msg.Sender)); err != nil {
			c.log.WithError(err).WithField("sender", msg.Sender).Debug("failed to save chat line")
		}
	}
}

func (c *Controller) record(t *turn) {
	if c.opts.Recorder == nil {
		return
	}
	ev := storage.Event{
		Timestamp: t.Finished,
		TurnID:    t.ID,
		Username:  t.user,
		Kind:      string(t.Kind),
		Status:    string(t.Status),
		Query:     t.Query,
		Results:   t.Results,
		ProductID: t.ProductID,
		BotReply:  t.Reply,
		Elapsed:   t.Finished.Sub(t.Started).Milliseconds(),
	}
	if t.Kind == TurnSearch {
		ev.Category = t.filters.Category
		ev.MinPrice = t.filters.MinPrice
		ev.MaxPrice = t.filters.MaxPrice
	}
	if t.Err != nil {
		ev.Error = t.Err.Error()
	}
	if err := c.opts.Recorder.AppendEvent(ev); err != nil {
		c.log.WithError(err).Warn("failed to record turn")
	}
}

func (c *Controller) notify(msg history.Message) {
	c.mu.Lock()
	obs := append([]func(history.Message){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range obs {
		fn(msg)
	}
}

func (c *Controller) displayName() string {
	if c.identity == nil {
		return ""
	}
	return c.identity.DisplayName()
}

func (c *Controller) defaultFilters() Filters {
	return Filters{MaxPrice: c.opts.MaxPrice}
}
