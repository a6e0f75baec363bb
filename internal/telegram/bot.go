package telegram

import (
	"context"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"shop-chatter/internal/config"
	"shop-chatter/internal/storage"
)

const (
	buyPrefix      = "buy:"
	categoryPrefix = "cat:"

	// maxCards caps how many product cards one search sends.
	maxCards = 10
)

type Bot struct {
	api         *tgbotapi.BotAPI
	s           sender
	sessions    *sessions
	recorder    storage.Recorder
	categories  []string
	adminUserID int64
	parseMode   string
	log         logrus.FieldLogger
	now         func() time.Time
}

func New(cfg *config.Config, factory SessionFactory, rec storage.Recorder, log logrus.FieldLogger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, cfg, factory, rec, log)
	b.api = api
	b.log.WithField("bot", api.Self.UserName).Info("authorized on telegram")
	return b, nil
}

func newBot(s sender, cfg *config.Config, factory SessionFactory, rec storage.Recorder, log logrus.FieldLogger) *Bot {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Bot{
		s:           s,
		sessions:    newSessions(factory),
		recorder:    rec,
		categories:  cfg.Categories,
		adminUserID: cfg.AdminUserID,
		parseMode:   cfg.MessageParseMode,
		log:         log.WithField("component", "telegram"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Start polls for updates until ctx is cancelled. Each update is handled on
// its own goroutine; per-user ordering is enforced by the session gate.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				b.handleUpdate(ctx, update)
			}()
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			b.handleCommand(ctx, update.Message)
			return
		}
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}
