// Package app wires a session manager, an API client and a conversation
// controller into one user session.
package app

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"shop-chatter/internal/auth"
	"shop-chatter/internal/chat"
	"shop-chatter/internal/config"
	"shop-chatter/internal/shopapi"
	"shop-chatter/internal/storage"
)

// Session is one user's view of the shop: who they are and their
// conversation. The client reads its token from Auth on every call.
type Session struct {
	Auth *auth.Manager
	Chat *chat.Controller
	API  *shopapi.Client
}

// NewSession builds a session persisted in store. rec may be nil.
func NewSession(cfg *config.Config, store auth.Store, rec storage.Recorder, log logrus.FieldLogger, opts ...shopapi.Option) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	scheme, err := shopapi.ParseAuthScheme(cfg.AuthScheme)
	if err != nil {
		return nil, err
	}
	var mgr *auth.Manager
	tokens := shopapi.TokenFunc(func() string { return mgr.Token() })

	opts = append([]shopapi.Option{
		shopapi.WithTimeout(cfg.RequestTimeout),
		shopapi.WithAuthScheme(scheme),
		shopapi.WithLogger(log),
	}, opts...)
	client, err := shopapi.New(cfg.BackendURL, tokens, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	mgr = auth.NewManager(store, client, log)

	ctrl := chat.NewController(client, mgr, chat.Options{
		Timeout:     cfg.RequestTimeout,
		MaxPrice:    cfg.MaxPrice,
		SyncHistory: cfg.SyncChatHistory,
		Recorder:    rec,
		Logger:      log,
	})
	mgr.OnLogout(ctrl.Clear)

	return &Session{Auth: mgr, Chat: ctrl, API: client}, nil
}

// Resume restores a persisted session and, when one is found, opens the
// conversation. History load failures are logged by the controller and do
// not fail the resume.
func (s *Session) Resume(ctx context.Context) bool {
	if _, ok := s.Auth.Restore(); !ok {
		return false
	}
	_ = s.Chat.Open(ctx)
	return true
}

// Login authenticates and opens a fresh conversation for the new user.
func (s *Session) Login(ctx context.Context, username, password string) (auth.Session, error) {
	sess, err := s.Auth.Login(ctx, username, password)
	if err != nil {
		return auth.Session{}, err
	}
	_ = s.Chat.Open(ctx)
	return sess, nil
}

// Logout ends the session. The conversation is cleared by the logout hook.
func (s *Session) Logout() error {
	return s.Auth.Logout()
}
