package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"shop-chatter/internal/app"
	"shop-chatter/internal/auth"
	"shop-chatter/internal/config"
	"shop-chatter/internal/storage"
)

// SessionFactory builds the shop session of one Telegram user.
type SessionFactory func(userID int64) (*app.Session, error)

// FileSessionFactory keeps each user's login in <dir>/<telegram id>.json.
func FileSessionFactory(cfg *config.Config, rec storage.Recorder, log logrus.FieldLogger) SessionFactory {
	return func(userID int64) (*app.Session, error) {
		path := filepath.Join(cfg.SessionDir, strconv.FormatInt(userID, 10)+".json")
		store, err := auth.NewFileStore(path)
		if err != nil {
			return nil, err
		}
		return app.NewSession(cfg, store, rec, log.WithField("telegram_id", userID))
	}
}

// userSession adds per-user request gating on top of a shop session.
// busy is only ever try-locked: a user's second request while the first is
// still running is refused, not queued.
type userSession struct {
	*app.Session
	busy sync.Mutex
}

type sessions struct {
	mu      sync.Mutex
	byUser  map[int64]*userSession
	factory SessionFactory
	// creating collapses concurrent first requests of one user into a
	// single build and restore.
	creating singleflight.Group
}

func newSessions(factory SessionFactory) *sessions {
	return &sessions{byUser: make(map[int64]*userSession), factory: factory}
}

// get returns the user's session, restoring a persisted login on first use.
func (r *sessions) get(ctx context.Context, userID int64) (*userSession, error) {
	if us, ok := r.lookup(userID); ok {
		return us, nil
	}

	v, err, _ := r.creating.Do(strconv.FormatInt(userID, 10), func() (interface{}, error) {
		if us, ok := r.lookup(userID); ok {
			return us, nil
		}
		s, err := r.factory(userID)
		if err != nil {
			return nil, fmt.Errorf("create session for %d: %w", userID, err)
		}
		s.Resume(ctx)

		us := &userSession{Session: s}
		r.mu.Lock()
		r.byUser[userID] = us
		r.mu.Unlock()
		return us, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*userSession), nil
}

func (r *sessions) lookup(userID int64) (*userSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	us, ok := r.byUser[userID]
	return us, ok
}
