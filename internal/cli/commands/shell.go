package commands

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"shop-chatter/internal/app"
	"shop-chatter/internal/auth"
	"shop-chatter/internal/config"
	"shop-chatter/internal/logger"
	"shop-chatter/internal/storage"
	"shop-chatter/internal/ui"
)

// shell is what every command works with: the resolved configuration and a
// session persisted in the session file.
type shell struct {
	cfg      *config.Config
	store    *auth.FileStore
	recorder storage.Recorder
	session  *app.Session
}

func openShell() (*shell, error) {
	cfg, err := config.Parse()
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return nil, fmt.Errorf("config load failed")
	}
	if serverURL != "" {
		cfg.BackendURL = serverURL
	}
	if sessionPath != "" {
		cfg.SessionFilePath = sessionPath
	}

	var log logrus.FieldLogger = logger.Discard()
	if verbose {
		l, err := logger.Setup("debug", cfg.LogFormat, os.Stderr)
		if err != nil {
			ui.PrintError("failed to set up logging: %v", err)
			return nil, fmt.Errorf("logger setup failed")
		}
		log = l
	}

	store, err := auth.NewFileStore(cfg.SessionFilePath)
	if err != nil {
		ui.PrintError("failed to open session file: %v", err)
		return nil, fmt.Errorf("session store failed")
	}

	sh := &shell{cfg: cfg, store: store}
	if cfg.LogFilePath != "" {
		rec, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			log.WithError(err).Warn("turn log disabled")
		} else {
			sh.recorder = rec
		}
	}

	sh.session, err = app.NewSession(cfg, store, sh.recorder, log)
	if err != nil {
		ui.PrintError("%v", err)
		return nil, fmt.Errorf("session setup failed")
	}
	return sh, nil
}

// requireLogin restores the persisted session or explains how to get one.
func (sh *shell) requireLogin() error {
	if _, ok := sh.session.Auth.Restore(); ok {
		return nil
	}
	ui.PrintError("not logged in")
	fmt.Println("\nRun 'shopctl login' to authenticate.")
	return fmt.Errorf("authentication required")
}
