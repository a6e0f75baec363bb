package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"shop-chatter/internal/config"
	"shop-chatter/internal/logger"
	"shop-chatter/internal/scheduler"
	"shop-chatter/internal/storage"
	"shop-chatter/internal/telegram"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	cfg := config.New()
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	lg, err := logger.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	var rec storage.Recorder
	if cfg.LogFilePath != "" {
		fr, err := storage.NewFileRecorder(cfg.LogFilePath)
		if err != nil {
			lg.WithError(err).Warn("failed to init turn recorder")
		} else {
			rec = fr
		}
	}

	bot, err := telegram.New(cfg, telegram.FileSessionFactory(cfg, rec, lg), rec, lg)
	if err != nil {
		lg.WithError(err).Fatal("failed to create bot")
	}

	sched := scheduler.New(cfg.ReportSchedule, lg)
	if cfg.AdminUserID != 0 && rec != nil {
		sched.SetReportFunction(bot.SendDailyReport)
	}
	if err := sched.Start(); err != nil {
		lg.WithError(err).Fatal("failed to start scheduler")
	}
	defer sched.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.WithField("backend", cfg.BackendURL).Info("bot started")
	bot.Start(ctx)
	lg.Info("bot stopped")
}
