package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	// Backend
	BackendURL     string        `env:"BACKEND_URL" envDefault:"http://localhost:5000"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"5s"`
	// AuthScheme is "raw" (bare token, what the backend expects) or "bearer".
	AuthScheme string `env:"AUTH_SCHEME" envDefault:"raw"`

	// Session persistence
	SessionFilePath string `env:"SESSION_FILE_PATH" envDefault:"data/session.json"`
	SessionDir      string `env:"SESSION_DIR" envDefault:"data/sessions"`

	// Conversation
	SyncChatHistory bool     `env:"SYNC_CHAT_HISTORY" envDefault:"true"`
	MaxPrice        float64  `env:"MAX_PRICE" envDefault:"1000"`
	Categories      []string `env:"CATEGORIES" envSeparator:":" envDefault:"Electronics:Books:Clothing:Home & Garden:Toys"`

	// Storage
	LogFilePath string `env:"LOG_FILE_PATH" envDefault:"logs/turns.jsonl"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// Telegram front-end
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminUserID      int64  `env:"ADMIN_USER"`
	ReportSchedule   string `env:"REPORT_SCHEDULE" envDefault:"0 21 * * *"`
	MessageParseMode string `env:"MESSAGE_PARSE_MODE" envDefault:"HTML"`
}

// Parse reads the configuration from the environment.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func New() *Config {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	return cfg
}
