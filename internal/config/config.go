package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

var (
	ErrEmptyBaseURL = errors.New(
		"error getting BW_BASE_URL: variable not specified or contains an empty string")
	ErrNegativeThreshold = errors.New(
		"error getting BW_ALERT_THRESHOLD_PCT: threshold must not be negative")
)

type Config struct {
	Env               string // Env is the current environment: local, development, production.
	BaseURL           string // BaseURL is the catalog root the crawler walks.
	StoragePath       string
	AlertThresholdPct float64
	ReportDir         string
	MetricsAddr       string // MetricsAddr is the promhttp listen address; empty disables it.
	WatchInterval     time.Duration
	Fetch             Fetch
	SMTP              SMTP
	Tg                Telegram
}

type Fetch struct {
	Headless        bool
	PageLoadTimeout time.Duration
	SettleDelay     time.Duration // SettleDelay is waited after each navigation before extraction.
	RatePerSecond   float64
	RateBurst       int
	RespectRobots   bool
}

type SMTP struct {
	Host     string
	Port     int
	From     string
	Password string
	To       string
}

type Telegram struct {
	Token  string // Token is an unique telegram bot token. Empty disables the sink.
	ChatID int64
}

// MustLoad loads the configuration from environment variables and returns a Config struct.
func MustLoad() *Config {
	// Automatically binds environment variables to config keys
	viper.SetEnvPrefix("BW")
	viper.AutomaticEnv()

	// optional args
	viper.SetDefault("ENV", "production")
	viper.SetDefault("BASE_URL", "https://books.toscrape.com")
	viper.SetDefault("STORAGE_PATH", "bookwatch.db")
	viper.SetDefault("ALERT_THRESHOLD_PCT", 5.0)
	viper.SetDefault("REPORT_DIR", "reports")
	viper.SetDefault("WATCH_INTERVAL", "24h")
	viper.SetDefault("HEADLESS", true)
	viper.SetDefault("PAGE_LOAD_TIMEOUT", "60s")
	viper.SetDefault("SETTLE_DELAY", "600ms")
	viper.SetDefault("RATE_PER_SECOND", 2.0)
	viper.SetDefault("RATE_BURST", 1)
	viper.SetDefault("SMTP_PORT", 587)

	if viper.GetString("BASE_URL") == "" {
		panic(ErrEmptyBaseURL)
	}
	if viper.GetFloat64("ALERT_THRESHOLD_PCT") < 0 {
		panic(ErrNegativeThreshold)
	}

	return &Config{
		Env:               viper.GetString("ENV"),
		BaseURL:           viper.GetString("BASE_URL"),
		StoragePath:       viper.GetString("STORAGE_PATH"),
		AlertThresholdPct: viper.GetFloat64("ALERT_THRESHOLD_PCT"),
		ReportDir:         viper.GetString("REPORT_DIR"),
		MetricsAddr:       viper.GetString("METRICS_ADDR"),
		WatchInterval:     viper.GetDuration("WATCH_INTERVAL"),
		Fetch: Fetch{
			Headless:        viper.GetBool("HEADLESS"),
			PageLoadTimeout: viper.GetDuration("PAGE_LOAD_TIMEOUT"),
			SettleDelay:     viper.GetDuration("SETTLE_DELAY"),
			RatePerSecond:   viper.GetFloat64("RATE_PER_SECOND"),
			RateBurst:       viper.GetInt("RATE_BURST"),
			RespectRobots:   viper.GetBool("RESPECT_ROBOTS"),
		},
		SMTP: SMTP{
			Host:     viper.GetString("SMTP_HOST"),
			Port:     viper.GetInt("SMTP_PORT"),
			From:     viper.GetString("SMTP_FROM"),
			Password: viper.GetString("SMTP_PASSWORD"),
			To:       viper.GetString("SMTP_TO"),
		},
		Tg: Telegram{
			Token:  viper.GetString("TELEGRAM_TOKEN"),
			ChatID: viper.GetInt64("TELEGRAM_CHAT_ID"),
		},
	}
}
