package config_test

import (
	"testing"
	"time"

	"github.com/Houeta/bookwatch/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestMustLoad(t *testing.T) {
	t.Run("error - base URL explicitly empty", func(t *testing.T) {
		t.Setenv("BW_BASE_URL", "")

		assert.PanicsWithError(t, config.ErrEmptyBaseURL.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("error - negative alert threshold", func(t *testing.T) {
		t.Setenv("BW_ALERT_THRESHOLD_PCT", "-1")

		assert.PanicsWithError(t, config.ErrNegativeThreshold.Error(), func() {
			config.MustLoad()
		})
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := config.MustLoad()

		assert.Equal(t, "production", cfg.Env)
		assert.Equal(t, "https://books.toscrape.com", cfg.BaseURL)
		assert.Equal(t, "bookwatch.db", cfg.StoragePath)
		assert.InDelta(t, 5.0, cfg.AlertThresholdPct, 0.0001)
		assert.Equal(t, 24*time.Hour, cfg.WatchInterval)
		assert.True(t, cfg.Fetch.Headless)
		assert.Equal(t, 600*time.Millisecond, cfg.Fetch.SettleDelay)
		assert.Equal(t, 587, cfg.SMTP.Port)
	})

	t.Run("success", func(t *testing.T) {
		t.Setenv("BW_ENV", "local")
		t.Setenv("BW_BASE_URL", "https://example.com")
		t.Setenv("BW_STORAGE_PATH", "some/path/to/db")
		t.Setenv("BW_ALERT_THRESHOLD_PCT", "12.5")
		t.Setenv("BW_HEADLESS", "false")
		t.Setenv("BW_PAGE_LOAD_TIMEOUT", "30s")
		t.Setenv("BW_TELEGRAM_TOKEN", "telegramToken")
		t.Setenv("BW_TELEGRAM_CHAT_ID", "42")

		cfg := config.MustLoad()

		assert.Equal(t, "local", cfg.Env)
		assert.Equal(t, "https://example.com", cfg.BaseURL)
		assert.Equal(t, "some/path/to/db", cfg.StoragePath)
		assert.InDelta(t, 12.5, cfg.AlertThresholdPct, 0.0001)
		assert.False(t, cfg.Fetch.Headless)
		assert.Equal(t, 30*time.Second, cfg.Fetch.PageLoadTimeout)
		assert.Equal(t, "telegramToken", cfg.Tg.Token)
		assert.Equal(t, int64(42), cfg.Tg.ChatID)
	})
}
