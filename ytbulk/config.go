package ytbulk

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkbhaiya/ytbulk/ytbulk/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

type Config struct {
	Log     LogConfig         `toml:"log"`
	Server  ServerConfig      `toml:"server"`
	DB      database.DBConfig `toml:"db"`
	Payout  PayoutConfig      `toml:"payout"`
	YouTube YouTubeConfig     `toml:"youtube"`
	Cron    CronConfig        `toml:"cron"`
	Metrics MetricsConfig     `toml:"metrics"`
	Spaces  struct {
		Key       string `toml:"key"`
		Secret    string `toml:"secret"`
		Region    string `toml:"region"`
		Bucket    string `toml:"bucket"`
		VideoRoot string `toml:"videoroot"`
	} `toml:"spaces"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	Format    string     `toml:"format"`
	AddSource bool       `toml:"add_source"`
}

type ServerConfig struct {
	Addr       string `toml:"addr"`
	AdminToken string `toml:"admin_token"`
}

type PayoutConfig struct {
	// All money values are paise (1/100 INR).
	MinWithdrawPaise    int64 `toml:"min_withdraw_paise"`
	MetricsCooldownDays int   `toml:"metrics_cooldown_days"`
	DefaultReuseLimit   int   `toml:"default_reuse_limit"`
}

type YouTubeConfig struct {
	APIKey string `toml:"api_key"`
	// Requests per second against the data API.
	RateLimit float64 `toml:"rate_limit"`
}

type CronConfig struct {
	// Secret guards the HTTP trigger endpoints for external schedulers.
	Secret          string `toml:"secret"`
	SweepSchedule   string `toml:"sweep_schedule"`
	RefreshSchedule string `toml:"refresh_schedule"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Payout.MinWithdrawPaise <= 0 {
		c.Payout.MinWithdrawPaise = 10000 // ₹100
	}
	if c.Payout.MetricsCooldownDays <= 0 {
		c.Payout.MetricsCooldownDays = 5
	}
	if c.Payout.DefaultReuseLimit <= 0 {
		c.Payout.DefaultReuseLimit = 2
	}
	if c.YouTube.RateLimit <= 0 {
		c.YouTube.RateLimit = 4
	}
	if c.Cron.SweepSchedule == "" {
		c.Cron.SweepSchedule = "*/5 * * * *"
	}
	if c.Cron.RefreshSchedule == "" {
		c.Cron.RefreshSchedule = "0 * * * *"
	}
}
