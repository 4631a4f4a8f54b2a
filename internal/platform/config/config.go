package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/lueurxax/support-kpi/internal/ingest"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

var (
	errMissingDSN    = errors.New("POSTGRES_DSN is required")
	errMissingSecret = errors.New("TELEGRAM_WEBHOOK_SECRET is required")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	Database  DatabaseConfig
	HTTP      HTTPConfig
	Telegram  TelegramConfig
	Reporting ReportingConfig
	Schedule  ScheduleConfig
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	applyLegacyAliases(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.PostgresDSN == "" {
		return errMissingDSN
	}

	if c.HTTP.WebhookSecret == "" {
		return errMissingSecret
	}

	lists := map[string]string{
		"TG_BONUS_CHAT_IDS":          c.Telegram.BonusChatIDs,
		"TG_FINANS_CHAT_IDS":         c.Telegram.FinansChatIDs,
		"TG_MESAI_CHAT_ID":           c.Telegram.MesaiChatID,
		"REPORT_CHAT_IDS":            c.Telegram.ReportChatIDs,
		"BONUS_REPORT_CHAT_IDS":      c.Telegram.BonusReportChatIDs,
		"FINANS_REPORT_CHAT_IDS":     c.Telegram.FinansReportChatIDs,
		"ATTENDANCE_REPORT_CHAT_IDS": c.Telegram.AttendanceReportIDs,
	}

	for key, raw := range lists {
		if _, err := ParseIDList(raw); err != nil {
			return fmt.Errorf("parsing %s: %w", key, err)
		}
	}

	if _, err := schedule.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("loading TIMEZONE: %w", err)
	}

	return nil
}

// Location returns the reporting timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := schedule.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// Routing builds the chat id to channel mapping used by the ingestion pipeline.
func (c *Config) Routing() ingest.ChannelRouting {
	bonus, _ := ParseIDList(c.Telegram.BonusChatIDs)   //nolint:errcheck // validated in Load
	finans, _ := ParseIDList(c.Telegram.FinansChatIDs) //nolint:errcheck // validated in Load
	mesai, _ := ParseIDList(c.Telegram.MesaiChatID)    //nolint:errcheck // validated in Load

	return ingest.NewChannelRouting(bonus, finans, mesai)
}

// ReportRecipients returns the general report chats followed by the channel's own chats, deduplicated.
func (c *Config) ReportRecipients(channel string) []int64 {
	general, _ := ParseIDList(c.Telegram.ReportChatIDs) //nolint:errcheck // validated in Load

	var own []int64

	switch channel {
	case "bonus":
		own, _ = ParseIDList(c.Telegram.BonusReportChatIDs) //nolint:errcheck // validated in Load
	case "finans":
		own, _ = ParseIDList(c.Telegram.FinansReportChatIDs) //nolint:errcheck // validated in Load
	case "attendance":
		own, _ = ParseIDList(c.Telegram.AttendanceReportIDs) //nolint:errcheck // validated in Load
	}

	seen := make(map[int64]struct{}, len(general)+len(own))
	out := make([]int64, 0, len(general)+len(own))

	for _, id := range append(general, own...) {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		out = append(out, id)
	}

	return out
}

// ParseIDList parses a comma separated list of chat ids, skipping blanks.
func ParseIDList(raw string) ([]int64, error) {
	var ids []int64

	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse chat id %q: %w", part, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// applyLegacyAliases accepts the variable names used by earlier deployments.
func applyLegacyAliases(cfg *Config) {
	if !hasEnv("POSTGRES_DSN") {
		setStringFromEnv("DATABASE_URL", &cfg.Database.PostgresDSN)
	}

	if !hasEnv("TIMEZONE") {
		setStringFromEnv("TZ", &cfg.Reporting.Timezone)
	}

	if !hasEnv("TG_BOT_TOKEN") {
		setStringFromEnv("ADMIN_TASKS_TG_TOKEN", &cfg.Telegram.BotToken)
	}

	if !hasEnv("REPORT_CHAT_IDS") {
		setStringFromEnv("ADMIN_TASKS_TG_CHAT_ID", &cfg.Telegram.ReportChatIDs)
	}

	if !hasEnv("NOTIFY_TIMEOUT") {
		setDurationFromEnv("TG_NOTIFY_TIMEOUT", &cfg.Telegram.NotifyTimeout)
	}
}

func hasEnv(key string) bool {
	_, ok := os.LookupEnv(key)
	return ok
}

func setStringFromEnv(key string, target *string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	val = strings.TrimSpace(val)
	if val == "" {
		return
	}

	*target = val
}

func setDurationFromEnv(key string, target *time.Duration) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}

	parsed, err := time.ParseDuration(strings.TrimSpace(val))
	if err != nil {
		return
	}

	*target = parsed
}
