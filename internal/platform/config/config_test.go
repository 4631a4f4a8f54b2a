package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN   = "POSTGRES_DSN"
	testEnvWebhookSecret = "TELEGRAM_WEBHOOK_SECRET"
	testEnvDatabaseURL   = "DATABASE_URL"
)

// Test values.
const (
	testPostgresDSN   = "postgres://localhost/test"
	testWebhookSecret = "s3cret"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvWebhookSecret, testWebhookSecret)
}

func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	unsetEnv(t, testEnvPostgresDSN, testEnvDatabaseURL, testEnvWebhookSecret)

	_, err := Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, errMissingDSN)
}

func TestLoad_MissingSecret(t *testing.T) {
	unsetEnv(t, testEnvWebhookSecret)
	t.Setenv(testEnvPostgresDSN, testPostgresDSN)

	_, err := Load()
	assert.ErrorIs(t, err, errMissingSecret)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)
	unsetEnv(t, "APP_ENV", "HTTP_PORT", "TIMEZONE", "TZ", "SLA_FIRST_SEC", "PERIODIC_WINDOW_HOURS",
		"PERIODIC_FIRST_KT_SEC", "PERIODIC_SLA_WARN_PCT", "CLOSE_TIME_MIN_KT", "IDENTITY_RETRO_DAYS",
		"NOTIFY_TIMEOUT", "TG_NOTIFY_TIMEOUT", "CRON_ATTENDANCE")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.AppEnv)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "Europe/Istanbul", cfg.Reporting.Timezone)
	assert.Equal(t, 60, cfg.Reporting.SLAFirstSec)
	assert.Equal(t, 2, cfg.Reporting.PeriodicWindowHours)
	assert.Equal(t, 30, cfg.Reporting.PeriodicFirstKTSec)
	assert.Equal(t, 25, cfg.Reporting.PeriodicSLAWarnPct)
	assert.Equal(t, 5, cfg.Reporting.CloseTimeMinKT)
	assert.Equal(t, 14, cfg.Reporting.IdentityRetroDays)
	assert.Equal(t, 5*time.Second, cfg.Telegram.NotifyTimeout)
	assert.Equal(t, "0 20 * * *", cfg.Schedule.Attendance)
	assert.Equal(t, "Europe/Istanbul", cfg.Location().String())
}

func TestLoad_LegacyAliases(t *testing.T) {
	unsetEnv(t, testEnvPostgresDSN, "TG_BOT_TOKEN", "REPORT_CHAT_IDS")
	t.Setenv(testEnvWebhookSecret, testWebhookSecret)
	t.Setenv(testEnvDatabaseURL, testPostgresDSN)
	t.Setenv("ADMIN_TASKS_TG_TOKEN", "123:abc")
	t.Setenv("ADMIN_TASKS_TG_CHAT_ID", "-1009")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, testPostgresDSN, cfg.Database.PostgresDSN)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{-1009}, cfg.ReportRecipients("bonus"))
}

func TestLoad_InvalidChatIDs(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TG_BONUS_CHAT_IDS", "-100, not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TIMEZONE", "Mars/Olympus")

	_, err := Load()
	assert.Error(t, err)
}

func TestParseIDList(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{name: "empty", raw: "", want: nil},
		{name: "spaces and blanks", raw: " -100 , ,-200,", want: []int64{-100, -200}},
		{name: "single", raw: "42", want: []int64{42}},
		{name: "invalid", raw: "1,x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIDList(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConfig_Routing(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TG_BONUS_CHAT_IDS", "-1001, -1002")
	t.Setenv("TG_FINANS_CHAT_IDS", "-2001")
	t.Setenv("TG_MESAI_CHAT_ID", "-3001")

	cfg, err := Load()
	require.NoError(t, err)

	routing := cfg.Routing()

	assert.Equal(t, domain.ChannelBonus, routing.Channel(-1002))
	assert.Equal(t, domain.ChannelFinans, routing.Channel(-2001))
	assert.Equal(t, domain.ChannelMesai, routing.Channel(-3001))
	assert.Equal(t, domain.ChannelOther, routing.Channel(-9999))
}

func TestConfig_ReportRecipientsDeduplicates(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("REPORT_CHAT_IDS", "-1, -2")
	t.Setenv("BONUS_REPORT_CHAT_IDS", "-2, -3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int64{-1, -2, -3}, cfg.ReportRecipients("bonus"))
	assert.Equal(t, []int64{-1, -2}, cfg.ReportRecipients("finans"))
}
