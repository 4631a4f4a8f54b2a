package config

import "time"

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	PostgresDSN       string        `env:"POSTGRES_DSN"`
	MaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"25"`
	MinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"5"`
	MaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	MaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	HealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`
}

// HTTPConfig holds the API server and access settings.
type HTTPConfig struct {
	Port            int           `env:"HTTP_PORT" envDefault:"8080"`
	WebhookSecret   string        `env:"TELEGRAM_WEBHOOK_SECRET"`
	AdminAPIToken   string        `env:"ADMIN_API_TOKEN"`
	RateLimitRPS    float64       `env:"HTTP_RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst  int           `env:"HTTP_RATE_LIMIT_BURST" envDefault:"40"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// TelegramConfig holds chat routing and notification delivery settings.
// Chat id lists are comma separated and tolerate surrounding spaces.
type TelegramConfig struct {
	BotToken             string        `env:"TG_BOT_TOKEN"`
	BonusChatIDs         string        `env:"TG_BONUS_CHAT_IDS"`
	FinansChatIDs        string        `env:"TG_FINANS_CHAT_IDS"`
	MesaiChatID          string        `env:"TG_MESAI_CHAT_ID"`
	ReportChatIDs        string        `env:"REPORT_CHAT_IDS"`
	BonusReportChatIDs   string        `env:"BONUS_REPORT_CHAT_IDS"`
	FinansReportChatIDs  string        `env:"FINANS_REPORT_CHAT_IDS"`
	AttendanceReportIDs  string        `env:"ATTENDANCE_REPORT_CHAT_IDS"`
	NotifyTimeout        time.Duration `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	NotifyParseMarkdown  bool          `env:"NOTIFY_PARSE_MARKDOWN" envDefault:"true"`
	NotifyDisablePreview bool          `env:"NOTIFY_DISABLE_PREVIEW" envDefault:"true"`
}

// ReportingConfig holds KPI thresholds and the local reporting timezone.
type ReportingConfig struct {
	Timezone            string `env:"TIMEZONE" envDefault:"Europe/Istanbul"`
	SLAFirstSec         int    `env:"SLA_FIRST_SEC" envDefault:"60"`
	PeriodicWindowHours int    `env:"PERIODIC_WINDOW_HOURS" envDefault:"2"`
	PeriodicFirstKTSec  int    `env:"PERIODIC_FIRST_KT_SEC" envDefault:"30"`
	PeriodicSLAWarnPct  int    `env:"PERIODIC_SLA_WARN_PCT" envDefault:"25"`
	CloseTimeMinKT      int    `env:"CLOSE_TIME_MIN_KT" envDefault:"5"`
	IdentityRetroDays   int    `env:"IDENTITY_RETRO_DAYS" envDefault:"14"`
}

// ScheduleConfig holds cron specs evaluated in the reporting timezone.
// An empty spec disables the job.
type ScheduleConfig struct {
	DailyBonus    string        `env:"CRON_DAILY_BONUS" envDefault:"5 0 * * *"`
	DailyFinans   string        `env:"CRON_DAILY_FINANS" envDefault:"10 0 * * *"`
	PeriodicBonus string        `env:"CRON_PERIODIC_BONUS" envDefault:"0 */2 * * *"`
	Attendance    string        `env:"CRON_ATTENDANCE" envDefault:"0 20 * * *"`
	JobTimeout    time.Duration `env:"JOB_TIMEOUT" envDefault:"2m"`
}
