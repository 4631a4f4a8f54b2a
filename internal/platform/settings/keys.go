// Package settings names the admin switches stored in admin_settings and
// interprets their text values.
package settings

import "strings"

// Report enable switches.
const (
	KeyAdminTasksEnabled = "admin_tasks_tg_enabled"
	KeyBonusEnabled      = "bonus_tg_enabled"
	KeyFinanceEnabled    = "finance_tg_enabled"
	KeyAttendanceEnabled = "attendance_tg_enabled"
)

// Keys lists every switch exposed through the admin settings endpoint.
var Keys = []string{KeyAdminTasksEnabled, KeyBonusEnabled, KeyFinanceEnabled, KeyAttendanceEnabled}

// ParseBool treats "1" and "true" (any case) as enabled.
func ParseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true":
		return true
	default:
		return false
	}
}

// FormatBool is the stored form of a switch value.
func FormatBool(v bool) string {
	if v {
		return "1"
	}

	return "0"
}
