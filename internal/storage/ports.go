package db

import "github.com/lueurxax/support-kpi/internal/core/ports"

var (
	_ ports.SettingsStore             = (*DB)(nil)
	_ ports.RawMessageRepository      = (*DB)(nil)
	_ ports.EventRepository           = (*DB)(nil)
	_ ports.IdentityRepository        = (*DB)(nil)
	_ ports.EmployeeRepository        = (*DB)(nil)
	_ ports.BindingStore              = (*DB)(nil)
	_ ports.TemplateRepository        = (*DB)(nil)
	_ ports.NotificationLogRepository = (*DB)(nil)
	_ ports.Locker                    = (*DB)(nil)
)
