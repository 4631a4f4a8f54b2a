package kpi

import (
	"context"
	"fmt"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

// EmployeeRef names an employee in a report list.
type EmployeeRef struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
}

// AttendanceReport lists employees missing a check-in or check-out on a day.
type AttendanceReport struct {
	Day             schedule.Day  `json:"-"`
	Date            string        `json:"date"`
	DateLabel       string        `json:"date_label"`
	MissingCheckIn  []EmployeeRef `json:"missing_check_in"`
	MissingCheckOut []EmployeeRef `json:"missing_check_out"`
}

// Complete reports whether every employee checked in and out.
func (r *AttendanceReport) Complete() bool {
	return len(r.MissingCheckIn) == 0 && len(r.MissingCheckOut) == 0
}

// Attendance compares the day's attributed mesai events against the whole
// employee directory.
func (a *Aggregator) Attendance(ctx context.Context, day schedule.Day) (*AttendanceReport, error) {
	window := day.Window(a.loc)

	events, err := a.store.ListEvents(ctx, domain.EventQuery{
		Channel:        domain.ChannelMesai,
		Types:          []domain.EventType{domain.EventCheckIn, domain.EventCheckOut},
		From:           window.From,
		To:             window.To,
		AttributedOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}

	checkedIn := make(map[string]struct{})
	checkedOut := make(map[string]struct{})

	for _, ev := range events {
		switch ev.Type {
		case domain.EventCheckIn:
			checkedIn[ev.EmployeeID] = struct{}{}
		case domain.EventCheckOut:
			checkedOut[ev.EmployeeID] = struct{}{}
		}
	}

	employees, err := a.store.ListEmployees(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("attendance report: %w", err)
	}

	report := &AttendanceReport{
		Day:             day,
		Date:            day.Key(),
		DateLabel:       day.Label(),
		MissingCheckIn:  []EmployeeRef{},
		MissingCheckOut: []EmployeeRef{},
	}

	for _, emp := range employees {
		ref := EmployeeRef{EmployeeID: emp.EmployeeID, FullName: emp.DisplayName()}

		if _, ok := checkedIn[emp.EmployeeID]; !ok {
			report.MissingCheckIn = append(report.MissingCheckIn, ref)
		}

		if _, ok := checkedOut[emp.EmployeeID]; !ok {
			report.MissingCheckOut = append(report.MissingCheckOut, ref)
		}
	}

	return report, nil
}
