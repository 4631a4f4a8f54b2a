package kpi

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

// SlowEmployee counts one employee's first responses above a threshold.
type SlowEmployee struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	Count      int    `json:"count"`
}

// EmployeeDaily is one per-employee row of the daily report.
type EmployeeDaily struct {
	EmployeeID  string `json:"employee_id"`
	FullName    string `json:"full_name"`
	CloseCount  int    `json:"close_count"`
	FirstCount  int    `json:"first_count"`
	AvgFirstSec *int   `json:"avg_first_sec"`
	AvgCloseSec *int   `json:"avg_close_sec"`
}

// DailyReport summarizes one local calendar day of a channel.
type DailyReport struct {
	Channel           domain.Channel  `json:"channel"`
	Day               schedule.Day    `json:"-"`
	Date              string          `json:"date"`
	DateLabel         string          `json:"date_label"`
	From              time.Time       `json:"from"`
	To                time.Time       `json:"to"`
	SLAFirstSec       int             `json:"sla_first_sec"`
	TotalClose        int             `json:"total_close"`
	AvgFirstSec       *int            `json:"avg_first_sec"`
	SLABreachCount    int             `json:"sla_breach_count"`
	TeamAvgCloseSec7d *int            `json:"team_avg_close_sec_7d"`
	UnresolvedThreads int             `json:"unresolved_threads"`
	Slow              []SlowEmployee  `json:"slow_list"`
	PerEmployee       []EmployeeDaily `json:"per_employee"`
}

type employeeAcc struct {
	firstSecs []float64
	closeSecs []float64
	closes    int
	firsts    int
	breaches  int
}

// windowStats folds a thread set. First-response values go to the replier,
// close counts and close times to the closer.
type windowStats struct {
	totalClose int
	firstSecs  []float64
	breaches   int
	perEmp     map[string]*employeeAcc
}

func foldThreads(set ThreadSet, slaSec int) windowStats {
	ws := windowStats{perEmp: make(map[string]*employeeAcc)}

	acc := func(id string) *employeeAcc {
		e, ok := ws.perEmp[id]
		if !ok {
			e = &employeeAcc{}
			ws.perEmp[id] = e
		}

		return e
	}

	threshold := float64(slaSec)

	for _, th := range set.Threads {
		if th.FirstCloseTS != nil {
			ws.totalClose++

			if th.CloserEmployeeID != "" {
				e := acc(th.CloserEmployeeID)
				e.closes++

				if th.CloseSec != nil {
					e.closeSecs = append(e.closeSecs, *th.CloseSec)
				}
			}
		}

		if th.FirstResponseSec == nil {
			if th.FirstReplyTS != nil && th.ReplierID != "" {
				acc(th.ReplierID).firsts++
			}

			continue
		}

		sec := *th.FirstResponseSec
		breach := sec > threshold

		ws.firstSecs = append(ws.firstSecs, sec)
		if breach {
			ws.breaches++
		}

		if th.ReplierID == "" {
			continue
		}

		e := acc(th.ReplierID)
		e.firsts++
		e.firstSecs = append(e.firstSecs, sec)

		if breach {
			e.breaches++
		}
	}

	return ws
}

// slowList returns employees with at least one breach, most breaches first.
func (ws windowStats) slowList(names map[string]domain.Employee) []SlowEmployee {
	out := make([]SlowEmployee, 0)

	for id, e := range ws.perEmp {
		if e.breaches > 0 {
			out = append(out, SlowEmployee{EmployeeID: id, FullName: displayName(names, id), Count: e.breaches})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}

		return out[i].FullName < out[j].FullName
	})

	return out
}

// Daily computes the report for a local calendar day.
func (a *Aggregator) Daily(ctx context.Context, channel domain.Channel, day schedule.Day, slaFirstSec int) (*DailyReport, error) {
	start := time.Now()

	if slaFirstSec <= 0 {
		slaFirstSec = a.thresholds.SLAFirstSec
	}

	window := day.Window(a.loc)

	set, err := a.threads(ctx, domain.EventQuery{
		Channel: channel,
		Types:   threadTypes,
		From:    window.From,
		To:      window.To,
	}, NewWalker(a.store))
	if err != nil {
		return nil, fmt.Errorf("daily report: %w", err)
	}

	defer a.observe(reportDaily, channel, start, set)

	names, err := a.employeeNames(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("daily report: %w", err)
	}

	baseline, err := a.teamAverageClose(ctx, channel, schedule.TrailingDays(window.To, baselineDays), nil)
	if err != nil {
		return nil, fmt.Errorf("daily report: %w", err)
	}

	ws := foldThreads(set, slaFirstSec)

	report := &DailyReport{
		Channel:           channel,
		Day:               day,
		Date:              day.Key(),
		DateLabel:         day.Label(),
		From:              window.From,
		To:                window.To,
		SLAFirstSec:       slaFirstSec,
		TotalClose:        ws.totalClose,
		AvgFirstSec:       roundSec(mean(ws.firstSecs)),
		SLABreachCount:    ws.breaches,
		TeamAvgCloseSec7d: roundSec(baseline),
		UnresolvedThreads: set.Unresolved,
		Slow:              ws.slowList(names),
		PerEmployee:       make([]EmployeeDaily, 0, len(ws.perEmp)),
	}

	for id, e := range ws.perEmp {
		report.PerEmployee = append(report.PerEmployee, EmployeeDaily{
			EmployeeID:  id,
			FullName:    displayName(names, id),
			CloseCount:  e.closes,
			FirstCount:  e.firsts,
			AvgFirstSec: roundSec(mean(e.firstSecs)),
			AvgCloseSec: roundSec(mean(e.closeSecs)),
		})
	}

	sort.Slice(report.PerEmployee, func(i, j int) bool {
		x, y := report.PerEmployee[i], report.PerEmployee[j]
		if x.CloseCount != y.CloseCount {
			return x.CloseCount > y.CloseCount
		}

		if !equalIntPtr(x.AvgFirstSec, y.AvgFirstSec) {
			return lessNilsLast(x.AvgFirstSec, y.AvgFirstSec)
		}

		return x.FullName < y.FullName
	})

	return report, nil
}

func equalIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return *a == *b
}

// lessNilsLast orders ascending with nil after every value.
func lessNilsLast(a, b *int) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

// EmployeeCloses is one per-employee row of the periodic report.
type EmployeeCloses struct {
	EmployeeID string `json:"employee_id"`
	FullName   string `json:"full_name"`
	CloseCount int    `json:"close_count"`
}

// PeriodicReport summarizes a sliding window ending at End.
type PeriodicReport struct {
	Channel           domain.Channel   `json:"channel"`
	End               time.Time        `json:"end"`
	From              time.Time        `json:"from"`
	Hours             int              `json:"hours"`
	DateLabel         string           `json:"date_label"`
	WindowStart       string           `json:"win_start"`
	WindowEnd         string           `json:"win_end"`
	PeriodKey         string           `json:"period_key"`
	TotalClose        int              `json:"total_close"`
	AvgFirstSec       *int             `json:"avg_first_sec"`
	FirstCount        int              `json:"first_count"`
	SLAFirstSec       int              `json:"sla_first_sec"`
	SLABreachCount    int              `json:"sla_breach_count"`
	SLARatePct        int              `json:"sla_rate_pct"`
	SLAWarning        bool             `json:"sla_warning"`
	FirstKTSec        int              `json:"first_kt_sec"`
	UnresolvedThreads int              `json:"unresolved_threads"`
	PerEmployee       []EmployeeCloses `json:"per_employee"`
	SlowFirstKT       []SlowEmployee   `json:"slow_first_kt"`
}

// Periodic computes the lighter summary for [end-hours, end).
func (a *Aggregator) Periodic(ctx context.Context, channel domain.Channel, end time.Time, hours, firstKTSec int) (*PeriodicReport, error) {
	start := time.Now()

	if hours <= 0 {
		hours = a.thresholds.PeriodicHours
	}

	if firstKTSec <= 0 {
		firstKTSec = a.thresholds.PeriodicFirstKTSec
	}

	end = end.In(a.loc)
	window, err := schedule.Sliding(end, time.Duration(hours)*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("periodic report: %w", err)
	}

	set, err := a.threads(ctx, domain.EventQuery{
		Channel: channel,
		Types:   threadTypes,
		From:    window.From,
		To:      window.To,
	}, NewWalker(a.store))
	if err != nil {
		return nil, fmt.Errorf("periodic report: %w", err)
	}

	defer a.observe(reportPeriodic, channel, start, set)

	names, err := a.employeeNames(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("periodic report: %w", err)
	}

	sla := foldThreads(set, a.thresholds.SLAFirstSec)
	kt := foldThreads(set, firstKTSec)

	report := &PeriodicReport{
		Channel:           channel,
		End:               window.To,
		From:              window.From,
		Hours:             hours,
		DateLabel:         schedule.DayOf(end, a.loc).Label(),
		WindowStart:       schedule.Clock(window.From, a.loc),
		WindowEnd:         schedule.Clock(window.To, a.loc),
		PeriodKey:         schedule.HourKey(end, a.loc),
		TotalClose:        sla.totalClose,
		AvgFirstSec:       roundSec(mean(sla.firstSecs)),
		FirstCount:        len(sla.firstSecs),
		SLAFirstSec:       a.thresholds.SLAFirstSec,
		SLABreachCount:    sla.breaches,
		FirstKTSec:        firstKTSec,
		UnresolvedThreads: set.Unresolved,
		PerEmployee:       make([]EmployeeCloses, 0, len(sla.perEmp)),
		SlowFirstKT:       kt.slowList(names),
	}

	if report.FirstCount > 0 {
		report.SLARatePct = int(math.Round(float64(report.SLABreachCount) / float64(report.FirstCount) * 100))
		report.SLAWarning = report.SLARatePct >= a.thresholds.PeriodicSLAWarnPct
	}

	for id, e := range sla.perEmp {
		if e.closes == 0 {
			continue
		}

		report.PerEmployee = append(report.PerEmployee, EmployeeCloses{EmployeeID: id, FullName: displayName(names, id), CloseCount: e.closes})
	}

	sort.Slice(report.PerEmployee, func(i, j int) bool {
		x, y := report.PerEmployee[i], report.PerEmployee[j]
		if x.CloseCount != y.CloseCount {
			return x.CloseCount > y.CloseCount
		}

		return x.FullName < y.FullName
	})

	return report, nil
}
