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

// Close-time orderings.
const (
	OrderAvgAsc  = "avg_asc"
	OrderAvgDesc = "avg_desc"
	OrderCntDesc = "cnt_desc"

	MaxCloseTimeLimit = 500

	trendFlatPct = 3
)

// Trend markers.
const (
	TrendUp   = "🔴⬆️"
	TrendDown = "🟢⬇️"
	TrendFlat = "⚪"
)

// CloseTimeQuery selects the close-time report. Zero From/To fall back to the
// trailing seven days ending tomorrow.
type CloseTimeQuery struct {
	Channel     domain.Channel
	From        time.Time
	To          time.Time
	Order       string
	Limit       int
	Offset      int
	MinKT       int
	SLAFirstSec int
}

// Trend compares an employee's close time with the team baseline.
type Trend struct {
	Emoji           string `json:"emoji"`
	Pct             *int   `json:"pct"`
	TeamAvgCloseSec *int   `json:"team_avg_close_sec"`
}

// CloseTimeRow is one employee in the close-time report.
type CloseTimeRow struct {
	EmployeeID  string `json:"employee_id"`
	FullName    string `json:"full_name"`
	Department  string `json:"department"`
	CountTotal  int    `json:"count_total"`
	FirstCount  int    `json:"first_count"`
	SLABreaches int    `json:"sla_breaches"`
	AvgFirstSec *int   `json:"avg_first_sec"`
	AvgCloseSec int    `json:"avg_close_sec"`
	Trend       Trend  `json:"trend"`
}

// departmentFor limits bonus reports to the Bonus department. Finans reports
// read every employee.
func departmentFor(channel domain.Channel) (department, fallback string) {
	if channel == domain.ChannelBonus {
		return "Bonus", "Bonus"
	}

	return "", "-"
}

// TrendOf classifies the percentage difference; pct within ±3 is flat.
func TrendOf(pct *int) string {
	switch {
	case pct == nil:
		return TrendFlat
	case *pct > trendFlatPct:
		return TrendUp
	case *pct < -trendFlatPct:
		return TrendDown
	default:
		return TrendFlat
	}
}

// DefaultCloseTimeWindow is [to-7d, to) with to = now+1d.
func DefaultCloseTimeWindow(now time.Time) schedule.Window {
	return schedule.TrailingDays(now.AddDate(0, 0, 1), baselineDays)
}

// CloseTime reports per-employee close and first-response times for employees
// with at least MinKT first responses. The trend baseline always covers the
// seven days ending tomorrow, whatever range is queried.
func (a *Aggregator) CloseTime(ctx context.Context, q CloseTimeQuery) ([]CloseTimeRow, error) {
	start := time.Now()
	now := a.Now()

	window := DefaultCloseTimeWindow(now)
	if !q.To.IsZero() {
		window.To = q.To
		window.From = window.To.AddDate(0, 0, -baselineDays)
	}

	if !q.From.IsZero() {
		window.From = q.From
	}

	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("close-time report: %w", err)
	}

	if q.SLAFirstSec <= 0 {
		q.SLAFirstSec = a.thresholds.SLAFirstSec
	}

	if q.Limit <= 0 || q.Limit > MaxCloseTimeLimit {
		q.Limit = MaxCloseTimeLimit
	}

	department, fallbackDept := departmentFor(q.Channel)

	employees, err := a.store.ListEmployees(ctx, department)
	if err != nil {
		return nil, fmt.Errorf("close-time report: %w", err)
	}

	if department != "" && len(employees) == 0 {
		return []CloseTimeRow{}, nil
	}

	names := make(map[string]domain.Employee, len(employees))
	ids := make([]string, 0, len(employees))

	for _, emp := range employees {
		names[emp.EmployeeID] = emp
		ids = append(ids, emp.EmployeeID)
	}

	eq := domain.EventQuery{
		Channel:        q.Channel,
		Types:          threadTypes,
		From:           window.From,
		To:             window.To,
		AttributedOnly: true,
	}

	var baselineIDs []string
	if department != "" {
		eq.EmployeeIDs = ids
		baselineIDs = ids
	} else {
		baselineIDs = []string{}
	}

	set, err := a.threads(ctx, eq, NewWalker(a.store))
	if err != nil {
		return nil, fmt.Errorf("close-time report: %w", err)
	}

	defer a.observe(reportCloseTime, q.Channel, start, set)

	ws := foldThreads(set, q.SLAFirstSec)

	baseline, err := a.teamAverageClose(ctx, q.Channel, DefaultCloseTimeWindow(now), baselineIDs)
	if err != nil {
		return nil, fmt.Errorf("close-time report: %w", err)
	}

	rows := make([]CloseTimeRow, 0, len(ws.perEmp))

	for id, e := range ws.perEmp {
		if len(e.closeSecs) == 0 {
			continue
		}

		if q.MinKT > 0 && len(e.firstSecs) < q.MinKT {
			continue
		}

		avgClose := *mean(e.closeSecs)

		dept := fallbackDept
		if emp, ok := names[id]; ok && emp.Department != "" {
			dept = emp.Department
		}

		rows = append(rows, CloseTimeRow{
			EmployeeID:  id,
			FullName:    displayName(names, id),
			Department:  dept,
			CountTotal:  len(e.closeSecs),
			FirstCount:  len(e.firstSecs),
			SLABreaches: e.breaches,
			AvgFirstSec: roundSec(mean(e.firstSecs)),
			AvgCloseSec: int(math.Round(avgClose)),
			Trend:       trendAgainst(avgClose, baseline),
		})
	}

	sortCloseTime(rows, q.Order)

	return pageRows(rows, q.Limit, q.Offset), nil
}

func trendAgainst(avgClose float64, baseline *float64) Trend {
	trend := Trend{TeamAvgCloseSec: roundSec(baseline)}

	if baseline != nil && *baseline > 0 {
		pct := int(math.Round((avgClose - *baseline) / *baseline * 100))
		trend.Pct = &pct
	}

	trend.Emoji = TrendOf(trend.Pct)

	return trend
}

func sortCloseTime(rows []CloseTimeRow, order string) {
	sort.SliceStable(rows, func(i, j int) bool {
		x, y := rows[i], rows[j]

		switch order {
		case OrderAvgDesc:
			if x.AvgCloseSec != y.AvgCloseSec {
				return x.AvgCloseSec > y.AvgCloseSec
			}
		case OrderCntDesc:
			if x.CountTotal != y.CountTotal {
				return x.CountTotal > y.CountTotal
			}

			if x.AvgCloseSec != y.AvgCloseSec {
				return x.AvgCloseSec > y.AvgCloseSec
			}
		default:
			if x.AvgCloseSec != y.AvgCloseSec {
				return x.AvgCloseSec < y.AvgCloseSec
			}

			if x.CountTotal != y.CountTotal {
				return x.CountTotal > y.CountTotal
			}
		}

		return x.EmployeeID < y.EmployeeID
	})
}

func pageRows[T any](rows []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}

	if offset >= len(rows) {
		return []T{}
	}

	end := len(rows)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	return rows[offset:end]
}
