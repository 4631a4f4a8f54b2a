package kpi

import (
	"context"
	"sort"
	"time"

	"github.com/lueurxax/support-kpi/internal/core/domain"
)

// ThreadSet is the thread view of a batch of events.
type ThreadSet struct {
	Threads []domain.ThreadMetrics
	// Unresolved counts threads whose reply chain could not be walked.
	Unresolved int
	// Negative counts durations dropped because they precede the origin.
	Negative int
}

type threadBuilder struct {
	metrics  domain.ThreadMetrics
	resolved bool
}

// BuildThreads groups reply_first and close events by the root of their reply
// chain and derives per-thread timings. Within a thread the earliest
// attributed event of each kind wins; unattributed events (requester
// follow-ups, unknown actors) count only when no employee event exists. Threads that cannot be walked keep their correlation id as
// key and carry timestamps but no durations.
func BuildThreads(ctx context.Context, walker *Walker, events []domain.Event) (ThreadSet, error) {
	byKey := make(map[string]*threadBuilder)
	order := make([]string, 0)

	for i := range events {
		ev := events[i]
		if ev.Type != domain.EventReplyFirst && !ev.Type.IsClose() {
			continue
		}

		root, ok, err := walker.Root(ctx, ev.ChatID, ev.MsgID)
		if err != nil {
			return ThreadSet{}, err
		}

		key := ev.CorrelationID
		if ok {
			key = root.Key()
		}

		tb, exists := byKey[key]
		if !exists {
			tb = &threadBuilder{metrics: domain.ThreadMetrics{ThreadKey: key}, resolved: ok}
			if ok {
				tb.metrics.OriginTS = root.Timestamp
			}

			byKey[key] = tb
			order = append(order, key)
		}

		ts := ev.Timestamp

		switch {
		case ev.Type == domain.EventReplyFirst:
			if replaces(tb.metrics.FirstReplyTS, tb.metrics.ReplierID, ts, ev.EmployeeID) {
				tb.metrics.FirstReplyTS = &ts
				tb.metrics.ReplierID = ev.EmployeeID
			}
		default:
			if replaces(tb.metrics.FirstCloseTS, tb.metrics.CloserEmployeeID, ts, ev.EmployeeID) {
				tb.metrics.FirstCloseTS = &ts
				tb.metrics.CloserEmployeeID = ev.EmployeeID
			}
		}
	}

	set := ThreadSet{Threads: make([]domain.ThreadMetrics, 0, len(order))}

	for _, key := range order {
		tb := byKey[key]
		m := tb.metrics

		if !tb.resolved {
			set.Unresolved++
			set.Threads = append(set.Threads, m)

			continue
		}

		if m.FirstReplyTS != nil {
			if sec := m.FirstReplyTS.Sub(m.OriginTS).Seconds(); sec >= 0 {
				m.FirstResponseSec = &sec
			} else {
				set.Negative++
			}
		}

		if m.FirstCloseTS != nil {
			if sec := m.FirstCloseTS.Sub(m.OriginTS).Seconds(); sec >= 0 {
				m.CloseSec = &sec
			} else {
				set.Negative++
			}
		}

		set.Threads = append(set.Threads, m)
	}

	sort.SliceStable(set.Threads, func(i, j int) bool {
		return set.Threads[i].ThreadKey < set.Threads[j].ThreadKey
	})

	return set, nil
}

// replaces reports whether the candidate event should become the thread's
// reply or close.
func replaces(current *time.Time, currentEmployee string, ts time.Time, employeeID string) bool {
	switch {
	case current == nil:
		return true
	case currentEmployee == "" && employeeID != "":
		return true
	case currentEmployee != "" && employeeID == "":
		return false
	default:
		return ts.Before(*current)
	}
}

// mean returns nil for an empty sample.
func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}

	avg := sum / float64(len(values))

	return &avg
}
