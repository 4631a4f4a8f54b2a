package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/kpi"
)

func intPtr(v int) *int { return &v }

func TestDailyValues_RenderFallback(t *testing.T) {
	r := &kpi.DailyReport{
		Channel:        domain.ChannelBonus,
		DateLabel:      "13.09.2025",
		SLAFirstSec:    60,
		TotalClose:     2,
		AvgFirstSec:    intPtr(55),
		SLABreachCount: 1,
		Slow:           []kpi.SlowEmployee{{EmployeeID: "RD-002", FullName: "Veli", Count: 1}},
		PerEmployee: []kpi.EmployeeDaily{
			{EmployeeID: "RD-001", FullName: "Ali_K", CloseCount: 1, AvgFirstSec: intPtr(45)},
			{EmployeeID: "RD-002", FullName: "Veli", CloseCount: 1},
		},
	}

	want := "📊 *BONUS GÜN SONU RAPORU — 13.09.2025*\n" +
		"- *Toplam Kapanış:* 2\n" +
		"- *Ø İlk Yanıt:* 55 sn\n" +
		"- *60 sn üzeri işlemler:* 1\n\n" +
		"⚠️ *Geç Yanıt Verenler (60 sn üzeri)*\n- Veli — 1 işlem\n\n" +
		"👥 *Personel Bazlı İşlem Sayıları*\n" +
		"- Ali\\_K — 1 işlem • Ø 45 sn\n" +
		"- Veli — 1 işlem • Ø —"

	assert.Equal(t, want, Substitute(fallbackDaily, DailyValues(r)))
}

func TestDailyValues_Empty(t *testing.T) {
	values := DailyValues(&kpi.DailyReport{Channel: domain.ChannelFinans, SLAFirstSec: 60})

	assert.Equal(t, "FİNANS", values["title"])
	assert.Equal(t, "—", values["avg_first"])
	assert.Equal(t, "- —", values["slow_list_text"])
	assert.Equal(t, "- —", values["per_emp_text"])
	assert.Equal(t, "—", values["team_avg_close_7d"])
}

func TestPeriodicValues(t *testing.T) {
	base := kpi.PeriodicReport{
		Channel:     domain.ChannelBonus,
		Hours:       2,
		DateLabel:   "13.09.2025",
		WindowStart: "10:00",
		WindowEnd:   "12:00",
		TotalClose:  3,
		SLAFirstSec: 60,
		FirstKTSec:  30,
		PerEmployee: []kpi.EmployeeCloses{{FullName: "Ali", CloseCount: 2}, {FullName: "Veli", CloseCount: 1}},
	}

	t.Run("quiet window", func(t *testing.T) {
		r := base

		want := "⏱️ *BONUS 2 SAATLİK RAPOR* — *13.09.2025 10:00–12:00*\n\n" +
			"• *Toplam Kapanış:* 3\n\n" +
			"👤 *Personel Bazında*\n- Ali — *2* işlem\n- Veli — *1* işlem"

		assert.Equal(t, want, Substitute(fallbackPeriodic, PeriodicValues(&r)))
	})

	t.Run("warning and slow blocks", func(t *testing.T) {
		r := base
		r.SLAWarning = true
		r.SLARatePct = 33
		r.SlowFirstKT = []kpi.SlowEmployee{{FullName: "Veli", Count: 2}}

		values := PeriodicValues(&r)

		assert.Equal(t, "\n⚠️ SLA> 60 sn yüksek (%33)", values["sla_warn_block"])
		assert.Equal(t, "\n\n⚠️ *30 sn üzeri İlk KT*\n- Veli — *2* işlem", values["slow30_block"])
	})

	t.Run("no closes", func(t *testing.T) {
		r := base
		r.PerEmployee = nil

		assert.Equal(t, "- —", PeriodicValues(&r)["per_emp_text"])
	})
}

func TestAttendanceValues(t *testing.T) {
	t.Run("missing entries", func(t *testing.T) {
		r := &kpi.AttendanceReport{
			DateLabel:       "13.09.2025",
			MissingCheckIn:  []kpi.EmployeeRef{{EmployeeID: "RD-002", FullName: "Veli"}},
			MissingCheckOut: []kpi.EmployeeRef{{EmployeeID: "RD-001", FullName: "Ali"}, {EmployeeID: "RD-002", FullName: "Veli"}},
		}

		want := "📋 Mesai Yoklama — 13.09.2025\n" +
			"\nGiriş yapmayanlar:\n• Veli (RD-002)\n" +
			"\nÇıkış yapmayanlar:\n• Ali (RD-001)\n• Veli (RD-002)"

		assert.Equal(t, want, Substitute(fallbackAttendance, AttendanceValues(r)))
	})

	t.Run("complete", func(t *testing.T) {
		r := &kpi.AttendanceReport{DateLabel: "13.09.2025"}

		assert.Equal(t, "📋 Mesai Yoklama — 13.09.2025\n\nTüm kayıtlar tam.", Substitute(fallbackAttendance, AttendanceValues(r)))
	})
}
