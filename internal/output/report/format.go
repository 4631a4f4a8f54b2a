package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	"github.com/lueurxax/support-kpi/internal/kpi"
)

// Template names looked up in admin_notifications.
const (
	templateDailySuffix    = "_daily_v2"
	templatePeriodicSuffix = "_periodic_v2"
	TemplateAttendance     = "attendance_daily_v1"
)

const (
	emptyValue = "—"
	emptyList  = "- —"
)

const fallbackDaily = "📊 *{title} GÜN SONU RAPORU — {date}*\n" +
	"- *Toplam Kapanış:* {total_close}\n" +
	"- *Ø İlk Yanıt:* {avg_first} sn\n" +
	"- *{sla_first_sec} sn üzeri işlemler:* {gt60_total}\n\n" +
	"⚠️ *Geç Yanıt Verenler ({sla_first_sec} sn üzeri)*\n{slow_list_text}\n\n" +
	"👥 *Personel Bazlı İşlem Sayıları*\n{per_emp_text}"

const fallbackPeriodic = "⏱️ *{title} {hours} SAATLİK RAPOR* — *{date} {win_start}–{win_end}*\n\n" +
	"• *Toplam Kapanış:* {total_close}{sla_warn_block}\n\n" +
	"👤 *Personel Bazında*\n{per_emp_text}{slow30_block}"

const fallbackAttendance = "📋 Mesai Yoklama — {date}\n{body}"

var channelTitles = map[domain.Channel]string{
	domain.ChannelBonus:  "BONUS",
	domain.ChannelFinans: "FİNANS",
}

// markdownEscaper escapes the legacy Markdown entity characters in names.
var markdownEscaper = strings.NewReplacer("_", `\_`, "*", `\*`, "`", "\\`", "[", `\[`)

func escapeName(name string) string {
	return markdownEscaper.Replace(name)
}

func title(channel domain.Channel) string {
	if t, ok := channelTitles[channel]; ok {
		return t
	}

	return strings.ToUpper(string(channel))
}

func optionalSec(v *int) string {
	if v == nil {
		return emptyValue
	}

	return strconv.Itoa(*v)
}

func joinOrEmpty(lines []string) string {
	if len(lines) == 0 {
		return emptyList
	}

	return strings.Join(lines, "\n")
}

// DailyTemplate is the template name of a channel's daily report.
func DailyTemplate(channel domain.Channel) string {
	return string(channel) + templateDailySuffix
}

// PeriodicTemplate is the template name of a channel's periodic report.
func PeriodicTemplate(channel domain.Channel) string {
	return string(channel) + templatePeriodicSuffix
}

// DailyValues is the substitution context of a daily report.
func DailyValues(r *kpi.DailyReport) map[string]string {
	slow := make([]string, 0, len(r.Slow))
	for _, s := range r.Slow {
		slow = append(slow, fmt.Sprintf("- %s — %d işlem", escapeName(s.FullName), s.Count))
	}

	perEmp := make([]string, 0, len(r.PerEmployee))
	for _, e := range r.PerEmployee {
		avg := emptyValue
		if e.AvgFirstSec != nil {
			avg = strconv.Itoa(*e.AvgFirstSec) + " sn"
		}

		perEmp = append(perEmp, fmt.Sprintf("- %s — %d işlem • Ø %s", escapeName(e.FullName), e.CloseCount, avg))
	}

	return map[string]string{
		"title":              title(r.Channel),
		"channel":            string(r.Channel),
		"date":               r.DateLabel,
		"total_close":        strconv.Itoa(r.TotalClose),
		"avg_first":          optionalSec(r.AvgFirstSec),
		"sla_first_sec":      strconv.Itoa(r.SLAFirstSec),
		"gt60_total":         strconv.Itoa(r.SLABreachCount),
		"team_avg_close_7d":  optionalSec(r.TeamAvgCloseSec7d),
		"unresolved_threads": strconv.Itoa(r.UnresolvedThreads),
		"slow_list_text":     joinOrEmpty(slow),
		"per_emp_text":       joinOrEmpty(perEmp),
	}
}

// PeriodicValues is the substitution context of a periodic report. The SLA
// warning and slow first-response blocks are empty when they do not apply.
func PeriodicValues(r *kpi.PeriodicReport) map[string]string {
	perEmp := make([]string, 0, len(r.PerEmployee))
	for _, e := range r.PerEmployee {
		perEmp = append(perEmp, fmt.Sprintf("- %s — *%d* işlem", escapeName(e.FullName), e.CloseCount))
	}

	slowBlock := ""
	if len(r.SlowFirstKT) > 0 {
		lines := make([]string, 0, len(r.SlowFirstKT))
		for _, s := range r.SlowFirstKT {
			lines = append(lines, fmt.Sprintf("- %s — *%d* işlem", escapeName(s.FullName), s.Count))
		}

		slowBlock = fmt.Sprintf("\n\n⚠️ *%d sn üzeri İlk KT*\n%s", r.FirstKTSec, strings.Join(lines, "\n"))
	}

	warnBlock := ""
	if r.SLAWarning {
		warnBlock = fmt.Sprintf("\n⚠️ SLA> %d sn yüksek (%%%d)", r.SLAFirstSec, r.SLARatePct)
	}

	return map[string]string{
		"title":              title(r.Channel),
		"channel":            string(r.Channel),
		"hours":              strconv.Itoa(r.Hours),
		"date":               r.DateLabel,
		"win_start":          r.WindowStart,
		"win_end":            r.WindowEnd,
		"total_close":        strconv.Itoa(r.TotalClose),
		"avg_first":          optionalSec(r.AvgFirstSec),
		"sla_first_sec":      strconv.Itoa(r.SLAFirstSec),
		"sla_rate_pct":       strconv.Itoa(r.SLARatePct),
		"kt_sec":             strconv.Itoa(r.FirstKTSec),
		"unresolved_threads": strconv.Itoa(r.UnresolvedThreads),
		"per_emp_text":       joinOrEmpty(perEmp),
		"slow30_block":       slowBlock,
		"sla_warn_block":     warnBlock,
	}
}

// AttendanceValues is the substitution context of the attendance check.
func AttendanceValues(r *kpi.AttendanceReport) map[string]string {
	var lines []string

	section := func(header string, refs []kpi.EmployeeRef) {
		if len(refs) == 0 {
			return
		}

		lines = append(lines, "\n"+header)
		for _, ref := range refs {
			lines = append(lines, fmt.Sprintf("• %s (%s)", ref.FullName, ref.EmployeeID))
		}
	}

	section("Giriş yapmayanlar:", r.MissingCheckIn)
	section("Çıkış yapmayanlar:", r.MissingCheckOut)

	if r.Complete() {
		lines = append(lines, "\nTüm kayıtlar tam.")
	}

	return map[string]string{
		"date":              r.DateLabel,
		"body":              strings.Join(lines, "\n"),
		"missing_check_in":  strconv.Itoa(len(r.MissingCheckIn)),
		"missing_check_out": strconv.Itoa(len(r.MissingCheckOut)),
	}
}
