package httpapi

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/support-kpi/internal/kpi"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

var closeTimeOrders = map[string]bool{
	kpi.OrderAvgAsc:  true,
	kpi.OrderAvgDesc: true,
	kpi.OrderCntDesc: true,
}

// handleCloseTime serves per-employee close-time rows. from and to are
// YYYY-MM-DD or YYYY-MM-DDTHH:MM local times; to is exclusive.
func (s *Server) handleCloseTime(c *gin.Context) {
	channel, err := queueChannel(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	q, err := s.closeTimeQuery(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	q.Channel = channel

	rows, err := s.deps.Reports.CloseTime(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, rows)
}

func (s *Server) closeTimeQuery(c *gin.Context) (kpi.CloseTimeQuery, error) {
	loc := s.deps.Reports.Location()
	th := s.deps.Reports.Thresholds()

	from, err := timeQuery(c, "from", loc)
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	to, err := timeQuery(c, "to", loc)
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	order := c.DefaultQuery("order", kpi.OrderAvgAsc)
	if !closeTimeOrders[order] {
		return kpi.CloseTimeQuery{}, invalidParam("order must be avg_asc, avg_desc or cnt_desc")
	}

	limit, err := intQuery(c, "limit", kpi.MaxCloseTimeLimit, intRange{1, kpi.MaxCloseTimeLimit})
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	offset, err := intQuery(c, "offset", 0, intRange{0, math.MaxInt})
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	minKT, err := intQuery(c, "min_kt", th.CloseTimeMinKT, intRange{0, maxMinKT})
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	sla, err := intQuery(c, "sla", th.SLAFirstSec, intRange{minThresholdSec, maxThresholdSec})
	if err != nil {
		return kpi.CloseTimeQuery{}, err
	}

	return kpi.CloseTimeQuery{
		From:        from,
		To:          to,
		Order:       order,
		Limit:       limit,
		Offset:      offset,
		MinKT:       minKT,
		SLAFirstSec: sla,
	}, nil
}

// handleDailyReport returns the daily aggregate as JSON. d defaults to yesterday.
func (s *Server) handleDailyReport(c *gin.Context) {
	channel, err := queueChannel(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	day, err := dayQuery(c, "d", s.yesterday())
	if err != nil {
		s.writeError(c, err)

		return
	}

	sla, err := firstIntQuery(c, []string{"sla", "sla_first_sec"}, 0, intRange{minThresholdSec, maxThresholdSec})
	if err != nil {
		s.writeError(c, err)

		return
	}

	r, err := s.deps.Reports.Daily(c.Request.Context(), channel, day, sla)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, r)
}

// handlePeriodicReport returns the sliding-window aggregate. end defaults to now.
func (s *Server) handlePeriodicReport(c *gin.Context) {
	channel, err := queueChannel(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	end, hours, kt, err := s.periodicParams(c)
	if err != nil {
		s.writeError(c, err)

		return
	}

	r, err := s.deps.Reports.Periodic(c.Request.Context(), channel, end, hours, kt)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, r)
}

func (s *Server) periodicParams(c *gin.Context) (end time.Time, hours, kt int, err error) {
	loc := s.deps.Reports.Location()

	end, err = endQuery(c, "end", s.deps.Reports.Now().In(loc), loc)
	if err != nil {
		return time.Time{}, 0, 0, err
	}

	hours, err = intQuery(c, "hours", 0, intRange{1, maxWindowHours})
	if err != nil {
		return time.Time{}, 0, 0, err
	}

	kt, err = firstIntQuery(c, []string{"kt_sec", "kt30_sec"}, 0, intRange{minThresholdSec, maxThresholdSec})
	if err != nil {
		return time.Time{}, 0, 0, err
	}

	return end, hours, kt, nil
}

func (s *Server) yesterday() schedule.Day {
	return schedule.DayOf(s.deps.Reports.Now(), s.deps.Reports.Location()).AddDays(-1)
}

func (s *Server) today() schedule.Day {
	return schedule.DayOf(s.deps.Reports.Now(), s.deps.Reports.Location())
}
