package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/support-kpi/internal/identity"
)

const defaultRetroDays = 14

type pendingIdentityResponse struct {
	ActorKey   string `json:"actor_key"`
	HintName   string `json:"hint_name"`
	HintTeam   string `json:"hint_team"`
	InsertedAt string `json:"inserted_at"`
}

func (s *Server) handlePendingIdentities(c *gin.Context) {
	limit, err := intQuery(c, "limit", 0, intRange{1, maxPendingLimit})
	if err != nil {
		s.writeError(c, err)

		return
	}

	offset, err := intQuery(c, "offset", 0, intRange{0, maxPendingOffset})
	if err != nil {
		s.writeError(c, err)

		return
	}

	pending, err := s.deps.Identities.ListPending(c.Request.Context(), limit, offset)
	if err != nil {
		s.writeError(c, err)

		return
	}

	resp := make([]pendingIdentityResponse, 0, len(pending))
	for _, p := range pending {
		resp = append(resp, pendingIdentityResponse{
			ActorKey:   p.ActorKey,
			HintName:   p.HintName,
			HintTeam:   p.HintTeam,
			InsertedAt: p.InsertedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, resp)
}

type bindIdentityRequest struct {
	ActorKey         string `json:"actor_key" binding:"required"`
	EmployeeID       string `json:"employee_id"`
	CreateFullName   string `json:"create_full_name"`
	CreateDepartment string `json:"create_department"`
	RetroDays        *int   `json:"retro_days" binding:"omitempty,min=0,max=3650"`
}

type bindIdentityResponse struct {
	OK bool `json:"ok"`
	*identity.BindResult
}

func (s *Server) handleBindIdentity(c *gin.Context) {
	var req bindIdentityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, invalidParam("actor_key is required, retro_days must be 0..3650"))

		return
	}

	retroDays := s.deps.RetroDays
	if retroDays <= 0 {
		retroDays = defaultRetroDays
	}

	if req.RetroDays != nil {
		retroDays = *req.RetroDays
	}

	res, err := s.deps.Identities.Bind(c.Request.Context(), identity.BindRequest{
		ActorKey:         req.ActorKey,
		EmployeeID:       req.EmployeeID,
		CreateFullName:   req.CreateFullName,
		CreateDepartment: req.CreateDepartment,
		RetroDays:        retroDays,
	})
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, bindIdentityResponse{OK: true, BindResult: res})
}

func (s *Server) handleBackfillIdentities(c *gin.Context) {
	sinceDays, err := intQuery(c, "since_days", identity.DefaultSinceDays, intRange{1, maxSinceDays})
	if err != nil {
		s.writeError(c, err)

		return
	}

	autoCreate, err := boolQuery(c, "auto_create", false)
	if err != nil {
		s.writeError(c, err)

		return
	}

	res, err := s.deps.Identities.BackfillFromEvents(c.Request.Context(), sinceDays, autoCreate)
	if err != nil {
		s.writeError(c, err)

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":                     true,
		"since_days":             res.SinceDays,
		"auto_create":            autoCreate,
		"pending_inserted":       res.PendingInserted,
		"auto_created_employees": res.AutoCreatedEmployees,
		"scanned_actors":         res.ScannedActors,
		"new_actor_keys":         res.NewActorKeys,
	})
}
