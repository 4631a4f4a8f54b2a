package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/support-kpi/internal/core/domain"
	errs "github.com/lueurxax/support-kpi/internal/core/errors"
	"github.com/lueurxax/support-kpi/internal/core/ports/mocks"
	"github.com/lueurxax/support-kpi/internal/identity"
	"github.com/lueurxax/support-kpi/internal/ingest"
	"github.com/lueurxax/support-kpi/internal/kpi"
	"github.com/lueurxax/support-kpi/internal/output/report"
	"github.com/lueurxax/support-kpi/internal/platform/config"
	"github.com/lueurxax/support-kpi/internal/platform/schedule"
)

const (
	testSecret = "hook-secret"
	testToken  = "admin-token"
)

var testNow = time.Date(2025, 9, 13, 12, 34, 0, 0, time.UTC)

var errTestStore = errors.New("connection reset")

type fakeIngester struct {
	res  ingest.Result
	err  error
	body []byte
}

func (f *fakeIngester) Ingest(_ context.Context, body []byte) (ingest.Result, error) {
	f.body = body

	return f.res, f.err
}

type fakeReports struct {
	closeQuery kpi.CloseTimeQuery
	dailyDay   schedule.Day
	dailySLA   int
	periodic   struct {
		end       time.Time
		hours, kt int
	}
	err error
}

func (f *fakeReports) Daily(_ context.Context, channel domain.Channel, day schedule.Day, sla int) (*kpi.DailyReport, error) {
	f.dailyDay, f.dailySLA = day, sla
	if f.err != nil {
		return nil, f.err
	}

	return &kpi.DailyReport{Channel: channel, Date: day.Key(), DateLabel: day.Label()}, nil
}

func (f *fakeReports) Periodic(_ context.Context, channel domain.Channel, end time.Time, hours, kt int) (*kpi.PeriodicReport, error) {
	f.periodic.end, f.periodic.hours, f.periodic.kt = end, hours, kt

	return &kpi.PeriodicReport{Channel: channel, End: end, Hours: hours}, f.err
}

func (f *fakeReports) CloseTime(_ context.Context, q kpi.CloseTimeQuery) ([]kpi.CloseTimeRow, error) {
	f.closeQuery = q
	if f.err != nil {
		return nil, f.err
	}

	return []kpi.CloseTimeRow{{EmployeeID: "E1", FullName: "Ali", CountTotal: 6}}, nil
}

func (f *fakeReports) Location() *time.Location { return time.UTC }
func (f *fakeReports) Thresholds() kpi.Thresholds { return kpi.DefaultThresholds }
func (f *fakeReports) Now() time.Time            { return testNow }

type fakeIdentities struct {
	bindReq    identity.BindRequest
	sinceDays  int
	autoCreate bool
	limit      int
	err        error
}

func (f *fakeIdentities) ListPending(_ context.Context, limit, _ int) ([]domain.EmployeeIdentity, error) {
	f.limit = limit

	return []domain.EmployeeIdentity{{ActorKey: "uid:5", HintName: "ali", HintTeam: "bonus", InsertedAt: testNow}}, f.err
}

func (f *fakeIdentities) Bind(_ context.Context, req identity.BindRequest) (*identity.BindResult, error) {
	f.bindReq = req
	if f.err != nil {
		return nil, f.err
	}

	return &identity.BindResult{ActorKey: req.ActorKey, EmployeeID: "E1", RetroDays: req.RetroDays}, nil
}

func (f *fakeIdentities) BackfillFromEvents(_ context.Context, sinceDays int, autoCreate bool) (*identity.BackfillResult, error) {
	f.sinceDays, f.autoCreate = sinceDays, autoCreate

	return &identity.BackfillResult{SinceDays: sinceDays, ScannedActors: 3, NewActorKeys: 1, PendingInserted: 1}, f.err
}

type fakeDispatcher struct {
	calls   []string
	day     schedule.Day
	sla     int
	trigger report.Trigger
	err     error
}

func (f *fakeDispatcher) SendDaily(_ context.Context, channel domain.Channel, day schedule.Day, sla int, trigger report.Trigger) (*report.Dispatch, error) {
	f.calls = append(f.calls, "daily:"+string(channel))
	f.day, f.sla, f.trigger = day, sla, trigger

	if f.err != nil {
		return nil, f.err
	}

	return &report.Dispatch{Channel: string(channel), Kind: report.KindDaily, Date: day.Label(), Delivered: 2}, nil
}

func (f *fakeDispatcher) SendPeriodic(_ context.Context, channel domain.Channel, end time.Time, _, _ int, trigger report.Trigger) (*report.Dispatch, error) {
	f.calls = append(f.calls, "periodic:"+string(channel))
	f.trigger = trigger

	if f.err != nil {
		return nil, f.err
	}

	return &report.Dispatch{Channel: string(channel), Date: end.Format("02.01.2006"), Window: "10:00-12:00", Delivered: 1}, nil
}

func (f *fakeDispatcher) SendAttendance(_ context.Context, day schedule.Day, trigger report.Trigger) (*report.Dispatch, error) {
	f.calls = append(f.calls, "attendance")
	f.day, f.trigger = day, trigger

	if f.err != nil {
		return nil, f.err
	}

	return &report.Dispatch{Channel: report.ChannelAttendance, Date: day.Label(), Delivered: 1}, nil
}

type fixture struct {
	ingester   *fakeIngester
	reports    *fakeReports
	identities *fakeIdentities
	dispatcher *fakeDispatcher
	events     *mocks.Store
	settings   *mocks.SettingsStore
	router     *gin.Engine
}

func newFixture(t *testing.T, mutate ...func(*config.HTTPConfig)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.HTTPConfig{WebhookSecret: testSecret, AdminAPIToken: testToken}
	for _, m := range mutate {
		m(&cfg)
	}

	f := &fixture{
		ingester:   &fakeIngester{},
		reports:    &fakeReports{},
		identities: &fakeIdentities{},
		dispatcher: &fakeDispatcher{},
		events:     mocks.NewStore(),
		settings:   mocks.NewSettingsStore(),
	}

	logger := zerolog.Nop()
	srv := NewServer(cfg, Deps{
		Ingester:   f.ingester,
		Reports:    f.reports,
		Identities: f.identities,
		Dispatcher: f.dispatcher,
		Events:     f.events,
		Settings:   f.settings,
	}, &logger)
	f.router = srv.Router()

	return f
}

func (f *fixture) do(t *testing.T, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, r)
	req.Header.Set(headerAdminKey, testToken)

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())

	return out
}

func TestWebhook(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		res        ingest.Result
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "wrong secret",
			secret:     "nope",
			wantStatus: http.StatusForbidden,
			wantBody:   map[string]any{"ok": false, "error": "forbidden"},
		},
		{
			name:       "update without message",
			secret:     testSecret,
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"ok": true},
		},
		{
			name:       "stored event",
			secret:     testSecret,
			res:        ingest.Result{HasMessage: true, Stored: true, Type: domain.EventOrigin, Channel: domain.ChannelBonus},
			wantStatus: http.StatusOK,
			wantBody:   map[string]any{"ok": true, "stored": true, "type": "origin", "channel": "bonus"},
		},
		{
			name:       "malformed update",
			secret:     testSecret,
			err:        fmt.Errorf("%w: decode update", errs.ErrInvalidInput),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store failure is hidden",
			secret:     testSecret,
			err:        fmt.Errorf("save raw message: %w", errTestStore),
			wantStatus: http.StatusInternalServerError,
			wantBody:   map[string]any{"ok": false, "error": msgInternalError},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ingester.res, f.ingester.err = tt.res, tt.err

			req := httptest.NewRequest(http.MethodPost, "/telegram/webhook/"+tt.secret, strings.NewReader(`{"update_id":1}`))
			w := httptest.NewRecorder()
			f.router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, decode(t, w))
			}
		})
	}
}

func TestWebhookPassesBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook/"+testSecret, strings.NewReader(`{"update_id":7}`))
	f.router.ServeHTTP(httptest.NewRecorder(), req)

	assert.JSONEq(t, `{"update_id":7}`, string(f.ingester.body))
}

func TestWebhookRejectsOversizedBody(t *testing.T) {
	f := newFixture(t)

	body := `{"update_id":7,"pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/telegram/webhook/"+testSecret, strings.NewReader(body))

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, decode(t, w)["error"], "payload too large")
	assert.Nil(t, f.ingester.body)
}

func TestAdminToken(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/bot/ping", nil)
		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		f := newFixture(t)

		req := httptest.NewRequest(http.MethodGet, "/admin/bot/ping", nil)
		req.Header.Set("Authorization", "Bearer "+testToken)

		w := httptest.NewRecorder()
		f.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"ok": true, "service": "admin-bot"}, decode(t, w))
	})

	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t, func(c *config.HTTPConfig) { c.AdminAPIToken = "" })

		w := f.do(t, http.MethodGet, "/reports/bonus/daily", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestHealthRoutesAreOpen(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestRequestIDIsKept(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(headerRequestID, "req-42")

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(headerRequestID))
}

func TestRateLimit(t *testing.T) {
	f := newFixture(t, func(c *config.HTTPConfig) {
		c.RateLimitRPS = 0.001
		c.RateLimitBurst = 1
	})

	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/admin/bot/ping", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodGet, "/admin/bot/ping", "").Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"forbidden", errs.ErrForbidden, http.StatusForbidden},
		{"invalid input", fmt.Errorf("wrap: %w", errs.ErrInvalidInput), http.StatusBadRequest},
		{"bad date", schedule.ErrInvalidDate, http.StatusBadRequest},
		{"disabled", &report.DisabledError{Channel: "bonus"}, http.StatusBadRequest},
		{"identity", errs.ErrIdentityNotFound, http.StatusNotFound},
		{"employee", errs.ErrEmployeeNotFound, http.StatusNotFound},
		{"send failed", fmt.Errorf("%w: timeout", errs.ErrSendFailed), http.StatusBadGateway},
		{"no recipients", errs.ErrNoRecipients, http.StatusBadGateway},
		{"too large", fmt.Errorf("%w: read body", errs.ErrPayloadTooLarge), http.StatusRequestEntityTooLarge},
		{"other", errTestStore, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusOf(tt.err))
		})
	}
}
