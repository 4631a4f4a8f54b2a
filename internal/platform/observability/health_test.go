package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

func newTestEngine(p Pinger) *gin.Engine {
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	RegisterRoutes(engine, p)

	return engine
}

func TestHealthRoutes(t *testing.T) {
	tests := []struct {
		name     string
		pinger   Pinger
		path     string
		wantCode int
	}{
		{name: "healthz", pinger: fakePinger{}, path: "/healthz", wantCode: http.StatusOK},
		{name: "ready", pinger: fakePinger{}, path: "/readyz", wantCode: http.StatusOK},
		{name: "not ready", pinger: fakePinger{err: errors.New("down")}, path: "/readyz", wantCode: http.StatusServiceUnavailable},
		{name: "metrics", pinger: fakePinger{}, path: "/metrics", wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)

			newTestEngine(tt.pinger).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
