package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_MiddlewareAndScrapeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := gin.New()
	p := NewPrometheus(NewPrometheusOptions{
		ReqCntURLLabelMappingFn: func(c *gin.Context) string { return c.FullPath() },
	})
	p.Use(e)
	e.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	e.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "req_total")
	require.Contains(t, w.Body.String(), "req_dur_ms")
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/redeem", strings.NewReader(`{"code":"CW-ABC12345"}`))
	req.Header.Set("Content-Type", "application/json")

	size := computeApproximateRequestSize(req)
	// At least the path, method, proto, host, header, and body lengths.
	require.Greater(t, size, len("/redeem")+len(http.MethodPost)+int(req.ContentLength))
}

func TestMillisecondsSince(t *testing.T) {
	start := time.Now().Add(-250 * time.Millisecond)
	elapsed := MillisecondsSince(start)
	require.GreaterOrEqual(t, elapsed, 250.0)
	require.Less(t, elapsed, 10_000.0)
}
