package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OxMxDev/portfolio/internal/apperror"
	"github.com/OxMxDev/portfolio/internal/ratelimit"
	"github.com/OxMxDev/portfolio/internal/server/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestHashIP(t *testing.T) {
	a := HashIP("203.0.113.7", "salt")
	assert.Len(t, a, 16)
	assert.Equal(t, a, HashIP("203.0.113.7", "salt"))
	assert.NotEqual(t, a, HashIP("203.0.113.7", "other"))
	assert.NotContains(t, a, "203")
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), AccessLog(log, "salt"))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/static/app.js", func(c *gin.Context) { c.String(http.StatusOK, "js") })

	tests := []struct {
		name        string
		path        string
		dnt         bool
		wantLine    bool
		wantVisitor bool
	}{
		{name: "page", path: "/", wantLine: true, wantVisitor: true},
		{name: "do not track", path: "/", dnt: true, wantLine: true},
		{name: "static asset", path: "/static/app.js"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.dnt {
				req.Header.Set("DNT", "1")
			}
			r.ServeHTTP(httptest.NewRecorder(), req)

			if !tt.wantLine {
				assert.Zero(t, buf.Len())
				return
			}
			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, "request", line["msg"])
			assert.Equal(t, float64(http.StatusOK), line["status"])
			assert.NotEmpty(t, line["request_id"])
			_, hasVisitor := line["visitor"]
			assert.Equal(t, tt.wantVisitor, hasVisitor)
			assert.NotContains(t, buf.String(), "192.0.2.1")
		})
	}
}

func TestRequestIDReusesValidHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, response.RequestID(c)) })

	const id = "3f1c1a8e-5a7b-4c43-9b2e-0d4a9f1e2c3b"
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, id, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.NotEqual(t, "<script>", w.Body.String())
	assert.Len(t, w.Body.String(), 36)
}

func TestErrorHandler(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	r := gin.New()
	r.Use(ErrorHandler(log))
	r.GET("/app", func(c *gin.Context) { c.Error(apperror.Conflict("busy")) })
	r.GET("/raw", func(c *gin.Context) { c.Error(errors.New("db password leaked")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/app", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"busy"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/raw", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRecovery(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	r := gin.New()
	r.Use(Recovery(log))
	r.GET("/", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://om.dev"}))
	r.POST("/api", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api", nil)
	req.Header.Set("Origin", "https://om.dev")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://om.dev", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodPost, "/api", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	log := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	l := ratelimit.New(ratelimit.Config{Limit: 2, Window: time.Minute})
	r := gin.New()
	r.Use(RateLimit(l, log))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}
