package pfmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"portfolio/internal/models/pfmetrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGenerateSecretKey(t *testing.T) {
	key := generateSecretKey()
	assert.Len(t, key, 32)

	key2 := generateSecretKey()
	assert.NotEqual(t, key, key2)
}

func corsRouter(origins []string, production bool) *gin.Engine {
	r := gin.New()
	r.Use(CORS(origins, production))
	r.GET("/api/views/count", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"success": true}) })
	return r
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		origins    []string
		production bool
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"sans origine", nil, true, "", http.StatusOK, ""},
		{"origine configurée", []string{"https://ada.dev/"}, true, "https://ada.dev", http.StatusOK, "https://ada.dev"},
		{"joker", []string{"*"}, true, "https://evil.example", http.StatusOK, "https://evil.example"},
		{"localhost en dev", nil, false, "http://localhost:5500", http.StatusOK, "http://localhost:5500"},
		{"127.0.0.1 en dev", nil, false, "http://127.0.0.1:8080", http.StatusOK, "http://127.0.0.1:8080"},
		{"localhost en production", nil, true, "http://localhost:5500", http.StatusForbidden, ""},
		{"origine inconnue", []string{"https://ada.dev"}, false, "https://evil.example", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/views/count", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			corsRouter(tt.origins, tt.production).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/views/count", nil)
	req.Header.Set("Origin", "https://ada.dev")
	corsRouter([]string{"https://ada.dev"}, true).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestNewLimiter(t *testing.T) {
	r := gin.New()
	r.POST("/api/messages", NewLimiter(2), func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/messages", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Contains(t, w.Body.String(), `"success":false`)
		}
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestNewLimiterDisabled(t *testing.T) {
	r := gin.New()
	r.POST("/api/messages", NewLimiter(0), func(c *gin.Context) { c.Status(http.StatusCreated) })

	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/messages", nil))
		assert.Equal(t, http.StatusCreated, w.Code)
	}
}

func TestSessionID(t *testing.T) {
	r := gin.New()
	r.Use(NewSession("0123456789abcdef0123456789abcdef", false))
	r.GET("/sid", func(c *gin.Context) { c.String(http.StatusOK, SessionID(c)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sid", nil))
	require.Equal(t, http.StatusOK, w.Code)
	first := w.Body.String()
	assert.Len(t, first, 36)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sid", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	r.ServeHTTP(w, req)
	assert.Equal(t, first, w.Body.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestInitMiddleware(t *testing.T) {
	m := pfmetrics.New()
	r := gin.New()
	InitMiddleware(r, Options{Metrics: m})
	r.GET("/api/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	srv := httptest.NewRecorder()
	m.Handler().ServeHTTP(srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, srv.Body.String(), `route="/api/health"`)
}
