package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio/internal/models/pfapp"
	"portfolio/internal/models/pfconfig"
	"portfolio/internal/models/pfstore"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============= Setup =============

func setupTestApp(t *testing.T, edit func(*pfconfig.Config)) (*gin.Engine, *pfapp.App) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conf := &pfconfig.Config{
		Database: pfconfig.DatabaseConfig{Db: "sqlite", Path: ":memory:"},
		Session:  pfconfig.SessionConfig{Secret: "0123456789abcdef0123456789abcdef"},
		Cors:     pfconfig.CorsConfig{Origins: []string{"https://ada.dev"}},
	}
	if edit != nil {
		edit(conf)
	}
	require.NoError(t, pfconfig.Validate(conf))

	db, err := pfstore.OpenMemory()
	require.NoError(t, err)

	app, err := pfapp.NewWithDB(context.Background(), conf, db)
	require.NoError(t, err)
	t.Cleanup(func() { app.Close() })

	r := newServer(conf)
	require.NoError(t, setRoutes(r, app))
	return r, app
}

func request(t *testing.T, r http.Handler, method, path, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.RemoteAddr = "203.0.113.7:41000"
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

// ============= Scénarios =============

func TestContactScenario(t *testing.T) {
	r, _ := setupTestApp(t, nil)

	w, resp := request(t, r, http.MethodPost, "/api/messages",
		`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "Message sent successfully", resp["message"])
	id := resp["id"]
	assert.NotNil(t, id)

	_, resp = request(t, r, http.MethodGet, "/api/messages", "")
	messages := resp["messages"].([]any)
	require.Len(t, messages, 1)
	msg := messages[0].(map[string]any)
	assert.Equal(t, "Ada", msg["name"])
	assert.Equal(t, "No Subject", msg["subject"])
	assert.Equal(t, false, msg["read_status"])

	_, resp = request(t, r, http.MethodGet, "/api/messages/count", "")
	assert.Equal(t, float64(1), resp["count"])

	_, resp = request(t, r, http.MethodGet, "/api/views/analytics?days=7", "")
	days := resp["analytics"].([]any)
	require.Len(t, days, 1)
	assert.Equal(t, float64(1), days[0].(map[string]any)["messages_received"])

	w, resp = request(t, r, http.MethodPost, "/api/messages", `{"name":"Ada","email":"nope","message":"Hello"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid email format", resp["message"])
}

func TestViewScenario(t *testing.T) {
	r, _ := setupTestApp(t, nil)

	w, resp := request(t, r, http.MethodPost, "/api/views", `{"referrer":"https://news.ycombinator.com"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "View tracked successfully", resp["message"])
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	w, _ = request(t, r, http.MethodPost, "/api/views", "", cookies...)
	require.Equal(t, http.StatusOK, w.Code)

	_, resp = request(t, r, http.MethodGet, "/api/views/count", "")
	assert.Equal(t, float64(2), resp["count"])

	_, resp = request(t, r, http.MethodGet, "/api/views/visitors/count", "")
	assert.Equal(t, float64(1), resp["count"])

	_, resp = request(t, r, http.MethodGet, "/api/views/realtime", "")
	assert.Equal(t, float64(2), resp["views"])
	assert.Equal(t, "database", resp["source"])
}

func TestHealthAndStatic(t *testing.T) {
	r, _ := setupTestApp(t, nil)

	w, resp := request(t, r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "connected", resp["database"])

	w, _ = request(t, r, http.MethodGet, "/files/js/api.js", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "javascript")

	w, resp = request(t, r, http.MethodGet, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, resp["success"])

	_, resp = request(t, r, http.MethodGet, "/api/captcha", "")
	assert.Equal(t, false, resp["enabled"])
}

func TestCaptchaRequired(t *testing.T) {
	r, _ := setupTestApp(t, func(c *pfconfig.Config) { c.Contact.Captcha = true })

	w, resp := request(t, r, http.MethodPost, "/api/messages",
		`{"name":"Ada","email":"ada@example.com","message":"Hello"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Captcha is required", resp["message"])

	_, resp = request(t, r, http.MethodGet, "/api/captcha", "")
	assert.Equal(t, true, resp["enabled"])
	assert.NotEmpty(t, resp["captcha_id"])
	// hors production la réponse est fournie
	answer, ok := resp["answer"].(string)
	require.True(t, ok)

	body, err := json.Marshal(map[string]string{
		"name": "Ada", "email": "ada@example.com", "message": "Hello",
		"captcha_id": resp["captcha_id"].(string), "captcha_answer": answer,
	})
	require.NoError(t, err)
	w, _ = request(t, r, http.MethodPost, "/api/messages", string(body))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCORS(t *testing.T) {
	r, _ := setupTestApp(t, func(c *pfconfig.Config) { c.Production = true })

	req := httptest.NewRequest(http.MethodGet, "/api/views/count", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodOptions, "/api/messages", nil)
	req.Header.Set("Origin", "https://ada.dev")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://ada.dev", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	r, _ := setupTestApp(t, func(c *pfconfig.Config) { c.Contact.RateLimit = 1 })

	body := `{"name":"Ada","email":"ada@example.com","message":"Hello"}`
	w, _ := request(t, r, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusOK, w.Code)
	w, resp := request(t, r, http.MethodPost, "/api/messages", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, false, resp["success"])

	// la lecture n'est pas limitée
	w, _ = request(t, r, http.MethodGet, "/api/messages", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsServer(t *testing.T) {
	r, app := setupTestApp(t, func(c *pfconfig.Config) { c.Listen.Metrics = "127.0.0.1:0" })

	request(t, r, http.MethodPost, "/api/views", "{}")
	request(t, r, http.MethodGet, "/api/views/count", "")

	srv := newMetricsServer(app.Config, app)
	w := httptest.NewRecorder()
	srv.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "portfolio_views_recorded_total 1")
	assert.Contains(t, body, `route="/api/views/count"`)
}
