package pfmiddleware

import (
	"crypto/rand"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"portfolio/internal/models/pfmetrics"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

const (
	sessionName  = "portfolio"
	sessionIDKey = "sid"
)

type Options struct {
	Production bool
	Origins    []string
	Secret     string
	Metrics    *pfmetrics.Metrics
}

func InitMiddleware(r *gin.Engine, opts Options) {
	r.Use(Logger())
	r.Use(Recovery())
	r.Use(Metrics(opts.Metrics))

	// CORS avant gzip: les preflight n'ont pas de corps
	r.Use(CORS(opts.Origins, opts.Production))
	r.Use(gzip.Gzip(gzip.BestSpeed))

	r.Use(NewSession(opts.Secret, opts.Production))
}

// CORS autorise les origines configurées, "*" pour toutes, et localhost hors production
func CORS(origins []string, production bool) gin.HandlerFunc {
	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		allowed = append(allowed, trimOrigin(o))
	}
	wildcard := slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		if !wildcard && !slices.Contains(allowed, origin) && (production || !isLocalOrigin(origin)) {
			log.Warn().Str("origin", origin).Msg("origine refusée")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Not allowed by CORS",
			})
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func isLocalOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// NewLimiter limite les requêtes par IP et par minute. perMinute <= 0 désactive la limite.
func NewLimiter(perMinute int64) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rate := limiter.Rate{
		Period: time.Minute,
		Limit:  perMinute,
	}
	instance := limiter.New(memory.NewStore(), rate)
	return ginlimiter.NewMiddleware(instance,
		ginlimiter.WithLimitReachedHandler(func(c *gin.Context) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
			})
		}),
	)
}

func NewSession(secret string, production bool) gin.HandlerFunc {
	key := []byte(secret)
	if len(key) == 0 {
		key = generateSecretKey()
	}
	store := cookie.NewStore(key)
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400,
		HttpOnly: true,
		Secure:   production,
		SameSite: http.SameSiteLaxMode,
	})
	return sessions.Sessions(sessionName, store)
}

// SessionID retourne l'identifiant de session serveur, créé au premier appel
func SessionID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(sessionIDKey).(string); ok && id != "" {
		return id
	}

	id := uuid.NewString()
	session.Set(sessionIDKey, id)
	if err := session.Save(); err != nil {
		log.Warn().Err(err).Msg("session non sauvegardée")
	}
	return id
}

func Metrics(m *pfmetrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		statusCode := c.Writer.Status()

		var logEvent *zerolog.Event
		switch {
		case statusCode == http.StatusNotFound:
			logEvent = log.Debug()
		case statusCode >= 500:
			logEvent = log.Error()
		case statusCode >= 400:
			logEvent = log.Warn()
		default:
			logEvent = log.Info()
		}

		logEvent.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Int("body_size", c.Writer.Size()).
			Msg("HTTP Request")

		for _, err := range c.Errors {
			log.Error().
				Err(err.Err).
				Str("type", strconv.FormatUint(uint64(err.Type), 10)).
				Msg("Request error")
		}
	}
}

func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("path", c.Request.URL.Path).
					Str("method", c.Request.Method).
					Msg("Panic recovered")

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"message": "Internal server error",
				})
			}
		}()
		c.Next()
	}
}

// Générer une clé secrète aléatoire
func generateSecretKey() []byte {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatal().Err(err).Msg("Erreur génération clé secrète")
	}
	return key
}

func trimOrigin(origin string) string {
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}
