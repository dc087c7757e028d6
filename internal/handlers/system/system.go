package handlers_system

import (
	"context"
	"net/http"
	"time"

	"portfolio/internal/models/pfstore"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const pingTimeout = 2 * time.Second

type SystemHandler struct {
	db    *gorm.DB
	redis *redis.Client
	now   func() time.Time
}

// NewSystemHandler accepte un client redis nil
func NewSystemHandler(db *gorm.DB, client *redis.Client) *SystemHandler {
	return &SystemHandler{db: db, redis: client, now: time.Now}
}

// Health répond toujours 200, l'état des dépendances est dans le corps
func (sh *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	database := "connected"
	if err := pfstore.Ping(ctx, sh.db); err != nil {
		log.Warn().Err(err).Msg("health: base injoignable")
		database = "disconnected"
	}

	body := gin.H{
		"status":    "ok",
		"database":  database,
		"timestamp": sh.now().UTC().Format(time.RFC3339),
	}
	if sh.redis != nil {
		body["redis"] = "connected"
		if err := sh.redis.Ping(ctx).Err(); err != nil {
			body["redis"] = "disconnected"
		}
	}

	c.JSON(http.StatusOK, body)
}

// NotFound pour les routes inconnues
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"success": false,
		"message": "Route not found",
	})
}
