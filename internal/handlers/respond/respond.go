package handlers_respond

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"portfolio/internal/models/pferrors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// OK répond 200 avec success=true et les données fournies
func OK(c *gin.Context, data gin.H) {
	body := gin.H{"success": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error traduit err: 400 avec son message pour une erreur de validation,
// 500 avec message sinon. Le détail n'est exposé que hors production.
func Error(c *gin.Context, err error, message string, production bool) {
	if pferrors.IsValidation(err) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	log.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	_ = c.Error(err)

	body := gin.H{
		"success": false,
		"message": message,
	}
	if !production {
		body["error"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

// BindJSON accepte un corps vide, refuse un JSON invalide
func BindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return pferrors.Validation("Invalid request body")
	}
	return nil
}

// ParseID lit un identifiant entier strictement positif, borné à MaxInt64 pour la base
func ParseID(c *gin.Context, key string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(key), 10, 63)
	if err != nil || id == 0 {
		return 0, pferrors.Validation("Invalid %s", key)
	}
	return uint(id), nil
}
