package handlers_static

import (
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed js
var staticFS embed.FS

type asset struct {
	contentType string
	content     []byte
	etag        string
}

// StaticHandler sert les scripts embarqués, minifiés une seule fois au démarrage
type StaticHandler struct {
	assets map[string]asset
}

func NewStaticHandler() (*StaticHandler, error) {
	m := minify.New()
	m.AddFunc("application/javascript", js.Minify)

	h := &StaticHandler{assets: map[string]asset{}}
	err := fs.WalkDir(staticFS, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		content, err := staticFS.ReadFile(name)
		if err != nil {
			return err
		}

		contentType := "application/octet-stream"
		if path.Ext(name) == ".js" {
			contentType = "application/javascript"
			if minified, err := m.Bytes(contentType, content); err != nil {
				log.Warn().Err(err).Str("file", name).Msg("minification impossible")
			} else {
				content = minified
			}
		}

		h.assets[name] = asset{
			contentType: contentType,
			content:     content,
			etag:        generateETag(content),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Serve répond sur /files/*filepath
func (h *StaticHandler) Serve(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("filepath"), "/")
	a, ok := h.assets[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "File not found"})
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	c.Header("ETag", a.etag)
	if c.GetHeader("If-None-Match") == a.etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, a.contentType, a.content)
}

// Fonction helper pour générer un ETag
func generateETag(content []byte) string {
	hash := sha256.Sum256(content)
	return fmt.Sprintf(`"%x"`, hash[:16])
}
