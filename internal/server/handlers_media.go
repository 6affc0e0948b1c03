package server

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"guess-character/internal/domain"
	"guess-character/internal/images"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

func (s *Server) uploadDir() string {
	if local, ok := s.images.(*images.Local); ok {
		return local.Dir()
	}
	return s.cfg.UploadDir
}

// handleUpload serves locally stored images. Names that escape the upload
// directory are refused.
func (s *Server) handleUpload(c *gin.Context) {
	name := strings.TrimPrefix(c.Param("path"), "/")
	if name == "" {
		c.Status(http.StatusNotFound)
		return
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) || filepath.IsAbs(name) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	path := filepath.Join(s.uploadDir(), name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Status(http.StatusNotFound)
			return
		}
		log.Error().Err(err).Str("file", name).Msg("read upload")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Data(http.StatusOK, images.ContentType(filepath.Ext(name)), data)
}

func (s *Server) handleGameQR(c *gin.Context) {
	id, ok := bindURI(c)
	if !ok {
		return
	}
	if _, err := s.store.GameConfig(c.Request.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.Status(http.StatusNotFound)
			return
		}
		respondError(c, err, "Failed to load game")
		return
	}
	png, err := qrcode.Encode(playURL(c.Request, id), qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("game_id", id).Msg("qr generation failed")
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
