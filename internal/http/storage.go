package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"castenobar/internal/storage"
)

// PUT /v1/storage/photos/:owner/:file?overwrite=true
func (s *Server) uploadPhoto(c *gin.Context) {
	owner := c.Param("owner")
	if owner != identityID(c) {
		c.JSON(403, gin.H{"error": "forbidden"})
		return
	}
	overwrite, _ := strconv.ParseBool(c.Query("overwrite"))
	body := http.MaxBytesReader(c.Writer, c.Request.Body, s.cfg.MaxUploadMB*1024*1024)

	ctx, cancel := s.requestContext(c)
	defer cancel()
	key, err := s.blobs.Upload(ctx, owner+"/"+c.Param("file"), body, overwrite)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge), errors.Is(err, storage.ErrTooLarge):
			c.JSON(413, gin.H{"error": "file too large"})
		case errors.Is(err, storage.ErrInvalidPath):
			c.JSON(400, gin.H{"error": "invalid_path"})
		case errors.Is(err, storage.ErrExists):
			c.JSON(409, gin.H{"error": "object_exists"})
		default:
			s.logger.Error("upload photo", zap.Error(err))
			c.JSON(500, gin.H{"error": "failed to save file"})
		}
		return
	}
	c.JSON(200, gin.H{"path": key, "url": s.blobs.PublicURL(key)})
}
