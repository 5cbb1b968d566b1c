package file

import (
	"bitwise74/filehub/app/response"
	"bitwise74/filehub/internal"
	"bitwise74/filehub/internal/service"
	"bitwise74/filehub/pkg/validators"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func FileUpload(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	form, err := c.MultipartForm()
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error":     "Request body size exceeds limit",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No files provided",
			"requestID": requestID,
		})

		zap.L().Debug("Failed to parse multipart form", zap.String("requestID", requestID), zap.Error(err))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No files provided",
			"requestID": requestID,
		})
		return
	}

	if len(headers) > d.Limits.MaxFiles {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     fmt.Sprintf("Too many files, at most %d per upload", d.Limits.MaxFiles),
			"requestID": requestID,
		})
		return
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		code, mime, err := validators.FileValidator(fh, d.Limits.MaxUploadSize)
		if err != nil {
			c.JSON(code, gin.H{
				"error":     fmt.Sprintf("%s: %s", fh.Filename, err.Error()),
				"requestID": requestID,
			})
			return
		}

		files = append(files, service.UploadFile{
			Name:        fh.Filename,
			Size:        fh.Size,
			ContentType: mime,
			Open:        opener(fh),
		})
	}

	res, err := d.Files.Upload(c.Request.Context(), userID, files)
	if err != nil {
		response.Error(c, err)
		return
	}

	msg := fmt.Sprintf("%d file(s) uploaded successfully", len(res.Files))
	if res.Dropped > 0 {
		msg += fmt.Sprintf(", %d failed", res.Dropped)
	}

	c.JSON(http.StatusOK, gin.H{
		"files":   res.Files,
		"message": msg,
	})
}

func opener(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
