package validators

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrFileTooLarge    = errors.New("file too large")
	ErrFileNameTooLong = errors.New("file name is too long")
	ErrFileNameEmpty   = errors.New("file name is empty")
	ErrNoFile          = errors.New("no file provided")
)

const maxFileNameSize = 255

// FileValidator checks a single multipart file and returns the MIME type to
// store for it. The declared Content-Type wins unless it's missing or generic,
// then the content is sniffed.
func FileValidator(fh *multipart.FileHeader, maxSize int64) (int, string, error) {
	if fh == nil {
		return http.StatusBadRequest, "", ErrNoFile
	}

	if strings.TrimSpace(fh.Filename) == "" {
		return http.StatusBadRequest, "", ErrFileNameEmpty
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, "", ErrFileNameTooLong
	}

	if fh.Size > maxSize {
		return http.StatusRequestEntityTooLarge, "", ErrFileTooLarge
	}

	ct := fh.Header.Get("Content-Type")
	if ct != "" && ct != "application/octet-stream" {
		return 0, ct, nil
	}

	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, "", err
	}
	defer f.Close()

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		return http.StatusInternalServerError, "", err
	}

	return 0, mime.String(), nil
}
