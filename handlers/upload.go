package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"health-report-service/apperr"
	"health-report-service/metrics"
	"health-report-service/models"
)

const (
	fieldWoundImage = "wound_image"
	fieldEvidence   = "bukti_pendukung"
)

var unsafeExt = regexp.MustCompile(`[^a-z0-9.]`)

// Uploader persists multipart image files under a directory.
type Uploader struct {
	dir      string
	maxBytes int64
}

// NewUploader creates the upload directory if needed.
func NewUploader(dir string, maxBytes int64) (*Uploader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &Uploader{dir: dir, maxBytes: maxBytes}, nil
}

// Dir is the directory uploads are written to.
func (u *Uploader) Dir() string {
	return u.dir
}

// limitBody caps the request body to what the given number of files may take.
func (u *Uploader) limitBody(c *gin.Context, files int) {
	const formOverhead = 1 << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, int64(files)*u.maxBytes+formOverhead)
}

// Save stores the file sent in field. It returns nil, nil for an absent optional file.
func (u *Uploader) Save(c *gin.Context, field string, required bool) (*models.UploadedFile, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if required {
				return nil, apperr.New(apperr.KindValidation, "Image file (%s) is required.", field)
			}
			return nil, nil
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.UploadsRejectedTotal.WithLabelValues("too_large").Inc()
			return nil, apperr.Wrap(apperr.KindValidation, err, "File too large")
		}
		return nil, apperr.Wrap(apperr.KindValidation, err, "invalid multipart form")
	}

	if err := u.check(header); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%d-%s-%s%s", time.Now().UnixMilli(), field, uuid.NewString(), extension(header.Filename))
	dst := filepath.Join(u.dir, name)
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to save upload %s", field)
	}

	return &models.UploadedFile{
		FieldName:    field,
		OriginalName: header.Filename,
		Path:         dst,
		MediaType:    header.Header.Get("Content-Type"),
		Size:         header.Size,
	}, nil
}

func (u *Uploader) check(header *multipart.FileHeader) error {
	if header.Size > u.maxBytes {
		metrics.UploadsRejectedTotal.WithLabelValues("too_large").Inc()
		return apperr.New(apperr.KindValidation, "File too large, limit is %d bytes", u.maxBytes)
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		metrics.UploadsRejectedTotal.WithLabelValues("not_image").Inc()
		return apperr.New(apperr.KindValidation, "Only image files are allowed!")
	}
	return nil
}

// Remove deletes saved files, ignoring the ones already gone.
func (u *Uploader) Remove(files ...*models.UploadedFile) {
	for _, f := range files {
		if f == nil {
			continue
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("path", f.Path).Warn("Failed to remove upload")
		}
	}
}

func extension(filename string) string {
	ext := unsafeExt.ReplaceAllString(strings.ToLower(filepath.Ext(filename)), "")
	if len(ext) > 8 {
		ext = ext[:8]
	}
	return ext
}
