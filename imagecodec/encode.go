package imagecodec

import (
	"encoding/base64"
	"errors"
	"io/fs"
	"net/http"
	"os"

	"health-report-service/apperr"
	"health-report-service/models"
)

const defaultMediaType = "image/jpeg"

// EncodeImage reads the whole file and returns it as base64 text tagged with mediaType.
func EncodeImage(filePath, mediaType string) (*models.ImagePayload, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// A vanished upload is the client's problem, not a missing API resource.
			return nil, apperr.Wrap(apperr.KindNotFound, err, "file not found at path: %s", filePath).
				WithStatus(http.StatusBadRequest)
		}
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to read image %s", filePath)
	}

	if mediaType == "" {
		mediaType = defaultMediaType
	}

	return &models.ImagePayload{
		Data:      base64.StdEncoding.EncodeToString(data),
		MediaType: mediaType,
	}, nil
}
