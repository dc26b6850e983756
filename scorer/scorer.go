// Package scorer turns a wound photo into a bounded severity score using an external model.
package scorer

import (
	"context"

	"github.com/apex/log"

	"health-report-service/apperr"
	"health-report-service/config"
	"health-report-service/models"
	"health-report-service/scorer/gemini"
	"health-report-service/scorer/openrouter"
	"health-report-service/scorer/stub"
)

// Scorer abstracts the severity model.
// Implementations must be concurrency-safe.
type Scorer interface {
	// ScoreWound returns a severity in [0,100] for the image. It never clamps.
	ScoreWound(ctx context.Context, image *models.ImagePayload) (*models.ScoreResult, error)
	// SourceName returns a short provider label for logs and metrics.
	SourceName() string
}

// New builds the scorer selected by cfg.AIProvider.
func New(cfg *config.Config) (Scorer, error) {
	switch cfg.AIProvider {
	case "", "openrouter", "openai":
		return openrouter.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout), nil
	case "gemini":
		return gemini.NewClient(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout), nil
	case "stub":
		log.Warn("Using stub scorer, severity scores are not real")
		return stub.NewClient(), nil
	}
	return nil, apperr.New(apperr.KindConfiguration, "unknown AI provider %q", cfg.AIProvider)
}
