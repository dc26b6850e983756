package stub

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"health-report-service/apperr"
	"health-report-service/models"
	"health-report-service/parser"
)

// Client is a deterministic, no-network scorer for local runs and tests.
// The same image always gets the same score.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) SourceName() string { return "Stub" }

func (c *Client) ScoreWound(ctx context.Context, image *models.ImagePayload) (*models.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindNetwork, err, "scoring cancelled")
	}
	if image == nil || image.Data == "" {
		return nil, apperr.New(apperr.KindValidation, "missing image")
	}

	sum := sha256.Sum256([]byte(image.Data))
	score := int(binary.BigEndian.Uint64(sum[:8]) % (parser.MaxSeverity + 1))

	return &models.ScoreResult{
		SeverityScore: score,
		Reasoning:     fmt.Sprintf("stubbed assessment (%x)", sum[:4]),
	}, nil
}
