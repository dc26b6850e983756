package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"health-report-service/apperr"
	"health-report-service/config"
	"health-report-service/models"
)

func TestNewSelectsBackend(t *testing.T) {
	tests := []struct {
		provider string
		source   string
	}{
		{"", "OpenRouter"},
		{"openrouter", "OpenRouter"},
		{"openai", "OpenRouter"},
		{"gemini", "Gemini"},
		{"stub", "Stub"},
	}
	for _, tt := range tests {
		s, err := New(&config.Config{AIProvider: tt.provider})
		require.NoError(t, err, tt.provider)
		assert.Equal(t, tt.source, s.SourceName(), tt.provider)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(&config.Config{AIProvider: "grok"})
	assert.True(t, apperr.Is(err, apperr.KindConfiguration))
}

func TestStubIsDeterministicAndBounded(t *testing.T) {
	s, err := New(&config.Config{AIProvider: "stub"})
	require.NoError(t, err)

	for _, data := range []string{"a", "bb", "ccc", "aGVsbG8="} {
		img := &models.ImagePayload{Data: data, MediaType: "image/jpeg"}
		first, err := s.ScoreWound(context.Background(), img)
		require.NoError(t, err)
		second, err := s.ScoreWound(context.Background(), img)
		require.NoError(t, err)

		assert.Equal(t, first.SeverityScore, second.SeverityScore)
		assert.GreaterOrEqual(t, first.SeverityScore, 0)
		assert.LessOrEqual(t, first.SeverityScore, 100)
	}
}
