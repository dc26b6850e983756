package parser

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"health-report-service/apperr"
	"health-report-service/models"
)

const (
	MinSeverity = 0
	MaxSeverity = 100
)

// ExtractJSONFromMarkdown returns the content of the first code block, or the outermost
// JSON object when the response is not fenced.
func ExtractJSONFromMarkdown(response string) string {
	const fence = "```"

	startIdx := strings.Index(response, fence)
	if startIdx == -1 {
		startIdx = strings.Index(response, "{")
		endIdx := strings.LastIndex(response, "}")
		if startIdx == -1 || endIdx < startIdx {
			return strings.TrimSpace(response)
		}
		return strings.TrimSpace(response[startIdx : endIdx+1])
	}

	rest := response[startIdx+len(fence):]
	endIdx := strings.Index(rest, fence)
	if endIdx == -1 {
		// Unterminated fence, keep what follows it.
		endIdx = len(rest)
	}
	content := rest[:endIdx]

	// Drop a language tag such as "json" on the opening line.
	if nl := strings.Index(content, "\n"); nl != -1 {
		if tag := strings.TrimSpace(content[:nl]); tag == "" || !strings.ContainsAny(tag, "{[") {
			content = content[nl+1:]
		}
	}

	return strings.TrimSpace(content)
}

// ParseScore decodes a model reply into a ScoreResult. The score must be a JSON number
// inside [MinSeverity, MaxSeverity]; fractional values are rounded, nothing is clamped.
func ParseScore(response string) (*models.ScoreResult, error) {
	content := ExtractJSONFromMarkdown(strings.TrimSpace(response))

	dec := json.NewDecoder(bytes.NewReader([]byte(content)))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, apperr.Wrap(apperr.KindMalformedResponse, err, "failed to parse JSON response")
	}

	value, ok := raw["severity_score"]
	if !ok || value == nil {
		return nil, apperr.New(apperr.KindMalformedResponse, "severity_score is missing from response")
	}

	num, ok := value.(json.Number)
	if !ok {
		return nil, apperr.New(apperr.KindInvalidScore, "severity_score must be a number, got %v", value)
	}
	f, err := num.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, apperr.New(apperr.KindInvalidScore, "severity_score is not a finite number: %s", num)
	}
	if f < MinSeverity || f > MaxSeverity {
		return nil, apperr.New(apperr.KindInvalidScore, "severity_score must be between %d and %d, got %s",
			MinSeverity, MaxSeverity, num)
	}

	result := &models.ScoreResult{SeverityScore: int(math.Round(f))}
	if reasoning, ok := raw["reasoning"].(string); ok {
		result.Reasoning = reasoning
	}
	return result, nil
}
