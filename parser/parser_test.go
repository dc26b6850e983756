package parser

import (
	"testing"

	"health-report-service/apperr"
)

func TestParseScore(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		wantScore int
		wantKind  apperr.Kind
		reasoning string
	}{
		{
			name:      "plain JSON",
			response:  `{"severity_score": 42, "reasoning": "luka sedang"}`,
			wantScore: 42,
			reasoning: "luka sedang",
		},
		{
			name:      "fenced JSON with language tag",
			response:  "```json\n{\"severity_score\": 87, \"reasoning\": \"infeksi\"}\n```",
			wantScore: 87,
			reasoning: "infeksi",
		},
		{
			name:      "fenced JSON without tag",
			response:  "```\n{\"severity_score\": 0}\n```",
			wantScore: 0,
		},
		{
			name:      "prose around object",
			response:  "Here is the result: {\"severity_score\": 100} hope it helps",
			wantScore: 100,
		},
		{
			name:      "fraction rounds",
			response:  `{"severity_score": 42.6}`,
			wantScore: 43,
		},
		{
			name:     "above range",
			response: `{"severity_score": 150}`,
			wantKind: apperr.KindInvalidScore,
		},
		{
			name:     "below range",
			response: `{"severity_score": -1}`,
			wantKind: apperr.KindInvalidScore,
		},
		{
			name:     "string score",
			response: `{"severity_score": "42"}`,
			wantKind: apperr.KindInvalidScore,
		},
		{
			name:     "missing field",
			response: `{"reasoning": "no score"}`,
			wantKind: apperr.KindMalformedResponse,
		},
		{
			name:     "null score",
			response: `{"severity_score": null}`,
			wantKind: apperr.KindMalformedResponse,
		},
		{
			name:     "not JSON",
			response: "I cannot assess this image.",
			wantKind: apperr.KindMalformedResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseScore(tt.response)
			if tt.wantKind != "" {
				if err == nil {
					t.Fatalf("expected %s error, got result %+v", tt.wantKind, result)
				}
				if got := apperr.KindOf(err); got != tt.wantKind {
					t.Errorf("expected kind %s, got %s (%v)", tt.wantKind, got, err)
				}
				if apperr.HTTPStatus(err) != 503 {
					t.Errorf("expected status 503, got %d", apperr.HTTPStatus(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.SeverityScore != tt.wantScore {
				t.Errorf("expected score %d, got %d", tt.wantScore, result.SeverityScore)
			}
			if result.Reasoning != tt.reasoning {
				t.Errorf("expected reasoning %q, got %q", tt.reasoning, result.Reasoning)
			}
		})
	}
}

func TestExtractJSONFromMarkdown(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"```{\"a\":1}```", `{"a":1}`},
		{"text {\"a\":1} text", `{"a":1}`},
		{"no json", "no json"},
	}
	for _, tt := range tests {
		if got := ExtractJSONFromMarkdown(tt.in); got != tt.want {
			t.Errorf("ExtractJSONFromMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
