package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"health-report-service/apperr"
	"health-report-service/models"
	"health-report-service/parser"
	"health-report-service/scorer/internal/upstream"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.0-flash"

	promptScore = `Analisis gambar luka ini. Berikan skor keparahan (severity_score) dalam rentang 0-100. Jawab HANYA dengan JSON format: { "severity_score": number, "reasoning": string }`
)

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string `json:"response_mime_type,omitempty"`
}

type geminiRequest struct {
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
	Contents         []content        `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text,omitempty"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		http:    upstream.NewHTTPClient(timeout),
	}
}

func (c *Client) SourceName() string {
	return "Gemini"
}

func (c *Client) ScoreWound(ctx context.Context, image *models.ImagePayload) (*models.ScoreResult, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, apperr.New(apperr.KindConfiguration, "missing credential for %s", c.SourceName())
	}
	suffix := upstream.KeySuffix(c.apiKey)
	if image == nil || image.Data == "" {
		return nil, apperr.New(apperr.KindValidation, "missing image")
	}

	reqBody := geminiRequest{
		GenerationConfig: generationConfig{ResponseMimeType: "application/json"},
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: promptScore},
					{InlineData: &inlineData{MimeType: image.MediaType, Data: image.Data}},
				},
			},
		},
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	body, err := upstream.PostJSON(ctx, c.http, url, map[string]string{"x-goog-api-key": c.apiKey}, reqBody, suffix)
	if err != nil {
		return nil, err
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, upstream.Annotate(apperr.Wrap(apperr.KindMalformedResponse, err, "failed to parse response"), suffix)
	}

	text := ""
	if len(gr.Candidates) > 0 {
		for _, p := range gr.Candidates[0].Content.Parts {
			if p.Text != "" {
				text = p.Text
				break
			}
		}
	}
	if text == "" {
		return nil, apperr.Upstream(http.StatusOK, "no text part in response. Key suffix: %s", suffix)
	}

	result, err := parser.ParseScore(text)
	if err != nil {
		return nil, upstream.Annotate(err, suffix)
	}
	return result, nil
}
