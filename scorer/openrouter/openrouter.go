package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"health-report-service/apperr"
	"health-report-service/models"
	"health-report-service/parser"
	"health-report-service/scorer/internal/upstream"
)

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "google/gemini-2.0-flash-exp:free"

	referer = "https://sehat-monitorr.vercel.app"
	title   = "Sehat Monitor"

	// Prompt is the fixed instruction sent with every image.
	Prompt = `Analisis gambar luka ini. Berikan skor keparahan (severity_score) dalam rentang 0-100. Jawab HANYA dengan JSON format: { "severity_score": number, "reasoning": string }`
)

// providerOrder is the OpenRouter routing preference.
var providerOrder = []string{"Google", "DeepInfra", "Hyperbolic"}

type imageURL struct {
	URL string `json:"url"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type message struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type providerPrefs struct {
	Order          []string `json:"order"`
	AllowFallbacks bool     `json:"allow_fallbacks"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []message     `json:"messages"`
	Provider providerPrefs `json:"provider"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Client scores wounds through an OpenAI-compatible chat completions endpoint.
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
		baseURL: baseURL,
		model:   model,
		http:    upstream.NewHTTPClient(timeout),
	}
}

func (c *Client) SourceName() string {
	return "OpenRouter"
}

func (c *Client) endpoint() string {
	return strings.TrimSuffix(c.baseURL, "/") + "/chat/completions"
}

func (c *Client) ScoreWound(ctx context.Context, image *models.ImagePayload) (*models.ScoreResult, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, apperr.New(apperr.KindConfiguration, "missing credential for %s", c.SourceName())
	}
	suffix := upstream.KeySuffix(c.apiKey)
	if image == nil || image.Data == "" {
		return nil, apperr.New(apperr.KindValidation, "missing image")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []message{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: Prompt},
					{Type: "image_url", ImageURL: &imageURL{URL: image.DataURL()}},
				},
			},
		},
		Provider: providerPrefs{Order: providerOrder, AllowFallbacks: true},
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"HTTP-Referer":  referer,
		"X-Title":       title,
	}

	body, err := upstream.PostJSON(ctx, c.http, c.endpoint(), headers, reqBody, suffix)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, upstream.Annotate(apperr.Wrap(apperr.KindMalformedResponse, err, "failed to decode AI response"), suffix)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		msg := "AI response body was empty"
		if resp.Error != nil && resp.Error.Message != "" {
			msg = resp.Error.Message
		}
		return nil, apperr.Upstream(http.StatusOK, "%s. Key suffix: %s", msg, suffix)
	}

	result, err := parser.ParseScore(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, upstream.Annotate(err, suffix)
	}
	return result, nil
}
