package roast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/d-j-kendall/roast-my-playlist/internal/config"
	apperrors "github.com/d-j-kendall/roast-my-playlist/internal/errors"
	"github.com/d-j-kendall/roast-my-playlist/spotify"
)

const (
	geminiBaseURL        = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiTimeout = 60 * time.Second

	roastInstruction = "You are 'Roastify Master', a savagely funny AI specializing in roasting people " +
		"based on their Spotify listening habits. Your tone is brutal. You are witty. You are ruthless. " +
		"Be witty, use hyperbole, and make unexpected connections. Focus on the music taste provided in " +
		"the user message. Keep the response original; users should not receive similar responses. " +
		"Do not use the same introduction when roasting users, especially those with similar tastes. " +
		"Try to keep the output less than 1000 tokens."

	complimentInstruction = "You are 'Patronizing Pal', an AI that gives compliments about Spotify " +
		"listening habits. Your tone should be overly enthusiastic and slightly condescending, as if " +
		"explaining something simple to a child. Use simple language, excessive praise for basic things, " +
		"and subtle sarcasm that implies the user's taste is actually quite common or unimpressive, but " +
		"phrase it like a genuine, if slightly clueless, compliment. Keep responses original, even for " +
		"users with similar tastes. Try to keep the output less than 1000 tokens."
)

// GeminiRoaster calls the Gemini generateContent REST endpoint.
type GeminiRoaster struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

var _ Roaster = (*GeminiRoaster)(nil)

type GeminiOption func(*GeminiRoaster)

// WithGeminiBaseURL overrides the API base URL (for tests).
func WithGeminiBaseURL(baseURL string) GeminiOption {
	return func(r *GeminiRoaster) {
		r.baseURL = baseURL
	}
}

func NewGeminiRoaster(cfg config.RoasterConfig, options ...GeminiOption) (*GeminiRoaster, error) {
	if cfg.GetGeminiKey() == "" {
		return nil, fmt.Errorf("%w: GEMINI_KEY", apperrors.ErrMisconfigured)
	}
	r := &GeminiRoaster{
		baseURL:    geminiBaseURL,
		apiKey:     cfg.GetGeminiKey(),
		model:      cfg.GetGeminiModel(),
		httpClient: &http.Client{Timeout: defaultGeminiTimeout},
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

func (r *GeminiRoaster) GenerateRoast(ctx context.Context, taste spotify.TasteData) (string, error) {
	return r.generate(ctx, roastInstruction, taste)
}

func (r *GeminiRoaster) GenerateCompliment(ctx context.Context, taste spotify.TasteData) (string, error) {
	return r.generate(ctx, complimentInstruction, taste)
}

// Request/response shapes for generateContent. Only the fields in use.
type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (r *GeminiRoaster) generate(ctx context.Context, instruction string, taste spotify.TasteData) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: userPrompt(taste)}}},
		},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: instruction}}},
	}
	reqBody.GenerationConfig.Temperature = 0.95
	reqBody.GenerationConfig.MaxOutputTokens = 2000

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", apperrors.Wrapf(err, "gemini marshal request")
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", r.baseURL, r.model, r.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", apperrors.Wrapf(err, "gemini request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini call: %w: %w", apperrors.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Error().Int("status", resp.StatusCode).Bytes("body", body).Msg("gemini generation failed")
		return "", fmt.Errorf("gemini call: %w: status %d", apperrors.ErrTransient, resp.StatusCode)
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apperrors.Wrapf(err, "gemini decode response")
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini call: %w: empty response", apperrors.ErrTransient)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}
