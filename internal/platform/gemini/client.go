// Package gemini is a client for the Gemini generateContent REST API and a
// dosing.Recommender backed by it.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/moinmakda/ChemoCareAI/pkg/apperr"
	"github.com/moinmakda/ChemoCareAI/pkg/validate"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	Provider       = "Google Gemini"
)

// Config configures a Client.
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string
	Timeout        time.Duration
	RateLimitRPM   int
	RateLimitBurst int
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	validator  *validate.Validator
}

// NewClient creates a new Gemini client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   model,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:   newLimiter(cfg.RateLimitRPM, cfg.RateLimitBurst),
		validator: validate.New(),
	}, nil
}

func (c *Client) Model() string { return c.model }

// Close drops idle upstream connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
}

func unavailable(format string, args ...interface{}) error {
	return fmt.Errorf("%w: gemini: %s", apperr.ErrUnavailable, fmt.Sprintf(format, args...))
}

// Generate sends one prompt and returns the text of the first candidate. With
// jsonMode the model is asked for application/json output.
func (c *Client) Generate(ctx context.Context, op, prompt string, temperature float64, jsonMode bool) (string, error) {
	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			recordGeminiMetric(ctx, c.model, op, 0, 0, err)
			return "", unavailable("rate limiter: %v", err)
		}
		recordGeminiRateLimitWait(ctx, c.model, time.Since(waitStart))
	}

	payload := generateRequest{
		Contents:         []content{{Role: "user", Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{Temperature: temperature},
	}
	if jsonMode {
		payload.GenerationConfig.ResponseMimeType = "application/json"
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordGeminiMetric(ctx, c.model, op, 0, time.Since(start), err)
		return "", unavailable("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		recordGeminiMetric(ctx, c.model, op, resp.StatusCode, time.Since(start), fmt.Errorf("status %d", resp.StatusCode))
		return "", unavailable("request failed with status %d", resp.StatusCode)
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordGeminiMetric(ctx, c.model, op, resp.StatusCode, time.Since(start), err)
		return "", unavailable("decode response: %v", err)
	}

	var text string
	for _, cand := range envelope.Candidates {
		for _, p := range cand.Content.Parts {
			text += p.Text
		}
		if text != "" {
			break
		}
	}
	if strings.TrimSpace(text) == "" {
		recordGeminiMetric(ctx, c.model, op, resp.StatusCode, time.Since(start), errors.New("empty candidates"))
		return "", unavailable("response missing candidate text")
	}

	recordGeminiMetric(ctx, c.model, op, resp.StatusCode, time.Since(start), nil)
	return text, nil
}

// GenerateJSON sends prompt in JSON mode and decodes the answer into out,
// which is then checked against its validate tags.
func (c *Client) GenerateJSON(ctx context.Context, op, prompt string, temperature float64, out interface{}) error {
	text, err := c.Generate(ctx, op, prompt, temperature, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(stripCodeFence(text)), out); err != nil {
		return unavailable("parse %s response: %v", op, err)
	}
	if err := c.validator.Struct(out); err != nil {
		return unavailable("invalid %s response: %v", op, err)
	}
	return nil
}

func stripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

// newLimiter spaces calls rpm per minute with a small burst. A negative rpm
// disables limiting.
func newLimiter(rpm, burst int) *rate.Limiter {
	if rpm == 0 {
		rpm = 60
	}
	if rpm < 0 {
		return nil
	}
	if burst <= 0 {
		burst = 5
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)
}
