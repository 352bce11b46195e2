// Package anthropic implements the dialogue generator against the Anthropic
// Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/diangao/vid2script/internal/domain/entity"
	"github.com/diangao/vid2script/internal/domain/port"
	"github.com/diangao/vid2script/internal/infra/metrics"
	"go.uber.org/zap"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	maxBackoff     = 60 * time.Second
)

// modelTiers maps the configurable quality/cost tiers to concrete model IDs.
var modelTiers = map[string]string{
	"haiku":  "claude-3-haiku-20240307",
	"sonnet": "claude-3-5-sonnet-20241022",
	"opus":   "claude-3-opus-20240229",
}

// ResolveModel accepts a tier name or a full model ID.
func ResolveModel(tierOrModel string) (string, error) {
	if m, ok := modelTiers[strings.ToLower(tierOrModel)]; ok {
		return m, nil
	}
	if strings.HasPrefix(tierOrModel, "claude-") {
		return tierOrModel, nil
	}
	tiers := make([]string, 0, len(modelTiers))
	for t := range modelTiers {
		tiers = append(tiers, t)
	}
	sort.Strings(tiers)
	return "", fmt.Errorf("unknown model tier %q, expected one of %s or a claude-* model id",
		tierOrModel, strings.Join(tiers, ", "))
}

type Config struct {
	APIKey         string
	Model          string
	BaseURL        string // overridable for tests
	MaxRetries     int
	BaseDelay      time.Duration
	RequestTimeout time.Duration
}

// Client calls the Messages API with bounded exponential backoff on
// transient failures. Retrying happens here; any error returned from
// Generate is final for the chunk.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 2 * time.Minute
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

// wire types for the Messages API

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends the prompt and parses the model's script into turns. Zero
// turns is a valid outcome. Failures are classified as port.TransientError
// (retried internally) or port.PermanentError.
func (c *Client) Generate(ctx context.Context, prompt entity.Prompt) ([]entity.DialogueTurn, error) {
	body, err := json.Marshal(buildRequest(c.cfg.Model, prompt))
	if err != nil {
		return nil, &port.PermanentError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		text, err := c.call(ctx, body)
		if err == nil {
			return ParseTurns(text), nil
		}
		lastErr = err

		if !port.IsTransient(err) {
			return nil, err
		}
		if attempt == c.cfg.MaxRetries {
			break
		}

		delay := c.backoff(attempt)
		metrics.GeneratorRetriesTotal.WithLabelValues(strconv.Itoa(attempt)).Inc()
		c.logger.Warn("transient generator failure, backing off",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.cfg.MaxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, &port.TransientError{Err: ctx.Err()}
		}
	}

	return nil, lastErr
}

func buildRequest(model string, prompt entity.Prompt) messageRequest {
	content := make([]contentBlock, 0, len(prompt.Frames)+1)
	for _, f := range prompt.Frames {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: f.MediaType,
				Data:      base64.StdEncoding.EncodeToString(f.Data),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: prompt.UserText})

	return messageRequest{
		Model:     model,
		MaxTokens: prompt.MaxTokens,
		System:    prompt.System,
		Messages:  []message{{Role: "user", Content: content}},
	}
}

func (c *Client) call(ctx context.Context, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &port.PermanentError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	req.Header.Set("Anthropic-Version", apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &port.TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &port.TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := fmt.Errorf("api error: %s", tail(string(respBody), 300))
		if isTransientStatus(resp.StatusCode) {
			return "", &port.TransientError{Status: resp.StatusCode, Err: apiErr}
		}
		return "", &port.PermanentError{Status: resp.StatusCode, Err: apiErr}
	}

	var mr messageResponse
	if err := json.Unmarshal(respBody, &mr); err != nil {
		return "", &port.PermanentError{Err: fmt.Errorf("decode response: %w", err)}
	}
	if mr.Error != nil {
		return "", &port.PermanentError{Err: fmt.Errorf("api error %s: %s", mr.Error.Type, mr.Error.Message)}
	}

	var sb strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// 429 is rate limiting, 5xx covers server trouble including the API's 529
// overloaded response. Everything else in 4xx is a request we should not
// repeat.
func isTransientStatus(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.cfg.BaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
	if delay > maxBackoff {
		delay = maxBackoff
	}
	return delay
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
