package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/shared"
)

const (
	anthropicAPIURL  = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	defaultModel     = "claude-sonnet-4-5-20250929"
	maxTokens        = 4096

	// classifyBatchSize bounds one model call. Larger batches degrade output
	// quality and risk truncation before the closing bracket.
	classifyBatchSize = 20
)

// Categorizer classifies tracks into collections via the Anthropic Messages
// API. Each batch is a single prompt/response pair; a batch whose response
// cannot be parsed is discarded and its tracks retried on the next run.
type Categorizer struct {
	baseURL    string
	apiKey     string
	model      string
	policy     PromptPolicy
	httpClient *http.Client
	logger     *log.Logger
}

// NewCategorizer builds a Categorizer from credentials and prompt policy.
// Zero-valued policy fields fall back to the documented defaults.
func NewCategorizer(apiKey, model string, policy PromptPolicy, logger *log.Logger) *Categorizer {
	if model == "" {
		model = defaultModel
	}
	if policy.TimeWeight <= 0 && policy.SongWeight <= 0 {
		policy.TimeWeight = DefaultPromptPolicy.TimeWeight
		policy.SongWeight = DefaultPromptPolicy.SongWeight
	}
	if policy.ConfidenceFloor <= 0 {
		policy.ConfidenceFloor = DefaultPromptPolicy.ConfidenceFloor
	}

	return &Categorizer{
		baseURL:    anthropicAPIURL,
		apiKey:     apiKey,
		model:      model,
		policy:     policy,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

type messagesRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *apiError      `json:"error,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Classify runs tracks through the model in fixed-size batches. Failed
// batches are logged and skipped rather than aborting the run; an error is
// returned only when every batch fails.
func (c *Categorizer) Classify(ctx context.Context, tracks []models.Track, cc ClassifyContext) ([]models.ClassificationResult, error) {
	if len(tracks) == 0 {
		return nil, nil
	}

	var results []models.ClassificationResult
	var firstErr error

	for start := 0; start < len(tracks); start += classifyBatchSize {
		end := start + classifyBatchSize
		if end > len(tracks) {
			end = len(tracks)
		}
		batch := tracks[start:end]

		batchResults, err := c.classifyBatch(ctx, batch, cc)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			c.logger.Warn("discarding batch", "size", len(batch), "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		results = append(results, batchResults...)
	}

	if len(results) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}

// classifyBatch sends one batch to the Messages API and parses the verdicts.
func (c *Categorizer) classifyBatch(ctx context.Context, batch []models.Track, cc ClassifyContext) ([]models.ClassificationResult, error) {
	prompt, err := buildPrompt(batch, cc, c.policy, time.Now())
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := doRequestWithRetry(c.httpClient, req, c.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed messagesResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("%w: %s (%s)", shared.ErrAPIRequest, parsed.Error.Message, parsed.Error.Type)
		}
		return nil, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	text := ""
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty completion", shared.ErrMalformedResponse)
	}

	return parseVerdicts(text, batch)
}

// parseVerdicts decodes the model's JSON array and keeps only well-formed
// results for tracks that were actually submitted in this batch.
func parseVerdicts(text string, batch []models.Track) ([]models.ClassificationResult, error) {
	var raw []models.ClassificationResult
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedResponse, err)
	}

	submitted := make(map[string]struct{}, len(batch))
	for _, t := range batch {
		submitted[t.VideoID] = struct{}{}
	}

	results := make([]models.ClassificationResult, 0, len(raw))
	for _, r := range raw {
		if !r.Valid() {
			continue
		}
		if _, ok := submitted[r.VideoID]; !ok {
			continue
		}
		results = append(results, r)
	}
	return results, nil
}

// stripCodeFence removes a markdown code fence wrapping the payload. Models
// sometimes fence the array despite instructions not to.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
