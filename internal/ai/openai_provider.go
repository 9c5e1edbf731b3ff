package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/amishk599/jobmatch/internal/model"
)

const (
	matchSchemaName   = "job_match"
	matchSystemPrompt = "You are a precise recruitment analyst. Compare the job against the resume and respond only with the requested JSON."
	defaultMaxTokens  = 1024
)

// ErrTruncated is returned when the completion hit the token ceiling, which
// leaves the JSON payload incomplete.
var ErrTruncated = errors.New("llm response truncated at max_tokens")

// matchSchema describes the object LLMMatcher parses: a score, the skills
// found on both sides, the skills the resume lacks, and a short reason.
func matchSchema() map[string]any {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"match_score":   map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"skill_matches": stringList,
			"skill_gaps":    stringList,
			"match_reason":  map[string]any{"type": "string"},
		},
		"required": []string{"match_score", "skill_matches", "skill_gaps", "match_reason"},
	}
}

// OpenAIProvider asks an OpenAI-compatible chat completions endpoint for a
// match verdict constrained to matchSchema.
type OpenAIProvider struct {
	endpoint   string
	apiKey     string
	model      string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ LLMProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider creates a provider for baseURL, e.g. https://api.openai.com/v1.
func NewOpenAIProvider(baseURL, apiKey, model string, httpClient *http.Client) *OpenAIProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &OpenAIProvider{
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		apiKey:     apiKey,
		model:      model,
		maxTokens:  defaultMaxTokens,
		httpClient: httpClient,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger logs token usage per completion at debug level.
func (p *OpenAIProvider) WithLogger(logger *slog.Logger) *OpenAIProvider {
	if logger != nil {
		p.logger = logger
	}
	return p
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string     `json:"type"`
	JSONSchema schemaSpec `json:"json_schema"`
}

type schemaSpec struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatChoice struct {
	FinishReason string `json:"finish_reason"`
	Message      struct {
		Content string `json:"content"`
		Refusal string `json:"refusal,omitempty"`
	} `json:"message"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
	Error   *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Complete returns the JSON verdict for prompt. Non-200 responses come back
// as *model.HTTPError so the retry policy can tell throttling from bad
// credentials; a refusal or a truncated answer is a plain error.
func (p *OpenAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: matchSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: p.maxTokens,
		ResponseFormat: responseFormat{
			Type:       "json_schema",
			JSONSchema: schemaSpec{Name: matchSchemaName, Strict: true, Schema: matchSchema()},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encoding completion request: %w", err)
	}

	var out chatResponse
	if err := p.post(ctx, payload, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", fmt.Errorf("completion error (%s): %s", out.Error.Type, out.Error.Message)
	}
	if out.Usage != nil {
		p.logger.Debug("completion usage", "model", p.model,
			"prompt_tokens", out.Usage.PromptTokens, "completion_tokens", out.Usage.CompletionTokens)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("completion returned no choices")
	}

	choice := out.Choices[0]
	switch {
	case choice.Message.Refusal != "":
		return "", fmt.Errorf("model refused: %s", truncate(choice.Message.Refusal, 200))
	case choice.FinishReason == "length":
		return "", ErrTruncated
	}
	return choice.Message.Content, nil
}

func (p *OpenAIProvider) post(ctx context.Context, payload []byte, out *chatResponse) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return model.NewHTTPError(resp, fmt.Errorf("completion endpoint returned: %s", truncate(string(body), 200)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding completion response: %w", err)
	}
	return nil
}
