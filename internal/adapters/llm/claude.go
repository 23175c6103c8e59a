package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
	"github.com/avadhbsd/DevinKitMCP/internal/observability"
)

// Infra failure categories the dispatcher recovers from.
var (
	// ErrAuthentication is an invalid or rejected model API key.
	ErrAuthentication = errors.New("llm: authentication failed")
	// ErrUnparseable means the model replied with something that is not one
	// of the decision shapes.
	ErrUnparseable = errors.New("llm: unparseable classifier output")
)

const defaultModel = anthropic.ModelClaude_3_Opus_20240229

// ClaudeClient implements domain.IntentClassifier and
// domain.ResponseFormatter against the Anthropic Messages API.
type ClaudeClient struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewClaudeClient creates a client for the given API key. An empty model
// name selects the default.
func NewClaudeClient(apiKey, model string) *ClaudeClient {
	m := anthropic.Model(model)
	if model == "" {
		m = defaultModel
	}
	return &ClaudeClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  m,
	}
}

// intentPayload mirrors the JSON contract the classifier prompt asks for.
type intentPayload struct {
	Tool                  string         `json:"tool"`
	Parameters            map[string]any `json:"parameters"`
	NeedsClarification    bool           `json:"needs_clarification"`
	ClarificationQuestion string         `json:"clarification_question"`
}

// Classify maps a user message to a structured decision.
func (c *ClaudeClient) Classify(ctx context.Context, message string, convCtx domain.Context) (domain.Decision, error) {
	text, err := c.complete(ctx, intentSystemPrompt, BuildIntentPrompt(message, convCtx), 0)
	if err != nil {
		return domain.Decision{}, classifyError(err)
	}

	decision, err := parseDecision(text)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("classifier output not parseable", "output", text)
		return domain.Decision{}, err
	}
	return decision, nil
}

// Format renders an operation result as natural language.
func (c *ClaudeClient) Format(ctx context.Context, operation string, result any, convCtx domain.Context) (string, error) {
	text, err := c.complete(ctx, formatSystemPrompt, BuildFormatPrompt(operation, result, convCtx), 0.3)
	if err != nil {
		return "", classifyError(err)
	}
	return text, nil
}

// Explain answers a question about a topic from a fixed knowledge base.
func (c *ClaudeClient) Explain(ctx context.Context, topic, knowledgeBase string) (string, error) {
	text, err := c.complete(ctx, explainSystemPrompt, BuildExplainPrompt(topic, knowledgeBase), 0.2)
	if err != nil {
		return "", classifyError(err)
	}
	return text, nil
}

// Generate produces a free-form reply when no operation matches.
func (c *ClaudeClient) Generate(ctx context.Context, message string, convCtx domain.Context) (string, error) {
	text, err := c.complete(ctx, generateSystemPrompt, BuildGeneratePrompt(message, convCtx), 0.3)
	if err != nil {
		return "", classifyError(err)
	}
	return text, nil
}

func (c *ClaudeClient) complete(ctx context.Context, system, user string, temperature float64) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if temperature > 0 {
		params.Temperature = anthropic.Float(temperature)
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.AsText().Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("llm: empty model response")
	}
	return sb.String(), nil
}

// parseDecision converts the model's reply into one of the three decision
// shapes. Anything that does not decode is an ErrUnparseable.
func parseDecision(text string) (domain.Decision, error) {
	var payload intentPayload
	if err := json.Unmarshal([]byte(stripJSONFence(text)), &payload); err != nil {
		return domain.Decision{}, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	if payload.NeedsClarification {
		question := payload.ClarificationQuestion
		if question == "" {
			question = "Could you tell me a bit more about what you'd like to do?"
		}
		return domain.ClarificationDecision(question), nil
	}
	if payload.Tool == "" {
		return domain.UnresolvedDecision(), nil
	}
	return domain.OperationDecision(payload.Tool, payload.Parameters), nil
}

// stripJSONFence unwraps a ```json ... ``` code fence if the model added one.
func stripJSONFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// classifyError splits API failures into the categories the dispatcher
// distinguishes: authentication vs everything else.
func classifyError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return fmt.Errorf("llm: api error: %w", err)
	}
	if strings.Contains(err.Error(), "invalid x-api-key") || strings.Contains(err.Error(), "authentication_error") {
		return fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return fmt.Errorf("llm: %w", err)
}
