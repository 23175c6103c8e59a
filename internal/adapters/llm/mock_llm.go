package llm

import (
	"context"
	"fmt"

	"github.com/avadhbsd/DevinKitMCP/internal/domain"
)

// MockLLM is a deterministic stand-in for development without model
// credentials. It never selects an operation.
type MockLLM struct{}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Classify(ctx context.Context, message string, convCtx domain.Context) (domain.Decision, error) {
	return domain.ClarificationDecision(
		fmt.Sprintf("(mock) I heard %q. Which tag, subscriber, form or broadcast should I work with?", message),
	), nil
}

func (m *MockLLM) Format(ctx context.Context, operation string, result any, convCtx domain.Context) (string, error) {
	return fmt.Sprintf("(mock) %s result:\n%s", operation, renderJSON(result)), nil
}

func (m *MockLLM) Explain(ctx context.Context, topic, knowledgeBase string) (string, error) {
	return fmt.Sprintf("(mock) %s: see the Kit.com documentation.", topic), nil
}

func (m *MockLLM) Generate(ctx context.Context, message string, convCtx domain.Context) (string, error) {
	return fmt.Sprintf("(mock) %s", message), nil
}
