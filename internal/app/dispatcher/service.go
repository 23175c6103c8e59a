// Package dispatcher is the orchestration core: it turns one (message,
// conversation) pair into a final user-facing reply, owning every fallback
// along the way. A turn moves through classify → resolve → invoke → format,
// with early exits for clarifications and recovered failures.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avadhbsd/DevinKitMCP/internal/adapters/llm"
	"github.com/avadhbsd/DevinKitMCP/internal/app/registry"
	"github.com/avadhbsd/DevinKitMCP/internal/domain"
	"github.com/avadhbsd/DevinKitMCP/internal/observability"
)

// Fixed fallback texts. Everything the user sees on a failure path funnels
// through one of these or through an apology naming the attempted action.
const (
	authClarification     = "I'm sorry, there's an authentication issue with the model API. Please check your API key configuration."
	rephraseClarification = "I'm sorry, I couldn't understand your request. Could you please rephrase it?"
	genericClarification  = "I'm sorry, I encountered an error processing your request. Could you please try again?"
	unknownOperationReply = "I'm sorry, I don't know how to do that yet."
	panicReply            = "I'm sorry, something unexpected went wrong while handling your message. Please try again."
)

type Service struct {
	classifier domain.IntentClassifier
	formatter  domain.ResponseFormatter
	store      domain.ConversationStore
	registry   *registry.Registry
}

func NewService(
	classifier domain.IntentClassifier,
	formatter domain.ResponseFormatter,
	store domain.ConversationStore,
	reg *registry.Registry,
) *Service {
	return &Service{
		classifier: classifier,
		formatter:  formatter,
		store:      store,
		registry:   reg,
	}
}

type ProcessMessageInput struct {
	ConversationID domain.ConversationID
	Text           string
}

type ProcessMessageOutput struct {
	Response       string
	ConversationID domain.ConversationID
}

// ProcessMessage runs one full turn. It always returns a reply and a
// conversation id: every internal failure is converted into user-facing
// text, nothing propagates past the dispatcher.
func (s *Service) ProcessMessage(ctx context.Context, in ProcessMessageInput) (out *ProcessMessageOutput, err error) {
	id := in.ConversationID
	if id == "" {
		id = s.store.Create()
	}

	log := observability.LoggerFromContext(ctx).With("conversation_id", id)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during turn", "panic", r)
			s.store.RecordAssistantTurn(id, panicReply)
			out = &ProcessMessageOutput{Response: panicReply, ConversationID: id}
			err = nil
		}
	}()

	convCtx := s.store.Context(id)

	decision, cerr := s.classifier.Classify(ctx, in.Text, convCtx)
	if cerr != nil {
		log.Error("classifier failed", "error", cerr)
		decision = domain.ClarificationDecision(clarificationFor(cerr))
	}

	// Record the user turn with whatever decision was produced, even an
	// error-shaped one: context must reflect what was attempted.
	s.store.RecordUserTurn(id, in.Text, decision)

	var response string
	switch decision.Kind {
	case domain.DecisionClarification:
		// Terminal for the turn; no operation is invoked.
		response = decision.Question
	case domain.DecisionOperation:
		response = s.invoke(ctx, log, decision, convCtx)
	default:
		response = genericClarification
	}

	s.store.RecordAssistantTurn(id, response)
	log.Info("turn completed", "operation", decision.Operation, "kind", decision.Kind)

	return &ProcessMessageOutput{Response: response, ConversationID: id}, nil
}

// invoke resolves and runs the decided operation, converting every failure
// into user-facing text.
func (s *Service) invoke(ctx context.Context, log *slog.Logger, decision domain.Decision, convCtx domain.Context) string {
	op, ok := s.registry.Resolve(decision.Operation)
	if !ok {
		log.Error("unknown operation", "operation", decision.Operation)
		text, err := s.formatter.Generate(ctx,
			fmt.Sprintf("I don't know how to %s.", humanize(decision.Operation)), convCtx)
		if err != nil {
			return unknownOperationReply
		}
		return text
	}

	params, err := registry.ValidateParams(op, decision.Parameters)
	if err != nil {
		log.Error("invalid parameters", "operation", op.Name, "error", err)
		return apology(op.Name, err)
	}

	result, err := op.Handler(ctx, params)
	if err != nil {
		log.Error("operation failed", "operation", op.Name, "error", err)
		return apology(op.Name, err)
	}

	text, err := s.formatter.Format(ctx, op.Name, result, convCtx)
	if err != nil {
		// The answer itself is never lost: fall back to the raw result.
		log.Error("formatter failed, rendering raw result", "operation", op.Name, "error", err)
		return renderRawResult(result)
	}
	return text
}

// clarificationFor picks the user-facing question for a classifier failure,
// naming the category (authentication vs parse vs generic).
func clarificationFor(err error) string {
	switch {
	case errors.Is(err, llm.ErrAuthentication):
		return authClarification
	case errors.Is(err, llm.ErrUnparseable):
		return rephraseClarification
	default:
		return genericClarification
	}
}

// apology names the attempted action and includes the underlying error text
// for diagnosability.
func apology(operation string, err error) string {
	return fmt.Sprintf("I'm sorry, I encountered an error while trying to %s. Error: %v", humanize(operation), err)
}

func humanize(operation string) string {
	return strings.ReplaceAll(operation, "_", " ")
}

// renderRawResult is the formatter-failure fallback: a labeled block of the
// structured result.
func renderRawResult(result any) string {
	raw, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Sprintf("Here is the result:\n\n%v", result)
	}
	return fmt.Sprintf("Here is the result:\n\n```json\n%s\n```", raw)
}
