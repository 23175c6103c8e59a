package domain

// DecisionKind discriminates the three shapes a classifier decision can take.
// Exactly one shape holds at a time; use the constructors below.
type DecisionKind string

const (
	// DecisionOperation selects a named operation with a parameter mapping.
	DecisionOperation DecisionKind = "operation"
	// DecisionClarification asks the user a follow-up question instead of
	// invoking anything.
	DecisionClarification DecisionKind = "clarification"
	// DecisionUnresolved means the classifier produced neither an operation
	// nor a clarification.
	DecisionUnresolved DecisionKind = "unresolved"
)

// Decision is the classifier's structured output for one user message.
type Decision struct {
	Kind       DecisionKind   `json:"kind"`
	Operation  string         `json:"operation,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Question   string         `json:"question,omitempty"`
}

func OperationDecision(name string, params map[string]any) Decision {
	if params == nil {
		params = map[string]any{}
	}
	return Decision{Kind: DecisionOperation, Operation: name, Parameters: params}
}

func ClarificationDecision(question string) Decision {
	return Decision{Kind: DecisionClarification, Question: question}
}

func UnresolvedDecision() Decision {
	return Decision{Kind: DecisionUnresolved}
}
