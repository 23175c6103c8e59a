// Package registry holds the closed, static table of operations the
// dispatcher can invoke. The table is built once at startup and read-only
// afterwards; unknown names are a checked outcome, never a missing-key fault.
package registry

import (
	"context"
	"fmt"
)

type ParamType string

const (
	TypeString ParamType = "string"
	TypeInt    ParamType = "int"
)

// Param declares one parameter of an operation's schema.
type Param struct {
	Name     string
	Type     ParamType
	Required bool
}

// Handler is a bound invocation handle. It receives a validated parameter
// mapping and returns the raw structured result.
type Handler func(ctx context.Context, params map[string]any) (any, error)

// Operation is one named, schema-typed unit of work.
type Operation struct {
	Name    string
	Params  []Param
	Handler Handler
}

// Registry is the closed name→operation table.
type Registry struct {
	ops map[string]Operation
}

// New builds the registry from a declarative operation list. Two entries
// sharing a name is a startup error.
func New(ops ...Operation) (*Registry, error) {
	table := make(map[string]Operation, len(ops))
	for _, op := range ops {
		if op.Name == "" {
			return nil, fmt.Errorf("registry: operation with empty name")
		}
		if op.Handler == nil {
			return nil, fmt.Errorf("registry: operation %q has no handler", op.Name)
		}
		if _, exists := table[op.Name]; exists {
			return nil, fmt.Errorf("registry: duplicate operation name %q", op.Name)
		}
		table[op.Name] = op
	}
	return &Registry{ops: table}, nil
}

// Resolve looks up an operation by exact name.
func (r *Registry) Resolve(name string) (Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Len reports the number of registered operations.
func (r *Registry) Len() int {
	return len(r.ops)
}

// ValidateParams checks a raw parameter mapping against the operation's
// schema before invocation. It returns a normalized copy containing only the
// declared parameters; a missing required parameter or a type mismatch is an
// invalid-parameters outcome, never propagated into the remote call.
func ValidateParams(op Operation, raw map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(op.Params))
	for _, p := range op.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if p.Required {
				return nil, fmt.Errorf("missing required parameter %q", p.Name)
			}
			continue
		}

		switch p.Type {
		case TypeString:
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("parameter %q must be a string, got %T", p.Name, v)
			}
			out[p.Name] = s
		case TypeInt:
			n, err := asInt(v)
			if err != nil {
				return nil, fmt.Errorf("parameter %q: %w", p.Name, err)
			}
			out[p.Name] = n
		default:
			return nil, fmt.Errorf("parameter %q has unsupported type %q", p.Name, p.Type)
		}
	}
	return out, nil
}

// asInt accepts the integer shapes a JSON decoder can produce.
func asInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}
