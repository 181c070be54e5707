// pkg/registry/registry.go
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	apperrors "rehmat-agent/internal/common/errors"
	"rehmat-agent/internal/common/validation"
)

// HandlerFunc runs a tool call and returns the text handed back to the
// realtime model.
type HandlerFunc func(ctx context.Context, args map[string]interface{}) (string, error)

// Tool is a function the realtime model may call.
type Tool struct {
	Name        string
	Description string
	// Parameters is the JSON schema of the arguments object.
	Parameters map[string]interface{}
	Handler    HandlerFunc
}

type entry struct {
	tool      Tool
	validator *validation.Validator
}

// Registry holds the tools of one session.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

func New() *Registry {
	return &Registry{tools: map[string]entry{}}
}

// Register adds tool, replacing any tool with the same name.
func (r *Registry) Register(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if tool.Handler == nil {
		return fmt.Errorf("tool %s has no handler", tool.Name)
	}

	e := entry{tool: tool}
	if len(tool.Parameters) > 0 {
		v, err := validation.NewValidatorFromMap(argumentSchema(tool.Parameters))
		if err != nil {
			return fmt.Errorf("tool %s: %w", tool.Name, err)
		}
		e.validator = v
	}

	r.mu.Lock()
	r.tools[tool.Name] = e
	r.mu.Unlock()
	return nil
}

// argumentSchema drops the top-level required list: missing arguments are
// left to the handler, only mistyped ones are rejected.
func argumentSchema(params map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if k == "required" {
			continue
		}
		out[k] = v
	}
	return out
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tools[name]
	return e.tool, ok
}

// Tools returns the registered tools sorted by name.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates args and runs the named tool.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]interface{}) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return "", apperrors.NewToolNotFoundError(name)
	}

	if args == nil {
		args = map[string]interface{}{}
	}
	if e.validator != nil {
		if res := e.validator.ValidateInput(args); !res.Valid {
			return "", apperrors.NewToolExecutionFailedError(name,
				fmt.Errorf("invalid arguments: %s", strings.Join(res.GetErrorMessages(), "; ")))
		}
	}

	out, err := e.tool.Handler(ctx, args)
	if err != nil {
		return "", apperrors.NewToolExecutionFailedError(name, err)
	}
	return out, nil
}
