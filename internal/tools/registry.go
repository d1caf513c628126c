package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/felixlunzenfichter/BetterVoiceControl/internal/domain"
	"github.com/felixlunzenfichter/BetterVoiceControl/internal/ports"
)

// Handler executes one tool invocation with decoded, validated arguments.
// Failures are returned as errors; the registry folds them into the result
// text so the model can react in-band.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Definition describes one callable tool.
type Definition struct {
	Name        string
	Description string
	Parameters  *JSONSchema
	Handler     Handler

	// TriggerResponse asks the model to continue once the result lands.
	TriggerResponse bool
}

// Registry is the static name-to-handler mapping the dispatcher routes tool
// calls through.
type Registry struct {
	log *slog.Logger

	mu    sync.RWMutex
	defs  map[string]Definition
	order []string
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:  log,
		defs: make(map[string]Definition),
	}
}

func (r *Registry) Register(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return fmt.Errorf("tool definition missing name")
	}
	if def.Handler == nil {
		return fmt.Errorf("tool %s missing handler", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.defs[def.Name] = def
	r.order = append(r.order, def.Name)
	return nil
}

// Definitions lists every registered tool schema in registration order, as
// advertised in the configuration handshake.
func (r *Registry) Definitions() []ports.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	schemas := make([]ports.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		def := r.defs[name]
		schemas = append(schemas, ports.ToolSchema{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return schemas
}

// Execute runs the named handler and always produces exactly one result for
// the call id. Unknown tools, validation failures, handler errors, and
// handler panics all land in the result text; nothing escapes the boundary.
func (r *Registry) Execute(ctx context.Context, call domain.ToolCall) (result domain.ToolResult) {
	result = domain.ToolResult{CallID: call.CallID, TriggerResponse: true}

	r.mu.RLock()
	def, ok := r.defs[call.Name]
	r.mu.RUnlock()
	if !ok {
		result.Output = fmt.Sprintf("error: unknown tool %q", call.Name)
		return result
	}
	result.TriggerResponse = def.TriggerResponse

	if err := def.Parameters.Validate(call.Args); err != nil {
		result.Output = fmt.Sprintf("error: invalid arguments for %s: %v", call.Name, err)
		return result
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("tool handler panicked", "tool", call.Name, "panic", rec)
			result.Output = fmt.Sprintf("error: tool %s failed: %v", call.Name, rec)
		}
	}()

	output, err := def.Handler(ctx, call.Args)
	if err != nil {
		result.Output = fmt.Sprintf("error: %v", err)
		return result
	}
	result.Output = output
	return result
}

// DecodeArgs performs the second decode pass on a tool call's argument blob.
// An empty blob decodes to an empty argument map.
func DecodeArgs(blob string) (map[string]any, error) {
	trimmed := strings.TrimSpace(blob)
	if trimmed == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
		return nil, fmt.Errorf("decode tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}
