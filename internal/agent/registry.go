package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
	"gorm.io/gorm"
)

// Registry maps tool names to validated, dependency-injected handlers.
// Invoke never lets a handler failure escape: schema violations, handler
// errors and panics all come back as plain strings the model can react
// to, with any open transaction rolled back first.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*registeredTool
	logger *slog.Logger
}

type registeredTool struct {
	tool   Tool
	schema *jsonschema.Schema
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{tools: make(map[string]*registeredTool), logger: logger}
}

func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return fmt.Errorf("tool needs a name and a handler")
	}
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(t.Schema, rs); err != nil {
		return fmt.Errorf("compile schema for %s: %w", t.Name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = &registeredTool{tool: t, schema: rs}
	return nil
}

func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// ToolSpec is the agent-facing surface of one tool: only what the model
// may supply, never a collaborator.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"input_schema"`
}

func (r *Registry) Catalog() []ToolSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, 0, len(r.tools))
	for _, rt := range r.tools {
		out = append(out, ToolSpec{Name: rt.tool.Name, Description: rt.tool.Description, Schema: rt.tool.Schema})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Invoke validates rawArgs against the tool's schema and runs the
// handler with injected collaborators. Mutating tools run under the
// session lock and inside a transaction committed only on success.
func (r *Registry) Invoke(ctx context.Context, deps *Deps, name string, rawArgs json.RawMessage) string {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("unknown tool %q", name)
	}

	if len(rawArgs) == 0 {
		rawArgs = json.RawMessage("{}")
	}

	keyErrs, err := rt.schema.ValidateBytes(ctx, rawArgs)
	if err != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", name, err)
	}
	if len(keyErrs) > 0 {
		parts := make([]string, 0, len(keyErrs))
		for _, ke := range keyErrs {
			parts = append(parts, ke.Error())
		}
		return fmt.Sprintf("invalid arguments for %s: %s", name, strings.Join(parts, "; "))
	}

	var args map[string]any
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return fmt.Sprintf("invalid arguments for %s: %v", name, err)
	}

	if rt.tool.Mutating {
		if deps.Lock == nil {
			return fmt.Sprintf("I couldn't run %s: no session lock available", name)
		}
		if err := deps.Lock.Acquire(ctx); err != nil {
			return fmt.Sprintf("I couldn't run %s: %v", name, err)
		}
		defer deps.Lock.Release()
	}

	return r.run(ctx, deps, rt, args)
}

func (r *Registry) run(ctx context.Context, deps *Deps, rt *registeredTool, args map[string]any) (result string) {
	name := rt.tool.Name

	var tx *gorm.DB
	callDeps := deps
	if deps.DB != nil {
		tx = deps.DB.WithContext(ctx).Begin()
		if tx.Error != nil {
			r.logger.Error("begin tool transaction failed", "tool", name, "err", tx.Error)
			return fmt.Sprintf("I couldn't run %s because of a storage problem.", name)
		}
		callDeps = deps.withTx(tx)
	}

	defer func() {
		if rec := recover(); rec != nil {
			if tx != nil {
				tx.Rollback()
			}
			r.logger.Error("tool panicked", "tool", name, "panic", rec)
			result = fmt.Sprintf("The tool %s failed unexpectedly; nothing was changed.", name)
		}
	}()

	out, err := rt.tool.Handler(ctx, callDeps, args)
	if err != nil {
		if tx != nil {
			tx.Rollback()
		}
		r.logger.Warn("tool failed", "tool", name, "err", err)
		return fmt.Sprintf("I couldn't complete %s because: %v", name, err)
	}
	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			r.logger.Error("commit tool transaction failed", "tool", name, "err", err)
			return fmt.Sprintf("I couldn't complete %s because the change could not be saved.", name)
		}
	}
	for _, fn := range callDeps.afterCommit {
		if err := fn(ctx); err != nil {
			r.logger.Warn("after-commit hook failed", "tool", name, "err", err)
		}
	}
	return out
}
