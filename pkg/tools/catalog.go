// Package tools provides the built-in tool implementations, the dynamic
// tool-definition store, and the catalog that holds the live tool set.
// The catalog supports atomic hot reload: the backing set is rebuilt from
// scratch and swapped wholesale, never mutated in place, so queries running
// against the old set are insulated from half-updated state.
package tools

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/invopop/jsonschema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jingkaihe/skillet/pkg/logger"
	"github.com/jingkaihe/skillet/pkg/telemetry"
	tooltypes "github.com/jingkaihe/skillet/pkg/types/tools"
)

// DefaultToolTimeout bounds a single external tool invocation
const DefaultToolTimeout = 60 * time.Second

var tracer = telemetry.Tracer("skillet.tools")

// GenerateSchema reflects the JSON schema for a tool's input struct
func GenerateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// BuildFunc derives the full tool set from the latest available tool
// definitions. It is invoked on every Reload.
type BuildFunc func(ctx context.Context) []tooltypes.Tool

// Snapshot is an immutable view of the catalog. A run reads one snapshot at
// start and uses it for its whole duration.
type Snapshot struct {
	ordered []tooltypes.Tool
	byName  map[string]tooltypes.Tool
	timeout time.Duration
}

// Catalog holds the current set of invokable tools behind an atomic pointer
type Catalog struct {
	build   BuildFunc
	timeout time.Duration
	current atomic.Pointer[Snapshot]
}

// Option configures a Catalog
type Option func(*Catalog)

// WithToolTimeout sets the per-invocation execution bound
func WithToolTimeout(timeout time.Duration) Option {
	return func(c *Catalog) {
		c.timeout = timeout
	}
}

// NewCatalog builds the initial tool set and returns the catalog
func NewCatalog(ctx context.Context, build BuildFunc, opts ...Option) *Catalog {
	c := &Catalog{build: build, timeout: DefaultToolTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.Reload(ctx)
	return c
}

// Reload re-derives the full tool set and atomically swaps the backing
// snapshot. Safe to call at any time, including under concurrent readers.
// Duplicate names within one build keep the first registration.
func (c *Catalog) Reload(ctx context.Context) {
	snap := &Snapshot{
		byName:  make(map[string]tooltypes.Tool),
		timeout: c.timeout,
	}
	for _, tool := range c.build(ctx) {
		if _, exists := snap.byName[tool.Name()]; exists {
			logger.G(ctx).WithField("tool", tool.Name()).Warn("duplicate tool name ignored during reload")
			continue
		}
		snap.byName[tool.Name()] = tool
		snap.ordered = append(snap.ordered, tool)
	}
	c.current.Store(snap)
	logger.G(ctx).WithField("tools", len(snap.ordered)).Debug("tool catalog reloaded")
}

// Snapshot returns the current immutable tool set
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Has reports whether a tool is registered in the current snapshot
func (c *Catalog) Has(name string) bool {
	return c.Snapshot().Has(name)
}

// Names returns the names of the current snapshot in registration order
func (c *Catalog) Names() []string {
	return c.Snapshot().Names()
}

// Has reports whether a tool is registered
func (s *Snapshot) Has(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// Names returns tool names in registration order
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.ordered))
	for _, tool := range s.ordered {
		names = append(names, tool.Name())
	}
	return names
}

// Tools returns the tools in registration order
func (s *Snapshot) Tools() []tooltypes.Tool {
	return s.ordered
}

// Run invokes a tool by name. Unknown tools, validation failures, panics,
// execution errors and timeouts all come back as structured error results;
// Run never fails the surrounding query.
func (s *Snapshot) Run(ctx context.Context, name string, arguments string) (result tooltypes.ToolResult) {
	tool, ok := s.byName[name]
	if !ok {
		return tooltypes.ErrorResult("unknown tool: %s", name)
	}

	ctx, span := tracer.Start(ctx, fmt.Sprintf("tools.run.%s", name),
		trace.WithAttributes(attribute.String("tool", name)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.G(ctx).WithField("tool", name).WithField("panic", r).
				WithField("stack", string(debug.Stack())).Error("tool panicked")
			result = tooltypes.ErrorResult("tool %s panicked: %v", name, r)
			span.SetStatus(codes.Error, result.Error)
		}
	}()

	if err := tool.ValidateInput(arguments); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return tooltypes.ErrorResult("invalid input for tool %s: %v", name, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result = tool.Execute(runCtx, arguments)
	if runCtx.Err() == context.DeadlineExceeded && !result.IsError() {
		result = tooltypes.ErrorResult("tool %s timed out after %s", name, s.timeout)
	}

	if result.IsError() {
		span.SetStatus(codes.Error, result.Error)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return result
}
