package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.uber.org/zap"

	"github.com/droqlabs/toolnode/internal/constants"
	"github.com/droqlabs/toolnode/internal/manifest"
	"github.com/droqlabs/toolnode/internal/timeutil"
	"github.com/droqlabs/toolnode/internal/tools"
)

// Descriptor is the immutable runtime record for one tool. Descriptors are
// created at manifest load and destroyed only by a full snapshot swap.
type Descriptor struct {
	// ID is the unique tool identifier.
	ID string
	// Title is the human-friendly tool title.
	Title string
	// Description explains the tool for callers.
	Description string
	// Category tags the tool for routing and filtering.
	Category string
	// Locator is the opaque implementation reference.
	Locator string
	// Timeout is the per-tool deadline; zero defers to the node default.
	Timeout time.Duration
	// RatePerMinute limits executions per minute; zero means unlimited.
	RatePerMinute int
	// Params holds static defaults merged under request input.
	Params map[string]any
	// Tags is an optional list of tags.
	Tags []string
	// InputSchema validates request input when declared.
	InputSchema *jsonschema.Schema
	// OutputSchema validates tool output when declared.
	OutputSchema *jsonschema.Schema
	// Runner is the resolved capability handle; nil when the locator has
	// no compiled-in implementation.
	Runner tools.Tool
}

// Snapshot is an immutable id-to-descriptor mapping built from one
// manifest load. Reloads build a fresh snapshot and swap it wholesale;
// snapshots are never patched in place.
type Snapshot struct {
	// Name is the manifest node name.
	Name string
	// Version is the manifest node version.
	Version string
	// BuiltAt records when the snapshot was assembled.
	BuiltAt time.Time

	byID map[string]*Descriptor
}

// NewSnapshot assembles a snapshot from prepared descriptors, bypassing
// manifest loading. Used for embedding and for wiring fixed tool sets.
func NewSnapshot(name, version string, descriptors ...*Descriptor) *Snapshot {
	snap := &Snapshot{
		Name:    name,
		Version: version,
		BuiltAt: time.Now().UTC(),
		byID:    make(map[string]*Descriptor, len(descriptors)),
	}
	for _, desc := range descriptors {
		snap.byID[desc.ID] = desc
	}
	return snap
}

// Lookup returns the descriptor registered for id.
func (s *Snapshot) Lookup(id string) (*Descriptor, bool) {
	desc, ok := s.byID[id]
	return desc, ok
}

// Size returns the number of registered tools.
func (s *Snapshot) Size() int {
	return len(s.byID)
}

// Descriptors returns all descriptors sorted by id.
func (s *Snapshot) Descriptors() []*Descriptor {
	out := make([]*Descriptor, 0, len(s.byID))
	for _, desc := range s.byID {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// BuildOptions tunes snapshot assembly.
type BuildOptions struct {
	// Categories restricts the snapshot to the listed categories when
	// non-empty, so instances can serve a subset of the manifest.
	Categories []string
	// Logger reports skipped tools and unresolved locators.
	Logger *zap.Logger
}

// Build compiles a snapshot from a validated manifest: schemas are
// compiled once, locators are resolved once into capability handles. A
// locator with no implementation is kept with a nil Runner so Verify can
// report it; a resolvable locator whose params are broken fails the build.
func Build(m *manifest.Manifest, opts BuildOptions) (*Snapshot, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var filter map[string]struct{}
	if len(opts.Categories) > 0 {
		filter = make(map[string]struct{}, len(opts.Categories))
		for _, category := range opts.Categories {
			filter[category] = struct{}{}
		}
	}

	snap := &Snapshot{
		Name:    m.Node.Name,
		Version: m.Node.Version,
		BuiltAt: time.Now().UTC(),
		byID:    make(map[string]*Descriptor, len(m.Tools)),
	}

	for _, spec := range m.Tools {
		if filter != nil {
			if _, ok := filter[spec.Category]; !ok {
				logger.Debug("tool filtered out by category",
					zap.String("tool_id", spec.ID),
					zap.String("category", spec.Category),
				)
				continue
			}
		}

		inputSchema, err := compileSchema(spec.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: input_schema: %w", spec.ID, err)
		}
		outputSchema, err := compileSchema(spec.OutputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: output_schema: %w", spec.ID, err)
		}

		runner, err := tools.Resolve(tools.Spec{
			ID:      spec.ID,
			Locator: spec.Locator,
			Params:  spec.Params,
		})
		if err != nil {
			if !errors.Is(err, tools.ErrUnknownLocator) {
				return nil, err
			}
			runner = nil
			message := "locator has no implementation"
			if strings.HasPrefix(spec.Locator, constants.LocatorPrefixBuiltin) {
				message = "unknown builtin locator"
			}
			logger.Warn(message,
				zap.String("tool_id", spec.ID),
				zap.String("locator", spec.Locator),
			)
		}

		snap.byID[spec.ID] = &Descriptor{
			ID:            spec.ID,
			Title:         spec.Title,
			Description:   spec.Description,
			Category:      spec.Category,
			Locator:       spec.Locator,
			Timeout:       timeutil.ParseDurationOrDefault(spec.Timeout, 0),
			RatePerMinute: spec.RatePerMinute,
			Params:        spec.Params,
			Tags:          spec.Tags,
			InputSchema:   inputSchema,
			OutputSchema:  outputSchema,
			Runner:        runner,
		}
	}

	return snap, nil
}

func compileSchema(raw map[string]any) (*jsonschema.Schema, error) {
	if raw == nil {
		return nil, nil
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", raw); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// Registry holds the current snapshot behind an atomic pointer. Lookups
// are lock-free; reloads install a new snapshot atomically so in-flight
// readers never observe a partial map.
type Registry struct {
	snap   atomic.Pointer[Snapshot]
	logger *zap.Logger
}

// New returns an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger}
}

// Swap installs snapshot as the live mapping.
func (r *Registry) Swap(snapshot *Snapshot) {
	r.snap.Store(snapshot)
	r.logger.Info("registry snapshot installed",
		zap.String("manifest", snapshot.Name),
		zap.String("version", snapshot.Version),
		zap.Int("tools", snapshot.Size()),
	)
}

// Current returns the live snapshot; nil before the first Swap.
func (r *Registry) Current() *Snapshot {
	return r.snap.Load()
}

// Loaded reports whether a snapshot has been installed.
func (r *Registry) Loaded() bool {
	return r.snap.Load() != nil
}

// Lookup resolves a tool id against the live snapshot.
func (r *Registry) Lookup(id string) (*Descriptor, bool) {
	snapshot := r.snap.Load()
	if snapshot == nil {
		return nil, false
	}
	return snapshot.Lookup(id)
}

// Issue is one advisory verification finding.
type Issue struct {
	// ToolID is the affected tool.
	ToolID string
	// Locator is the unresolved implementation reference.
	Locator string
}

// Verify lists descriptors whose locator did not resolve. Advisory only;
// it never blocks dispatch.
func (r *Registry) Verify() []Issue {
	snapshot := r.snap.Load()
	if snapshot == nil {
		return nil
	}
	var issues []Issue
	for _, desc := range snapshot.Descriptors() {
		if desc.Runner == nil {
			issues = append(issues, Issue{ToolID: desc.ID, Locator: desc.Locator})
		}
	}
	return issues
}
