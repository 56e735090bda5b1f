// Package engine implements the compute orchestrator that ties
// coverage resolution, the branch/component loaders, the reducer, and
// the weighter into one recursive descent.
package engine

import (
	"context"
	"time"

	"github.com/isle-project/aae/internal/aae/coverage"
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/loader"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/policy"
	"github.com/isle-project/aae/internal/aae/reduce"
	"github.com/isle-project/aae/internal/aae/rules"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aae/weight"
	"github.com/isle-project/aae/internal/aaeerr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/isle-project/aae/internal/aae/engine")

// Engine is the public facade over one Store/Registry pair: Compute
// and MakePolicy are exposed as methods; UpdateAutoComputes and
// UpdateDependencyCache live in the depcache package, constructed
// against the same Store/Registry.
type Engine struct {
	store          store.Store
	registry       *rules.Registry
	maxConcurrency int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxConcurrency bounds how many sibling entities a single
// compute call fans out to at once.
func WithMaxConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxConcurrency = n
		}
	}
}

// New builds an Engine over st, dispatching rules through registry.
func New(st store.Store, registry *rules.Registry, opts ...Option) *Engine {
	e := &Engine{
		store:          st,
		registry:       registry,
		maxConcurrency: loader.DefaultMaxConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MakePolicy exposes the options/metric merge for callers who
// pre-validate before calling Compute.
func (e *Engine) MakePolicy(options policy.Options, m metric.Metric) policy.Policy {
	return policy.Make(options, m)
}

// Compute aggregates m over entityID's descendants for each of users.
// m.Level must not be component (components are never a top-level
// compute target); violating that is an InvalidMetric, not a panic,
// since it is reachable from caller-supplied configuration.
func (e *Engine) Compute(
	ctx context.Context,
	entityID instance.EntityID,
	m metric.Metric,
	users []instance.UserID,
	options policy.Options,
) (map[instance.UserID]instance.Instance, error) {
	ctx, span := tracer.Start(ctx, "Engine.Compute", trace.WithAttributes(
		attribute.String("aae.entity", string(entityID)),
		attribute.String("aae.metric", m.Name),
		attribute.String("aae.level", string(m.Level)),
	))
	defer span.End()

	start := time.Now()
	defer func() { metricComputeDuration.Observe(time.Since(start).Seconds()) }()

	out, err := e.compute(ctx, entityID, m, users, options)
	if err != nil {
		metricComputeTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	metricComputeTotal.WithLabelValues("ok").Inc()
	return out, nil
}

func (e *Engine) compute(
	ctx context.Context,
	entityID instance.EntityID,
	m metric.Metric,
	users []instance.UserID,
	options policy.Options,
) (map[instance.UserID]instance.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, aaeerr.Cancelled(err)
	}

	if m.Level == instance.LevelComponent {
		return nil, aaeerr.Invalidf("metric %q targets the component level; components are never a top-level compute target", m.Name)
	}
	if m.Rule.Name() == "" {
		return nil, aaeerr.Invalidf("metric %q has no rule", m.Name)
	}

	childLevel, ok := childLevelOf(m.Level)
	if !ok {
		return nil, aaeerr.Invalidf("metric %q has no descendible level below %q", m.Name, m.Level)
	}

	tagged, err := e.loadChildren(ctx, entityID, childLevel, m, users, options)
	if err != nil {
		return nil, err
	}

	reduced, err := reduce.Reduce(tagged, m, e.registry, m.Level, entityID)
	if err != nil {
		return nil, err
	}

	result := weight.Weight(reduced, m, m.Level, entityID)

	// Invariant 1: output keys are exactly the requested user set.
	out := make(map[instance.UserID]instance.Instance, len(users))
	for _, u := range users {
		inst, ok := result[u]
		if !ok {
			inst = instance.MakeMissing(m.Level, entityID, instance.DefaultTag)
		}
		out[u] = inst
	}
	return out, nil
}

func (e *Engine) loadChildren(
	ctx context.Context,
	entityID instance.EntityID,
	childLevel instance.Level,
	m metric.Metric,
	users []instance.UserID,
	options policy.Options,
) (instance.TaggedUsers, error) {
	if childLevel == instance.LevelComponent {
		resolved, err := coverage.ResolveComponents(ctx, e.store, m.Coverage, entityID, users)
		if err != nil {
			return nil, aaeerr.Persistencef(err, "resolving component coverage for lesson %s", entityID)
		}
		metricName := m.Submetric
		if metricName == "" {
			metricName = m.Name
		}
		pol := policy.Make(options, m)
		return loader.LoadComponents(ctx, e.store, metricName, resolved.LessonID, resolved.IDs, users, pol)
	}

	entity, err := e.store.GetEntity(ctx, m.Level, entityID)
	if err != nil {
		return nil, aaeerr.Persistencef(err, "resolving coverage for %s %s", m.Level, entityID)
	}
	resolved := coverage.ResolveChildren(m.Coverage, entity.Children)

	computeChild := func(ctx context.Context, level instance.Level, child instance.EntityID, childMetric metric.Metric, users []instance.UserID, options policy.Options) (map[instance.UserID]instance.Instance, error) {
		return e.Compute(ctx, child, childMetric, users, options)
	}

	return loader.LoadBranch(ctx, e.store, childLevel, resolved.IDs, m, users, options, computeChild, e.maxConcurrency)
}
