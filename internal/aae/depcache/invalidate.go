package depcache

import (
	"context"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaeerr"
)

// MutationKind discriminates the metric-mutation shapes invalidation
// reacts to.
type MutationKind string

const (
	// MutationAutoComputeDisabled means a metric that was in the index
	// had its autoCompute flag flipped to false.
	MutationAutoComputeDisabled MutationKind = "autocompute-disabled"
	// MutationAutoComputeEnabled means a metric newly has autoCompute
	// true, or a lesson metric gained an autoCompute container.
	MutationAutoComputeEnabled MutationKind = "autocompute-enabled"
)

// Mutation describes one metric-configuration change driving
// UpdateDependencyCache.
type Mutation struct {
	Kind       MutationKind
	Level      instance.Level
	EntityID   instance.EntityID
	MetricName string

	// LessonID/ComponentMetric identify the forest entry to rebuild when
	// Kind is MutationAutoComputeEnabled; both are required for a
	// rebuild to proceed.
	LessonID        instance.EntityID
	NamespaceID     instance.EntityID
	ComponentMetric string
}

// UpdateDependencyCache reacts to a metric-configuration change:
//   - If the key is in the index and autoCompute is now false, invalidate
//     (drop the matching forest entry).
//   - If autoCompute is newly true, or a lesson metric gained an
//     autoCompute container, rebuild the affected tree.
//   - Otherwise no action.
func UpdateDependencyCache(ctx context.Context, cache *Cache, reader store.EntityReader, m Mutation) error {
	key := store.CompletionKey(m.Level, m.EntityID, m.MetricName)

	switch m.Kind {
	case MutationAutoComputeDisabled:
		if !cache.indexed(key) {
			return nil
		}
		cache.removeFromIndex(key)
		cache.dropPlans(forestKey(m.LessonID, m.ComponentMetric))
		getInvalidationLogger().Log("msg", "invalidated dependency tree", "key", key, "lesson", m.LessonID, "component_metric", m.ComponentMetric)
		return nil

	case MutationAutoComputeEnabled:
		if m.ComponentMetric == "" {
			return aaeerr.Invalidf("rebuild mutation for %s requires a component metric name", key)
		}
		plans, err := buildPlans(ctx, reader, m.ComponentMetric, m.LessonID, m.NamespaceID)
		if err != nil {
			return err
		}
		cache.setPlans(forestKey(m.LessonID, m.ComponentMetric), plans)
		getInvalidationLogger().Log("msg", "rebuilt dependency tree", "key", key, "lesson", m.LessonID, "component_metric", m.ComponentMetric, "plans", len(plans))
		return nil

	default:
		return nil
	}
}
