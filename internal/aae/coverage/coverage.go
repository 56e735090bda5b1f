// Package coverage resolves a metric's all/include/exclude filter to a
// concrete set of child IDs.
package coverage

import (
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
)

// Resolve filters candidates (the entity's full child list, or the
// component IDs returned by listChildComponents) per the metric's
// coverage. The result preserves candidates' relative order.
func Resolve(cov metric.Coverage, candidates []instance.EntityID) []instance.EntityID {
	switch cov.Kind {
	case metric.CoverageInclude:
		wanted := toSet(cov.IDs)
		out := make([]instance.EntityID, 0, len(cov.IDs))
		for _, id := range candidates {
			if wanted[id] {
				out = append(out, id)
			}
		}
		return out
	case metric.CoverageExclude:
		excluded := toSet(cov.IDs)
		out := make([]instance.EntityID, 0, len(candidates))
		for _, id := range candidates {
			if !excluded[id] {
				out = append(out, id)
			}
		}
		return out
	case metric.CoverageAll:
		fallthrough
	default:
		out := make([]instance.EntityID, len(candidates))
		copy(out, candidates)
		return out
	}
}

func toSet(ids []instance.EntityID) map[instance.EntityID]bool {
	set := make(map[instance.EntityID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
