package depcache

import (
	"context"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaeerr"
)

// PlanKind discriminates the three plan shapes a componentMetric can
// resolve to.
type PlanKind string

const (
	// PlanLessonOnly is an autoCompute lesson metric with no autoCompute parent.
	PlanLessonOnly PlanKind = "lesson-only"
	// PlanNamespaceOnly is an autoCompute namespace metric whose lesson
	// metric is not itself autoCompute.
	PlanNamespaceOnly PlanKind = "namespace-only"
	// PlanDual covers both levels autoCompute; the lesson result is
	// extracted from the namespace computation's provenance.
	PlanDual PlanKind = "dual"
)

// Plan is one cached tuple describing which aggregate(s) to recompute
// when a component event arrives. Plans are immutable once built.
type Plan struct {
	Kind PlanKind

	LessonID     instance.EntityID
	LessonMetric metric.Metric

	NamespaceID     instance.EntityID
	NamespaceMetric metric.Metric
}

// PlanDescriptor is the serialization-friendly view of a Plan returned
// by Cache.Snapshot.
type PlanDescriptor struct {
	Kind            string `json:"kind"`
	LessonID        string `json:"lessonId,omitempty"`
	LessonMetric    string `json:"lessonMetric,omitempty"`
	NamespaceID     string `json:"namespaceId,omitempty"`
	NamespaceMetric string `json:"namespaceMetric,omitempty"`
}

func (p Plan) describe() PlanDescriptor {
	d := PlanDescriptor{Kind: string(p.Kind)}
	if p.Kind == PlanLessonOnly || p.Kind == PlanDual {
		d.LessonID = string(p.LessonID)
		d.LessonMetric = p.LessonMetric.Name
	}
	if p.Kind == PlanNamespaceOnly || p.Kind == PlanDual {
		d.NamespaceID = string(p.NamespaceID)
		d.NamespaceMetric = p.NamespaceMetric.Name
	}
	return d
}

// indexKeys returns the persisted-aggregate keys this plan will write
// under, for index bookkeeping.
func (p Plan) indexKeys() []string {
	var keys []string
	if p.Kind == PlanLessonOnly || p.Kind == PlanDual {
		keys = append(keys, store.CompletionKey(instance.LevelLesson, p.LessonID, p.LessonMetric.Name))
	}
	if p.Kind == PlanNamespaceOnly || p.Kind == PlanDual {
		keys = append(keys, store.CompletionKey(instance.LevelNamespace, p.NamespaceID, p.NamespaceMetric.Name))
	}
	return keys
}

// buildPlans derives the plan list for a component metric:
//  1. Collect all lesson metrics whose submetric == componentMetric.
//  2. For each, collect namespace metrics whose submetric == lessonMetric.Name
//     and autoCompute.
//  3. For each (lesson metric, namespace metrics) pair, emit one plan
//     per namespace metric (shape depending on the lesson metric's
//     autoCompute). If there are no autoCompute namespace metrics but
//     the lesson metric itself is autoCompute, emit the lesson-only plan.
func buildPlans(
	ctx context.Context,
	reader store.EntityReader,
	componentMetric string,
	lessonID instance.EntityID,
	namespaceID instance.EntityID,
) ([]Plan, error) {
	lesson, err := reader.GetEntity(ctx, instance.LevelLesson, lessonID)
	if err != nil {
		return nil, aaeerr.Persistencef(err, "fetching lesson %s for plan construction", lessonID)
	}

	var namespace metric.Entity
	haveNamespace := namespaceID != ""
	if haveNamespace {
		namespace, err = reader.GetEntity(ctx, instance.LevelNamespace, namespaceID)
		if err != nil {
			return nil, aaeerr.Persistencef(err, "fetching namespace %s for plan construction", namespaceID)
		}
	}

	var plans []Plan
	for _, lessonMetric := range lesson.Metrics {
		if lessonMetric.Submetric != componentMetric {
			continue
		}

		var namespaceMetrics []metric.Metric
		if haveNamespace {
			for _, nm := range namespace.Metrics {
				if nm.AutoCompute && nm.Submetric == lessonMetric.Name {
					namespaceMetrics = append(namespaceMetrics, nm)
				}
			}
		}

		if len(namespaceMetrics) == 0 {
			if lessonMetric.AutoCompute {
				plans = append(plans, Plan{
					Kind:         PlanLessonOnly,
					LessonID:     lessonID,
					LessonMetric: lessonMetric,
				})
			}
			continue
		}

		for _, nm := range namespaceMetrics {
			if lessonMetric.AutoCompute {
				plans = append(plans, Plan{
					Kind:            PlanDual,
					LessonID:        lessonID,
					LessonMetric:    lessonMetric,
					NamespaceID:     namespaceID,
					NamespaceMetric: nm,
				})
			} else {
				plans = append(plans, Plan{
					Kind:            PlanNamespaceOnly,
					NamespaceID:     namespaceID,
					NamespaceMetric: nm,
				})
			}
		}
	}

	return plans, nil
}

// EnsurePlans returns the cached plan list for (lessonID, componentMetric),
// building and caching it on first access. Access is serialized per key
// so unrelated lessons never contend on one lock.
func (c *Cache) EnsurePlans(
	ctx context.Context,
	reader store.EntityReader,
	componentMetric string,
	lessonID instance.EntityID,
	namespaceID instance.EntityID,
) ([]Plan, error) {
	key := forestKey(lessonID, componentMetric)
	lock := c.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if plans, ok := c.plansLocked(key); ok {
		c.hits.Inc()
		return plans, nil
	}

	plans, err := buildPlans(ctx, reader, componentMetric, lessonID, namespaceID)
	if err != nil {
		return nil, err
	}
	c.builds.Inc()
	c.setPlans(key, plans)
	return plans, nil
}
