package depcache

import (
	"context"
	"testing"

	"github.com/isle-project/aae/internal/aae/engine"
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/rules"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func s5Store() *store.MemStore {
	st := store.NewMemStore()

	lessonMetric := metric.Metric{
		Name:        "M_L",
		Level:       instance.LevelLesson,
		Coverage:    metric.Coverage{Kind: metric.CoverageAll},
		Rule:        metric.RuleSpec{"average", "zero"},
		Submetric:   "compMetric",
		AutoCompute: true,
	}
	namespaceMetric := metric.Metric{
		Name:        "M_N",
		Level:       instance.LevelNamespace,
		Coverage:    metric.Coverage{Kind: metric.CoverageAll},
		Rule:        metric.RuleSpec{"average", "zero"},
		Submetric:   "M_L",
		AutoCompute: true,
	}

	st.PutEntity(instance.LevelNamespace, metric.Entity{
		ID:       "N",
		Children: []instance.EntityID{"L"},
		Metrics:  []metric.Metric{namespaceMetric},
	})
	st.PutEntity(instance.LevelLesson, metric.Entity{
		ID:      "L",
		Metrics: []metric.Metric{lessonMetric},
	})
	st.PutEvent(store.Event{User: "u1", Lesson: "L", Component: "compX", MetricName: "compMetric", Score: 100, Time: 1})

	return st
}

// A namespace metric with autoCompute propagates its lesson's result upward.
func TestUpdateAutoComputesPropagatesLessonToNamespace(t *testing.T) {
	st := s5Store()
	e := engine.New(st, rules.NewRegistry())
	cache := New()

	usr, err := UpdateAutoComputes(context.Background(), cache, st, st, e, "u1", "compMetric", "L", "N")
	require.NoError(t, err)

	lessonKey := store.CompletionKey(instance.LevelLesson, "L", "M_L")
	namespaceKey := store.CompletionKey(instance.LevelNamespace, "N", "M_N")
	require.Contains(t, usr.Completions, lessonKey)
	require.Contains(t, usr.Completions, namespaceKey)

	lessonInst := usr.Completions[lessonKey]
	namespaceInst := usr.Completions[namespaceKey]
	assert.Equal(t, instance.Score(100), lessonInst.Score)
	assert.Equal(t, instance.Score(100), namespaceInst.Score)

	found, ok := findByEntity(namespaceInst.Provenance, "L")
	require.True(t, ok)
	assert.Equal(t, lessonInst.Score, found.Score)
}

// Testable property 9: cache idempotence.
func TestUpdateAutoComputesIdempotentWithNoNewEvents(t *testing.T) {
	st := s5Store()
	e := engine.New(st, rules.NewRegistry())
	cache := New()

	first, err := UpdateAutoComputes(context.Background(), cache, st, st, e, "u1", "compMetric", "L", "N")
	require.NoError(t, err)
	second, err := UpdateAutoComputes(context.Background(), cache, st, st, e, "u1", "compMetric", "L", "N")
	require.NoError(t, err)

	assert.Equal(t, first.Completions, second.Completions)
}

func TestEnsurePlansCachesAcrossCalls(t *testing.T) {
	st := s5Store()
	cache := New()

	plans1, err := cache.EnsurePlans(context.Background(), st, "compMetric", "L", "N")
	require.NoError(t, err)
	plans2, err := cache.EnsurePlans(context.Background(), st, "compMetric", "L", "N")
	require.NoError(t, err)

	require.Len(t, plans1, 1)
	assert.Equal(t, PlanDual, plans1[0].Kind)
	assert.Equal(t, plans1, plans2)
}

func TestUpdateDependencyCacheInvalidatesOnDisable(t *testing.T) {
	st := s5Store()
	cache := New()

	_, err := cache.EnsurePlans(context.Background(), st, "compMetric", "L", "N")
	require.NoError(t, err)

	key := store.CompletionKey(instance.LevelLesson, "L", "M_L")
	require.True(t, cache.indexed(key))

	err = UpdateDependencyCache(context.Background(), cache, st, Mutation{
		Kind:            MutationAutoComputeDisabled,
		Level:           instance.LevelLesson,
		EntityID:        "L",
		MetricName:      "M_L",
		LessonID:        "L",
		ComponentMetric: "compMetric",
	})
	require.NoError(t, err)

	_, ok := cache.plansLocked(forestKey("L", "compMetric"))
	assert.False(t, ok)
}
