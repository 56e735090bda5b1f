package weight

import (
	"testing"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reduced(level instance.Level, entity instance.EntityID, score instance.Score, t int64, child instance.Instance, tag instance.TagID) instance.Instance {
	return instance.Make(level, entity, score, t, []instance.Instance{child}, tag)
}

func TestWeightTwoTagsWeightedAverage(t *testing.T) {
	hwChild := instance.Make(instance.LevelComponent, "compHW", 80, 100, nil, "hw")
	examChild := instance.Make(instance.LevelComponent, "compExam", 60, 200, nil, "exam")

	tagged := instance.TaggedInstances{
		"hw":   {"u1": reduced(instance.LevelLesson, "lessonX", 80, 100, hwChild, "hw")},
		"exam": {"u1": reduced(instance.LevelLesson, "lessonX", 60, 200, examChild, "exam")},
	}
	m := metric.Metric{TagWeights: map[instance.TagID]float64{"hw": 1, "exam": 3}}

	out := Weight(tagged, m, instance.LevelLesson, "lessonX")
	require.Contains(t, out, instance.UserID("u1"))
	assert.InDelta(t, 65.0, float64(out["u1"].Score), 0.0001)
	assert.Equal(t, int64(200), out["u1"].Time)
	assert.Len(t, out["u1"].Provenance, 2)
}

func TestWeightUniformWhenNoPositiveWeights(t *testing.T) {
	a := instance.Make(instance.LevelComponent, "a", 100, 1, nil, "x")
	b := instance.Make(instance.LevelComponent, "b", 0, 2, nil, "y")
	tagged := instance.TaggedInstances{
		"x": {"u1": reduced(instance.LevelLesson, "l", 100, 1, a, "x")},
		"y": {"u1": reduced(instance.LevelLesson, "l", 0, 2, b, "y")},
	}
	out := Weight(tagged, metric.Metric{}, instance.LevelLesson, "l")
	assert.Equal(t, instance.Score(50), out["u1"].Score)
}

func TestWeightPresentMissingConsumesWeightSlot(t *testing.T) {
	present := instance.Make(instance.LevelComponent, "a", 100, 1, nil, "x")
	missing := instance.MakeMissing(instance.LevelLesson, "l", "y")
	tagged := instance.TaggedInstances{
		"x": {"u1": reduced(instance.LevelLesson, "l", 100, 1, present, "x")},
		"y": {"u1": missing},
	}
	out := Weight(tagged, metric.Metric{}, instance.LevelLesson, "l")
	// (100*1 + 0*1) / (1+1) = 50, not 100
	assert.Equal(t, instance.Score(50), out["u1"].Score)
}

func TestWeightAllTagsMissingImputesZero(t *testing.T) {
	tagged := instance.TaggedInstances{
		"x": {"u1": instance.MakeMissing(instance.LevelLesson, "l", "x")},
	}
	out := Weight(tagged, metric.Metric{}, instance.LevelLesson, "l")
	// (0*1) / 1 = 0: the missing instance still consumes its weight slot.
	assert.Equal(t, instance.Score(0), out["u1"].Score)
}

func TestWeightDenominatorZeroWhenTagUnlistedAndNoDefaultWeight(t *testing.T) {
	present := instance.Make(instance.LevelComponent, "a", 100, 1, nil, "x")
	tagged := instance.TaggedInstances{
		"x": {"u1": reduced(instance.LevelLesson, "l", 100, 1, present, "x")},
	}
	m := metric.Metric{TagWeights: map[instance.TagID]float64{"other": 5}}
	out := Weight(tagged, m, instance.LevelLesson, "l")
	assert.True(t, instance.IsMissing(out["u1"]))
}
