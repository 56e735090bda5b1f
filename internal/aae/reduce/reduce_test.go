package reduce

import (
	"testing"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReduceAverageZeroImputesMissingUsers(t *testing.T) {
	registry := rules.NewRegistry()
	tagged := instance.TaggedUsers{
		instance.DefaultTag: {
			"u1": {instance.Make(instance.LevelComponent, "compX", 80, 1000, nil, instance.DefaultTag)},
			"u2": {instance.Make(instance.LevelComponent, "compX", 100, 2000, nil, instance.DefaultTag)},
			"u3": {instance.MakeMissing(instance.LevelComponent, "compX", instance.DefaultTag)},
		},
	}
	m := metric.Metric{Rule: metric.RuleSpec{"average", "zero"}}

	out, err := Reduce(tagged, m, registry, instance.LevelLesson, "lessonX")
	require.NoError(t, err)

	assert.Equal(t, instance.Score(80), out[instance.DefaultTag]["u1"].Score)
	assert.Equal(t, int64(1000), out[instance.DefaultTag]["u1"].Time)
	assert.Equal(t, instance.Score(100), out[instance.DefaultTag]["u2"].Score)
	assert.Equal(t, instance.Score(0), out[instance.DefaultTag]["u3"].Score)
	assert.False(t, out[instance.DefaultTag]["u3"].HasTime)
}

func TestReduceAllMissingUnderIgnoreModeStaysMissing(t *testing.T) {
	registry := rules.NewRegistry()
	tagged := instance.TaggedUsers{
		instance.DefaultTag: {
			"u1": {instance.MakeMissing(instance.LevelComponent, "compX", instance.DefaultTag)},
		},
	}
	m := metric.Metric{Rule: metric.RuleSpec{"average", "ignore"}}

	out, err := Reduce(tagged, m, registry, instance.LevelLesson, "lessonX")
	require.NoError(t, err)
	assert.True(t, instance.IsMissing(out[instance.DefaultTag]["u1"]))
	assert.NotNil(t, out[instance.DefaultTag]["u1"].Provenance)
}

func TestReduceProvenanceIsExactlyInputList(t *testing.T) {
	registry := rules.NewRegistry()
	in := []instance.Instance{
		instance.Make(instance.LevelComponent, "a", 100, 1, nil, instance.DefaultTag),
		instance.Make(instance.LevelComponent, "b", 50, 2, nil, instance.DefaultTag),
	}
	tagged := instance.TaggedUsers{instance.DefaultTag: {"u1": in}}
	m := metric.Metric{Rule: metric.RuleSpec{"average", "zero"}}

	out, err := Reduce(tagged, m, registry, instance.LevelLesson, "lessonX")
	require.NoError(t, err)
	require.Len(t, out[instance.DefaultTag]["u1"].Provenance, 2)
	assert.Equal(t, int64(2), out[instance.DefaultTag]["u1"].Time)
}

func TestReduceUnknownRulePropagatesError(t *testing.T) {
	registry := rules.NewRegistry()
	m := metric.Metric{Rule: metric.RuleSpec{"doesNotExist"}}
	_, err := Reduce(instance.TaggedUsers{}, m, registry, instance.LevelLesson, "lessonX")
	require.Error(t, err)
}
