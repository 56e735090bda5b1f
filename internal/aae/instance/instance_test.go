package instance

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingInstanceProvenanceByLevel(t *testing.T) {
	leaf := MakeMissing(LevelComponent, "compX", DefaultTag)
	assert.Nil(t, leaf.Provenance)

	lesson := MakeMissing(LevelLesson, "lessonX", DefaultTag)
	assert.NotNil(t, lesson.Provenance)
	assert.Empty(t, lesson.Provenance)
}

func TestTagNormalization(t *testing.T) {
	withDefault := Make(LevelLesson, "e1", Score(80), 100, nil, DefaultTag)
	assert.Equal(t, TagID(""), withDefault.Tag)
	assert.Equal(t, DefaultTag, withDefault.EffectiveTag())

	withCustom := Make(LevelLesson, "e1", Score(80), 100, nil, "hw")
	assert.Equal(t, TagID("hw"), withCustom.Tag)
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 0, Distance(LevelComponent, LevelComponent))
	assert.Equal(t, 1, Distance(LevelLesson, LevelComponent))
	assert.Equal(t, 4, Distance(LevelGlobal, LevelComponent))
}

func TestJoinProvenances(t *testing.T) {
	child1 := MakeMissing(LevelComponent, "c1", DefaultTag)
	child2 := MakeMissing(LevelComponent, "c2", DefaultTag)

	base := Make(LevelLesson, "l1", Score(50), 10, []Instance{child1}, "hw")
	sibling := Make(LevelLesson, "l1", Score(60), 20, []Instance{child2}, "exam")

	joined := JoinProvenances(base, sibling)
	require.Len(t, joined.Provenance, 2)
	assert.Equal(t, EntityID("c1"), joined.Provenance[0].Entity)
	assert.Equal(t, EntityID("c2"), joined.Provenance[1].Entity)
}

func TestJoinProvenancesMismatchPanics(t *testing.T) {
	a := Make(LevelLesson, "l1", Score(50), 10, nil, DefaultTag)
	b := Make(LevelLesson, "l2", Score(50), 10, nil, DefaultTag)
	assert.Panics(t, func() {
		JoinProvenances(a, b)
	})
}

func TestMarshalJSONOmitsDefaultTagAndUndefinedTime(t *testing.T) {
	missing := MakeMissing(LevelLesson, "l1", DefaultTag)
	b, err := json.Marshal(missing)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, float64(Missing), raw["score"])
	_, hasTime := raw["time"]
	assert.False(t, hasTime)
	_, hasTag := raw["tag"]
	assert.False(t, hasTag)
	assert.Equal(t, []any{}, raw["provenance"])
}

func TestMarshalJSONIncludesExplicitTag(t *testing.T) {
	tagged := Make(LevelComponent, "c1", Score(80), 1000, nil, "hw")
	b, err := json.Marshal(tagged)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(b, &raw))
	assert.Equal(t, "hw", raw["tag"])
	assert.Equal(t, float64(1000), raw["time"])
	assert.Nil(t, raw["provenance"])
}
