package coverage

import (
	"testing"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/stretchr/testify/assert"
)

func ids(ss ...string) []instance.EntityID {
	out := make([]instance.EntityID, len(ss))
	for i, s := range ss {
		out[i] = instance.EntityID(s)
	}
	return out
}

func TestResolveAll(t *testing.T) {
	got := Resolve(metric.Coverage{Kind: metric.CoverageAll}, ids("a", "b", "c"))
	assert.Equal(t, ids("a", "b", "c"), got)
}

func TestResolveInclude(t *testing.T) {
	got := Resolve(metric.Coverage{Kind: metric.CoverageInclude, IDs: ids("b")}, ids("a", "b", "c"))
	assert.Equal(t, ids("b"), got)
}

func TestResolveExclude(t *testing.T) {
	got := Resolve(metric.Coverage{Kind: metric.CoverageExclude, IDs: ids("b")}, ids("a", "b", "c"))
	assert.Equal(t, ids("a", "c"), got)
}
