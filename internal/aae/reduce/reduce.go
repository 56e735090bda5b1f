// Package reduce applies a metric's rule to each (tag, user) bucket of
// raw instances.
package reduce

import (
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/rules"
)

// Reduce applies m's rule to every (tag, user) bucket in tagged,
// producing one instance per (tag, user). Reductions never raise: a
// rule returning Missing becomes a missing instance with empty
// provenance.
func Reduce(
	tagged instance.TaggedUsers,
	m metric.Metric,
	registry *rules.Registry,
	targetLevel instance.Level,
	targetEntity instance.EntityID,
) (instance.TaggedInstances, error) {
	fn, args, err := registry.Lookup(m.Rule)
	if err != nil {
		return nil, err
	}

	out := make(instance.TaggedInstances, len(tagged))
	for tag, byUser := range tagged {
		userResults := make(map[instance.UserID]instance.Instance, len(byUser))
		for user, inputs := range byUser {
			userResults[user] = reduceOne(fn, args, inputs, targetLevel, targetEntity, tag)
		}
		out[tag] = userResults
	}
	return out, nil
}

func reduceOne(
	fn rules.Func,
	args []string,
	inputs []instance.Instance,
	targetLevel instance.Level,
	targetEntity instance.EntityID,
	tag instance.TagID,
) instance.Instance {
	score := fn(inputs, args)
	if score.IsMissing() {
		return instance.MakeMissing(targetLevel, targetEntity, tag)
	}

	maxTime, hasTime := maxDefinedTime(inputs)
	provenance := append([]instance.Instance{}, inputs...)
	if hasTime {
		return instance.Make(targetLevel, targetEntity, score, maxTime, provenance, tag)
	}
	return instance.MakeUntimed(targetLevel, targetEntity, score, provenance, tag)
}

func maxDefinedTime(inputs []instance.Instance) (int64, bool) {
	var max int64
	found := false
	for _, inst := range inputs {
		if !inst.HasTime {
			continue
		}
		if !found || inst.Time > max {
			max = inst.Time
			found = true
		}
	}
	return max, found
}
