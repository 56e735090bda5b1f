// Package weight combines per-tag instances into one aggregate per
// user.
package weight

import (
	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
)

// Weight combines the per-tag instances in tagged into one instance
// per user at (targetLevel, targetEntity) -- the same level/entity the
// preceding Reduce call stamped on every per-tag instance.
func Weight(
	tagged instance.TaggedInstances,
	m metric.Metric,
	targetLevel instance.Level,
	targetEntity instance.EntityID,
) map[instance.UserID]instance.Instance {
	weights := effectiveWeights(tagged, m.TagWeights)
	users := unionUsers(tagged)

	out := make(map[instance.UserID]instance.Instance, len(users))
	for _, user := range users {
		out[user] = weightOne(tagged, weights, user, targetLevel, targetEntity)
	}
	return out
}

// effectiveWeights resolves the weight per observed tag: if any
// positive weight is configured, use the configured map verbatim, with
// unlisted tags defaulting to the default tag's weight (0 if that too
// is unlisted). Otherwise every observed tag gets weight 1.
func effectiveWeights(tagged instance.TaggedInstances, configured map[instance.TagID]float64) map[instance.TagID]float64 {
	hasPositive := false
	for _, w := range configured {
		if w > 0 {
			hasPositive = true
			break
		}
	}

	out := make(map[instance.TagID]float64, len(tagged))
	if hasPositive {
		defaultWeight := configured[instance.DefaultTag]
		for tag := range tagged {
			if w, ok := configured[tag]; ok {
				out[tag] = w
			} else {
				out[tag] = defaultWeight
			}
		}
		return out
	}

	for tag := range tagged {
		out[tag] = 1
	}
	return out
}

func unionUsers(tagged instance.TaggedInstances) []instance.UserID {
	seen := map[instance.UserID]bool{}
	var out []instance.UserID
	for _, byUser := range tagged {
		for user := range byUser {
			if !seen[user] {
				seen[user] = true
				out = append(out, user)
			}
		}
	}
	return out
}

func weightOne(
	tagged instance.TaggedInstances,
	weights map[instance.TagID]float64,
	user instance.UserID,
	targetLevel instance.Level,
	targetEntity instance.EntityID,
) instance.Instance {
	var numerator, denominator float64
	var maxTime int64
	hasTime := false
	provenance := instance.MakeUntimed(targetLevel, targetEntity, 0, nil, instance.DefaultTag)

	for tag, byUser := range tagged {
		inst, ok := byUser[user]
		if !ok {
			continue
		}
		w := weights[tag]

		// A present-but-missing instance still consumes its weight
		// slot, imputed to zero.
		if !instance.IsMissing(inst) {
			numerator += float64(inst.Score) * w
		}
		denominator += w

		if inst.HasTime && (!hasTime || inst.Time > maxTime) {
			maxTime = inst.Time
			hasTime = true
		}

		// joinProvenances merges inst's children into the running
		// accumulator -- it is the child instances that become this
		// node's provenance, not the per-tag instance itself, so the
		// provenance tree's depth stays uniform across tags.
		provenance = instance.JoinProvenances(provenance, inst)
	}

	if denominator == 0 {
		return instance.MakeMissing(targetLevel, targetEntity, instance.DefaultTag)
	}

	score := instance.Score(numerator / denominator)
	if hasTime {
		return instance.Make(targetLevel, targetEntity, score, maxTime, provenance.Provenance, instance.DefaultTag)
	}
	return instance.MakeUntimed(targetLevel, targetEntity, score, provenance.Provenance, instance.DefaultTag)
}
