// Package loader implements the branch loader and the component
// loader: the two recursive halves of one compute call.
package loader

import (
	"context"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/policy"
	"github.com/isle-project/aae/internal/aae/store"
)

// ComponentResult is the tagged-user map produced by LoadComponents,
// ready for the reducer.
type ComponentResult = instance.TaggedUsers

// LoadComponents queries raw events for the named metric across
// components in one lesson, applies the multiples policy, and fills
// in missing-instance slots for users with no event on a given
// component.
func LoadComponents(
	ctx context.Context,
	reader store.EntityReader,
	metricName string,
	lessonID instance.EntityID,
	components []instance.EntityID,
	users []instance.UserID,
	pol policy.Policy,
) (ComponentResult, error) {
	direction := store.SortAscending
	if pol.Multiples == metric.MultiplesFirst {
		direction = store.SortDescending
	}

	events, err := reader.QueryEvents(ctx, store.EventFilter{
		Lesson:     lessonID,
		Components: components,
		Users:      users,
		Time:       pol.TimeFilter,
		MetricName: metricName,
	}, direction)
	if err != nil {
		return nil, err
	}

	observedTags := map[instance.TagID]bool{}
	for _, e := range events {
		observedTags[normalizeEventTag(e.Tag)] = true
	}
	tagSet := instance.UnionTags(pol.TagWeights, setKeys(observedTags))

	// retained[(component, tag, user)] holds the instance currently
	// retained under last/first/max; passThrough[(component, tag, user)]
	// holds the accumulated list under pass-through.
	type key struct {
		component instance.EntityID
		tag       instance.TagID
		user      instance.UserID
	}
	retained := map[key]*instance.Instance{}
	passThrough := map[key][]instance.Instance{}

	// eventCounts tracks, per component, how many raw events landed
	// under each tag -- used to pick the dominant tag under which a
	// missing instance is recorded for a user with no event on that
	// component (DefaultTag if the component has no events at all).
	eventCounts := map[instance.EntityID]map[instance.TagID]int{}
	usersWithEvent := map[key]bool{}

	for _, e := range events {
		tag := normalizeEventTag(e.Tag)
		k := key{component: e.Component, tag: tag, user: e.User}

		if eventCounts[e.Component] == nil {
			eventCounts[e.Component] = map[instance.TagID]int{}
		}
		eventCounts[e.Component][tag]++
		usersWithEvent[key{component: e.Component, user: e.User}] = true

		inst := instance.Make(instance.LevelComponent, e.Component, e.Score, e.Time, nil, dbTag(tag))

		switch pol.Multiples {
		case metric.MultiplesMax:
			if cur, ok := retained[k]; !ok || e.Score > cur.Score {
				i := inst
				retained[k] = &i
			}
		case metric.MultiplesPassThrough:
			passThrough[k] = append(passThrough[k], inst)
		default: // last, first: overwrite as we walk the sorted order
			i := inst
			retained[k] = &i
		}
	}

	result := instance.TaggedUsers{}
	for tag := range tagSet {
		result.EnsureTag(tag)
	}
	for _, user := range users {
		for tag := range tagSet {
			result.EnsureUser(tag, user)
		}
	}

	for _, component := range components {
		dominant := dominantTag(eventCounts[component])
		for _, user := range users {
			hasAny := false
			for tag := range tagSet {
				k := key{component: component, tag: tag, user: user}
				if pol.Multiples == metric.MultiplesPassThrough {
					if insts, ok := passThrough[k]; ok {
						result.EnsureTag(tag)[user] = append(result.EnsureUser(tag, user), insts...)
						hasAny = hasAny || len(insts) > 0
					}
					continue
				}
				if inst, ok := retained[k]; ok {
					result.EnsureTag(tag)[user] = append(result.EnsureUser(tag, user), *inst)
					hasAny = true
				}
			}
			if !hasAny && !usersWithEvent[key{component: component, user: user}] {
				missing := instance.MakeMissing(instance.LevelComponent, component, dbTag(dominant))
				result.Append(missing.EffectiveTag(), user, missing)
			}
		}
	}

	return result, nil
}

func normalizeEventTag(tag instance.TagID) instance.TagID {
	if tag == "" {
		return instance.DefaultTag
	}
	return tag
}

// dbTag converts a normalized (never-empty) tag into the form
// instance.Make expects, where DefaultTag must be passed through
// unmodified (Make itself collapses DefaultTag to the zero value).
func dbTag(tag instance.TagID) instance.TagID {
	return tag
}

func dominantTag(counts map[instance.TagID]int) instance.TagID {
	if len(counts) == 0 {
		return instance.DefaultTag
	}
	var best instance.TagID
	bestCount := -1
	for tag, count := range counts {
		if count > bestCount {
			best = tag
			bestCount = count
		}
	}
	return best
}

func setKeys(set map[instance.TagID]bool) []instance.TagID {
	out := make([]instance.TagID, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	return out
}
