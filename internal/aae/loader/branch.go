package loader

import (
	"context"
	"sync"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/policy"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaeerr"
	"golang.org/x/sync/errgroup"
)

// ComputeChildFunc recurses back into the orchestrator's compute for
// one child entity. The branch loader and the orchestrator are
// mutually recursive; this callback breaks the import cycle between
// the loader and engine packages.
type ComputeChildFunc func(ctx context.Context, level instance.Level, entity instance.EntityID, m metric.Metric, users []instance.UserID, options policy.Options) (map[instance.UserID]instance.Instance, error)

// DefaultMaxConcurrency bounds how many children are computed at once
// per LoadBranch call.
const DefaultMaxConcurrency = 16

type childOutcome struct {
	tag     instance.TagID
	perUser map[instance.UserID]instance.Instance
}

// LoadBranch fetches each surviving child's metric list and tag, picks
// its sub-metric, and concurrently computes its aggregate. All
// surviving children are computed in parallel and the call waits for
// all to complete; a child dropped by the submetric tie-break rule
// does not count as a failure.
func LoadBranch(
	ctx context.Context,
	reader store.EntityReader,
	childLevel instance.Level,
	childIDs []instance.EntityID,
	m metric.Metric,
	users []instance.UserID,
	options policy.Options,
	computeChild ComputeChildFunc,
	maxConcurrency int,
) (instance.TaggedUsers, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrency)

	var mu sync.Mutex
	var outcomes []childOutcome
	var childTags []instance.TagID

	for _, childID := range childIDs {
		childID := childID
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return aaeerr.Cancelled(gctx.Err())
			default:
			}

			entity, err := reader.GetEntity(gctx, childLevel, childID)
			if err != nil {
				return aaeerr.Persistencef(err, "fetching %s entity %s", childLevel, childID)
			}

			childMetric, ok := selectSubmetric(entity, m.Submetric)
			if !ok {
				// Non-fatal: drop this child and let the call continue.
				return nil
			}

			tag := entity.Tag
			if tag == "" {
				tag = instance.DefaultTag
			}

			perUser, err := computeChild(gctx, childLevel, childID, childMetric, users, options)
			if err != nil {
				return err
			}

			mu.Lock()
			outcomes = append(outcomes, childOutcome{tag: tag, perUser: perUser})
			childTags = append(childTags, tag)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	tagSet := instance.UnionTags(m.TagWeights, childTags)
	result := instance.TaggedUsers{}
	for tag := range tagSet {
		result.EnsureTag(tag)
	}
	for _, user := range users {
		for tag := range tagSet {
			result.EnsureUser(tag, user)
		}
	}

	for _, outcome := range outcomes {
		for _, user := range users {
			inst, ok := outcome.perUser[user]
			if !ok {
				continue
			}
			result.Append(outcome.tag, user, inst)
		}
	}

	return result, nil
}

// selectSubmetric resolves which of the child's metrics to consume:
// when submetric is explicitly named, it must exist on the child; when
// it is unset, the child's first declared metric is used, or the
// child is dropped if it declares none.
func selectSubmetric(entity metric.Entity, submetric string) (metric.Metric, bool) {
	if submetric != "" {
		return entity.MetricByName(submetric)
	}
	if len(entity.Metrics) == 0 {
		return metric.Metric{}, false
	}
	return entity.Metrics[0], true
}
