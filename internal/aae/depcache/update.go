package depcache

import (
	"context"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
	"github.com/isle-project/aae/internal/aae/policy"
	"github.com/isle-project/aae/internal/aae/store"
	"github.com/isle-project/aae/internal/aaeerr"
)

// Computer is the subset of the engine's public surface updateAutoComputes
// needs. engine.Engine satisfies this structurally; depcache never
// imports the engine package, avoiding the import cycle the mutual
// recursion between compute and the loader already required elsewhere.
type Computer interface {
	Compute(ctx context.Context, entityID instance.EntityID, m metric.Metric, users []instance.UserID, options policy.Options) (map[instance.UserID]instance.Instance, error)
}

// UpdateAutoComputes fetches or builds the plan list for (lessonID,
// componentMetric), runs each plan's computation once, persists the
// resulting aggregate(s), and records every persisted key in the
// cache's index. Returns the user's updated completions.
func UpdateAutoComputes(
	ctx context.Context,
	cache *Cache,
	reader store.EntityReader,
	writer store.UserWriter,
	computer Computer,
	user instance.UserID,
	componentMetric string,
	lessonID instance.EntityID,
	namespaceID instance.EntityID,
) (store.User, error) {
	plans, err := cache.EnsurePlans(ctx, reader, componentMetric, lessonID, namespaceID)
	if err != nil {
		return store.User{}, err
	}

	usr, err := writer.LoadUser(ctx, user)
	if err != nil {
		return store.User{}, aaeerr.Persistencef(err, "loading user %s", user)
	}
	if usr.Completions == nil {
		usr.Completions = make(map[string]instance.Instance)
	}

	for _, plan := range plans {
		if err := applyPlan(ctx, computer, &usr, user, plan); err != nil {
			return store.User{}, err
		}
	}

	if err := writer.SaveUser(ctx, usr); err != nil {
		return store.User{}, aaeerr.Persistencef(err, "saving user %s", user)
	}
	return usr, nil
}

func applyPlan(ctx context.Context, computer Computer, usr *store.User, user instance.UserID, plan Plan) error {
	switch plan.Kind {
	case PlanLessonOnly:
		out, err := computer.Compute(ctx, plan.LessonID, plan.LessonMetric, []instance.UserID{user}, policy.Options{})
		if err != nil {
			return err
		}
		usr.Completions[store.CompletionKey(instance.LevelLesson, plan.LessonID, plan.LessonMetric.Name)] = out[user]
		return nil

	case PlanNamespaceOnly:
		out, err := computer.Compute(ctx, plan.NamespaceID, plan.NamespaceMetric, []instance.UserID{user}, policy.Options{})
		if err != nil {
			return err
		}
		usr.Completions[store.CompletionKey(instance.LevelNamespace, plan.NamespaceID, plan.NamespaceMetric.Name)] = out[user]
		return nil

	case PlanDual:
		out, err := computer.Compute(ctx, plan.NamespaceID, plan.NamespaceMetric, []instance.UserID{user}, policy.Options{})
		if err != nil {
			return err
		}
		nsInstance := out[user]
		usr.Completions[store.CompletionKey(instance.LevelNamespace, plan.NamespaceID, plan.NamespaceMetric.Name)] = nsInstance

		lessonInstance, ok := findByEntity(nsInstance.Provenance, plan.LessonID)
		if !ok {
			lessonInstance = instance.MakeMissing(instance.LevelLesson, plan.LessonID, instance.DefaultTag)
		}
		usr.Completions[store.CompletionKey(instance.LevelLesson, plan.LessonID, plan.LessonMetric.Name)] = lessonInstance
		return nil

	default:
		return aaeerr.Invariantf("unrecognized plan kind %q", plan.Kind)
	}
}

// findByEntity locates the child instance in provenance whose Entity
// matches id.
func findByEntity(provenance []instance.Instance, id instance.EntityID) (instance.Instance, bool) {
	for _, inst := range provenance {
		if inst.Entity == id {
			return inst, true
		}
	}
	return instance.Instance{}, false
}
