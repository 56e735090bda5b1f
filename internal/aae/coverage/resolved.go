package coverage

import (
	"context"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
)

// Reader is the subset of store.EntityReader the coverage resolver
// needs to enumerate components, which, unlike every other level, are
// not declared as a fixed child list.
type Reader interface {
	ListChildComponents(ctx context.Context, lessonID instance.EntityID, users []instance.UserID) ([]instance.EntityID, error)
}

// ResolvedChildren carries the concrete child IDs a coverage filter
// selected, plus the lesson ID needed for component-level resolution,
// as a typed field rather than a side-channel value.
type ResolvedChildren struct {
	IDs      []instance.EntityID
	LessonID instance.EntityID // set only when resolving component candidates
}

// ResolveChildren resolves coverage against a fixed child list (every
// level above component).
func ResolveChildren(cov metric.Coverage, children []instance.EntityID) ResolvedChildren {
	return ResolvedChildren{IDs: Resolve(cov, children)}
}

// ResolveComponents resolves coverage against the components that
// distinctly appear in events for lessonID, queried (not declared) via
// ListChildComponents, and attaches that lessonID to the result.
func ResolveComponents(ctx context.Context, reader Reader, cov metric.Coverage, lessonID instance.EntityID, users []instance.UserID) (ResolvedChildren, error) {
	candidates, err := reader.ListChildComponents(ctx, lessonID, users)
	if err != nil {
		return ResolvedChildren{}, err
	}
	return ResolvedChildren{IDs: Resolve(cov, candidates), LessonID: lessonID}, nil
}
