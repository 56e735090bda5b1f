// Package metric defines the Metric configuration object and the
// Entity shape the store layer returns.
package metric

import "github.com/isle-project/aae/internal/aae/instance"

// Multiples controls how repeated events for the same user and
// metric collapse to a single score.
type Multiples string

const (
	MultiplesLast        Multiples = "last"
	MultiplesFirst       Multiples = "first"
	MultiplesMax         Multiples = "max"
	MultiplesPassThrough Multiples = "pass-through"
)

// CoverageKind discriminates the three coverage shapes a metric can
// select its children with.
type CoverageKind string

const (
	CoverageAll     CoverageKind = "all"
	CoverageInclude CoverageKind = "include"
	CoverageExclude CoverageKind = "exclude"
)

// Coverage names which children a metric aggregates over.
type Coverage struct {
	Kind CoverageKind
	IDs  []instance.EntityID
}

// TimeFilter is an inclusive [start,end] millisecond window.
type TimeFilter struct {
	StartMs int64
	EndMs   int64
}

// Intersect returns the tightest window covering both filters: the
// max of the starts and the min of the ends.
func (t TimeFilter) Intersect(other TimeFilter) TimeFilter {
	start := t.StartMs
	if other.StartMs > start {
		start = other.StartMs
	}
	end := t.EndMs
	if other.EndMs < end {
		end = other.EndMs
	}
	return TimeFilter{StartMs: start, EndMs: end}
}

// RuleSpec is the [ruleName, ...args] tuple naming a metric's rule.
type RuleSpec []string

// Name is the metric's rule identifier, or "" if unset.
func (r RuleSpec) Name() string {
	if len(r) == 0 {
		return ""
	}
	return r[0]
}

// Args is the rule's positional arguments.
func (r RuleSpec) Args() []string {
	if len(r) <= 1 {
		return nil
	}
	return r[1:]
}

// Metric specifies how to aggregate at one level of the entity
// hierarchy.
type Metric struct {
	Name  string
	Level instance.Level

	Coverage Coverage
	Rule     RuleSpec

	// Submetric is the metric name to consume from each child entity.
	// Empty means unset; see the tie-break in the coverage/branch loader.
	Submetric string

	// TagWeights is nil when unset, meaning uniform weighting over
	// observed tags.
	TagWeights map[instance.TagID]float64

	// TimeFilter is nil when the metric supplies no override.
	TimeFilter *TimeFilter

	// Multiples is "" when the metric supplies no override; the
	// policy layer substitutes the default ("last").
	Multiples Multiples

	AutoCompute       bool
	VisibleToStudents bool
}

// Entity is the shape the store layer returns for a node in the tree.
type Entity struct {
	ID       instance.EntityID
	Children []instance.EntityID // nil for the component level
	Metrics  []Metric
	Tag      instance.TagID
}

// MetricByName returns the first metric in e.Metrics with the given
// name, or ok=false.
func (e Entity) MetricByName(name string) (Metric, bool) {
	for _, m := range e.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}
