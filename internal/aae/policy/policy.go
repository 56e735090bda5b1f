// Package policy merges caller options with metric-level overrides
// into one Policy object per recursion step.
package policy

import (
	"math"

	"github.com/isle-project/aae/internal/aae/instance"
	"github.com/isle-project/aae/internal/aae/metric"
)

// Options are the caller-supplied, outer-bound settings to Compute.
type Options struct {
	TimeFilter *metric.TimeFilter
	Multiples  metric.Multiples
	TagWeights map[instance.TagID]float64
}

// Policy is the merged, per-recursion-step aggregation configuration.
type Policy struct {
	TimeFilter metric.TimeFilter
	Multiples  metric.Multiples
	TagWeights map[instance.TagID]float64
}

// defaultTimeFilter spans the full millisecond range Options/metric
// overrides ever intersect against.
func defaultTimeFilter() metric.TimeFilter {
	return metric.TimeFilter{StartMs: 0, EndMs: math.MaxInt64}
}

// Make builds the Policy for one recursion step: start from defaults,
// overlay options, then overlay the metric's own overrides. TagWeights
// is replaced wholesale by the last non-nil source;
// TimeFilter is intersected; Multiples is replaced if provided.
func Make(options Options, m metric.Metric) Policy {
	p := Policy{
		TimeFilter: defaultTimeFilter(),
		Multiples:  metric.MultiplesLast,
		TagWeights: nil,
	}

	if options.TimeFilter != nil {
		p.TimeFilter = p.TimeFilter.Intersect(*options.TimeFilter)
	}
	if options.Multiples != "" {
		p.Multiples = options.Multiples
	}
	if options.TagWeights != nil {
		p.TagWeights = options.TagWeights
	}

	if m.TimeFilter != nil {
		p.TimeFilter = p.TimeFilter.Intersect(*m.TimeFilter)
	}
	if m.Multiples != "" {
		p.Multiples = m.Multiples
	}
	if m.TagWeights != nil {
		p.TagWeights = m.TagWeights
	}

	return p
}
