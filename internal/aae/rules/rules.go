// Package rules implements the named reducers: pure functions from an
// instance array (plus rule-specific args) to a single Score. Every
// rule's contract guarantees Missing on empty post-filter input.
package rules

import (
	"math"
	"strconv"

	"github.com/isle-project/aae/internal/aae/instance"
)

// Func is a registered rule: given the raw per-(tag,user) instances and
// the metric's rule[1:] arguments, produce one score.
type Func func(instances []instance.Instance, args []string) instance.Score

func scores(instances []instance.Instance, mode Mode) []instance.Score {
	out := make([]instance.Score, 0, len(instances))
	for _, inst := range instances {
		if instance.IsMissing(inst) {
			switch mode {
			case ModeZero:
				out = append(out, 0)
			case ModeIgnore:
				// dropped
			}
			continue
		}
		out = append(out, inst.Score)
	}
	return out
}

func modeArg(args []string, index int) Mode {
	if index < len(args) && Mode(args[index]) == ModeIgnore {
		return ModeIgnore
	}
	return ModeZero
}

func mean(values []instance.Score) instance.Score {
	if len(values) == 0 {
		return instance.Missing
	}
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	return instance.Score(sum / float64(len(values)))
}

// Average is the arithmetic mean rule. args: [missing].
func Average(instances []instance.Instance, args []string) instance.Score {
	return mean(scores(instances, modeArg(args, 0)))
}

// DropLowest removes the single smallest score and means the rest; if
// only one value remains it is returned unchanged. args: [missing].
func DropLowest(instances []instance.Instance, args []string) instance.Score {
	values := scores(instances, modeArg(args, 0))
	if len(values) == 0 {
		return instance.Missing
	}
	if len(values) == 1 {
		return values[0]
	}
	lowestIdx := 0
	for i, v := range values {
		if v < values[lowestIdx] {
			lowestIdx = i
		}
	}
	rest := make([]instance.Score, 0, len(values)-1)
	rest = append(rest, values[:lowestIdx]...)
	rest = append(rest, values[lowestIdx+1:]...)
	return mean(rest)
}

// DropNLowest means the top (len-N) scores; if len <= N it returns the
// maximum (or Missing if the input is empty). args: [N, missing].
func DropNLowest(instances []instance.Instance, args []string) instance.Score {
	n := 0
	if len(args) > 0 {
		if parsed, err := strconv.Atoi(args[0]); err == nil {
			n = parsed
		}
	}
	values := scores(instances, modeArg(args, 1))
	if len(values) == 0 {
		return instance.Missing
	}
	if len(values) <= n {
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max
	}

	sorted := append([]instance.Score(nil), values...)
	sortScores(sorted)
	keep := sorted[n:]
	return mean(keep)
}

func sortScores(values []instance.Score) {
	// insertion sort: inputs are small (one score per sibling component)
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && values[j-1] > values[j]; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}
}

// BinaryProportion returns the percentage (×100) of scores >= 50.
// args: [missing].
func BinaryProportion(instances []instance.Instance, args []string) instance.Score {
	values := scores(instances, modeArg(args, 0))
	if len(values) == 0 {
		return instance.Missing
	}
	passing := 0
	for _, v := range values {
		if v >= 50 {
			passing++
		}
	}
	return instance.Score(float64(passing) / float64(len(values)) * 100)
}

// DecayedAverage weights each instance's score by an exponential decay
// of its distance past the deadline (in minutes, capped at cap).
// Missing scores are always ignored; there is no mode argument.
// args: [deadlineMs, halvingMinutes, cap?].
func DecayedAverage(instances []instance.Instance, args []string) instance.Score {
	if len(args) < 2 {
		return instance.Missing
	}
	deadline, err1 := strconv.ParseFloat(args[0], 64)
	halving, err2 := strconv.ParseFloat(args[1], 64)
	if err1 != nil || err2 != nil || halving == 0 {
		return instance.Missing
	}
	cap := math.Inf(1)
	if len(args) > 2 {
		if parsed, err := strconv.ParseFloat(args[2], 64); err == nil {
			cap = parsed
		}
	}

	var weightedSum, weightSum float64
	any := false
	for _, inst := range instances {
		if instance.IsMissing(inst) {
			continue
		}
		any = true
		minutes := math.Max(0, (float64(inst.Time)-deadline)/60000.0)
		if minutes > cap {
			minutes = cap
		}
		decay := math.Pow(2, -minutes/halving)
		weightedSum += float64(inst.Score) * decay
		weightSum += decay
	}
	if !any || weightSum == 0 {
		return instance.Missing
	}
	return instance.Score(weightedSum / weightSum)
}
