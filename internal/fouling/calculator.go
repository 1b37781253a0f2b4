package fouling

import (
	"math"
	"strings"
)

// RatingEntry is one fouling observation against an inspection component.
// Level is the fouling rating 0 (clean) to 5 (heavy calcareous growth),
// Coverage is the observed percentage of the component surface affected.
type RatingEntry struct {
	Level    int
	Coverage float64
}

// Component is a named inspection location with zero or more rating entries.
type Component struct {
	Name    string
	Entries []RatingEntry
}

// componentWeight maps a component-name substring to its drag criticality.
// Evaluated in order, first match wins, so specific locations must appear
// before generic ones ("propeller" before "hull").
type componentWeight struct {
	substr string
	weight float64
}

var componentWeights = []componentWeight{
	{"propeller", 2.0},
	{"sea chest", 2.0},
	{"sea-chest", 2.0},
	{"rudder", 1.8},
	{"grille", 1.8},
	{"sonar dome", 1.5},
	{"niche", 1.5},
	{"waterline", 1.3},
	{"bow", 1.2},
	{"stern", 1.2},
	{"hull", 1.0},
}

const defaultWeight = 1.0

func weightFor(name string) float64 {
	lower := strings.ToLower(name)
	for _, cw := range componentWeights {
		if strings.Contains(lower, cw.substr) {
			return cw.weight
		}
	}
	return defaultWeight
}

// dragTable holds hull drag penalty percentages for integer fouling
// levels 0..5. Fractional coverage-weighted levels interpolate linearly.
var dragTable = [6]float64{0, 3, 7, 12, 18, 25}

// NavigabilityScore summarizes fouling severity across all assessed
// components as a 0-100 score, weighting each observation by the drag
// criticality of its location. Returns nil when nothing was assessed.
func NavigabilityScore(components []Component) *int {
	assessed := 0
	total := 0.0

	for _, comp := range components {
		w := weightFor(comp.Name)
		for _, e := range comp.Entries {
			assessed++
			total += math.Pow(float64(e.Level), 1.5) * (e.Coverage / 100.0) * w
		}
	}

	if assessed == 0 {
		return nil
	}

	normalized := math.Min(total/(float64(assessed)*0.5), 50)
	score := 100 - normalized
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	rounded := int(math.Round(score))
	return &rounded
}

// HullPerformanceScore estimates the drag impact of the observed fouling:
// the coverage-weighted average level across entries with nonzero coverage
// is mapped through the drag table and subtracted from 100. Returns nil
// when no entry has nonzero coverage.
func HullPerformanceScore(components []Component) *int {
	sumCoverage := 0.0
	sumWeighted := 0.0

	for _, comp := range components {
		for _, e := range comp.Entries {
			if e.Coverage <= 0 {
				continue
			}
			sumCoverage += e.Coverage
			sumWeighted += e.Coverage * float64(e.Level)
		}
	}

	if sumCoverage == 0 {
		return nil
	}

	avg := sumWeighted / sumCoverage
	if avg < 0 {
		avg = 0
	}
	if avg > 5 {
		avg = 5
	}

	lower := int(math.Floor(avg))
	drag := dragTable[lower]
	if lower < 5 {
		frac := avg - float64(lower)
		drag += frac * (dragTable[lower+1] - dragTable[lower])
	}

	score := 100 - drag
	if score < 0 {
		score = 0
	}

	rounded := int(math.Round(score))
	return &rounded
}
