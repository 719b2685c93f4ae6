// Package scoring turns raw KPI values into comparable scores: numeric values
// are normalized onto 0-100 against the reference anchors, narratives are
// scored by embedding distance to best and worst exemplars.
package scoring

import (
	"math"

	"esg-kpi/internal/catalogue"
)

// DegenerateScore is returned when a reference's best and worst anchors coincide.
const DegenerateScore = 50.0

// Normalize maps raw onto [0, 100] so that the reference's best anchor scores
// 100 and its worst scores 0, whichever direction is better.
func Normalize(ref catalogue.KPIReference, raw float64) float64 {
	if ref.Degenerate() {
		return DegenerateScore
	}
	if math.IsNaN(raw) {
		return 0
	}

	best, worst := ref.BestScore, ref.WorstScore
	if ref.HigherIsBetter() {
		return clamp((raw-worst)/(best-worst)*100, 0, 100)
	}
	return 100 - clamp((raw-best)/(worst-best)*100, 0, 100)
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}

// Normalizer resolves references from the catalogue.
type Normalizer struct {
	catalogue *catalogue.Catalogue
}

// NewNormalizer creates a Normalizer over cat.
func NewNormalizer(cat *catalogue.Catalogue) *Normalizer {
	return &Normalizer{catalogue: cat}
}

// Normalize scores raw for the named KPI.
func (n *Normalizer) Normalize(kpi string, raw float64) (float64, error) {
	ref, err := n.catalogue.GetReference(kpi)
	if err != nil {
		return 0, err
	}
	return Normalize(ref, raw), nil
}
