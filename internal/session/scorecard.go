package session

import (
	"context"
	"math"
	"slices"
	"time"

	"esg-kpi/internal/calc"
	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/kpierr"
	"esg-kpi/internal/scoring"
)

// OnTrackThreshold is the normalized score at or above which a KPI is on track.
const OnTrackThreshold = 75.0

const (
	LabelOnTrack        = "On Track"
	LabelNeedsAttention = "Needs Attention"
)

// errNoData is returned when a scorecard is requested before any KPI has a
// value. Match it with errors.Is(err, kpierr.NoData).
func errNoData() error {
	return kpierr.New(kpierr.NoData, "", "Please input data for at least one KPI before viewing the dashboard")
}

// KPIScore is one scorecard row.
type KPIScore struct {
	KPI      string     `json:"kpi"`
	Category string     `json:"category"`
	Value    calc.Value `json:"value"`
	Unit     string     `json:"unit,omitempty"`
	Score    *float64   `json:"score,omitempty"`
	Label    string     `json:"label,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// CategoryScore aggregates the scored KPIs of one pillar.
type CategoryScore struct {
	Category string  `json:"category"`
	Score    float64 `json:"score"`
	Scored   int     `json:"scored"`
}

// Scorecard is the dashboard data of a session.
type Scorecard struct {
	SessionID   string          `json:"session_id"`
	Industry    string          `json:"industry,omitempty"`
	KPIs        []KPIScore      `json:"kpis"`
	Categories  []CategoryScore `json:"categories"`
	Overall     float64         `json:"overall_score"`
	Scored      int             `json:"scored"`
	Total       int             `json:"total"`
	Completion  float64         `json:"completion_rate"`
	TopCategory string          `json:"top_category,omitempty"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Scorers bundles the scoring engines. Narrative may be nil, in which case
// narrative KPIs are listed without a score.
type Scorers struct {
	Normalizer *scoring.Normalizer
	Narrative  *scoring.NarrativeScorer
}

// Scorecard normalizes every KPI value, averages per category and overall.
// The overall score averages only categories with at least one score.
func (s *State) Scorecard(ctx context.Context, sc Scorers) (*Scorecard, error) {
	s.mu.Lock()
	industry := s.industry
	total := len(s.trackedLocked())
	if industry != "" && s.deps.Index != nil {
		total = s.deps.Index.TotalKPIs(industry)
	}
	values := make(map[string]calc.Value)
	for name, st := range s.kpis {
		if !st.Value.IsPending() {
			values[name] = st.Value
		}
	}
	s.mu.Unlock()

	if len(values) == 0 {
		return nil, errNoData()
	}

	narratives := make(map[string]string)
	for name, v := range values {
		if v.Kind == calc.KindNarrative {
			narratives[name] = v.Text
		}
	}
	var narrativeScores map[string]float64
	var narrativeErrs map[string]error
	if sc.Narrative != nil && len(narratives) > 0 {
		narrativeScores, narrativeErrs = sc.Narrative.ScoreAll(ctx, narratives)
	}

	card := &Scorecard{
		SessionID:   s.ID,
		Industry:    industry,
		Total:       total,
		GeneratedAt: time.Now(),
	}

	names := make([]string, 0, len(values))
	for n := range values {
		names = append(names, n)
	}
	slices.Sort(names)

	for _, name := range names {
		v := values[name]
		row := KPIScore{KPI: name, Value: v, Category: s.categoryOf(industry, name)}
		if ref, err := s.deps.Catalogue.GetReference(name); err == nil {
			row.Unit = ref.Unit
		}

		switch v.Kind {
		case calc.KindNumeric:
			if sc.Normalizer == nil {
				row.Error = "no normalizer configured"
				break
			}
			score, err := sc.Normalizer.Normalize(name, v.Number)
			if err != nil {
				row.Error = err.Error()
				break
			}
			row.Score = &score
		case calc.KindNarrative:
			if score, ok := narrativeScores[name]; ok {
				scaled := score * 100
				row.Score = &scaled
			} else if err := narrativeErrs[name]; err != nil {
				row.Error = err.Error()
			} else {
				row.Error = "narrative scoring unavailable"
			}
		}

		if row.Score != nil {
			*row.Score = round1(*row.Score)
			row.Label = LabelNeedsAttention
			if *row.Score >= OnTrackThreshold {
				row.Label = LabelOnTrack
			}
			card.Scored++
		}
		card.KPIs = append(card.KPIs, row)
	}

	card.Categories = aggregate(card.KPIs)
	var sum float64
	var counted int
	best := -1.0
	for _, c := range card.Categories {
		if c.Scored == 0 {
			continue
		}
		sum += c.Score
		counted++
		if c.Score > best {
			best = c.Score
			card.TopCategory = c.Category
		}
	}
	if counted > 0 {
		card.Overall = round1(sum / float64(counted))
	}
	if card.Total < card.Scored {
		card.Total = card.Scored
	}
	if card.Total > 0 {
		card.Completion = round1(float64(card.Scored) / float64(card.Total) * 100)
	}
	return card, nil
}

func (s *State) categoryOf(industry, kpi string) string {
	if s.deps.Index == nil {
		return catalogue.CategoryUnclassified
	}
	if industry == "" {
		if d, err := s.deps.Index.Details(kpi); err == nil {
			return d.Category()
		}
		return catalogue.CategoryUnclassified
	}
	return s.deps.Index.CategoryOf(industry, kpi)
}

// aggregate averages scores per category. The three pillars are always
// present; other categories appear only when used.
func aggregate(rows []KPIScore) []CategoryScore {
	order := slices.Clone(catalogue.Categories)
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range rows {
		if !slices.Contains(order, r.Category) {
			order = append(order, r.Category)
		}
		if r.Score == nil {
			continue
		}
		sums[r.Category] += *r.Score
		counts[r.Category]++
	}

	out := make([]CategoryScore, 0, len(order))
	for _, c := range order {
		cs := CategoryScore{Category: c, Scored: counts[c]}
		if cs.Scored > 0 {
			cs.Score = round1(sums[c] / float64(cs.Scored))
		}
		out = append(out, cs)
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
