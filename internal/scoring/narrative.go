package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"esg-kpi/internal/catalogue"
	"esg-kpi/internal/kpierr"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Embedder maps texts into a shared vector space. Implementations must
// return one vector per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultEmbeddingTimeout bounds a single scoring call.
const DefaultEmbeddingTimeout = 30 * time.Second

// NarrativeScorer rates free text between a KPI's best and worst exemplar.
// Exemplar embeddings are cached; concurrent first requests for the same
// exemplar share one embedding call.
type NarrativeScorer struct {
	catalogue *catalogue.Catalogue
	embedder  Embedder
	timeout   time.Duration

	group singleflight.Group
	mu    sync.RWMutex
	cache map[string][]float32
}

// NewNarrativeScorer creates a scorer. A non-positive timeout selects
// DefaultEmbeddingTimeout.
func NewNarrativeScorer(cat *catalogue.Catalogue, embedder Embedder, timeout time.Duration) *NarrativeScorer {
	if timeout <= 0 {
		timeout = DefaultEmbeddingTimeout
	}
	return &NarrativeScorer{
		catalogue: cat,
		embedder:  embedder,
		timeout:   timeout,
		cache:     make(map[string][]float32),
	}
}

// Score returns a value in [0, 1]: near 1 when text reads like the best
// exemplar, near 0 when it reads like the worst.
func (s *NarrativeScorer) Score(ctx context.Context, kpi, text string) (float64, error) {
	ref, err := s.catalogue.GetReference(kpi)
	if err != nil {
		return 0, err
	}
	if ref.BestResponse == "" || ref.WorstResponse == "" {
		return 0, kpierr.New(kpierr.Configuration, kpi, "reference has no best/worst narrative")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	best, err := s.reference(ctx, ref.BestResponse)
	if err != nil {
		return 0, kpierr.Wrap(kpierr.EmbeddingService, kpi, err)
	}
	worst, err := s.reference(ctx, ref.WorstResponse)
	if err != nil {
		return 0, kpierr.Wrap(kpierr.EmbeddingService, kpi, err)
	}
	input, err := s.embedOne(ctx, text)
	if err != nil {
		return 0, kpierr.Wrap(kpierr.EmbeddingService, kpi, err)
	}

	dBest, err := euclidean(input, best)
	if err != nil {
		return 0, kpierr.Wrap(kpierr.EmbeddingService, kpi, err)
	}
	dWorst, err := euclidean(input, worst)
	if err != nil {
		return 0, kpierr.Wrap(kpierr.EmbeddingService, kpi, err)
	}

	return InterpolateDistances(dBest, dWorst), nil
}

// InterpolateDistances converts the distances to the best and worst exemplar
// into a score: dWorst / (dBest + dWorst), or 0.5 when both are zero.
func InterpolateDistances(dBest, dWorst float64) float64 {
	total := dBest + dWorst
	if total == 0 {
		return 0.5
	}
	return dWorst / total
}

func (s *NarrativeScorer) reference(ctx context.Context, text string) ([]float32, error) {
	s.mu.RLock()
	vec, ok := s.cache[text]
	s.mu.RUnlock()
	if ok {
		return vec, nil
	}

	ch := s.group.DoChan(text, func() (interface{}, error) {
		// Other callers may be waiting on this embedding; it must outlive ctx.
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		v, err := s.embedOne(shared, text)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[text] = v
		s.mu.Unlock()
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float32), nil
	}
}

func (s *NarrativeScorer) embedOne(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedder returned %d vectors for 1 input", len(vecs))
	}
	return vecs[0], nil
}

func euclidean(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimensions differ: %d vs %d", len(a), len(b))
	}
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum), nil
}

// ScoreAll scores several narratives concurrently. A failure is reported
// for its KPI only and never stops the others.
func (s *NarrativeScorer) ScoreAll(ctx context.Context, narratives map[string]string) (map[string]float64, map[string]error) {
	var mu sync.Mutex
	scores := make(map[string]float64, len(narratives))
	failures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for kpi, text := range narratives {
		g.Go(func() error {
			score, err := s.Score(gctx, kpi, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Str("kpi", kpi).Msg("Narrative scoring failed")
				failures[kpi] = err
				return nil
			}
			scores[kpi] = score
			return nil
		})
	}
	_ = g.Wait()

	return scores, failures
}
