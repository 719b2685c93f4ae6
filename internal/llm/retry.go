package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Retrying wraps a Provider with a per-attempt timeout and a bounded number
// of retries with linear backoff.
type Retrying struct {
	Provider Provider
	Timeout  time.Duration
	Retries  int
	Backoff  time.Duration
}

var _ Provider = (*Retrying)(nil)

func (r *Retrying) GenerateResponse(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= r.Retries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * r.Backoff
			log.Warn().Err(lastErr).Int("attempt", attempt).Dur("backoff", wait).Msg("Retrying LLM call")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}

		out, err := r.once(ctx, prompt, systemPrompt, options)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("after %d attempts: %w", r.Retries+1, lastErr)
}

func (r *Retrying) once(ctx context.Context, prompt, systemPrompt string, options map[string]interface{}) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	return r.Provider.GenerateResponse(ctx, prompt, systemPrompt, options)
}
