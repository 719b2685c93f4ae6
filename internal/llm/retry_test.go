package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestRetryingSucceedsAfterFailures(t *testing.T) {
	calls := 0
	p := &Retrying{
		Provider: ProviderFunc(func(ctx context.Context, prompt, _ string, _ map[string]interface{}) (string, error) {
			calls++
			if calls < 3 {
				return "", errors.New("503")
			}
			return "ok: " + prompt, nil
		}),
		Retries: 2,
		Backoff: time.Millisecond,
	}

	out, err := p.GenerateResponse(context.Background(), "hi", "", nil)
	if err != nil {
		t.Fatalf("GenerateResponse() error: %v", err)
	}
	if out != "ok: hi" || calls != 3 {
		t.Errorf("GenerateResponse() = %q after %d calls", out, calls)
	}
}

func TestRetryingGivesUp(t *testing.T) {
	calls := 0
	cause := errors.New("quota exceeded")
	p := &Retrying{
		Provider: ProviderFunc(func(context.Context, string, string, map[string]interface{}) (string, error) {
			calls++
			return "", cause
		}),
		Retries: 1,
		Backoff: time.Millisecond,
	}

	_, err := p.GenerateResponse(context.Background(), "hi", "", nil)
	if !errors.Is(err, cause) {
		t.Errorf("GenerateResponse() error = %v, want %v", err, cause)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if !strings.Contains(err.Error(), "after 2 attempts") {
		t.Errorf("error message = %q", err.Error())
	}
}

func TestRetryingTimeout(t *testing.T) {
	p := &Retrying{
		Provider: ProviderFunc(func(ctx context.Context, _, _ string, _ map[string]interface{}) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}),
		Timeout: 10 * time.Millisecond,
	}

	_, err := p.GenerateResponse(context.Background(), "hang", "", nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("GenerateResponse() error = %v, want deadline exceeded", err)
	}
}

func TestNewGeminiProviderRequiresKey(t *testing.T) {
	if _, err := NewGeminiProvider(context.Background(), "", "", ""); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewGeminiProvider() error = %v, want ErrNoAPIKey", err)
	}
}
