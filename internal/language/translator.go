package language

import (
	"context"

	"golang.org/x/time/rate"
)

// Translator renders text in the target language. source may be Unknown.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// Throttled limits how often the wrapped translator is called. Hosted
// translation APIs enforce per-minute quotas that a large applicant list
// easily exceeds.
type Throttled struct {
	inner   Translator
	limiter *rate.Limiter
}

// NewThrottled allows rps calls per second with the given burst. A
// non-positive rps disables throttling.
func NewThrottled(inner Translator, rps float64, burst int) *Throttled {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttled{inner: inner, limiter: rate.NewLimiter(limit, burst)}
}

func (t *Throttled) Translate(ctx context.Context, text, source, target string) (string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return t.inner.Translate(ctx, text, source, target)
}
