// Package retry runs flaky calls against external services with bounded
// exponential backoff.
package retry

import (
	"context"
	"errors"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/spigell/applicant-ranker/internal/utils"
	"go.uber.org/zap"
)

// Config controls retry behavior.
type Config struct {
	MaxRetries  int           `mapstructure:"max-retries"`
	InitialWait time.Duration `mapstructure:"initial-wait"`
	MaxWait     time.Duration `mapstructure:"max-wait"`
	Multiplier  float64       `mapstructure:"multiplier"`
}

// Default is suitable for most HTTP calls.
var Default = Config{
	MaxRetries:  3,
	InitialWait: 500 * time.Millisecond,
	MaxWait:     10 * time.Second,
	Multiplier:  2.0,
}

// Classifier decides whether an error is worth another attempt.
type Classifier func(error) bool

var wait = utils.WaitFor

// WithDefaults fills zero fields from Default.
func (c Config) WithDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.InitialWait <= 0 {
		c.InitialWait = Default.InitialWait
	}
	if c.MaxWait <= 0 {
		c.MaxWait = Default.MaxWait
	}
	if c.Multiplier < 1 {
		c.Multiplier = Default.Multiplier
	}
	return c
}

// Backoff returns the delay before the retry that follows attempt (zero based).
func (c Config) Backoff(attempt int) time.Duration {
	d := time.Duration(float64(c.InitialWait) * math.Pow(c.Multiplier, float64(attempt)))
	if d > c.MaxWait || d <= 0 {
		d = c.MaxWait
	}
	return d
}

// Do calls fn up to MaxRetries+1 times. It stops early on success, on an
// error the classifier rejects, or when ctx is done. A nil classifier means
// IsTransient.
func Do[T any](ctx context.Context, cfg Config, logger *zap.Logger, retryable Classifier, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if logger == nil {
		logger = zap.NewNop()
	}
	if retryable == nil {
		retryable = IsTransient
	}
	cfg = cfg.WithDefaults()

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !retryable(err) || attempt == cfg.MaxRetries {
			break
		}

		delay := cfg.Backoff(attempt)
		logger.Debug("retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// StatusError reports a non-success HTTP status from a remote service.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "bad status: " + e.Status
	}
	return "bad status: " + http.StatusText(e.Code)
}

// IsRetryableStatus returns true for HTTP status codes worth retrying.
func IsRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// IsTransient returns true for network failures and retryable HTTP statuses.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return IsRetryableStatus(statusErr.Code)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	return false
}
