// Package ratelimit throttles calls to an embedding service.
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/criskgl/peritoai/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// DefaultBackoff is applied after a rate limit error without Retry-After.
const DefaultBackoff = 60 * time.Second

// Classifier reports whether err is a rate limit response and the delay in
// seconds the server asked for (zero when unknown).
type Classifier func(err error) (limited bool, retryAfterSeconds int)

// Config holds rate limiting configuration.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size. Defaults to the ceiling of
	// RequestsPerSecond, at least 1.
	BurstSize int

	// Classifier detects rate limit errors. Nil disables backoff.
	Classifier Classifier
}

// Limiter is a token bucket with a backoff window set by rate limit errors.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewLimiter creates a limiter allowing rps requests per second.
func NewLimiter(rps float64, burst int) *Limiter {
	if burst <= 0 {
		burst = max(1, int(math.Ceil(rps)))
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by Backoff.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if d := retryAt.Sub(l.now()); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff pauses all callers for the given number of seconds, or
// DefaultBackoff when seconds is not positive.
func (l *Limiter) Backoff(seconds int) {
	d := DefaultBackoff
	if seconds > 0 {
		d = time.Duration(seconds) * time.Second
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.retryAt = l.now().Add(d)
}

// Service wraps an embedding service with a Limiter. Every Embed and
// EmbedBatch call takes one token. Failed calls are not retried.
type Service struct {
	next     driven.EmbeddingService
	limiter  *Limiter
	classify Classifier
}

// Wrap returns next throttled by cfg. A non-positive RequestsPerSecond
// returns next unchanged.
func Wrap(next driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if cfg.RequestsPerSecond <= 0 {
		return next
	}
	return &Service{
		next:     next,
		limiter:  NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize),
		classify: cfg.Classifier,
	}
}

// Embed waits for a token, then embeds text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vec, err := s.next.Embed(ctx, text)
	s.observe(err)
	return vec, err
}

// EmbedBatch waits for a token, then embeds texts.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	vecs, err := s.next.EmbedBatch(ctx, texts)
	s.observe(err)
	return vecs, err
}

func (s *Service) observe(err error) {
	if err == nil || s.classify == nil {
		return
	}
	if limited, secs := s.classify(err); limited {
		s.limiter.Backoff(secs)
	}
}

// Dimensions returns the wrapped service's vector size.
func (s *Service) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model name.
func (s *Service) ModelName() string {
	return s.next.ModelName()
}

// Ping is not throttled.
func (s *Service) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *Service) Close() error {
	return s.next.Close()
}
