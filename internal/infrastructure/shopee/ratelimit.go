package shopee

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TrafficClass selects a rate limit bucket.
type TrafficClass int

const (
	// ClassDefault covers ordinary read/write endpoints.
	ClassDefault TrafficClass = iota
	// ClassMedia covers bulk and media upload endpoints, which Shopee
	// throttles far more aggressively.
	ClassMedia
)

func (c TrafficClass) String() string {
	if c == ClassMedia {
		return "media"
	}
	return "default"
}

// BucketConfig configures a single traffic class.
type BucketConfig struct {
	MaxConcurrent  int
	Reservoir      int
	RefillAmount   int
	RefillInterval time.Duration
	MinSpacing     time.Duration
}

// DefaultBucketConfigs returns the production bucket configuration:
// a moderate default class (~1 req/sec sustained) and a restrictive
// class for media uploads.
func DefaultBucketConfigs() map[TrafficClass]BucketConfig {
	return map[TrafficClass]BucketConfig{
		ClassDefault: {
			MaxConcurrent:  5,
			Reservoir:      60,
			RefillAmount:   60,
			RefillInterval: time.Minute,
			MinSpacing:     time.Second,
		},
		ClassMedia: {
			MaxConcurrent:  2,
			Reservoir:      10,
			RefillAmount:   10,
			RefillInterval: time.Minute,
			MinSpacing:     3 * time.Second,
		},
	}
}

// Permit represents a held rate limit slot. Release must be called
// exactly once; extra calls are no-ops.
type Permit struct {
	bucket  *bucket
	release sync.Once
}

// Release returns the concurrency slot to the bucket.
func (p *Permit) Release() {
	p.release.Do(func() {
		<-p.bucket.sem
	})
}

type bucket struct {
	cfg       BucketConfig
	sem       chan struct{}
	reservoir chan struct{}
	spacing   *rate.Limiter
	stop      chan struct{}
	stopOnce  sync.Once
}

func newBucket(cfg BucketConfig) *bucket {
	b := &bucket{
		cfg:       cfg,
		sem:       make(chan struct{}, cfg.MaxConcurrent),
		reservoir: make(chan struct{}, cfg.Reservoir),
		stop:      make(chan struct{}),
	}
	if cfg.MinSpacing > 0 {
		b.spacing = rate.NewLimiter(rate.Every(cfg.MinSpacing), 1)
	}
	for i := 0; i < cfg.Reservoir; i++ {
		b.reservoir <- struct{}{}
	}
	go b.refillLoop()
	return b
}

// refillLoop tops the reservoir back up to RefillAmount on every tick.
// Long-run throughput is capped by the reservoir even when concurrency
// is low.
func (b *bucket) refillLoop() {
	ticker := time.NewTicker(b.cfg.RefillInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		refill:
			for len(b.reservoir) < b.cfg.RefillAmount {
				select {
				case b.reservoir <- struct{}{}:
				default:
					break refill
				}
			}
		case <-b.stop:
			return
		}
	}
}

// RateLimiter is a bounded-concurrency, reservoir-refill scheduler.
// It never drops a request: Acquire only delays, and the caller's
// context is the only way to abandon a queued acquire.
type RateLimiter struct {
	buckets map[TrafficClass]*bucket
	logger  zerolog.Logger
}

// NewRateLimiter creates a rate limiter with the production buckets.
func NewRateLimiter(logger zerolog.Logger) *RateLimiter {
	return NewRateLimiterWithConfig(DefaultBucketConfigs(), logger)
}

// NewRateLimiterWithConfig creates a rate limiter with explicit bucket
// configuration. Tests use this to instantiate isolated copies.
func NewRateLimiterWithConfig(configs map[TrafficClass]BucketConfig, logger zerolog.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[TrafficClass]*bucket, len(configs)),
		logger:  logger,
	}
	for class, cfg := range configs {
		rl.buckets[class] = newBucket(cfg)
	}
	return rl
}

// Acquire blocks until a permit is available for the class or ctx is
// done. The returned permit must be released exactly once.
func (rl *RateLimiter) Acquire(ctx context.Context, class TrafficClass) (*Permit, error) {
	b, ok := rl.buckets[class]
	if !ok {
		// A missing bucket is a wiring bug, not a caller error.
		return nil, ErrRateLimitInternal
	}

	start := time.Now()

	// Reservoir budget first: consumed permanently per request.
	select {
	case <-b.reservoir:
	case <-ctx.Done():
		return nil, &NetworkError{Op: "rate limit acquire", Err: ctx.Err()}
	}

	if b.spacing != nil {
		if err := b.spacing.Wait(ctx); err != nil {
			b.returnReservoirToken()
			return nil, &NetworkError{Op: "rate limit acquire", Err: err}
		}
	}

	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		b.returnReservoirToken()
		return nil, &NetworkError{Op: "rate limit acquire", Err: ctx.Err()}
	}

	if wait := time.Since(start); wait > time.Second {
		rl.logger.Debug().
			Str("class", class.String()).
			Dur("waited", wait).
			Msg("Rate limiter delayed request")
	}
	rateLimiterWaits.WithLabelValues(class.String()).Observe(time.Since(start).Seconds())

	return &Permit{bucket: b}, nil
}

func (b *bucket) returnReservoirToken() {
	select {
	case b.reservoir <- struct{}{}:
	default:
	}
}

// Close stops the refill goroutines. Queued acquires drain the
// remaining reservoir and then block until their context is done.
func (rl *RateLimiter) Close() {
	for _, b := range rl.buckets {
		b.stopOnce.Do(func() { close(b.stop) })
	}
}
