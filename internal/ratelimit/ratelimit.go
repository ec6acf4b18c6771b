// Package ratelimit throttles outbound requests per registrable domain.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"
)

const (
	// BucketTTL bounds how long a domain's bucket is kept. A recreated bucket
	// starts full, so expiry grants at most one extra burst per TTL.
	BucketTTL  = 10 * time.Minute
	maxBuckets = 10_000
)

// Limiter hands out one token bucket per eTLD+1, so amzn.to and
// www.amazon.com.br are throttled independently while every amazon.com.br
// subdomain shares a bucket.
type Limiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets *ristretto.Cache[string, *rate.Limiter]
}

// New returns nil when perSecond is not positive; a nil *Limiter never blocks.
// Buckets live in a bounded cache and expire after BucketTTL.
func New(perSecond float64, burst int) (*Limiter, error) {
	if perSecond <= 0 {
		return nil, nil
	}
	if burst <= 0 {
		burst = 1
	}
	buckets, err := ristretto.NewCache(&ristretto.Config[string, *rate.Limiter]{
		NumCounters:        10 * maxBuckets,
		MaxCost:            maxBuckets,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit buckets: %w", err)
	}
	return &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		buckets: buckets,
	}, nil
}

func (l *Limiter) Close() {
	if l == nil {
		return
	}
	l.buckets.Close()
}

// Wait blocks until rawURL's domain has a free token or ctx is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if l == nil {
		return nil
	}
	return l.bucket(Key(rawURL)).Wait(ctx)
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(l.limit, l.burst)
	l.buckets.SetWithTTL(key, b, 1, BucketTTL)
	l.buckets.Wait()
	return b
}

// Key is the registrable domain of rawURL. IP literals, localhost and hosts
// without a public suffix fall back to the bare hostname.
func Key(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
