package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// LocalLimiter keeps a token bucket per key in process memory. Counters are
// not shared between replicas.
func LocalLimiter(allow AllowFunc) LimiterFactory {
	return func(max int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
		return LocalRateLimit(max, window, keyFn, allow)
	}
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// localBuckets evicts keys idle for longer than idle once it grows past sweepAt.
type localBuckets struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	every   rate.Limit
	burst   int
	idle    time.Duration
	sweepAt int
}

const localSweepThreshold = 10_000

func (b *localBuckets) get(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.buckets) >= b.sweepAt {
		for k, v := range b.buckets {
			if now.Sub(v.lastSeen) > b.idle {
				delete(b.buckets, k)
			}
		}
	}
	bk, ok := b.buckets[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(b.every, b.burst)}
		b.buckets[key] = bk
	}
	bk.lastSeen = now
	return bk.lim
}

// LocalRateLimit refills max tokens per window, so a fresh key may burst to
// max and then proceeds at the average rate.
func LocalRateLimit(max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if max <= 0 || window <= 0 || keyFn == nil {
		return passThrough
	}
	store := &localBuckets{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(max)),
		burst:   max,
		idle:    window,
		sweepAt: localSweepThreshold,
	}
	return func(c *gin.Context) {
		if exempt(c, allow) {
			c.Next()
			return
		}
		now := time.Now()
		lim := store.get(keyFn(c), now)
		r := lim.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			setLimitHeaders(c, max, 0, delay)
			deny(c, delay)
			return
		}
		setLimitHeaders(c, max, int(lim.TokensAt(now)), window)
		c.Next()
	}
}
