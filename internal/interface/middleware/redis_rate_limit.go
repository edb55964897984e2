package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// fixedWindowScript increments the counter, arms the window on the first hit
// and returns {count, remaining ttl in ms}.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter shares counters across replicas through redis.
func RedisLimiter(rdb redis.Cmdable, allow AllowFunc) LimiterFactory {
	return func(max int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc {
		return RateLimit(rdb, max, window, keyFn, allow)
	}
}

// RateLimit counts requests per key in a fixed window and answers 429 past max.
// It fails open when redis is unavailable.
func RateLimit(rdb redis.Cmdable, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return passThrough
	}
	return func(c *gin.Context) {
		if exempt(c, allow) {
			c.Next()
			return
		}
		count, reset, err := hitWindow(c, rdb, keyFn(c), window)
		if err != nil {
			c.Next()
			return
		}
		setLimitHeaders(c, max, max-count, reset)
		if count > max {
			deny(c, reset)
			return
		}
		c.Next()
	}
}

func hitWindow(c *gin.Context, rdb redis.Cmdable, key string, window time.Duration) (int, time.Duration, error) {
	vals, err := fixedWindowScript.Run(c.Request.Context(), rdb, []string{key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, err
	}
	reset := window
	if len(vals) == 2 && vals[1] > 0 {
		reset = time.Duration(vals[1]) * time.Millisecond
	}
	return int(vals[0]), reset, nil
}
