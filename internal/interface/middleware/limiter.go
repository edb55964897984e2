package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/inkwell/pkg/response"
)

// KeyFunc builds a rate-limit key from the request.
type KeyFunc func(c *gin.Context) string

// AllowFunc returns true to let a request bypass the limit.
type AllowFunc func(*gin.Context) bool

// LimiterFactory builds a limiter allowing max requests per window per key.
type LimiterFactory func(max int, window time.Duration, keyFn KeyFunc) gin.HandlerFunc

// NoLimit is the factory used when rate limiting is switched off.
func NoLimit(int, time.Duration, KeyFunc) gin.HandlerFunc {
	return passThrough
}

func passThrough(c *gin.Context) { c.Next() }

func clientIP(c *gin.Context) string {
	if ip := c.GetString(CtxRealIPKey); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func routeOf(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyByIPAndPath limits by client IP and route template.
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + routeOf(c) + ":ip:" + clientIP(c)
	}
}

// KeyByUserID limits by resolved identity within scope, falling back to IP
// for anonymous requests. Each limiter needs its own scope so route groups
// with different limits never share a counter.
func KeyByUserID(scope string) KeyFunc {
	prefix := "rl:user:" + scope + ":"
	return func(c *gin.Context) string {
		if uid := CurrentUserID(c); uid > 0 {
			return prefix + strconv.FormatInt(uid, 10)
		}
		return prefix + "anon:ip:" + clientIP(c)
	}
}

// exempt reports requests no limiter counts: preflights and allow-listed callers.
func exempt(c *gin.Context, allow AllowFunc) bool {
	if c.Request.Method == http.MethodOptions {
		return true
	}
	return allow != nil && allow(c)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int((d + time.Second - 1) / time.Second)
}

func setLimitHeaders(c *gin.Context, limit, remaining int, reset time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	c.Header("X-RateLimit-Reset", strconv.Itoa(ceilSeconds(reset)))
}

func deny(c *gin.Context, retryAfter time.Duration) {
	c.Header("Retry-After", strconv.Itoa(ceilSeconds(retryAfter)))
	response.Abort(c, http.StatusTooManyRequests, "rate limit exceeded", response.ErrorBody{Code: "rate_limited"})
}
