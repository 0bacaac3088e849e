package api

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CacheResponses serves repeated GET requests for the same URI from store.
// Only 2xx responses are kept.
func CacheResponses(store *cache.Cache, duration time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := c.Request.RequestURI

		if resp, found := store.Get(key); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				c.Writer.Header()[k] = v
			}
			c.Writer.WriteHeader(cached.status)
			c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		writer := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = writer

		c.Next()

		if writer.Status() >= 200 && writer.Status() < 300 {
			store.Set(key, cachedResponse{
				status:  writer.Status(),
				headers: writer.Header().Clone(),
				body:    writer.body.Bytes(),
			}, duration)
		}
	}
}

// RateLimit allows each client IP r requests per second with bursts of b.
// Idle limiters expire from the cache after ten minutes.
func RateLimit(r rate.Limit, b int) gin.HandlerFunc {
	limiters := cache.New(10*time.Minute, 10*time.Minute)

	return func(c *gin.Context) {
		ip := c.ClientIP()

		var limiter *rate.Limiter

		if existing, found := limiters.Get(ip); found {
			limiter = existing.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(r, b)
			if err := limiters.Add(ip, limiter, cache.DefaultExpiration); err != nil {
				existing, _ := limiters.Get(ip)
				limiter = existing.(*rate.Limiter)
			}
		}

		limiters.Set(ip, limiter, cache.DefaultExpiration)

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AccessLog is gin's request logger with the access_token query parameter
// redacted, since event stream clients pass their credential there.
func AccessLog(out io.Writer) gin.HandlerFunc {
	return gin.LoggerWithConfig(gin.LoggerConfig{
		Output: out,
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("[GIN] %v | %3d | %13v | %15s | %-7s %#v\n%s",
				param.TimeStamp.Format("2006/01/02 - 15:04:05"),
				param.StatusCode,
				param.Latency,
				param.ClientIP,
				param.Method,
				redactPath(param.Path),
				param.ErrorMessage,
			)
		},
	})
}

func redactPath(path string) string {
	base, rawQuery, ok := strings.Cut(path, "?")

	if !ok {
		return path
	}

	query, err := url.ParseQuery(rawQuery)

	if err != nil {
		return base + "?redacted"
	}

	if query.Has("access_token") {
		query.Set("access_token", "redacted")
	}

	return base + "?" + query.Encode()
}
