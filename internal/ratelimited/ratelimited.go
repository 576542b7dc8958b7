// Package ratelimited wraps a go-kit logger so a hostile burst of
// otherwise-legitimate log-worthy events (LRU evictions, sanitize
// failures) can't be turned into a denial of service against the
// logging pipeline itself.
package ratelimited

import (
	"github.com/go-kit/log"
	"golang.org/x/time/rate"
)

// Logger drops log calls once its rate budget is exhausted, silently
// rather than blocking — a dropped log line is an acceptable cost, a
// stalled pipeline is not.
type Logger struct {
	next    log.Logger
	limiter *rate.Limiter
}

// NewRateLimitedLogger wraps next, allowing at most eventsPerSecond
// calls to Log to pass through, with a burst of the same size.
func NewRateLimitedLogger(eventsPerSecond float64, next log.Logger) *Logger {
	burst := int(eventsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Logger{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
	}
}

// Log implements log.Logger. It forwards to the wrapped logger only
// when the rate limiter currently has budget.
func (l *Logger) Log(keyvals ...interface{}) error {
	if !l.limiter.Allow() {
		return nil
	}
	return l.next.Log(keyvals...)
}
