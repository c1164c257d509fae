package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limited caps how often the wrapped completer is called. Requests over the
// budget fail fast with ErrRateLimited instead of queueing.
type Limited struct {
	next    Completer
	limiter *rate.Limiter
}

// NewLimited allows n requests per window, with a burst of n.
func NewLimited(next Completer, n int, window time.Duration) *Limited {
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(n)), n),
	}
}

func (l *Limited) Complete(ctx context.Context, system, user string) (string, error) {
	if !l.limiter.Allow() {
		return "", ErrRateLimited
	}
	return l.next.Complete(ctx, system, user)
}
