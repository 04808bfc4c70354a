package ssh

import (
	"net"
	"sync"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"golang.org/x/time/rate"
)

// RateLimiter limits new sessions per remote host.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int

	lastCleanup time.Time
	cleanupAge  time.Duration
}

// NewRateLimiter creates a limiter allowing sessionsPerSecond sessions per
// host with the given burst. A non-positive rate disables limiting.
func NewRateLimiter(sessionsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiters:    make(map[string]*rate.Limiter),
		rps:         sessionsPerSecond,
		burst:       burst,
		lastCleanup: time.Now(),
		cleanupAge:  10 * time.Minute,
	}
}

// Allow reports whether a new session from host may start.
func (rl *RateLimiter) Allow(host string) bool {
	if rl == nil || rl.rps <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if time.Since(rl.lastCleanup) > rl.cleanupAge {
		rl.cleanup()
	}

	limiter, ok := rl.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(rl.rps), rl.burst)
		rl.limiters[host] = limiter
	}
	return limiter.Allow()
}

// cleanup drops limiters that have refilled completely; they behave
// exactly like new ones.
func (rl *RateLimiter) cleanup() {
	now := time.Now()
	for host, limiter := range rl.limiters {
		if limiter.TokensAt(now) >= float64(rl.burst) {
			delete(rl.limiters, host)
		}
	}
	rl.lastCleanup = now
}

// Middleware rejects sessions from hosts over their limit.
func (rl *RateLimiter) Middleware() wish.Middleware {
	return func(next ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if !rl.Allow(remoteHost(sess.RemoteAddr())) {
				wish.Fatalln(sess, "rate limit exceeded, try again later")
				return
			}
			next(sess)
		}
	}
}

func remoteHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
