package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate Limit Tiers
const (
	// Gateway notifications: few source IPs, bursty after outages
	limitWebhook = rate.Limit(50)
	burstWebhook = 200

	// General (Default)
	limitGeneral = rate.Limit(10)
	burstGeneral = 20
)

const webhookPath = "/webhook/payu"

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

var (
	visitors    = make(map[string]*visitor)
	mu          sync.Mutex
	cleanupOnce sync.Once
)

// getVisitor retrieves or creates a rate limiter for the given key.
func getVisitor(key string, r rate.Limit, b int) *rate.Limiter {
	mu.Lock()
	defer mu.Unlock()

	v, exists := visitors[key]
	if !exists {
		limiter := rate.NewLimiter(r, b)
		visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanupVisitors removes old entries from the visitors map to prevent memory leaks.
func cleanupVisitors() {
	for {
		time.Sleep(time.Minute)
		evictIdle(3 * time.Minute)
	}
}

func evictIdle(maxIdle time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	for key, v := range visitors {
		if time.Since(v.lastSeen) > maxIdle {
			delete(visitors, key)
		}
	}
}

// RateLimitMiddleware checks if the request is allowed by the rate limiter.
func RateLimitMiddleware(next http.Handler) http.Handler {
	cleanupOnce.Do(func() { go cleanupVisitors() })

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, burst, tier := resolveRateTier(r)

		// Prefer the merchant if authenticated, else the remote IP.
		var identity string
		if merchantID, ok := MerchantIDFromContext(r.Context()); ok {
			identity = "merchant:" + merchantID
		} else {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			identity = "ip:" + ip
		}

		limiter := getVisitor(identity+":"+tier, limit, burst)
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// resolveRateTier determines which rate limit policy applies to the request.
func resolveRateTier(r *http.Request) (rate.Limit, int, string) {
	if r.URL.Path == webhookPath {
		return limitWebhook, burstWebhook, "webhook"
	}
	return limitGeneral, burstGeneral, "general"
}
