package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// apiCSP is the policy for JSON responses, which never load subresources
const apiCSP = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'; form-action 'none'"

// SecurityHeaders adds security headers to all responses
func SecurityHeaders(cspEnabled, hstsEnabled bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cspEnabled {
				w.Header().Set("Content-Security-Policy", apiCSP)
			}

			if hstsEnabled {
				w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			}

			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("Referrer-Policy", "no-referrer")
			w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			// Dose and compliance data is health information
			w.Header().Set("Cache-Control", "no-store")
			w.Header().Del("Server")

			next.ServeHTTP(w, r)
		})
	}
}

// CSRFProtection issues one-time tokens for cookie-authenticated clients
type CSRFProtection struct {
	secret string
	ttl    time.Duration
	tokens sync.Map // map[string]time.Time for token expiration
}

func NewCSRFProtection(secret string) *CSRFProtection {
	csrf := &CSRFProtection{
		secret: secret,
		ttl:    24 * time.Hour,
	}

	go csrf.cleanupExpiredTokens()

	return csrf
}

// Middleware rejects unsafe requests without a valid token. Requests that
// authenticate with a bearer header cannot be forged by a browser and skip
// the check.
func (c *CSRFProtection) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if bearerToken(r) != "" {
			next.ServeHTTP(w, r)
			return
		}

		if !c.ValidateToken(r.Header.Get("X-CSRF-Token")) {
			writeError(w, http.StatusForbidden, "Invalid CSRF token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (c *CSRFProtection) GenerateToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	token := base64.URLEncoding.EncodeToString(b)

	c.tokens.Store(token, time.Now().Add(c.ttl))

	return token
}

func (c *CSRFProtection) ValidateToken(token string) bool {
	if token == "" {
		return false
	}

	// One-time use
	expiry, ok := c.tokens.LoadAndDelete(token)
	if !ok {
		return false
	}

	expiryTime, ok := expiry.(time.Time)
	return ok && !time.Now().After(expiryTime)
}

func (c *CSRFProtection) cleanupExpiredTokens() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		c.purge(time.Now())
	}
}

func (c *CSRFProtection) purge(now time.Time) {
	c.tokens.Range(func(key, value interface{}) bool {
		if expiry, ok := value.(time.Time); ok && now.After(expiry) {
			c.tokens.Delete(key)
		}
		return true
	})
}

// RateLimiter implements rate limiting per IP address
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	idle     time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(requestsPerWindow int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(float64(requestsPerWindow) / window.Seconds()),
		burst:    requestsPerWindow,
		idle:     3 * window,
	}

	go rl.cleanupVisitors()

	return rl
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.getLimiter(getIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[ip]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = time.Now()

	return v.limiter
}

func (rl *RateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		rl.evict(time.Now())
	}
}

// evict drops visitors idle for longer than the limiter needs to refill
func (rl *RateLimiter) evict(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idle {
			delete(rl.visitors, ip)
		}
	}
}

// getIP extracts the real IP address from the request
func getIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		ips := strings.Split(forwarded, ",")
		return strings.TrimSpace(ips[0])
	}

	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}

	return r.RemoteAddr
}

// SecureCompare performs constant-time comparison of two strings
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
