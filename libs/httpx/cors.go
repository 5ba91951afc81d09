package httpx

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// corsRules is a CORSPolicy compiled once at startup.
type corsRules struct {
	origins     map[string]struct{} // lower-cased
	anyOrigin   bool
	credentials bool
	methods     string
	headers     string
	maxAge      string
}

func compileCORS(p CORSPolicy) corsRules {
	methods := p.AllowedMethods
	if len(methods) == 0 {
		methods = []string{http.MethodGet, http.MethodPost, http.MethodOptions}
	}
	headers := p.AllowedHeaders
	if len(headers) == 0 {
		headers = []string{"Content-Type", "Authorization", RequestIDHeader}
	}

	rules := corsRules{
		origins:     make(map[string]struct{}, len(p.AllowedOrigins)),
		credentials: p.AllowCredentials,
		methods:     joinTrimmed(methods),
		headers:     joinTrimmed(headers),
	}
	for _, o := range p.AllowedOrigins {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			rules.anyOrigin = true
		default:
			rules.origins[strings.ToLower(o)] = struct{}{}
		}
	}
	if secs := int(p.MaxAge / time.Second); secs > 0 {
		rules.maxAge = strconv.Itoa(secs)
	}
	return rules
}

func (c corsRules) empty() bool { return !c.anyOrigin && len(c.origins) == 0 }

// allowOrigin returns the Access-Control-Allow-Origin value for origin. A wildcard policy
// echoes the origin when credentials are allowed, since browsers reject "*" with credentials.
func (c corsRules) allowOrigin(origin string) (string, bool) {
	if _, ok := c.origins[strings.ToLower(origin)]; ok {
		return origin, true
	}
	if !c.anyOrigin {
		return "", false
	}
	if c.credentials {
		return origin, true
	}
	return "*", true
}

func (c corsRules) apply(h http.Header, allowed string) {
	h.Set("Access-Control-Allow-Origin", allowed)
	if c.credentials {
		h.Set("Access-Control-Allow-Credentials", "true")
	}
	if c.methods != "" {
		h.Set("Access-Control-Allow-Methods", c.methods)
	}
	if c.headers != "" {
		h.Set("Access-Control-Allow-Headers", c.headers)
	}
	if c.maxAge != "" {
		h.Set("Access-Control-Max-Age", c.maxAge)
	}
}

// WithCORS lets embedded booking widgets call the public routes from other origins.
// It is a no-op when AllowedOrigins is empty. Preflights from allowed origins are answered
// with 204 and never reach next.
func WithCORS(p CORSPolicy) Middleware {
	rules := compileCORS(p)
	if rules.empty() {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Add("Vary", "Origin")
			allowed, ok := rules.allowOrigin(origin)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			rules.apply(w.Header(), allowed)

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func joinTrimmed(values []string) string {
	kept := values[:0:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			kept = append(kept, v)
		}
	}
	return strings.Join(kept, ", ")
}
