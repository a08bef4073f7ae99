package core

import (
	"encoding/json"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Error codes of the JSON error envelope.
const (
	codeValidation       = "validation_error"
	codeUnauthenticated  = "unauthenticated"
	codePermissionDenied = "permission_denied"
	codeNotFound         = "not_found"
	codeServerError      = "server_error"
)

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeJSONError emits the error envelope. Storage detail never reaches the
// client; callers log it first.
func writeJSONError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"code":    code,
		"detail":  detail,
	})
}

func writeServerError(w http.ResponseWriter, context string, err error) {
	Errorf("%s: %v", context, err)
	writeJSONError(w, http.StatusInternalServerError, codeServerError, "internal error")
}

// SecureHeaders sets the usual hardening headers on every response.
func SecureHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

var rateLimiter sync.Map

// RateLimit rejects blocked IPs and throttles per-IP request bursts.
func (a *App) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip, err := netip.ParseAddr(host)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, codeValidation, "invalid client address")
			return
		}

		for _, b := range strings.Split(a.Config["BLOCKED_IPS"], ",") {
			blockedIP, err := netip.ParseAddr(strings.TrimSpace(b))
			if err == nil && ip == blockedIP {
				Infof("blocked IP rejected: %s", ip)
				writeJSONError(w, http.StatusForbidden, codePermissionDenied, "access denied")
				return
			}
		}

		if val, loaded := rateLimiter.Load(ip.String()); loaded {
			last := val.(time.Time)
			if time.Since(last) < 100*time.Millisecond {
				writeJSONError(w, http.StatusTooManyRequests, codeValidation, "too many requests")
				return
			}
		}
		rateLimiter.Store(ip.String(), time.Now())

		next(w, r)
	}
}

// clientIP prefers the first X-Forwarded-For hop when present.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// pathID extracts the numeric segment that follows prefix in the URL path,
// for routes like /api/public/v1/dictionary/entry/42/.
func pathID(path, prefix string) (int, bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return 0, false
	}
	rest = strings.Trim(rest, "/")
	if rest == "" || strings.Contains(rest, "/") {
		return 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
