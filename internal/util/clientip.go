package util

import (
	"net"
	"net/http"
)

// GetClientIP assumes chi's RealIP middleware has already rewritten
// RemoteAddr from X-Forwarded-For / X-Real-IP.
func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
