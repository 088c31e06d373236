package mw

import (
	"net"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/utils"
)

// AllowOnlyCIDRS admits only clients inside the allowed IPs or CIDRs. An
// empty list disables the check. trustProxy makes the client address come
// from proxy headers, for deployments behind a tunnel or reverse proxy.
func AllowOnlyCIDRS(allowed []string, trustProxy bool, log logger.Logger) func(http.Handler) http.Handler {
	m := utils.NewIPMatcher(allowed)
	if m.IsEmpty() {
		return passthrough
	}
	log.Debug("admin address filter enabled",
		logger.Int("rules", m.Len()), logger.Bool("trust_proxy", trustProxy))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := utils.ClientIP(r, trustProxy)
			if !m.Allow(ip) {
				log.Warn("rejected request from address outside allowlist",
					logger.String("ip", ip), logger.String("path", r.URL.Path))
				reject(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// EnforceHost admits only requests whose Host matches one of hosts.
// "*.example.com" matches any subdomain but not the apex. An empty list
// disables the check.
func EnforceHost(hosts []string, log logger.Logger) func(http.Handler) http.Handler {
	if len(hosts) == 0 {
		return passthrough
	}
	patterns := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			patterns = append(patterns, h)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := requestHost(r)
			for _, p := range patterns {
				if matchHost(host, p) {
					next.ServeHTTP(w, r)
					return
				}
			}
			log.Warn("rejected request for unknown host",
				logger.String("host", r.Host), logger.String("path", r.URL.Path))
			reject(w, http.StatusForbidden, "forbidden")
		})
	}
}

// requestHost is r.Host lowercased and without its port.
func requestHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}

func matchHost(host, pattern string) bool {
	if host == pattern {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(suffix, ".") {
		return strings.HasSuffix(host, suffix) && len(host) > len(suffix)
	}
	return false
}
