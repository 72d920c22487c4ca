package dispatch

import (
	"net/http"
	"sort"
	"strings"
)

const (
	headerContentType  = "Content-Type"
	defaultContentType = "application/json"
	maskedValue        = "*****"
)

// buildHeader merges user headers with the default Content-Type. A user
// supplied Content-Type, in any letter case, is kept as is.
func buildHeader(user map[string]string) http.Header {
	h := make(http.Header, len(user)+1)
	for k, v := range user {
		h.Set(k, v)
	}
	if h.Get(headerContentType) == "" {
		h.Set(headerContentType, defaultContentType)
	}
	return h
}

// maskHeaders flattens h for logging and hides credential values.
func maskHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		v := strings.Join(vs, ",")
		if isSecretHeader(k) {
			v = maskedValue
		}
		out[k] = v
	}
	return out
}

func isSecretHeader(name string) bool {
	n := strings.ToLower(name)
	switch n {
	case "authorization", "proxy-authorization", "cookie":
		return true
	}
	return strings.Contains(n, "key") || strings.Contains(n, "token") || strings.Contains(n, "secret")
}

// headerNames returns the sorted header names, for debug logs.
func headerNames(h http.Header) []string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
