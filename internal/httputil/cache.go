package httputil

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
)

// SetPublicCache marks a response as cacheable by shared caches for maxAge
// seconds, allowing stale content while revalidating for swr seconds.
func SetPublicCache(w http.ResponseWriter, maxAge, swr int) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(maxAge)+", stale-while-revalidate="+strconv.Itoa(swr))
	w.Header().Set("Vary", "Accept-Encoding")
}

// WeakETag hashes the given parts into a weak entity tag.
func WeakETag(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return `W/"` + hex.EncodeToString(sum[:8]) + `"`
}

// NotModified reports whether the request's If-None-Match already names etag.
func NotModified(r *http.Request, etag string) bool {
	inm := r.Header.Get("If-None-Match")
	if inm == "" {
		return false
	}
	for _, candidate := range strings.Split(inm, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || candidate == etag || "W/"+candidate == etag {
			return true
		}
	}
	return false
}
