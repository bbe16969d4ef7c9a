package shield

import "net/http"

// HeadToGet routes HEAD requests to GET handlers. net/http drops the body
// of a HEAD response, so health probes and image size checks get headers only.
func HeadToGet(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			r.Method = http.MethodGet
		}
		next.ServeHTTP(w, r)
	})
}
