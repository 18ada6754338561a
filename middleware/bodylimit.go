// ABOUTME: Request body size limit for form and upload routes
// ABOUTME: Oversized bodies fail while being read instead of filling memory or disk

package middleware

import "net/http"

// MaxBody caps the request body at n bytes. Handlers see the overflow as a
// read or form-parse error.
func MaxBody(n int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > n {
				if wantsJSON(r) {
					writeJSONError(w, "Request body too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "The upload is too large.", http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, n)
			next(w, r)
		}
	}
}
