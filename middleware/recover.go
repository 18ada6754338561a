// ABOUTME: Panic recovery middleware with Sentry reporting
// ABOUTME: Turns a handler panic into a 500 instead of a dropped connection

package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
)

// Recover catches panics from next, reports them to Sentry (a no-op when
// Sentry is not initialised) and answers 500.
func Recover(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			stack := string(debug.Stack())
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetTag("path", r.URL.Path)
				scope.SetTag("request_id", RequestID(r))
				scope.SetExtra("panic", fmt.Sprint(rec))
				scope.SetExtra("stack", stack)
				sentry.CaptureMessage("panic in request")
			})

			slog.Error("Panic recovered",
				"request_id", RequestID(r),
				"method", r.Method,
				"path", sanitizePath(r.URL.Path),
				"panic", fmt.Sprint(rec),
			)

			if wantsJSON(r) {
				writeJSONError(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			http.Error(w, "Something went wrong", http.StatusInternalServerError)
		}()

		next(w, r)
	}
}
