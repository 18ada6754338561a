// ABOUTME: Response helpers shared by the middleware
// ABOUTME: Picks JSON or plain errors per request; JSON bodies use the handlers' error envelope

package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markalston/artfolio-web/models"
)

// wantsJSON reports whether r expects a JSON rather than an HTML response.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeJSONError writes models.ErrorResponse, the same body handlers.writeError sends.
func writeJSONError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, models.ErrorResponse{Error: message, Code: code})
}
