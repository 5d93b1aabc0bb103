// Package httputil centralizes JSON response and error envelope rendering so
// every handler produces the same wire shapes.
package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	dErrors "lifeline/pkg/domain-errors"
)

// WriteJSON renders v as a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Internal errors omit the description so store and upstream details never
// reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = err.Error()
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), body)
}

// NextPageLink formats the RFC 5988 Link header for the following page.
// Callers should only emit it when more rows remain past the current page.
func NextPageLink(path string, query string, limit, offset int) string {
	next := fmt.Sprintf("%s?limit=%d&offset=%d", path, limit, offset+limit)
	if query != "" {
		next += "&" + query
	}
	return fmt.Sprintf("<%s>; rel=\"next\"", next)
}
