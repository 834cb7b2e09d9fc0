package middleware

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// writeJSONError writes the {success,message} error body used across the API.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}{false, msg})
}
