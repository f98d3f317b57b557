package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// errorBody is the fixed error shape of the extract API:
// {"error": "<message>"}. Consumers rely on this exact form.
type errorBody struct {
	Error string `json:"error"`
}

// WriteErrorMessage writes the API error shape with the given status.
func WriteErrorMessage(w http.ResponseWriter, r *http.Request, message string, status int) {
	requestID := GetRequestID(r)

	log.Error().
		Str("request_id", requestID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Str("message", message).
		Msg("API error response")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorBody{Error: message}); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// BadRequest responds with a 400 Bad Request error
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	WriteErrorMessage(w, r, message, http.StatusBadRequest)
}

// MethodNotAllowed responds with a 405 Method Not Allowed error
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteErrorMessage(w, r, "Method not allowed", http.StatusMethodNotAllowed)
}
