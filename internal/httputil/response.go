package httputil

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the response wrapper every endpoint uses. Payload-specific
// fields (token, user, count) ride alongside the flag via the omitempty tags.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// RespondError sends a {success:false, message} response.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, Envelope{Success: false, Message: message}, statusCode)
}

// RespondData sends a {success:true, data} response with an optional message.
func RespondData(w http.ResponseWriter, data any, message string, statusCode int) {
	RespondJSON(w, Envelope{Success: true, Message: message, Data: data}, statusCode)
}

// RespondList sends a {success:true, count, data} response.
func RespondList(w http.ResponseWriter, data any, count int, statusCode int) {
	RespondJSON(w, Envelope{Success: true, Data: data, Count: &count}, statusCode)
}
