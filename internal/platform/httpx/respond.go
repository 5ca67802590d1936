package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const maxRequestBytes = 1 << 20

// ProblemDetail is an RFC7807 body that also carries the legacy "message"
// field the TrainingSoft clients display.
type ProblemDetail struct {
	Title   string `json:"title"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends a problem response.
func Problem(w http.ResponseWriter, status int, msg string) {
	title := http.StatusText(status)
	if msg == "" {
		msg = title
	}
	JSON(w, status, ProblemDetail{Title: title, Status: status, Message: msg})
}

// DecodeJSON decodes a bounded JSON request body into target.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	if err := dec.Decode(target); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
