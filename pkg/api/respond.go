package api

import "net/http"

// ErrorResponse is the JSON body returned on 4xx/5xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	respond(w, status, ErrorResponse{Error: http.StatusText(status), Message: message})
}
