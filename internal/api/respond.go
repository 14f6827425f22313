package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/emmanuel1-byte/chatpdf/internal/auth"
)

var errAccountNotFound = errors.New("account associated with this token does not exist")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing left to do but note it.
		return
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		writeMessage(w, http.StatusUnauthorized, "Token has expired!")
	case errors.Is(err, auth.ErrInvalidToken):
		writeMessage(w, http.StatusBadRequest, "Invalid access token")
	case errors.Is(err, errAccountNotFound):
		writeMessage(w, http.StatusNotFound, "Account associated with this token does not exist")
	default:
		writeMessage(w, http.StatusInternalServerError, "Failed to process user identity")
	}
}

// authStatus maps an authentication failure to the status used when rejecting
// a websocket connection attempt before the upgrade.
func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, errAccountNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}
