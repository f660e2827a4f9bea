package http

import (
	"encoding/json"
	"net/http"

	"quizhub/internal/domain"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError maps the domain error taxonomy onto HTTP statuses. Untyped
// errors come out as 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if kind == "" {
		kind = "internal"
		message = "internal server error"
	}
	respondJSON(w, status, errorBody{Error: string(kind), Message: message})
}

// respondAuthError is for bearer-token failures, which are 401 rather than
// the 403 used for role checks.
func respondAuthError(w http.ResponseWriter, err error) {
	if domain.IsUnavailable(err) {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusUnauthorized, errorBody{
		Error:   string(domain.KindAuthorization),
		Message: err.Error(),
	})
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
