package http

import (
	"encoding/json"
	"net/http"

	"quizhub/internal/domain"
)

type authResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Validation("invalid request body"))
		return
	}
	user, token, err := h.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (h *Handler) logIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Validation("invalid request body"))
		return
	}
	user, token, err := h.auth.LogIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.KindOf(err) == domain.KindAuthorization {
			respondAuthError(w, err)
			return
		}
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) logOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.LogOut(r.Context(), bearerToken(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}
