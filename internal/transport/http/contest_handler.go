package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

func (h *Handler) listContests(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	contests, err := h.contests.ListContests(r.Context(), app.ContestFilter{
		Status:     params.Get("status"),
		Search:     params.Get("search"),
		Difficulty: params.Get("difficulty"),
		Prize:      params.Get("prize"),
		Sort:       params.Get("sort"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contests)
}

func (h *Handler) getContest(w http.ResponseWriter, r *http.Request) {
	contest, err := h.contests.GetContest(r.Context(), chi.URLParam(r, "contestID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contest)
}

func (h *Handler) createContest(w http.ResponseWriter, r *http.Request) {
	var in app.ContestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, domain.Validation("invalid request body: %v", err))
		return
	}
	contest, err := h.contests.CreateContest(r.Context(), identityFrom(r.Context()).UserID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, contest)
}

func (h *Handler) updateContest(w http.ResponseWriter, r *http.Request) {
	var in app.ContestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, domain.Validation("invalid request body: %v", err))
		return
	}
	contest, err := h.contests.UpdateContest(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "contestID"), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contest)
}

func (h *Handler) deleteContest(w http.ResponseWriter, r *http.Request) {
	if err := h.contests.DeleteContest(r.Context(), identityFrom(r.Context()), chi.URLParam(r, "contestID")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "contest removed"})
}

func (h *Handler) registerForContest(w http.ResponseWriter, r *http.Request) {
	registration, err := h.contests.Register(r.Context(), chi.URLParam(r, "contestID"), identityFrom(r.Context()).UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, registration)
}

func (h *Handler) toggleContestBookmark(w http.ResponseWriter, r *http.Request) {
	registration, err := h.contests.ToggleBookmark(r.Context(), chi.URLParam(r, "contestID"), identityFrom(r.Context()).UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, registration)
}
