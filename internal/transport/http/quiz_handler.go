package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizhub/internal/app"
	"quizhub/internal/domain"
)

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	quizzes, err := h.quizzes.ListQuizzes(r.Context(), app.QuizFilter{
		Search:     params.Get("search"),
		Difficulty: params.Get("difficulty"),
		Category:   params.Get("category"),
		Sort:       params.Get("sort"),
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) featuredQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.FeaturedQuizzes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.quizzes.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *Handler) adminListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.AdminListQuizzes(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quizzes)
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var in app.QuizInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, domain.Validation("invalid request body: %v", err))
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), identityFrom(r.Context()).UserID, in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, quiz)
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	var up app.QuizUpdate
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		respondError(w, domain.Validation("invalid request body: %v", err))
		return
	}
	quiz, err := h.quizzes.UpdateQuiz(r.Context(), chi.URLParam(r, "quizID"), up)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, quiz)
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.quizzes.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "quiz removed"})
}

func (h *Handler) toggleFeatured(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	featured, err := h.quizzes.ToggleFeatured(r.Context(), quizID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":         quizID,
		"isFeatured": featured,
	})
}

func (h *Handler) toggleBookmark(w http.ResponseWriter, r *http.Request) {
	bookmarked, err := h.quizzes.ToggleBookmark(r.Context(), chi.URLParam(r, "quizID"), identityFrom(r.Context()).UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	status := http.StatusOK
	if bookmarked {
		status = http.StatusCreated
	}
	respondJSON(w, status, map[string]bool{"bookmarked": bookmarked})
}

func (h *Handler) submitResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers   []domain.Answer `json:"answers"`
		TimeTaken int             `json:"timeTaken"`
	}
	// A non-numeric selectedOption fails here and is rejected as a
	// validation error; out-of-range numeric values pass through and simply
	// grade as incorrect.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Validation("invalid request body: %v", err))
		return
	}
	result, err := h.quizzes.SubmitResult(r.Context(), chi.URLParam(r, "quizID"), identityFrom(r.Context()).UserID, req.Answers, req.TimeTaken)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

func (h *Handler) userResults(w http.ResponseWriter, r *http.Request) {
	results, err := h.quizzes.ResultsForUser(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handler) userBookmarks(w http.ResponseWriter, r *http.Request) {
	bookmarks, err := h.quizzes.BookmarksForUser(r.Context(), identityFrom(r.Context()).UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bookmarks)
}
