// Package http exposes the platform's REST surface: public quiz and contest
// catalogs, authenticated submission/bookmark/registration flows and the
// admin lifecycle endpoints.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"quizhub/internal/app"
)

// Handler bundles the application services behind the REST routes.
type Handler struct {
	quizzes  *app.QuizService
	contests *app.ContestService
	auth     *app.AuthService
}

func NewHandler(quizzes *app.QuizService, contests *app.ContestService, auth *app.AuthService) *Handler {
	return &Handler{quizzes: quizzes, contests: contests, auth: auth}
}

// Router wires all routes under /api.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/signup", h.signUp)
		api.Post("/auth/login", h.logIn)
		api.Post("/auth/logout", h.requireUser(h.logOut))

		api.Route("/quizzes", func(q chi.Router) {
			q.Get("/", h.listQuizzes)
			q.Get("/featured", h.featuredQuizzes)
			q.Get("/admin/all", h.requireAdmin(h.adminListQuizzes))
			q.Post("/", h.requireAdmin(h.createQuiz))
			q.Get("/{quizID}", h.getQuiz)
			q.Put("/{quizID}", h.requireAdmin(h.updateQuiz))
			q.Delete("/{quizID}", h.requireAdmin(h.deleteQuiz))
			q.Put("/{quizID}/featured", h.requireAdmin(h.toggleFeatured))
			q.Post("/{quizID}/bookmark", h.requireUser(h.toggleBookmark))
			q.Post("/{quizID}/results", h.requireUser(h.submitResult))
		})

		api.Route("/users", func(u chi.Router) {
			u.Get("/results", h.requireUser(h.userResults))
			u.Get("/bookmarks", h.requireUser(h.userBookmarks))
		})

		api.Route("/contests", func(c chi.Router) {
			c.Get("/", h.listContests)
			c.Post("/", h.requireAdmin(h.createContest))
			c.Get("/{contestID}", h.getContest)
			c.Put("/{contestID}", h.requireUser(h.updateContest))
			c.Delete("/{contestID}", h.requireUser(h.deleteContest))
			c.Post("/{contestID}/register", h.requireUser(h.registerForContest))
			c.Put("/{contestID}/bookmark", h.requireUser(h.toggleContestBookmark))
		})
	})

	return r
}
