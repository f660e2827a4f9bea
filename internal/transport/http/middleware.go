package http

import (
	"context"
	"net/http"
	"strings"

	"quizhub/internal/domain"
)

type ctxKey string

const ctxKeyIdentity ctxKey = "identity"

func withIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKeyIdentity, id)
}

func identityFrom(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(ctxKeyIdentity).(domain.Identity); ok {
		return id
	}
	return domain.Identity{}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

// requireUser authenticates the bearer token and stores the resulting
// identity in the request context.
func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondAuthError(w, domain.Unauthorized("missing bearer token"))
			return
		}
		identity, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			respondAuthError(w, err)
			return
		}
		next(w, r.WithContext(withIdentity(r.Context(), identity)))
	}
}

// requireAdmin additionally rejects non-admin callers.
func (h *Handler) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return h.requireUser(func(w http.ResponseWriter, r *http.Request) {
		if !identityFrom(r.Context()).IsAdmin {
			respondError(w, domain.Unauthorized("admin access required"))
			return
		}
		next(w, r)
	})
}
