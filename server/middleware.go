package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/swasth/auth"
	"github.com/richinex/swasth/storage"
)

type userHandler func(w http.ResponseWriter, r *http.Request, user storage.User)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func (s *Server) withUser(next userHandler) http.HandlerFunc {
	return s.authorize(next, s.auth.Authenticate)
}

func (s *Server) withAdmin(next userHandler) http.HandlerFunc {
	return s.authorize(next, s.auth.RequireAdmin)
}

func (s *Server) authorize(next userHandler, check func(context.Context, string) (storage.User, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := check(r.Context(), bearerToken(r))
		if err != nil {
			s.writeAuthError(w, err)
			return
		}
		next(w, r, user)
	}
}

func (s *Server) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.writeError(w, http.StatusUnauthorized, "Could not validate credentials")
	case errors.Is(err, auth.ErrForbidden):
		s.writeError(w, http.StatusForbidden, "Admin access required")
	default:
		s.logger.Error("authentication failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
