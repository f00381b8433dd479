package httpapi

import (
	"context"
	"net/http"
	"strings"

	"hronboard/auth"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "role"
)

// requireStaff rejects requests without a valid bearer token. Both HR roles
// may call any staff endpoint; role-specific restrictions live in handlers
// that need them.
func (s *Server) requireStaff(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		userID, role, err := s.authn.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserID, userID)
		ctx = context.WithValue(ctx, ctxRole, role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func roleFrom(ctx context.Context) (auth.Role, bool) {
	role, ok := ctx.Value(ctxRole).(auth.Role)
	return role, ok
}
