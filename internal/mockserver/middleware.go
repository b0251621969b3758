package mockserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey int

const sessionKey contextKey = iota

// requestSession is the authenticated caller of a request.
type requestSession struct {
	ID     string
	UserID int64
}

func sessionFromContext(ctx context.Context) (requestSession, bool) {
	s, ok := ctx.Value(sessionKey).(requestSession)
	return s, ok
}

// tokenFromRequest reads the token from the named header, falling back to
// "Authorization: Bearer".
func tokenFromRequest(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(TokenName)); v != "" {
		return v
	}
	if v, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// AuthMiddleware resolves the request token to a live session. A request
// without a token is told it is not logged in; a token whose session is gone
// gets the session expired marker, which makes clients drop their copy.
func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			writeFail(w, http.StatusOK, codeUnauthorized, "not logged in")
			return
		}
		id, userID, err := s.tokens.parse(token)
		if err != nil {
			s.audit.logFailure(AuditSessionRejected, r, "invalid token")
			writeFail(w, http.StatusOK, codeUnauthorized, s.marker)
			return
		}
		sess, ok := s.sessions.touch(id)
		if !ok || sess.UserID != userID {
			s.audit.logFailure(AuditSessionRejected, r, "session not found", slog.Int64("user_id", userID))
			writeFail(w, http.StatusOK, codeUnauthorized, s.marker)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, requestSession{ID: id, UserID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// securityHeaders sets standard security response headers on every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
