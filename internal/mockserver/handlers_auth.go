package mockserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jmcleod/walicode/internal/util"
)

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type verificationRequest struct {
	Email string `json:"email"`
}

type loginIdentity struct {
	ID       int64  `json:"id"`
	UserName string `json:"userName"`
	Member   string `json:"member"`
}

type loginResponse struct {
	TokenName            string `json:"tokenName"`
	TokenValue           string `json:"tokenValue"`
	IsLogin              bool   `json:"isLogin"`
	LoginID              string `json:"loginId"`
	LoginType            string `json:"loginType"`
	TokenTimeout         int64  `json:"tokenTimeout"`
	SessionTimeout       int64  `json:"sessionTimeout"`
	TokenSessionTimeout  int64  `json:"tokenSessionTimeout"`
	TokenActivityTimeout int64  `json:"tokenActivityTimeout"`
	LoginDevice          string `json:"loginDevice"`
	Tag                  any    `json:"tag"`
}

func decodeBody(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

// Login exchanges a user name or email and password for a token.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(r, &req) {
		writeFail(w, http.StatusOK, codeBadRequest, "invalid request body")
		return
	}
	login := req.Username
	if strings.TrimSpace(login) == "" {
		login = req.Email
	}
	if strings.TrimSpace(login) == "" || req.Password == "" {
		writeFail(w, http.StatusOK, codeBadRequest, "username or email and password are required")
		return
	}

	account := util.NormalizeIdentifier(login)
	if blocked, retryAfter := s.limiter.check(account); blocked {
		s.audit.log(AuditLoginRateLimited, r, slog.String("account", account))
		writeRateLimited(w, retryAfter)
		return
	}

	u, err := s.users.authenticate(login, req.Password)
	if err != nil {
		s.limiter.recordFailure(account)
		s.audit.logFailure(AuditLoginFailure, r, "invalid credentials", slog.String("account", account))
		mapError(w, err)
		return
	}
	s.limiter.recordSuccess(account)

	token, id, expires, err := s.tokens.issue(u.ID)
	if err != nil {
		s.logger.Error("issuing token failed", "error", err)
		mapError(w, err)
		return
	}
	now := s.now()
	s.sessions.put(id, authSession{UserID: u.ID, ExpiresAt: expires, LastAccessedAt: now})

	identity, err := json.Marshal(loginIdentity{ID: u.ID, UserName: u.UserName, Member: u.Member})
	if err != nil {
		mapError(w, err)
		return
	}
	activity := int64(-1)
	if s.idle > 0 {
		activity = int64(s.idle / time.Second)
	}
	s.audit.log(AuditLoginSuccess, r, slog.Int64("user_id", u.ID))
	writeOK(w, loginResponse{
		TokenName:            TokenName,
		TokenValue:           token,
		IsLogin:              true,
		LoginID:              string(identity),
		LoginType:            "login",
		TokenTimeout:         int64(expires.Sub(now) / time.Second),
		SessionTimeout:       int64(expires.Sub(now) / time.Second),
		TokenSessionTimeout:  -2,
		TokenActivityTimeout: activity,
		LoginDevice:          "default-device",
	})
}

// Register creates an account once the emailed code checks out.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(r, &req) {
		writeFail(w, http.StatusOK, codeBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeFail(w, http.StatusOK, codeBadRequest, "username, email and password are required")
		return
	}
	if !s.codes.consume(req.Email, strings.TrimSpace(req.Code)) {
		s.audit.logFailure(AuditRegisterFailure, r, "bad verification code")
		mapError(w, errBadCode)
		return
	}
	u, err := s.users.create(req.Username, req.Email, req.Password, "0")
	if err != nil {
		s.audit.logFailure(AuditRegisterFailure, r, err.Error())
		mapError(w, err)
		return
	}
	s.audit.log(AuditRegister, r, slog.Int64("user_id", u.ID))
	writeOK(w, u.view())
}

// SendVerificationEmail issues a registration code. No mail is sent; the code
// is logged and can be read with VerificationCode.
func (s *Server) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req verificationRequest
	if !decodeBody(r, &req) || !strings.Contains(req.Email, "@") {
		writeFail(w, http.StatusOK, codeBadRequest, "a valid email is required")
		return
	}
	code, err := s.codes.issue(req.Email)
	if err != nil {
		mapError(w, err)
		return
	}
	s.logger.Info("verification code issued", "email", req.Email, "code", code)
	s.audit.log(AuditCodeSent, r, slog.String("email", req.Email))
	writeOK(w, nil)
}

// GetLoginUser returns the caller's user record.
func (s *Server) GetLoginUser(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	u, ok := s.users.get(sess.UserID)
	if !ok {
		// The account went away under a live session.
		s.sessions.delete(sess.ID)
		writeFail(w, http.StatusOK, codeUnauthorized, s.marker)
		return
	}
	writeOK(w, u.view())
}

// Logout ends the caller's session.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := sessionFromContext(r.Context())
	s.sessions.delete(sess.ID)
	s.audit.log(AuditLogout, r, slog.Int64("user_id", sess.UserID))
	writeOK(w, nil)
}
