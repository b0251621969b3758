package mockserver

import (
	"log/slog"
	"net/http"
	"time"
)

// AuditEvent identifies an authentication-relevant action.
type AuditEvent string

const (
	AuditLoginSuccess     AuditEvent = "login_success"
	AuditLoginFailure     AuditEvent = "login_failure"
	AuditLoginRateLimited AuditEvent = "login_rate_limited"
	AuditRegister         AuditEvent = "register"
	AuditRegisterFailure  AuditEvent = "register_failure"
	AuditCodeSent         AuditEvent = "verification_code_sent"
	AuditLogout           AuditEvent = "logout"
	AuditSessionRejected  AuditEvent = "session_rejected"
)

// auditLogger writes structured audit entries and counts them.
type auditLogger struct {
	logger  *slog.Logger
	metrics *metrics
}

func newAuditLogger(logger *slog.Logger, m *metrics) *auditLogger {
	return &auditLogger{logger: logger.With("component", "audit"), metrics: m}
}

func (al *auditLogger) log(event AuditEvent, r *http.Request, attrs ...slog.Attr) {
	base := []slog.Attr{
		slog.String("event", string(event)),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(r.Context(), slog.LevelInfo, "audit", append(base, attrs...)...)
	al.metrics.auditEvent(event)
}

// logFailure logs a rejected request with its reason.
func (al *auditLogger) logFailure(event AuditEvent, r *http.Request, reason string, extra ...slog.Attr) {
	al.log(event, r, append([]slog.Attr{slog.String("reason", reason)}, extra...)...)
}
