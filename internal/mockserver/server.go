// Package mockserver is a local stand-in for the WaliCode backend. It serves
// the auth and course endpoints with the same response envelope and session
// semantics, for development and end-to-end tests.
package mockserver

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-openapi/runtime/middleware"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/walicode/internal/util"
)

const (
	// TokenName is the header the issued token travels in.
	TokenName = "token"
	// DefaultSessionExpiredMarker is the errorMsg of a request made with a
	// token whose session is gone.
	DefaultSessionExpiredMarker = "login expired"

	defaultTokenTTL    = 30 * 24 * time.Hour
	defaultIdleTimeout = 24 * time.Hour
	defaultCodeTTL     = 10 * time.Minute
)

//go:embed openapi.yaml
var openapiSpec []byte

// Server holds the mock backend state.
type Server struct {
	logger     *slog.Logger
	users      *userStore
	sessions   *sessionStore
	tokens     *tokenIssuer
	codes      *codeBook
	limiter    *loginRateLimiter
	catalogue  *catalogue
	metrics    *metrics
	audit      *auditLogger
	marker     string
	now        func() time.Time
	tokenTTL   time.Duration
	idle       time.Duration
	bcryptCost int
	seed       []SeedUser
}

// SeedUser is an account created at start-up.
type SeedUser struct {
	UserName string
	Email    string
	Password string
	Member   string
}

// DefaultUsers are the accounts of a fresh mock server.
var DefaultUsers = []SeedUser{
	{UserName: "pub", Email: "pub@walicode.dev", Password: "walicode", Member: "0"},
	{UserName: "ada", Email: "ada@walicode.dev", Password: "walicode", Member: "BASIC"},
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithClock replaces time.Now for sessions, tokens and codes.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIdleTimeout sets how long an unused session survives. 0 disables it.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Server) { s.idle = d }
}

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.tokenTTL = d }
}

// WithSessionExpiredMarker sets the errorMsg sent for dead sessions.
func WithSessionExpiredMarker(marker string) Option {
	return func(s *Server) { s.marker = marker }
}

// WithUsers replaces DefaultUsers.
func WithUsers(users ...SeedUser) Option {
	return func(s *Server) { s.seed = users }
}

// WithBcryptCost sets the password hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Server) { s.bcryptCost = cost }
}

// New creates a Server with seeded users and courses.
func New(opts ...Option) (*Server, error) {
	s := &Server{
		logger:     slog.Default(),
		marker:     DefaultSessionExpiredMarker,
		now:        time.Now,
		tokenTTL:   defaultTokenTTL,
		idle:       defaultIdleTimeout,
		bcryptCost: bcrypt.DefaultCost,
		seed:       DefaultUsers,
		catalogue:  seedCatalogue(),
		metrics:    newMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	secret, err := util.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	s.users = newUserStore(s.bcryptCost)
	s.sessions = newSessionStore(s.idle, s.now)
	s.tokens = &tokenIssuer{secret: secret, ttl: s.tokenTTL, now: s.now}
	s.codes = newCodeBook(defaultCodeTTL, s.now)
	s.limiter = newLoginRateLimiter(s.now)
	s.audit = newAuditLogger(s.logger, s.metrics)

	for _, u := range s.seed {
		if _, err := s.users.create(u.UserName, u.Email, u.Password, u.Member); err != nil {
			return nil, fmt.Errorf("seeding user %s: %w", u.UserName, err)
		}
	}
	return s, nil
}

// Router returns a chi.Router with the API routes, to be mounted at /api.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/docs",
	}, nil))
	r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
		SpecURL: "/api/openapi.yaml",
		Path:    "api/redoc",
	}, nil))

	r.Post("/auth/login", s.Login)
	r.Post("/auth/registered", s.Register)
	r.Post("/auth/verificationEmail", s.SendVerificationEmail)
	r.With(s.AuthMiddleware).Get("/auth/getLoginUser", s.GetLoginUser)
	r.With(s.AuthMiddleware).Post("/auth/loginOut", s.Logout)

	r.Post("/course/coursePage", s.CoursePage)
	r.Get("/course/courseChapters", s.CourseChapters)
	r.With(s.AuthMiddleware).Get("/course/getChapterContent", s.ChapterContent)

	return r
}

// Handler returns the complete HTTP handler: the API under /api, plus
// /health and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(securityHeaders)
	r.Use(s.metrics.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", s.metrics.handler())
	r.Mount("/api", s.Router())
	return r
}

// VerificationCode returns the last code sent to email. The mock delivers
// no mail; this is how a developer or test reads the code.
func (s *Server) VerificationCode(email string) (string, bool) {
	return s.codes.peek(email)
}

// SetMember changes the member tier of a user.
func (s *Server) SetMember(userID int64, member string) error {
	return s.users.setMember(userID, member)
}

// RevokeSessions ends every session of userID, as an administrator kicking
// the user out would.
func (s *Server) RevokeSessions(userID int64) int {
	return s.sessions.revokeUser(userID)
}
