// Package auth keeps the local view of the user's session consistent with
// the server: the token pair in the session jar, the cached profile and the
// login metadata in the key-value store.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jmcleod/walicode/api"
	"github.com/jmcleod/walicode/session"
	"github.com/jmcleod/walicode/storage"
)

// Keys of the entries kept in the key-value store.
const (
	KeyUserInfo  = "user-info"
	KeyLoginTime = "login-time"
	KeyTokenInfo = "token-info"
)

const (
	// DefaultMemberTier is the member value of a paying member.
	DefaultMemberTier = "BASIC"
	// DefaultMaxSessionAge is used by IsSessionValid for non-positive ages.
	DefaultMaxSessionAge = 24 * time.Hour
)

// Profile is the cached current-user record.
type Profile = api.User

// TokenInfo is the backup copy of the token pair. It is informational only
// and never used to sign requests.
type TokenInfo struct {
	TokenName  string `json:"tokenName"`
	TokenValue string `json:"tokenValue"`
	Timestamp  int64  `json:"timestamp"`
}

// Manager owns the authentication state of one session context.
type Manager struct {
	auth       *api.AuthAPI
	tokens     *session.Jar
	store      *storage.KV
	logger     *slog.Logger
	navigator  Navigator
	memberTier string
	now        func() time.Time

	mu      sync.Mutex
	profile *Profile
}

// NewManager creates a Manager and registers it as the client's session
// invalidation handler. The cached profile is restored from the store.
func NewManager(client *api.Client, sess *session.Context, opts ...Option) *Manager {
	m := &Manager{
		auth:       api.NewAuthAPI(client),
		tokens:     sess.Tokens,
		store:      sess.Store,
		logger:     slog.Default(),
		memberTier: DefaultMemberTier,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.navigator == nil {
		m.navigator = logNavigator{logger: m.logger}
	}
	m.restore(context.Background())
	client.OnInvalidate(m.handleInvalidation)
	return m
}

func (m *Manager) restore(ctx context.Context) (*Profile, bool) {
	stored, ok := storage.Lookup[Profile](ctx, m.store, KeyUserInfo)
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.profile = &stored
	}
	return m.profile, m.profile != nil
}

// Login authenticates with the server and stores the issued token pair.
//
// The returned profile is the full server record when it can be fetched,
// otherwise the identity embedded in the login response, otherwise nil.
// Failing to obtain a profile does not fail the login.
func (m *Manager) Login(ctx context.Context, params api.LoginParams) (*Profile, error) {
	env, err := m.auth.Login(ctx, params)
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: login failed", "error", err)
		return nil, err
	}
	if err := env.Err(); err != nil {
		m.logger.ErrorContext(ctx, "auth: login rejected", "code", env.ErrorCode, "error", err)
		return nil, err
	}
	data := env.Data
	if data.TokenValue == "" {
		m.logger.ErrorContext(ctx, "auth: login rejected", "error", ErrNoTokenValue)
		return nil, ErrNoTokenValue
	}

	gen, err := m.tokens.Set(session.TokenPair{Name: data.TokenName, Value: data.TokenValue})
	if err != nil {
		return nil, fmt.Errorf("storing token pair: %w", err)
	}
	now := m.now()
	m.store.Set(ctx, KeyTokenInfo, TokenInfo{
		TokenName:  data.TokenName,
		TokenValue: data.TokenValue,
		Timestamp:  now.UnixMilli(),
	})
	m.store.Set(ctx, KeyLoginTime, now.UnixMilli())
	m.logger.InfoContext(ctx, "auth: token stored", "token_name", data.TokenName)

	if err := m.tokens.Await(ctx, gen); err != nil {
		return nil, err
	}

	identity, parsed := parseLoginID(data.LoginID)
	if !parsed {
		m.logger.WarnContext(ctx, "auth: login id is not a user record", "login_id_len", len(data.LoginID))
	}

	full, err := m.GetLoginUser(ctx)
	if err == nil {
		return full, nil
	}
	if !parsed {
		m.logger.ErrorContext(ctx, "auth: no user info after login", "error", err)
		return nil, nil
	}
	m.logger.WarnContext(ctx, "auth: fetching full user info failed, using login identity", "error", err)
	if !m.setProfile(ctx, identity) {
		return nil, nil
	}
	return identity, nil
}

// parseLoginID decodes the identity the server embeds in the login response
// as a JSON object encoded in a string.
func parseLoginID(raw string) (*Profile, bool) {
	blob := bytes.TrimSpace([]byte(raw))
	if len(blob) == 0 || blob[0] != '{' {
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal(blob, &p); err != nil {
		return nil, false
	}
	if p.ID == "" {
		p.ID = "0"
	}
	if p.Member == "" {
		p.Member = "0"
	}
	return &p, true
}

// Register creates an account. The envelope is returned as received.
func (m *Manager) Register(ctx context.Context, params api.RegisterParams) (*api.Envelope[json.RawMessage], error) {
	env, err := m.auth.Register(ctx, params)
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: register failed", "error", err)
		return nil, err
	}
	return env, nil
}

// SendEmailVerification asks the server to mail a registration code.
func (m *Manager) SendEmailVerification(ctx context.Context, email string) (*api.Envelope[json.RawMessage], error) {
	env, err := m.auth.SendEmailVerification(ctx, api.EmailVerificationParams{Email: email})
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: sending verification email failed", "error", err)
		return nil, err
	}
	return env, nil
}

// GetLoginUser fetches the current user from the server and caches it. It
// fails with ErrNoToken, without a request, when there is no token.
func (m *Manager) GetLoginUser(ctx context.Context) (*Profile, error) {
	if !m.tokens.HasToken() {
		return nil, ErrNoToken
	}
	env, err := m.auth.GetLoginUser(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: fetching user info failed", "error", err)
		return nil, err
	}
	if err := env.Err(); err != nil {
		m.logger.ErrorContext(ctx, "auth: fetching user info rejected", "code", env.ErrorCode, "error", err)
		return nil, err
	}
	if env.Data == nil {
		err := &api.Error{
			Kind:      api.KindApplication,
			Method:    http.MethodGet,
			Path:      api.PathGetLoginUser,
			Code:      string(env.ErrorCode),
			Message:   msgNoUserInfo,
			RequestID: env.RequestID,
		}
		m.logger.ErrorContext(ctx, "auth: user info missing from response", "error", err)
		return nil, err
	}
	p := *env.Data
	if !m.setProfile(ctx, &p) {
		return nil, ErrSessionLost
	}
	return &p, nil
}

// setProfile caches p in memory and in the store as one step. It refuses,
// returning false, when the token has gone in the meantime.
func (m *Manager) setProfile(ctx context.Context, p *Profile) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.tokens.HasToken() {
		return false
	}
	cp := *p
	m.profile = &cp
	m.store.Set(ctx, KeyUserInfo, cp)
	return true
}

// CheckMemberStatus re-fetches the profile and reports the membership tier.
// Failures are captured in the result, never returned.
func (m *Manager) CheckMemberStatus(ctx context.Context) MemberStatus {
	if !m.tokens.HasToken() {
		m.logger.InfoContext(ctx, "auth: not logged in, skipping member check")
		return MemberStatus{State: MemberStatusNotLoggedIn}
	}
	p, err := m.GetLoginUser(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: member check failed", "error", err)
		return MemberStatus{State: MemberStatusUnknown, Err: err}
	}
	if p.Member == m.memberTier {
		return MemberStatus{State: MemberStatusMember, Profile: p}
	}
	return MemberStatus{State: MemberStatusNotMember, Profile: p}
}

// Logout clears the token pair, the cached profile and the login metadata.
// Local state is cleared even when the jar fails to persist the removal.
func (m *Manager) Logout(ctx context.Context) error {
	err := m.tokens.Clear()
	if err != nil {
		m.logger.ErrorContext(ctx, "auth: clearing token pair failed", "error", err)
	}
	m.clearLocal(ctx)
	m.logger.InfoContext(ctx, "auth: logged out")
	return err
}

func (m *Manager) clearLocal(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profile = nil
	m.store.Remove(ctx, KeyUserInfo)
	m.store.Remove(ctx, KeyLoginTime)
	m.store.Remove(ctx, KeyTokenInfo)
}

// InitAuth reconciles the token pair with the cached profile at start-up.
// A token without a profile triggers a re-fetch whose failure is only
// logged; a profile without a token is deleted.
func (m *Manager) InitAuth(ctx context.Context) {
	_, hasProfile := m.restore(ctx)
	switch {
	case m.tokens.HasToken() && !hasProfile:
		m.logger.WarnContext(ctx, "auth: token present but user info missing, fetching")
		if _, err := m.GetLoginUser(ctx); err != nil {
			m.logger.ErrorContext(ctx, "auth: re-fetching user info failed", "error", err)
		}
	case !m.tokens.HasToken() && hasProfile:
		m.logger.InfoContext(ctx, "auth: clearing user info left without a token")
		m.clearLocal(ctx)
	}
}

func (m *Manager) handleInvalidation(ctx context.Context, cause error) {
	m.logger.WarnContext(ctx, "auth: session ended by server", "error", cause)
	m.clearLocal(ctx)
	m.navigator.Navigate(ctx, LoginPath)
}

// IsLoggedIn reports whether the jar holds a token value. The jar is the only
// source of truth; the cached profile and backup copy are ignored.
func (m *Manager) IsLoggedIn() bool {
	return m.tokens.HasToken()
}

// IsMember reports whether the cached profile carries the paid tier.
func (m *Manager) IsMember() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile != nil && m.profile.Member == m.memberTier
}

// Profile returns a copy of the cached profile, or nil.
func (m *Manager) Profile() *Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.profile == nil {
		return nil
	}
	cp := *m.profile
	return &cp
}

// LoginTime returns the time of the last successful login, if recorded.
func (m *Manager) LoginTime(ctx context.Context) (time.Time, bool) {
	ms, ok := storage.Lookup[int64](ctx, m.store, KeyLoginTime)
	if !ok || ms <= 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// LoginDuration returns the time elapsed since login. ok is false when the
// login time is unknown.
func (m *Manager) LoginDuration(ctx context.Context) (d time.Duration, ok bool) {
	t, ok := m.LoginTime(ctx)
	if !ok {
		return 0, false
	}
	return m.now().Sub(t), true
}

// IsSessionValid reports whether the user is logged in and the session is
// younger than maxAge. A session of unknown age is valid.
func (m *Manager) IsSessionValid(ctx context.Context, maxAge time.Duration) bool {
	if !m.IsLoggedIn() {
		return false
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxSessionAge
	}
	d, ok := m.LoginDuration(ctx)
	if !ok {
		return true
	}
	return d < maxAge
}

// TokenStatus describes the stored token for diagnostics. The value is
// truncated.
func (m *Manager) TokenStatus(ctx context.Context) TokenStatus {
	pair, ok := m.tokens.Pair()
	st := TokenStatus{
		HasToken:     ok,
		HasTokenName: pair.Name != "",
		TokenName:    pair.Name,
		Preview:      preview(pair.Value),
	}
	if info, found := storage.Lookup[TokenInfo](ctx, m.store, KeyTokenInfo); found {
		info.TokenValue = preview(info.TokenValue)
		st.Backup = &info
	}
	return st
}
