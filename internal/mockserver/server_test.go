package mockserver_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/walicode/api"
	"github.com/jmcleod/walicode/auth"
	"github.com/jmcleod/walicode/internal/mockserver"
	"github.com/jmcleod/walicode/session"
	"github.com/jmcleod/walicode/storage"
	"github.com/jmcleod/walicode/storage/memory"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	server    *mockserver.Server
	url       string
	clock     *clock
	client    *api.Client
	mgr       *auth.Manager
	courses   *api.CourseAPI
	mu        sync.Mutex
	navigated []string
}

func (h *harness) navigations() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.navigated...)
}

func setup(t *testing.T, opts ...mockserver.Option) *harness {
	t.Helper()
	h := &harness{clock: &clock{now: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}}
	opts = append([]mockserver.Option{
		mockserver.WithBcryptCost(bcrypt.MinCost),
		mockserver.WithClock(h.clock.Now),
		mockserver.WithIdleTimeout(time.Hour),
	}, opts...)
	srv, err := mockserver.New(opts...)
	require.NoError(t, err)
	h.server = srv

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	h.url = ts.URL

	jar, err := session.NewJar(memory.NewStore())
	require.NoError(t, err)
	h.client, err = api.New(api.Config{BaseURL: ts.URL + "/api", RetryDelay: time.Millisecond}, jar)
	require.NoError(t, err)
	h.mgr = auth.NewManager(h.client, session.NewContext(jar, storage.NewKV(memory.NewStore())),
		auth.WithNavigator(auth.NavigatorFunc(func(_ context.Context, path string) {
			h.mu.Lock()
			h.navigated = append(h.navigated, path)
			h.mu.Unlock()
		})),
		auth.WithClock(h.clock.Now),
	)
	h.courses = api.NewCourseAPI(h.client)
	return h
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func appErr(t *testing.T, err error) *api.Error {
	t.Helper()
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr), "expected *api.Error, got %v", err)
	return apiErr
}

func TestLoginAndWhoAmI(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	p, err := h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, api.ID("1"), p.ID)
	assert.Equal(t, "pub@walicode.dev", p.Email)
	assert.Equal(t, "0", p.Member)
	assert.True(t, h.mgr.IsLoggedIn())
	assert.False(t, h.mgr.IsMember())

	st := h.mgr.TokenStatus(ctx)
	assert.Equal(t, mockserver.TokenName, st.TokenName)
	require.NotNil(t, st.Backup)
}

func TestLoginByEmailIgnoresCase(t *testing.T) {
	h := setup(t)

	p, err := h.mgr.Login(context.Background(), api.LoginParams{Email: " ADA@walicode.dev", Password: "walicode"})
	require.NoError(t, err)
	assert.Equal(t, "ada", p.UserName)

	status := h.mgr.CheckMemberStatus(context.Background())
	assert.Equal(t, auth.MemberStatusMember, status.State)
}

func TestLoginRejected(t *testing.T) {
	h := setup(t)

	_, err := h.mgr.Login(context.Background(), api.LoginParams{Username: "pub", Password: "wrong"})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrApplication)
	assert.Equal(t, "1002", appErr(t, err).Code)
	assert.False(t, h.mgr.IsLoggedIn())
}

func TestLoginRateLimited(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "wrong"})
		require.ErrorIs(t, err, api.ErrApplication)
	}
	// Locked out even with the right password.
	_, err := h.mgr.Login(ctx, api.LoginParams{Username: "PUB", Password: "walicode"})
	require.ErrorIs(t, err, api.ErrHTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, appErr(t, err).Status)
	assert.Equal(t, "429", appErr(t, err).Code)

	h.clock.Advance(2 * time.Minute)
	_, err = h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)
}

func TestIdleSessionExpires(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	_, err = h.mgr.GetLoginUser(ctx)
	require.Error(t, err)
	assert.True(t, api.IsSessionExpired(err))
	assert.False(t, h.mgr.IsLoggedIn())
	assert.Nil(t, h.mgr.Profile())
	assert.Equal(t, []string{auth.LoginPath}, h.navigations())
}

func TestRevokedSessionLogsOut(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	p, err := h.mgr.Login(ctx, api.LoginParams{Username: "ada", Password: "walicode"})
	require.NoError(t, err)

	assert.Equal(t, 1, h.server.RevokeSessions(1))
	_, err = h.courses.ChapterContent(ctx, "20")
	assert.True(t, api.IsSessionExpired(err))
	assert.False(t, h.mgr.IsLoggedIn())
	assert.Equal(t, api.ID("2"), p.ID, "ada is the second seeded user")
}

func TestServerLogoutInvalidatesToken(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	_, err := h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)

	env, err := api.NewAuthAPI(h.client).Logout(ctx)
	require.NoError(t, err)
	assert.True(t, env.OK())

	_, err = h.mgr.GetLoginUser(ctx)
	assert.True(t, api.IsSessionExpired(err))
}

func TestNotLoggedInIsAnApplicationError(t *testing.T) {
	h := setup(t)

	_, err := h.courses.ChapterContent(context.Background(), "10")
	require.ErrorIs(t, err, api.ErrApplication)
	assert.Equal(t, "401", appErr(t, err).Code)
	assert.Empty(t, h.navigations())
}

func TestRegisterWithVerificationCode(t *testing.T) {
	h := setup(t)
	ctx := context.Background()
	email := "grace@example.com"

	env, err := h.mgr.SendEmailVerification(ctx, email)
	require.NoError(t, err)
	require.True(t, env.OK())
	code, ok := h.server.VerificationCode(email)
	require.True(t, ok)
	assert.Len(t, code, 6)

	t.Run("WrongCode", func(t *testing.T) {
		env, err := h.mgr.Register(ctx, api.RegisterParams{Username: "grace", Email: email, Password: "pw", Code: "x"})
		require.NoError(t, err)
		assert.Equal(t, api.Code("1001"), env.ErrorCode)
	})

	env, err = h.mgr.Register(ctx, api.RegisterParams{Username: "grace", Email: email, Password: "pw", Code: code})
	require.NoError(t, err)
	require.True(t, env.OK(), env.ErrorMsg)

	t.Run("CodeIsSingleUse", func(t *testing.T) {
		env, err := h.mgr.Register(ctx, api.RegisterParams{Username: "grace2", Email: email, Password: "pw", Code: code})
		require.NoError(t, err)
		assert.Equal(t, api.Code("1001"), env.ErrorCode)
	})

	p, err := h.mgr.Login(ctx, api.LoginParams{Username: "grace", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, email, p.Email)

	t.Run("DuplicateName", func(t *testing.T) {
		_, err := h.mgr.SendEmailVerification(ctx, "other@example.com")
		require.NoError(t, err)
		code, _ := h.server.VerificationCode("other@example.com")
		env, err := h.mgr.Register(ctx, api.RegisterParams{Username: "Grace", Email: "other@example.com", Password: "pw", Code: code})
		require.NoError(t, err)
		assert.Equal(t, api.Code("409"), env.ErrorCode)
	})
}

func TestCourses(t *testing.T) {
	h := setup(t)
	ctx := context.Background()

	page, err := h.courses.CoursePage(ctx, api.CoursePageParams{PageNum: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Len(t, page.Records, 2)

	page, err = h.courses.CoursePage(ctx, api.CoursePageParams{PageNum: 1, PageSize: 10, Keyword: "goroutines"})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.True(t, page.Records[0].MemberOnly)

	chapters, err := h.courses.CourseChapters(ctx, "1")
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Hello, World", chapters[0].Title)

	_, err = h.courses.CourseChapters(ctx, "99")
	assert.Equal(t, "404", appErr(t, err).Code)

	_, err = h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)

	content, err := h.courses.ChapterContent(ctx, "10")
	require.NoError(t, err)
	assert.Contains(t, content.Content, "Hello, World")

	_, err = h.courses.ChapterContent(ctx, "20")
	assert.Equal(t, "403", appErr(t, err).Code)

	require.NoError(t, h.server.SetMember(1, "BASIC"))
	content, err = h.courses.ChapterContent(ctx, "20")
	require.NoError(t, err)
	assert.Equal(t, api.ID("20"), content.ChapterID)
}

func TestOperationalEndpoints(t *testing.T) {
	h := setup(t)
	_, err := h.mgr.Login(context.Background(), api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)

	status, body := get(t, h.url+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "OK", body)

	status, body = get(t, h.url+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `walicode_mock_requests_total{route="/api/auth/login",status="200"} 1`)
	assert.Contains(t, body, `walicode_mock_audit_events_total{event="login_success"} 1`)

	status, body = get(t, h.url+"/api/openapi.yaml")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "openapi: 3.0.3")

	status, body = get(t, h.url+"/api/docs")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "swagger-ui")

	status, _ = get(t, h.url+"/api/redoc")
	assert.Equal(t, http.StatusOK, status)
}

func TestCustomMarker(t *testing.T) {
	h := setup(t, mockserver.WithSessionExpiredMarker("token revoked"))
	ctx := context.Background()
	_, err := h.mgr.Login(ctx, api.LoginParams{Username: "pub", Password: "walicode"})
	require.NoError(t, err)
	h.server.RevokeSessions(1)

	// The client still watches for the default marker.
	_, err = h.mgr.GetLoginUser(ctx)
	require.ErrorIs(t, err, api.ErrApplication)
	assert.Equal(t, "token revoked", appErr(t, err).Message)
	assert.True(t, h.mgr.IsLoggedIn())
}
