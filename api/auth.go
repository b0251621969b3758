package api

import (
	"context"
	"encoding/json"
)

// Auth endpoint paths, relative to the base URL.
const (
	PathLogin             = "/auth/login"
	PathRegister          = "/auth/registered"
	PathGetLoginUser      = "/auth/getLoginUser"
	PathEmailVerification = "/auth/verificationEmail"
	PathLogout            = "/auth/loginOut"
)

// LoginParams identifies the user by username or email.
type LoginParams struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type RegisterParams struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type EmailVerificationParams struct {
	Email string `json:"email"`
}

// LoginData is the token description returned by a successful login.
// LoginID holds the user identity as a JSON-encoded string, e.g.
// {"id":3,"userName":"pub"}.
type LoginData struct {
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

// User is the server's current-user record.
type User struct {
	ID       ID     `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email,omitempty"`
	Member   string `json:"member,omitempty"`
}

// AuthAPI wraps the authentication endpoints. Methods return the envelope as
// received; callers decide how to treat a non-zero error code.
type AuthAPI struct {
	c *Client
}

func NewAuthAPI(c *Client) *AuthAPI {
	return &AuthAPI{c: c}
}

func (a *AuthAPI) Login(ctx context.Context, p LoginParams) (*Envelope[LoginData], error) {
	var env Envelope[LoginData]
	if err := a.c.Post(ctx, PathLogin, p, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func (a *AuthAPI) Register(ctx context.Context, p RegisterParams) (*Envelope[json.RawMessage], error) {
	var env Envelope[json.RawMessage]
	if err := a.c.Post(ctx, PathRegister, p, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// GetLoginUser fetches the signed-in user. Data is nil when the server sent
// no user. Transport failures are not retried: the login and start-up flows
// built on it make a single attempt.
func (a *AuthAPI) GetLoginUser(ctx context.Context) (*Envelope[*User], error) {
	var env Envelope[*User]
	if err := a.c.Get(ctx, PathGetLoginUser, nil, &env, WithRetry(0)); err != nil {
		return nil, err
	}
	return &env, nil
}

func (a *AuthAPI) SendEmailVerification(ctx context.Context, p EmailVerificationParams) (*Envelope[json.RawMessage], error) {
	var env Envelope[json.RawMessage]
	if err := a.c.Post(ctx, PathEmailVerification, p, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Logout ends the session on the server. The auth manager clears local state
// without calling it.
func (a *AuthAPI) Logout(ctx context.Context) (*Envelope[json.RawMessage], error) {
	var env Envelope[json.RawMessage]
	if err := a.c.Post(ctx, PathLogout, nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}
