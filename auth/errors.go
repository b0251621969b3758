package auth

import "errors"

var (
	// ErrNoToken is returned by calls that need a session when the jar holds
	// no token value. No request is sent.
	ErrNoToken = errors.New("no token present, cannot fetch user info")
	// ErrNoTokenValue means the server accepted a login but issued no token.
	ErrNoTokenValue = errors.New("login response carried no token value")
	// ErrSessionLost means the session ended while a profile was being saved.
	ErrSessionLost = errors.New("session ended before the profile was saved")
)

// msgNoUserInfo is the message of the application error returned when a
// successful user-info response carries no user.
const msgNoUserInfo = "failed to get user info"
