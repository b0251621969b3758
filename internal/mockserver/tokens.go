package mockserver

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var errInvalidToken = errors.New("invalid token")

// tokenIssuer signs session tokens as HS256 JWTs. The token ID doubles as
// the session key, so a token is only honoured while its session lives.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (ti *tokenIssuer) issue(userID int64) (token, id string, expires time.Time, err error) {
	now := ti.now()
	id = uuid.NewString()
	expires = now.Add(ti.ttl)
	claims := jwt.RegisteredClaims{
		ID:        id,
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    "walicode-mock",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	token, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return token, id, expires, nil
}

// parse validates signature and expiry and returns the token ID and user ID.
func (ti *tokenIssuer) parse(token string) (id string, userID int64, err error) {
	var claims jwt.RegisteredClaims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return ti.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer("walicode-mock"),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", errInvalidToken, err)
	}
	userID, err = strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || claims.ID == "" {
		return "", 0, errInvalidToken
	}
	return claims.ID, userID, nil
}
