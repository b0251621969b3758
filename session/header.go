package session

import (
	"net/http"

	"golang.org/x/net/http/httpguts"
)

// AuthHeader is the strategy used to sign a request with the token pair.
// It is either a NamedHeader or a BearerHeader.
type AuthHeader interface {
	Apply(h http.Header)
	authHeader()
}

// NamedHeader sends the token under a server-chosen header key: the token
// name is the key and the token value is the value.
type NamedHeader struct {
	Name  string
	Value string
}

func (n NamedHeader) Apply(h http.Header) { h.Set(n.Name, n.Value) }
func (NamedHeader) authHeader()           {}

// BearerHeader sends the token as "Authorization: Bearer <token>".
type BearerHeader struct {
	Token string
}

func (b BearerHeader) Apply(h http.Header) { h.Set("Authorization", "Bearer "+b.Token) }
func (BearerHeader) authHeader()           {}

// HeaderFor selects the header strategy for pair. It returns nil when the
// pair carries no token value. A name that is not a valid header field name
// falls back to the bearer form.
func HeaderFor(pair TokenPair) AuthHeader {
	if pair.Value == "" {
		return nil
	}
	if pair.Name != "" && httpguts.ValidHeaderFieldName(pair.Name) {
		return NamedHeader{Name: pair.Name, Value: pair.Value}
	}
	return BearerHeader{Token: pair.Value}
}
