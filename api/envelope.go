package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	// SuccessCode is the envelope errorCode of a successful call.
	SuccessCode = "0"
	// SessionExpiredCode in an error response body means the credential is
	// no longer honoured.
	SessionExpiredCode = "-1"
	// DefaultSessionExpiredMarker is the errorMsg the server puts in an
	// otherwise successful response when the session has expired.
	DefaultSessionExpiredMarker = "login expired"
)

// Envelope is the response wrapper used by every endpoint.
type Envelope[T any] struct {
	ErrorCode Code   `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Data      T      `json:"data"`
	RequestID string `json:"requestId"`
}

// OK reports whether the envelope carries the success code.
func (e *Envelope[T]) OK() bool {
	return string(e.ErrorCode) == SuccessCode
}

// Err returns a KindApplication error when the envelope is not a success.
func (e *Envelope[T]) Err() error {
	if e.OK() {
		return nil
	}
	return &Error{
		Kind:      KindApplication,
		Code:      string(e.ErrorCode),
		Message:   e.ErrorMsg,
		RequestID: e.RequestID,
	}
}

// Code is an errorCode. Some endpoints send it as a number, most as a string.
type Code string

func (c *Code) UnmarshalJSON(data []byte) error {
	s, err := flexString(data)
	*c = Code(s)
	return err
}

// ID is an identifier the server sends either as a JSON number or a string.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	s, err := flexString(data)
	*id = ID(s)
	return err
}

func flexString(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", nil
	}
	if data[0] == '"' {
		var s string
		err := json.Unmarshal(data, &s)
		return s, err
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", data)
	}
	return n.String(), nil
}

// status is the part of an envelope inspected by the response interceptor.
type status struct {
	ErrorCode Code   `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	RequestID string `json:"requestId"`
}

func probeStatus(body []byte) (status, bool) {
	var st status
	if len(body) == 0 || body[0] != '{' {
		return st, false
	}
	if err := json.Unmarshal(body, &st); err != nil {
		return st, false
	}
	return st, true
}

// unwrapBody returns the JSON document in body. Some gateways deliver the
// envelope as a JSON string holding the encoded object; that layer is
// removed.
func unwrapBody(body []byte) []byte {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '"' {
		return body
	}
	var inner string
	if err := json.Unmarshal(body, &inner); err != nil {
		return body
	}
	trimmed := bytes.TrimSpace([]byte(inner))
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return trimmed
	}
	return body
}
