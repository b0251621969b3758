package mockserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
)

// Error codes carried in the envelope.
const (
	codeOK            = "0"
	codeBadRequest    = "400"
	codeUnauthorized  = "401"
	codeForbidden     = "403"
	codeNotFound      = "404"
	codeConflict      = "409"
	codeRateLimited   = "429"
	codeInternal      = "500"
	codeBadCode       = "1001"
	codeBadCredential = "1002"
)

type envelope struct {
	ErrorCode string `json:"errorCode"`
	ErrorMsg  string `json:"errorMsg"`
	Data      any    `json:"data"`
	RequestID string `json:"requestId"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{ErrorCode: codeOK, Data: data, RequestID: uuid.NewString()})
}

// writeFail answers with an application error. Like the real backend, the
// HTTP status stays 200 unless status says otherwise.
func writeFail(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, envelope{ErrorCode: code, ErrorMsg: msg, RequestID: uuid.NewString()})
}

var (
	errNotFound      = errors.New("not found")
	errConflict      = errors.New("already exists")
	errBadCredential = errors.New("invalid username or password")
	errBadCode       = errors.New("verification code is invalid or expired")
	errMembersOnly   = errors.New("this content is for members only")
	errMissingParam  = errors.New("missing or invalid parameter")
)

func mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNotFound):
		writeFail(w, http.StatusOK, codeNotFound, err.Error())
	case errors.Is(err, errConflict):
		writeFail(w, http.StatusOK, codeConflict, err.Error())
	case errors.Is(err, errBadCredential):
		writeFail(w, http.StatusOK, codeBadCredential, err.Error())
	case errors.Is(err, errBadCode):
		writeFail(w, http.StatusOK, codeBadCode, err.Error())
	case errors.Is(err, errMembersOnly):
		writeFail(w, http.StatusOK, codeForbidden, err.Error())
	default:
		writeFail(w, http.StatusInternalServerError, codeInternal, err.Error())
	}
}
