package mockserver

import (
	"sync"
	"time"

	"github.com/jmcleod/walicode/internal/util"
)

const verificationCodeLen = 6

type verificationCode struct {
	code    string
	expires time.Time
}

// codeBook holds the latest verification code sent to each email address.
type codeBook struct {
	mu    sync.Mutex
	codes map[string]verificationCode
	ttl   time.Duration
	now   func() time.Time
}

func newCodeBook(ttl time.Duration, now func() time.Time) *codeBook {
	return &codeBook{codes: make(map[string]verificationCode), ttl: ttl, now: now}
}

func (b *codeBook) issue(email string) (string, error) {
	code, err := util.RandomDigits(verificationCodeLen)
	if err != nil {
		return "", err
	}
	b.mu.Lock()
	b.codes[util.NormalizeIdentifier(email)] = verificationCode{code: code, expires: b.now().Add(b.ttl)}
	b.mu.Unlock()
	return code, nil
}

// consume checks code for email and invalidates it on success.
func (b *codeBook) consume(email, code string) bool {
	key := util.NormalizeIdentifier(email)
	b.mu.Lock()
	defer b.mu.Unlock()
	vc, ok := b.codes[key]
	if !ok || vc.code != code || b.now().After(vc.expires) {
		return false
	}
	delete(b.codes, key)
	return true
}

func (b *codeBook) peek(email string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	vc, ok := b.codes[util.NormalizeIdentifier(email)]
	return vc.code, ok
}
