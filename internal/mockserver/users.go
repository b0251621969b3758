package mockserver

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/jmcleod/walicode/internal/util"
)

type user struct {
	ID           int64
	UserName     string
	Email        string
	Member       string
	PasswordHash []byte
}

// userView is the current-user record returned by getLoginUser.
type userView struct {
	ID       int64  `json:"id"`
	UserName string `json:"userName"`
	Email    string `json:"email"`
	Member   string `json:"member"`
}

func (u *user) view() userView {
	return userView{ID: u.ID, UserName: u.UserName, Email: u.Email, Member: u.Member}
}

// userStore holds accounts. Passwords are bcrypt hashes of the NFKD form.
type userStore struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*user
	byLogin map[string]*user
	cost    int
}

func newUserStore(cost int) *userStore {
	return &userStore{
		nextID:  1,
		byID:    make(map[int64]*user),
		byLogin: make(map[string]*user),
		cost:    cost,
	}
}

func (s *userStore) create(userName, email, password, member string) (*user, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(util.Normalize(password)), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}
	nameKey := util.NormalizeIdentifier(userName)
	emailKey := util.NormalizeIdentifier(email)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byLogin[nameKey]; ok && nameKey != "" {
		return nil, fmt.Errorf("user name %q: %w", userName, errConflict)
	}
	if _, ok := s.byLogin[emailKey]; ok && emailKey != "" {
		return nil, fmt.Errorf("email %q: %w", email, errConflict)
	}
	if member == "" {
		member = "0"
	}
	u := &user{ID: s.nextID, UserName: userName, Email: email, Member: member, PasswordHash: hash}
	s.nextID++
	s.byID[u.ID] = u
	if nameKey != "" {
		s.byLogin[nameKey] = u
	}
	if emailKey != "" {
		s.byLogin[emailKey] = u
	}
	return u, nil
}

func (s *userStore) get(id int64) (*user, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	return u, ok
}

// authenticate resolves login by user name or email and checks the password.
func (s *userStore) authenticate(login, password string) (*user, error) {
	s.mu.RLock()
	u, ok := s.byLogin[util.NormalizeIdentifier(login)]
	s.mu.RUnlock()
	if !ok {
		// Keep timing close to the found case.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, errBadCredential
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(util.Normalize(password))); err != nil {
		return nil, errBadCredential
	}
	return u, nil
}

func (s *userStore) setMember(id int64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return errNotFound
	}
	u.Member = member
	return nil
}

var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("walicode"), bcrypt.MinCost)
