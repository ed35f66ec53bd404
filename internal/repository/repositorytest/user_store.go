// Package repositorytest provides an in-memory credential store with the same
// contract as repository.UserRepository, for use in tests.
package repositorytest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-user-auth/internal/model"
)

type UserStore struct {
	mu    sync.Mutex
	users map[string]model.User
	order []string

	// FailOn makes the named method return the given error.
	FailOn map[string]error
}

func NewUserStore() *UserStore {
	return &UserStore{users: map[string]model.User{}, FailOn: map[string]error{}}
}

func (s *UserStore) fail(method string) error {
	if err, ok := s.FailOn[method]; ok {
		return err
	}
	return nil
}

func (s *UserStore) FindByID(_ context.Context, id string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("FindByID"); err != nil {
		return model.User{}, err
	}

	u, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) FindByIdentifier(_ context.Context, username string, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("FindByIdentifier"); err != nil {
		return model.User{}, err
	}

	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	for _, id := range s.order {
		u := s.users[id]
		if (username != "" && strings.EqualFold(u.Username, username)) ||
			(email != "" && strings.EqualFold(u.Email, email)) {
			return u, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *UserStore) ExistsByUsernameOrEmail(_ context.Context, username string, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ExistsByUsernameOrEmail"); err != nil {
		return false, err
	}
	return s.existsLocked(username, email), nil
}

func (s *UserStore) existsLocked(username string, email string) bool {
	for _, u := range s.users {
		if strings.EqualFold(u.Username, strings.TrimSpace(username)) ||
			strings.EqualFold(u.Email, strings.TrimSpace(email)) {
			return true
		}
	}
	return false
}

func (s *UserStore) Create(_ context.Context, u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("Create"); err != nil {
		return err
	}
	if s.existsLocked(u.Username, u.Email) {
		return fmt.Errorf("create user: %w", model.ErrUserAlreadyExists)
	}

	s.users[u.ID] = u
	s.order = append(s.order, u.ID)
	return nil
}

func (s *UserStore) SetRefreshToken(_ context.Context, userID string, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("SetRefreshToken"); err != nil {
		return err
	}

	u, ok := s.users[userID]
	if !ok {
		return model.ErrUserNotFound
	}
	u.RefreshTokenHash = &tokenHash
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return nil
}

func (s *UserStore) SwapRefreshToken(_ context.Context, userID string, oldHash string, newHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("SwapRefreshToken"); err != nil {
		return false, err
	}

	u, ok := s.users[userID]
	if !ok || u.RefreshTokenHash == nil || *u.RefreshTokenHash != oldHash {
		return false, nil
	}
	u.RefreshTokenHash = &newHash
	u.UpdatedAt = time.Now().UTC()
	s.users[userID] = u
	return true, nil
}

func (s *UserStore) ClearRefreshToken(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fail("ClearRefreshToken"); err != nil {
		return err
	}

	if u, ok := s.users[userID]; ok && u.RefreshTokenHash != nil {
		u.RefreshTokenHash = nil
		u.UpdatedAt = time.Now().UTC()
		s.users[userID] = u
	}
	return nil
}

// Count returns the number of stored users.
func (s *UserStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}
