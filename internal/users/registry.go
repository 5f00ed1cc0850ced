package users

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

var (
	// ErrUsernameTaken is returned when the username is already claimed.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrUserNotFound is returned when no account exists for the username.
	ErrUserNotFound = errors.New("user not found")
)

// User is a registered account. PasswordHash is a bcrypt hash, never the
// plaintext password.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	IsAdmin      bool
}

// Registry is the in-process set of claimed usernames and their accounts.
// The duplicate check and the insert happen under one lock so concurrent
// registrations of the same name cannot both succeed.
type Registry struct {
	mu     sync.Mutex
	byName map[string]*User
}

// NewRegistry creates an empty user registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*User),
	}
}

// Register claims the username and creates the account. Fails with
// ErrUsernameTaken if the name is already claimed.
func (r *Registry) Register(username, passwordHash string, isAdmin bool) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[username]; exists {
		return nil, ErrUsernameTaken
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: passwordHash,
		IsAdmin:      isAdmin,
	}
	r.byName[username] = user

	return user, nil
}

// GetByUsername looks up an account by its username.
func (r *Registry) GetByUsername(username string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byName[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}
