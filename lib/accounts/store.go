package accounts

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Store errors.
var (
	ErrNotFound      = errors.New("accounts: user not found")
	ErrUsernameTaken = errors.New("accounts: username taken")
	ErrBadPassword   = errors.New("accounts: password mismatch")
)

// User is a created account. Passwords are never stored in clear.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	passwordHash []byte
}

// Store is an in-memory user store.
type Store struct {
	mu         sync.RWMutex
	users      map[string]*User
	byUsername map[string]string
	cost       int
}

// NewStore creates an empty store hashing passwords with bcrypt at cost.
// A non-positive cost selects bcrypt.DefaultCost.
func NewStore(cost int) *Store {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Store{
		users:      make(map[string]*User),
		byUsername: make(map[string]string),
		cost:       cost,
	}
}

// Create stores a new user and returns it with its assigned ID.
func (s *Store) Create(u User, password string) (User, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(u.Username)
	if _, taken := s.byUsername[key]; taken {
		return User{}, ErrUsernameTaken
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.CreatedAt = now
	u.UpdatedAt = now
	u.passwordHash = passwordHash

	s.users[u.ID] = &u
	s.byUsername[key] = u.ID
	return u, nil
}

// Get returns a user by ID.
func (s *Store) Get(id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// Update replaces the profile fields of a user. Empty fields keep their
// current value.
func (s *Store) Update(id string, changes User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}

	if changes.Username != "" && !strings.EqualFold(changes.Username, u.Username) {
		key := strings.ToLower(changes.Username)
		if _, taken := s.byUsername[key]; taken {
			return User{}, ErrUsernameTaken
		}
		delete(s.byUsername, strings.ToLower(u.Username))
		s.byUsername[key] = id
		u.Username = changes.Username
	}
	if changes.Email != "" {
		u.Email = changes.Email
	}
	if changes.FirstName != "" {
		u.FirstName = changes.FirstName
	}
	if changes.LastName != "" {
		u.LastName = changes.LastName
	}
	u.UpdatedAt = time.Now().UTC()
	return *u, nil
}

// Delete removes a user.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byUsername, strings.ToLower(u.Username))
	delete(s.users, id)
	return nil
}

// CheckPassword compares password with the stored hash of user id.
func (s *Store) CheckPassword(id, password string) error {
	s.mu.RLock()
	u, ok := s.users[id]
	var hash []byte
	if ok {
		hash = u.passwordHash
	}
	s.mu.RUnlock()

	if !ok {
		return ErrNotFound
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrBadPassword
	}
	return nil
}

// UsernameTaken reports whether a user already has username.
func (s *Store) UsernameTaken(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byUsername[strings.ToLower(username)]
	return ok
}

// List returns all users sorted by creation time.
func (s *Store) List() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
