package authflowrepo

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/home-logistic/internal/errors"
)

// DefaultTTL bounds how long a sign-in may take between redirect and callback.
const DefaultTTL = 10 * time.Minute

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	states  map[string]*AuthFlowState
	ttl     time.Duration
	nowFunc func() time.Time
}

type Option func(*InMemoryRepo)

func WithTTL(ttl time.Duration) Option {
	return func(r *InMemoryRepo) {
		r.ttl = ttl
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(r *InMemoryRepo) {
		r.nowFunc = now
	}
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo(options ...Option) *InMemoryRepo {
	r := &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		ttl:     DefaultTTL,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Upsert stores or updates an auth flow state. Expired states are swept on
// every write.
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "state cannot be empty")
	}
	if authState == nil {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.cleanupLocked()
	c := *authState
	r.states[state] = &c
	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists || r.expired(authState) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state not found")
	}

	c := *authState
	return &c, nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidState, "state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

func (r *InMemoryRepo) Consume(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	delete(r.states, state)
	if !exists || r.expired(authState) {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidState, "state not found or expired")
	}
	return authState, nil
}

// Len reports the number of stored states, expired ones included.
func (r *InMemoryRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

func (r *InMemoryRepo) expired(s *AuthFlowState) bool {
	return !r.nowFunc().Before(s.CreatedAt.Add(r.ttl))
}

func (r *InMemoryRepo) cleanupLocked() {
	for k, s := range r.states {
		if r.expired(s) {
			delete(r.states, k)
		}
	}
}
