package repository

import (
	"context"
	"sync"
	"time"

	"resume-tailor/internal/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process implementation of the jobs, users and
// refresh-token stores. It backs the server when no database is
// configured and keeps the test suites free of Postgres.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[uuid.UUID]*domain.ResumeJob
	users    map[uuid.UUID]*domain.User
	byEmail  map[string]uuid.UUID
	refresh  map[string]*domain.RefreshToken
	profiles map[uuid.UUID]map[string]interface{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[uuid.UUID]*domain.ResumeJob),
		users:    make(map[uuid.UUID]*domain.User),
		byEmail:  make(map[string]uuid.UUID),
		refresh:  make(map[string]*domain.RefreshToken),
		profiles: make(map[uuid.UUID]map[string]interface{}),
	}
}

func (s *MemoryStore) Save(ctx context.Context, j *domain.ResumeJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j.UpdatedAt = time.Now()
	s.jobs[j.ID] = j.Clone()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id uuid.UUID) (*domain.ResumeJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return j.Clone(), nil
}

func (s *MemoryStore) SaveUser(ctx context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[u.Email] = u.ID
	if u.Profile != nil {
		s.profiles[u.ID] = u.Profile
	}
	return nil
}

func (s *MemoryStore) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	return s.userLocked(id)
}

func (s *MemoryStore) UserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userLocked(id)
}

func (s *MemoryStore) userLocked(id uuid.UUID) (*domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	cp.Profile = s.profiles[id]
	return &cp, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, userID uuid.UUID, profile map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return ErrNotFound
	}
	s.profiles[userID] = profile
	return nil
}

// AggregateForUser mirrors ProfileRepo.AggregateForUser for the
// in-memory store: the profile document is the only collection held here.
func (s *MemoryStore) AggregateForUser(ctx context.Context, userID uuid.UUID) (map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prof, ok := s.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return map[string]interface{}{"profile": prof}, nil
}

func (s *MemoryStore) SaveRefreshToken(ctx context.Context, t *domain.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.refresh[t.TokenHash] = &cp
	return nil
}

func (s *MemoryStore) RefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.refresh[hash]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) RevokeRefreshToken(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.refresh[hash]; ok {
		t.Revoked = true
	}
	return nil
}
