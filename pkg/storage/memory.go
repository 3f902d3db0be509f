package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/soypete/userapi/pkg/metrics"
)

// MemoryUserStore implements UserStore in memory.
// It's primarily used for unit testing
type MemoryUserStore struct {
	mu     sync.RWMutex
	users  map[int64]*User
	nextID int64

	// Err, when set, is returned as a StorageError by every operation.
	Err error
}

// NewMemoryUserStore creates a new in-memory user store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		users:  make(map[int64]*User),
		nextID: 1,
	}
}

func (s *MemoryUserStore) ListAll(ctx context.Context) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.Err != nil {
		metrics.ObserveStore("list", s.Err)
		return nil, storageError("list", s.Err)
	}

	users := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	metrics.ObserveStore("list", nil)
	return users, nil
}

func (s *MemoryUserStore) Insert(ctx context.Context, name *string, age *int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		metrics.ObserveStore("insert", s.Err)
		return nil, storageError("insert", s.Err)
	}

	u := &User{ID: s.nextID, Name: name, Age: age}
	s.nextID++
	s.users[u.ID] = copyUser(u)

	metrics.ObserveStore("insert", nil)
	return u, nil
}

func (s *MemoryUserStore) Update(ctx context.Context, id int64, name *string, age *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		metrics.ObserveStore("update", s.Err)
		return storageError("update", s.Err)
	}

	if _, ok := s.users[id]; ok {
		s.users[id] = copyUser(&User{ID: id, Name: name, Age: age})
	}

	metrics.ObserveStore("update", nil)
	return nil
}

func (s *MemoryUserStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Err != nil {
		metrics.ObserveStore("delete", s.Err)
		return storageError("delete", s.Err)
	}

	delete(s.users, id)

	metrics.ObserveStore("delete", nil)
	return nil
}

// copyUser deep copies a user so callers cannot mutate stored state.
func copyUser(u *User) *User {
	c := &User{ID: u.ID}
	if u.Name != nil {
		name := *u.Name
		c.Name = &name
	}
	if u.Age != nil {
		age := *u.Age
		c.Age = &age
	}
	return c
}
