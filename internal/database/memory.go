package database

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tanisingh134/carbon/internal/carbon"
)

// MemoryStore keeps users and activities in process memory.
// It satisfies the same methods as DB and is selected with STORE_DRIVER=memory.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[string]*User
	byEmail    map[string]string
	activities map[string][]carbon.Activity
	now        func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:      make(map[string]*User),
		byEmail:    make(map[string]string),
		activities: make(map[string][]carbon.Activity),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (m *MemoryStore) CreateUser(ctx context.Context, user *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := m.byEmail[key]; exists {
		return ErrEmailTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = m.now()

	stored := *user
	m.users[user.ID] = &stored
	m.byEmail[key] = user.ID
	return nil
}

func (m *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := *stored
	return &u, nil
}

func (m *MemoryStore) CreateActivity(ctx context.Context, a *carbon.Activity) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.RecordedAt.IsZero() {
		a.RecordedAt = m.now()
	}
	m.activities[a.UserID] = append(m.activities[a.UserID], *a)
	return nil
}

// FindByUser returns a copy of the user's activities in insertion order
func (m *MemoryStore) FindByUser(ctx context.Context, userID string) ([]carbon.Activity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]carbon.Activity, len(m.activities[userID]))
	copy(out, m.activities[userID])
	return out, nil
}

func (m *MemoryStore) CarbonTotals(ctx context.Context) ([]UserTotal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	totals := make([]UserTotal, 0, len(m.users))
	for id, u := range m.users {
		totals = append(totals, UserTotal{
			UserID: id,
			Email:  u.Email,
			Score:  carbon.Aggregate(m.activities[id]),
		})
	}
	m.mu.RUnlock()

	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Score != totals[j].Score {
			return totals[i].Score < totals[j].Score
		}
		return totals[i].Email < totals[j].Email
	})
	return totals, nil
}

func (m *MemoryStore) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	emails := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			emails[id] = u.Email
		}
	}
	return emails, nil
}
