package connection

import (
	"fmt"
	"sync"
	"time"
)

// SubscriberInfo describes one live subscription
type SubscriberInfo struct {
	SubscriptionID string
	UserID         string
	Transport      string
	ConnectedAt    time.Time
	LastEmitAt     time.Time
	close          func()
	mu             sync.RWMutex
}

// MarkEmitted records that a snapshot was delivered
func (s *SubscriberInfo) MarkEmitted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastEmitAt = time.Now()
}

// GetLastEmitAt returns the time of the last delivered snapshot
func (s *SubscriberInfo) GetLastEmitAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastEmitAt
}

// Manager tracks all active subscriptions
type Manager struct {
	subs    map[string]*SubscriberInfo // key: subscription_id
	byUser  map[string][]string        // key: user_id, value: []subscription_id
	mu      sync.RWMutex
	maxSubs int
}

// NewManager creates a new subscription registry
func NewManager(maxSubscriptions int) *Manager {
	return &Manager{
		subs:    make(map[string]*SubscriberInfo),
		byUser:  make(map[string][]string),
		maxSubs: maxSubscriptions,
	}
}

// Register adds a subscription. closeFn is invoked by CloseUser and CloseAll.
func (m *Manager) Register(subscriptionID, userID, transport string, closeFn func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.subs) >= m.maxSubs {
		return ErrMaxSubscriptionsReached
	}

	if _, exists := m.subs[subscriptionID]; exists {
		return fmt.Errorf("subscription ID %s already registered", subscriptionID)
	}

	m.subs[subscriptionID] = &SubscriberInfo{
		SubscriptionID: subscriptionID,
		UserID:         userID,
		Transport:      transport,
		ConnectedAt:    time.Now(),
		close:          closeFn,
	}
	m.byUser[userID] = append(m.byUser[userID], subscriptionID)

	return nil
}

// Unregister removes a subscription
func (m *Manager) Unregister(subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, exists := m.subs[subscriptionID]
	if !exists {
		return fmt.Errorf("subscription ID %s not found", subscriptionID)
	}

	userID := sub.UserID
	ids := m.byUser[userID]
	for i, id := range ids {
		if id == subscriptionID {
			m.byUser[userID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byUser[userID]) == 0 {
		delete(m.byUser, userID)
	}

	delete(m.subs, subscriptionID)

	return nil
}

// Get retrieves subscription information by ID
func (m *Manager) Get(subscriptionID string) (*SubscriberInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, exists := m.subs[subscriptionID]
	return sub, exists
}

// GetByUser returns the subscription IDs held by a user
func (m *Manager) GetByUser(userID string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byUser[userID]
	result := make([]string, len(ids))
	copy(result, ids)
	return result
}

// MarkEmitted updates the last emit timestamp for a subscription
func (m *Manager) MarkEmitted(subscriptionID string) error {
	m.mu.RLock()
	sub, exists := m.subs[subscriptionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("subscription ID %s not found", subscriptionID)
	}

	sub.MarkEmitted()
	return nil
}

// CloseUser closes every subscription of a user and returns how many were signalled
func (m *Manager) CloseUser(userID string) int {
	return m.closeAll(m.GetByUser(userID))
}

// CloseAll closes every registered subscription
func (m *Manager) CloseAll() int {
	m.mu.RLock()
	ids := make([]string, 0, len(m.subs))
	for id := range m.subs {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	return m.closeAll(ids)
}

// closeFn runs without the lock held; it usually ends in Unregister
func (m *Manager) closeAll(ids []string) int {
	closed := 0
	for _, id := range ids {
		sub, ok := m.Get(id)
		if !ok || sub.close == nil {
			continue
		}
		sub.close()
		closed++
	}
	return closed
}

// Count returns the number of active subscriptions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Stats returns statistics about the registry
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerStats{
		TotalSubscriptions: len(m.subs),
		UniqueUsers:        len(m.byUser),
		MaxSubscriptions:   m.maxSubs,
	}
}

// ManagerStats contains statistics about the registry
type ManagerStats struct {
	TotalSubscriptions int
	UniqueUsers        int
	MaxSubscriptions   int
}

var (
	ErrMaxSubscriptionsReached = &SubscriptionError{"maximum subscriptions reached"}
)

// SubscriptionError represents a registry error
type SubscriptionError struct {
	msg string
}

func (e *SubscriptionError) Error() string {
	return e.msg
}
