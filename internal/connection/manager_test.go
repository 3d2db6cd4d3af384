package connection

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestManager_Register(t *testing.T) {
	m := NewManager(10)

	err := m.Register("sub1", "user-a", "sse", nil)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 subscription, got %d", m.Count())
	}

	sub, exists := m.Get("sub1")
	if !exists {
		t.Fatal("Subscription not found")
	}

	if sub.UserID != "user-a" {
		t.Errorf("Expected user user-a, got %s", sub.UserID)
	}
	if sub.Transport != "sse" {
		t.Errorf("Expected transport sse, got %s", sub.Transport)
	}
}

func TestManager_RegisterDuplicate(t *testing.T) {
	m := NewManager(10)

	m.Register("sub1", "user-a", "sse", nil)
	if err := m.Register("sub1", "user-b", "sse", nil); err == nil {
		t.Error("Expected error registering a duplicate subscription ID")
	}
}

func TestManager_RegisterMaxSubscriptions(t *testing.T) {
	m := NewManager(2)

	m.Register("sub1", "user-a", "sse", nil)
	m.Register("sub2", "user-b", "ws", nil)

	err := m.Register("sub3", "user-c", "sse", nil)
	if err != ErrMaxSubscriptionsReached {
		t.Errorf("Expected ErrMaxSubscriptionsReached, got %v", err)
	}
}

func TestManager_Unregister(t *testing.T) {
	m := NewManager(10)

	m.Register("sub1", "user-a", "sse", nil)
	m.Register("sub2", "user-a", "ws", nil)

	err := m.Unregister("sub1")
	if err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 subscription, got %d", m.Count())
	}

	ids := m.GetByUser("user-a")
	if len(ids) != 1 || ids[0] != "sub2" {
		t.Errorf("Expected [sub2] for user-a, got %v", ids)
	}

	if err := m.Unregister("sub1"); err == nil {
		t.Error("Expected error unregistering twice")
	}
}

func TestManager_UnregisterLastRemovesUser(t *testing.T) {
	m := NewManager(10)

	m.Register("sub1", "user-a", "sse", nil)
	m.Unregister("sub1")

	if stats := m.Stats(); stats.UniqueUsers != 0 {
		t.Errorf("Expected 0 users, got %d", stats.UniqueUsers)
	}
}

func TestManager_MarkEmitted(t *testing.T) {
	m := NewManager(10)

	m.Register("sub1", "user-a", "sse", nil)

	sub, _ := m.Get("sub1")
	if !sub.GetLastEmitAt().IsZero() {
		t.Error("LastEmitAt should start zero")
	}

	before := time.Now()
	if err := m.MarkEmitted("sub1"); err != nil {
		t.Fatalf("MarkEmitted failed: %v", err)
	}

	if sub.GetLastEmitAt().Before(before) {
		t.Error("LastEmitAt was not updated")
	}

	if err := m.MarkEmitted("missing"); err == nil {
		t.Error("Expected error for unknown subscription")
	}
}

func TestManager_CloseUser(t *testing.T) {
	m := NewManager(10)
	var closedA, closedB atomic.Int32

	m.Register("sub1", "user-a", "sse", func() { closedA.Add(1) })
	m.Register("sub2", "user-a", "ws", func() { closedA.Add(1) })
	m.Register("sub3", "user-b", "sse", func() { closedB.Add(1) })

	if n := m.CloseUser("user-a"); n != 2 {
		t.Errorf("Expected 2 closed, got %d", n)
	}
	if closedA.Load() != 2 || closedB.Load() != 0 {
		t.Errorf("Unexpected close counts a=%d b=%d", closedA.Load(), closedB.Load())
	}
}

func TestManager_CloseAllMayUnregister(t *testing.T) {
	m := NewManager(10)

	for _, id := range []string{"sub1", "sub2", "sub3"} {
		id := id
		m.Register(id, "user-"+id, "sse", func() { m.Unregister(id) })
	}

	if n := m.CloseAll(); n != 3 {
		t.Errorf("Expected 3 closed, got %d", n)
	}
	if m.Count() != 0 {
		t.Errorf("Expected 0 subscriptions after CloseAll, got %d", m.Count())
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(100)

	m.Register("sub1", "user-a", "sse", nil)
	m.Register("sub2", "user-a", "ws", nil)
	m.Register("sub3", "user-b", "sse", nil)

	stats := m.Stats()
	if stats.TotalSubscriptions != 3 {
		t.Errorf("Expected 3 subscriptions, got %d", stats.TotalSubscriptions)
	}
	if stats.UniqueUsers != 2 {
		t.Errorf("Expected 2 unique users, got %d", stats.UniqueUsers)
	}
	if stats.MaxSubscriptions != 100 {
		t.Errorf("Expected max 100, got %d", stats.MaxSubscriptions)
	}
}
