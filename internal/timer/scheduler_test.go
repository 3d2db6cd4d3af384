package timer

import (
	"sync"
	"testing"
	"time"
)

func TestScheduler_Fires(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	done := make(chan struct{})
	err := s.Schedule("expiry-1", time.Now().Add(50*time.Millisecond), func() {
		close(done)
	})
	if err != nil {
		t.Fatalf("Schedule failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Deadline was not fired")
	}

	if stats := s.Stats(); stats.Fired != 1 || stats.Pending != 0 {
		t.Errorf("Unexpected stats after firing: %+v", stats)
	}
}

func TestScheduler_PastDeadlineFiresImmediately(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("expired", time.Now().Add(-time.Minute), func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Past deadline was not fired")
	}
}

func TestScheduler_Cancel(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	executed := false
	var mu sync.Mutex

	s.Schedule("expiry-1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		executed = true
		mu.Unlock()
	})

	if !s.Cancel("expiry-1") {
		t.Error("Cancel returned false")
	}
	if s.Cancel("expiry-1") {
		t.Error("Second cancel should return false")
	}

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if executed {
		t.Error("Deadline fired despite being cancelled")
	}
	mu.Unlock()

	if stats := s.Stats(); stats.Cancelled != 1 {
		t.Errorf("Expected 1 cancelled, got %d", stats.Cancelled)
	}
}

func TestScheduler_Ordering(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	var results []int
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(3)

	record := func(n int) func() {
		return func() {
			mu.Lock()
			results = append(results, n)
			mu.Unlock()
			wg.Done()
		}
	}

	now := time.Now()
	s.Schedule("c", now.Add(150*time.Millisecond), record(3))
	s.Schedule("a", now.Add(50*time.Millisecond), record(1))
	s.Schedule("b", now.Add(100*time.Millisecond), record(2))

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 3 || results[0] != 1 || results[1] != 2 || results[2] != 3 {
		t.Errorf("Deadlines fired in wrong order: %v", results)
	}
}

func TestScheduler_RescheduleReplaces(t *testing.T) {
	s := NewScheduler()
	s.Start()
	defer s.Stop()

	count := 0
	var mu sync.Mutex

	s.Schedule("expiry-1", time.Now().Add(100*time.Millisecond), func() {
		mu.Lock()
		count++
		mu.Unlock()
	})
	s.Schedule("expiry-1", time.Now().Add(50*time.Millisecond), func() {
		mu.Lock()
		count += 10
		mu.Unlock()
	})

	time.Sleep(200 * time.Millisecond)

	mu.Lock()
	if count != 10 {
		t.Errorf("Expected count=10 (only replacement fired), got %d", count)
	}
	mu.Unlock()
}

func TestScheduler_StopRejectsSchedule(t *testing.T) {
	s := NewScheduler()
	s.Start()

	s.Schedule("later", time.Now().Add(time.Hour), func() {})
	s.Stop()
	s.Stop()

	if err := s.Schedule("x", time.Now(), func() {}); err != ErrSchedulerStopped {
		t.Errorf("Expected ErrSchedulerStopped, got %v", err)
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler()
	s.Stop()
}
