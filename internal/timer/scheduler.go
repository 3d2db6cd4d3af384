package timer

import (
	"container/heap"
	"sync"
	"time"
)

// Deadline is a callback due at a fixed instant, such as a token expiry
type Deadline struct {
	ID    string
	At    time.Time
	Fire  func()
	index int
}

// deadlineHeap is a min-heap of Deadlines ordered by At
type deadlineHeap []*Deadline

func (h deadlineHeap) Len() int { return len(h) }

func (h deadlineHeap) Less(i, j int) bool {
	return h[i].At.Before(h[j].At)
}

func (h deadlineHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *deadlineHeap) Push(x interface{}) {
	d := x.(*Deadline)
	d.index = len(*h)
	*h = append(*h, d)
}

func (h *deadlineHeap) Pop() interface{} {
	old := *h
	n := len(old)
	d := old[n-1]
	old[n-1] = nil
	d.index = -1
	*h = old[0 : n-1]
	return d
}

// Scheduler fires Deadlines from a single goroutine. Each Fire runs on its
// own goroutine so a slow callback never delays the next deadline.
type Scheduler struct {
	heap      deadlineHeap
	byID      map[string]*Deadline
	mu        sync.Mutex
	wakeup    chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
	started   bool
	stopped   bool
	fired     uint64
	cancelled uint64
}

// NewScheduler creates a stopped scheduler; call Start to begin firing
func NewScheduler() *Scheduler {
	s := &Scheduler{
		heap:   make(deadlineHeap, 0),
		byID:   make(map[string]*Deadline),
		wakeup: make(chan struct{}, 1),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	heap.Init(&s.heap)
	return s
}

// Start launches the scheduling loop
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.stopped {
		return
	}
	s.started = true
	go s.run()
}

// Stop halts the loop and drops pending deadlines without firing them
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	close(s.stopCh)
	s.mu.Unlock()

	if started {
		<-s.doneCh
	}
}

// Schedule registers fire to run at the given time, replacing any deadline with the same ID
func (s *Scheduler) Schedule(id string, at time.Time, fire func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}

	if existing, ok := s.byID[id]; ok {
		heap.Remove(&s.heap, existing.index)
		delete(s.byID, id)
	}

	d := &Deadline{ID: id, At: at, Fire: fire}
	heap.Push(&s.heap, d)
	s.byID[id] = d

	if s.heap[0] == d {
		select {
		case s.wakeup <- struct{}{}:
		default:
		}
	}

	return nil
}

// Cancel removes a pending deadline; it reports false if the deadline already fired
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.byID[id]
	if !ok {
		return false
	}

	heap.Remove(&s.heap, d.index)
	delete(s.byID, id)
	s.cancelled++
	return true
}

func (s *Scheduler) run() {
	defer close(s.doneCh)

	for {
		s.mu.Lock()

		if s.stopped {
			s.mu.Unlock()
			return
		}

		wait := 24 * time.Hour
		if s.heap.Len() > 0 {
			wait = time.Until(s.heap[0].At)
			if wait <= 0 {
				d := heap.Pop(&s.heap).(*Deadline)
				delete(s.byID, d.ID)
				s.fired++
				go d.Fire()
				s.mu.Unlock()
				continue
			}
		}

		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-s.wakeup:
			timer.Stop()
		case <-s.stopCh:
			timer.Stop()
			return
		}
	}
}

// Stats returns statistics about the scheduler
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SchedulerStats{
		Pending:   len(s.byID),
		Fired:     s.fired,
		Cancelled: s.cancelled,
	}
}

// SchedulerStats contains statistics about the scheduler
type SchedulerStats struct {
	Pending   int
	Fired     uint64
	Cancelled uint64
}

var (
	ErrSchedulerStopped = &SchedulerError{"scheduler is stopped"}
)

// SchedulerError represents a scheduler error
type SchedulerError struct {
	msg string
}

func (e *SchedulerError) Error() string {
	return e.msg
}
