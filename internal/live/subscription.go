package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/observability"
	"github.com/tanisingh134/carbon/internal/protocol"
)

// State is the lifecycle position of a Subscription
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Subscription streams one user's snapshots to one Emitter.
// Idle -> Streaming -> Closed; Closed is terminal.
type Subscription struct {
	id        string
	userID    string
	transport string
	expiresAt time.Time
	publisher *Publisher
	emitter   Emitter
	log       *logger.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Subscription) ID() string {
	return s.id
}

func (s *Subscription) UserID() string {
	return s.userID
}

func (s *Subscription) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed once the subscription reaches StateClosed
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close stops the subscription. It is safe to call any number of times from
// any goroutine; wait on Done for the loop to exit.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		s.state = StateClosed
		close(s.done)
	case StateStreaming:
		s.cancel()
	}
}

// Run streams until ctx is done, Close is called, or an emit fails.
// The first cycle runs immediately. Only an emit failure or a registry
// refusal is returned as an error.
func (s *Subscription) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateClosed:
		s.mu.Unlock()
		return ErrClosed
	case StateStreaming:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = StateStreaming
	s.mu.Unlock()

	defer s.finish()

	p := s.publisher
	if p.registry != nil {
		if err := p.registry.Register(s.id, s.userID, s.transport, s.Close); err != nil {
			return err
		}
		defer p.registry.Unregister(s.id)
	}

	if p.scheduler != nil && !s.expiresAt.IsZero() {
		deadlineID := "expiry-" + s.id
		if err := p.scheduler.Schedule(deadlineID, s.expiresAt, s.Close); err != nil {
			s.log.Warn("Failed to schedule subscription expiry", "error", err)
		} else {
			defer p.scheduler.Cancel(deadlineID)
		}
	}

	observability.SubscriptionOpened()
	defer observability.SubscriptionClosed()
	s.log.Info("Subscription streaming", "transport", s.transport, "interval", p.interval)

	t := p.newTicker(p.interval)
	defer t.Stop()

	for {
		if err := s.cycle(ctx); err != nil {
			s.log.Warn("Subscription closed on emit failure", "error", err)
			return err
		}

		select {
		case <-ctx.Done():
			s.log.Info("Subscription closed")
			return nil
		case <-t.C():
		}
	}
}

func (s *Subscription) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancel()
	if s.state != StateClosed {
		s.state = StateClosed
		close(s.done)
	}
}

// cycle reads, derives and emits one snapshot. Store failures skip the tick.
func (s *Subscription) cycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	snap, err := buildSnapshot(ctx, s.publisher.store, s.publisher.weather, s.userID)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("Skipping update cycle", "error", err)
		observability.RecordCycle(observability.CycleStoreFailed)
		return nil
	}

	for _, event := range protocol.SnapshotOrder {
		if ctx.Err() != nil {
			return nil
		}
		if err := s.emitter.Emit(event, snap.Payload(event)); err != nil {
			observability.RecordCycle(observability.CycleEmitFailed)
			return fmt.Errorf("failed to emit %s: %w", event, err)
		}
	}

	observability.RecordCycle(observability.CycleEmitted)
	if s.publisher.registry != nil {
		s.publisher.registry.MarkEmitted(s.id)
	}
	return nil
}
