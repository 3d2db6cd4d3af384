package live

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tanisingh134/carbon/internal/connection"
	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/protocol"
	"github.com/tanisingh134/carbon/internal/timer"
)

// DefaultInterval is the pause between update cycles
const DefaultInterval = 5 * time.Second

var (
	ErrAlreadyStarted = errors.New("subscription already started")
	ErrClosed         = errors.New("subscription closed")
)

// Emitter delivers one named event to a subscriber
type Emitter interface {
	Emit(event protocol.EventType, payload interface{}) error
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

func newTimeTicker(d time.Duration) ticker {
	return timeTicker{time.NewTicker(d)}
}

// Publisher creates subscriptions that push a user's footprint on a fixed cadence
type Publisher struct {
	store     ActivityReader
	weather   ImpactSource
	interval  time.Duration
	registry  *connection.Manager
	scheduler *timer.Scheduler
	log       *logger.Logger
	newTicker func(time.Duration) ticker
}

type Option func(*Publisher)

func WithInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithRegistry tracks streaming subscriptions and enforces its capacity
func WithRegistry(registry *connection.Manager) Option {
	return func(p *Publisher) {
		p.registry = registry
	}
}

// WithScheduler lets subscriptions close themselves at an expiry time
func WithScheduler(scheduler *timer.Scheduler) Option {
	return func(p *Publisher) {
		p.scheduler = scheduler
	}
}

func NewPublisher(store ActivityReader, weather ImpactSource, log *logger.Logger, opts ...Option) *Publisher {
	p := &Publisher{
		store:     store,
		weather:   weather,
		interval:  DefaultInterval,
		log:       log,
		newTicker: newTimeTicker,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot computes one update for a user without emitting it
func (p *Publisher) Snapshot(ctx context.Context, userID string) (*Snapshot, error) {
	return buildSnapshot(ctx, p.store, p.weather, userID)
}

// SubscribeOption customises a single subscription
type SubscribeOption func(*Subscription)

// ExpiresAt closes the subscription at t; it needs a Publisher scheduler
func ExpiresAt(t time.Time) SubscribeOption {
	return func(s *Subscription) {
		s.expiresAt = t
	}
}

// Transport labels the subscription in the registry
func Transport(name string) SubscribeOption {
	return func(s *Subscription) {
		s.transport = name
	}
}

// Subscribe creates an idle subscription; call Run to start streaming
func (p *Publisher) Subscribe(userID string, emitter Emitter, opts ...SubscribeOption) *Subscription {
	s := &Subscription{
		id:        uuid.NewString(),
		userID:    userID,
		transport: "unknown",
		publisher: p,
		emitter:   emitter,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = p.log.With("subscription_id", s.id, "user_id", userID)
	return s
}
