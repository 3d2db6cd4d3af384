package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/tanisingh134/carbon/internal/logger"
	"github.com/tanisingh134/carbon/internal/protocol"
)

type fakeSource struct {
	msgs      chan kafka.Message
	mu        sync.Mutex
	errOnce   error
	committed []int64
	journal   *[]string
}

func newFakeSource(journal *[]string) *fakeSource {
	return &fakeSource{msgs: make(chan kafka.Message, 16), journal: journal}
}

func (s *fakeSource) Consume(ctx context.Context) (kafka.Message, error) {
	s.mu.Lock()
	if err := s.errOnce; err != nil {
		s.errOnce = nil
		s.mu.Unlock()
		return kafka.Message{}, err
	}
	s.mu.Unlock()

	select {
	case msg := <-s.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (s *fakeSource) Commit(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.committed = append(s.committed, m.Offset)
	}
	*s.journal = append(*s.journal, "commit")
	return nil
}

func (s *fakeSource) Committed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

type fakeApplier struct {
	mu       sync.Mutex
	failures int
	events   []protocol.ActivityRecorded
	journal  *[]string
	source   *fakeSource
}

func (a *fakeApplier) Apply(ctx context.Context, events []protocol.ActivityRecorded) (int, error) {
	a.source.mu.Lock()
	defer a.source.mu.Unlock()
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.failures > 0 {
		a.failures--
		*a.journal = append(*a.journal, "apply-failed")
		return 0, errors.New("redis unavailable")
	}
	a.events = append(a.events, events...)
	*a.journal = append(*a.journal, "apply")
	return len(events), nil
}

func (a *fakeApplier) Events() []protocol.ActivityRecorded {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.ActivityRecorded(nil), a.events...)
}

func activityMessage(t *testing.T, offset int64, activityID string) kafka.Message {
	t.Helper()
	value, err := protocol.EncodeActivityRecorded(&protocol.ActivityRecorded{
		ActivityID: activityID,
		UserID:     "u1",
		Type:       "food",
		Value:      1,
		Carbon:     2.5,
	})
	require.NoError(t, err)
	return kafka.Message{Offset: offset, Key: []byte("u1"), Value: value}
}

func startWriter(t *testing.T, w *LeaderboardWriter) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("writer did not stop")
		}
	})
	return cancel, done
}

func TestLeaderboardWriterFlushesFullBatch(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	applier := &fakeApplier{journal: &journal, source: source}
	w := NewLeaderboardWriter(source, applier, 2, time.Hour, logger.Nop())
	startWriter(t, w)

	source.msgs <- activityMessage(t, 1, "a1")
	source.msgs <- activityMessage(t, 2, "a2")

	require.Eventually(t, func() bool { return len(source.Committed()) == 2 }, time.Second, 5*time.Millisecond)
	require.Equal(t, []int64{1, 2}, source.Committed())
	require.Len(t, applier.Events(), 2)
	require.Equal(t, int64(2), w.Stats().Applied)
}

func TestLeaderboardWriterFlushesOnInterval(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	applier := &fakeApplier{journal: &journal, source: source}
	w := NewLeaderboardWriter(source, applier, 100, 10*time.Millisecond, logger.Nop())
	startWriter(t, w)

	source.msgs <- activityMessage(t, 7, "a1")

	require.Eventually(t, func() bool { return len(source.Committed()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, "a1", applier.Events()[0].ActivityID)
}

func TestLeaderboardWriterCommitsOnlyAfterApply(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	applier := &fakeApplier{journal: &journal, source: source, failures: 2}
	w := NewLeaderboardWriter(source, applier, 1, 10*time.Millisecond, logger.Nop())
	startWriter(t, w)

	source.msgs <- activityMessage(t, 3, "a1")

	require.Eventually(t, func() bool { return len(source.Committed()) == 1 }, time.Second, 5*time.Millisecond)

	source.mu.Lock()
	got := append([]string(nil), journal...)
	source.mu.Unlock()
	require.Equal(t, []string{"apply-failed", "apply-failed", "apply", "commit"}, got)
	require.Equal(t, int64(2), w.Stats().Failures)
	require.Len(t, applier.Events(), 1)
}

func TestLeaderboardWriterSkipsUndecodable(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	applier := &fakeApplier{journal: &journal, source: source}
	w := NewLeaderboardWriter(source, applier, 2, time.Hour, logger.Nop())
	startWriter(t, w)

	source.msgs <- kafka.Message{Offset: 1, Value: []byte("garbage")}
	source.msgs <- activityMessage(t, 2, "a2")

	require.Eventually(t, func() bool { return len(source.Committed()) == 2 }, time.Second, 5*time.Millisecond)
	require.Len(t, applier.Events(), 1)
	require.Equal(t, int64(1), w.Stats().Skipped)
}

func TestLeaderboardWriterRecoversFromConsumeError(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	source.errOnce = errors.New("broker gone")
	applier := &fakeApplier{journal: &journal, source: source}
	w := NewLeaderboardWriter(source, applier, 1, time.Hour, logger.Nop())
	w.retryBackoff = time.Millisecond
	startWriter(t, w)

	source.msgs <- activityMessage(t, 1, "a1")

	require.Eventually(t, func() bool { return len(source.Committed()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestLeaderboardWriterStopsOnCancel(t *testing.T) {
	var journal []string
	source := newFakeSource(&journal)
	applier := &fakeApplier{journal: &journal, source: source}
	w := NewLeaderboardWriter(source, applier, 10, time.Hour, logger.Nop())
	cancel, done := startWriter(t, w)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
