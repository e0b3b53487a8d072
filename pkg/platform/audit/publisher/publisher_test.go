package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	id "waypoint/pkg/domain"
	audit "waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/audit/store/memory"
	"waypoint/pkg/requestcontext"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := id.NewUserID()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Action: audit.EventUserRegistered,
	})
	require.NoError(t, err)

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventUserRegistered, events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := id.NewUserID()
	for range 10 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Action: audit.EventLoginSucceeded,
		}))
	}

	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Action: audit.EventLogout})
	require.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	block := make(chan struct{})
	sink := sinkFunc(func(context.Context, audit.Event) error {
		<-block
		return nil
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	pub := NewPublisher(sink, WithAsyncBuffer(1), WithMetrics(m))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		dropped int
	)
	for range 10 {
		wg.Go(func() {
			if errors.Is(pub.Emit(context.Background(), audit.Event{Action: audit.EventLogout}), ErrBufferFull) {
				mu.Lock()
				dropped++
				mu.Unlock()
			}
		})
	}
	wg.Wait()
	close(block)
	pub.Close()

	// At most one event in the worker and one in the queue.
	assert.GreaterOrEqual(t, dropped, 8)
	assert.Equal(t, float64(dropped), testutil.ToFloat64(m.Dropped.WithLabelValues("buffer_full")))
}

func TestPublisher_SetsTimestampAndRequestID(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	ctx := requestcontext.WithRequestID(context.Background(), "req-123")
	before := time.Now()
	require.NoError(t, pub.Emit(ctx, audit.Event{Action: audit.EventLogout}))
	after := time.Now()

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, events[0].Timestamp.Before(before))
	assert.False(t, events[0].Timestamp.After(after))
	assert.Equal(t, "req-123", events[0].RequestID)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:    audit.EventLogout,
		Timestamp: customTime,
	}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_ContextCancellation(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := pub.Emit(ctx, audit.Event{Action: audit.EventLogout})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_CircuitBreakerSkipsFailingSink(t *testing.T) {
	calls := 0
	sink := sinkFunc(func(context.Context, audit.Event) error {
		calls++
		return errors.New("broker down")
	})
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	pub := NewPublisher(sink, WithCircuitBreaker(2, time.Hour), WithMetrics(m))
	defer pub.Close()

	for range 5 {
		_ = pub.Emit(context.Background(), audit.Event{Action: audit.EventLogout})
	}

	assert.Equal(t, 2, calls, "sink should not be called once the circuit is open")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CircuitBreakerState))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.Dropped.WithLabelValues("circuit_open")))
}

func TestCircuitBreaker_HalfOpenAfterCooldown(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.RecordFailure()
	assert.True(t, cb.RecordFailure())
	assert.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow(), "probe allowed after cooldown")

	assert.True(t, cb.RecordFailure(), "a failed probe re-opens immediately")
	assert.False(t, cb.Allow())

	now = now.Add(2 * time.Minute)
	require.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.False(t, cb.IsOpen())
}

func TestFanout_DeliversToAllSinks(t *testing.T) {
	first := memory.NewInMemoryStore()
	second := memory.NewInMemoryStore()
	failing := sinkFunc(func(context.Context, audit.Event) error { return errors.New("boom") })

	err := audit.Fanout(first, failing, second).Append(context.Background(), audit.Event{Action: audit.EventLogout})
	require.Error(t, err)

	assert.Equal(t, []audit.AuditEvent{audit.EventLogout}, first.Actions())
	assert.Equal(t, []audit.AuditEvent{audit.EventLogout}, second.Actions())
}
