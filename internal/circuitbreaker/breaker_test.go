package circuitbreaker

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(config Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1619436907, 0)}
	b := New(config)
	b.now = clock.Now
	return b, clock
}

func TestState_String(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  string
	}{
		{"closed", StateClosed, "CLOSED"},
		{"open", StateOpen, "OPEN"},
		{"half_open", StateHalfOpen, "HALF_OPEN"},
		{"unknown", State(9), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(Config{FailThreshold: 3, SuccessThreshold: 1, Timeout: time.Second})

	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 2, b.Failures())

	b.Record(true)
	assert.Equal(t, 0, b.Failures(), "success resets the failure streak")

	for range 3 {
		b.Record(false)
	}
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_HalfOpenTrial(t *testing.T) {
	b, clock := newTestBreaker(Config{FailThreshold: 1, SuccessThreshold: 2, Timeout: time.Second})

	b.Record(false)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	b.Record(true)
	assert.Equal(t, StateHalfOpen, b.State())
	b.Record(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailThreshold: 1, SuccessThreshold: 1, Timeout: time.Second})

	b.Record(false)
	clock.Advance(2 * time.Second)
	require.True(t, b.Allow())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreaker_Do(t *testing.T) {
	transport := errors.New("connection reset")
	business := errors.New("insufficient funds")

	b, _ := newTestBreaker(Config{
		FailThreshold:    2,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		IsFailure:        func(err error) bool { return errors.Is(err, transport) },
	})

	for range 5 {
		assert.ErrorIs(t, b.Do(func() error { return business }), business)
	}
	assert.Equal(t, StateClosed, b.State(), "business errors do not trip the breaker")

	assert.ErrorIs(t, b.Do(func() error { return transport }), transport)
	assert.ErrorIs(t, b.Do(func() error { return transport }), transport)
	assert.Equal(t, StateOpen, b.State())

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b, clock := newTestBreaker(Config{
		FailThreshold:    1,
		SuccessThreshold: 1,
		Timeout:          time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	b.Record(false)
	clock.Advance(time.Second)
	b.Allow()
	b.Record(true)

	assert.Equal(t, []string{"CLOSED->OPEN", "OPEN->HALF_OPEN", "HALF_OPEN->CLOSED"}, transitions)
}

func TestBreaker_ResetAndMetrics(t *testing.T) {
	b, _ := newTestBreaker(Config{FailThreshold: 1, SuccessThreshold: 1, Timeout: time.Hour})

	b.Allow()
	b.Record(false)
	b.Allow()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	m := b.Metrics()
	assert.Equal(t, int64(2), m.TotalRequests)
	assert.Equal(t, int64(1), m.RejectedRequests)
	assert.Equal(t, int64(1), m.FailedRequests)
	assert.Equal(t, int32(2), m.StateChanges)
	assert.Equal(t, "CLOSED", m.CurrentState)
}

func TestBreaker_Concurrent(t *testing.T) {
	b := New(Config{FailThreshold: 1000, SuccessThreshold: 1, Timeout: time.Second})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				if b.Allow() {
					b.Record(i%2 == 0)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5000), b.Metrics().TotalRequests)
}
