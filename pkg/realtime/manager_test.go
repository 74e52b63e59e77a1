package realtime

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	msgs      chan []byte
	closeOnce sync.Once
	closed    atomic.Bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 8)}
}

func (c *fakeConn) Messages() <-chan []byte { return c.msgs }

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.msgs)
	})
	return nil
}

type dialFunc func(ctx context.Context) (Conn, error)

func (f dialFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

// failingDialer always errors and counts its attempts.
type failingDialer struct {
	dials atomic.Int64
}

func (d *failingDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)
	return nil, errors.New("connection refused")
}

// timedFailingDialer fails every dial and records when each attempt started.
type timedFailingDialer struct {
	mu    sync.Mutex
	times []time.Time
}

func (d *timedFailingDialer) Dial(ctx context.Context) (Conn, error) {
	d.mu.Lock()
	d.times = append(d.times, time.Now())
	d.mu.Unlock()
	return nil, errors.New("connection refused")
}

func (d *timedFailingDialer) attempts() []time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]time.Time, len(d.times))
	copy(out, d.times)
	return out
}

// connectingDialer hands out a fresh fakeConn per dial, optionally after a
// delay.
type connectingDialer struct {
	delay time.Duration
	dials atomic.Int64

	mu    sync.Mutex
	conns []*fakeConn
}

func (d *connectingDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *connectingDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

func fastConfig(primary, fallback Dialer) Config {
	return Config{
		Primary:           primary,
		Fallback:          fallback,
		MaxPrimaryRetries: 5,
		BackoffBase:       time.Millisecond,
		BackoffCap:        5 * time.Millisecond,
		StartupGrace:      time.Hour, // keep the fallback race out of the way
		AttemptThrottle:   time.Millisecond,
	}
}

func TestConfigValidate(t *testing.T) {
	_, err := NewManager(Config{})
	require.Error(t, err)

	_, err = NewManager(Config{Fallback: &failingDialer{}})
	require.Error(t, err)

	_, err = NewManager(Config{Fallback: &failingDialer{}, PrimaryDisabled: true})
	require.NoError(t, err)
}

func TestBackoffDelay(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()

	assert.Equal(t, 1*time.Second, cfg.backoffDelay(0))
	assert.Equal(t, 2*time.Second, cfg.backoffDelay(1))
	assert.Equal(t, 4*time.Second, cfg.backoffDelay(2))
	assert.Equal(t, 8*time.Second, cfg.backoffDelay(3))
	assert.Equal(t, 16*time.Second, cfg.backoffDelay(4))
	// Exponent is clamped, then the cap applies.
	assert.Equal(t, 30*time.Second, cfg.backoffDelay(5))
	assert.Equal(t, 30*time.Second, cfg.backoffDelay(50))
}

func TestPrimaryGivesUpThenFallbackTakesOver(t *testing.T) {
	primary := &failingDialer{}
	fallback := &connectingDialer{}

	m, err := NewManager(fastConfig(primary, fallback))
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		s := m.StateSnapshot()
		return s.Primary.Phase == PhaseGivenUp && s.Fallback.Phase == PhaseConnected
	}, 5*time.Second, 5*time.Millisecond)

	// Initial attempt plus the full retry budget, then nothing more.
	assert.Equal(t, int64(6), primary.dials.Load())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(6), primary.dials.Load())

	// A fallback connection never disturbs a given-up primary.
	s := m.StateSnapshot()
	assert.Equal(t, PhaseGivenUp, s.Primary.Phase)
	assert.True(t, s.Connected())
}

func TestPrimaryAttemptThrottleSpacesDials(t *testing.T) {
	const throttle = 100 * time.Millisecond

	primary := &timedFailingDialer{}
	fallback := &connectingDialer{}

	// Backoff well inside the throttle window, so every retry timer lands in
	// the throttle branch and gets rescheduled for the remainder.
	cfg := Config{
		Primary:           primary,
		Fallback:          fallback,
		MaxPrimaryRetries: 3,
		BackoffBase:       2 * time.Millisecond,
		BackoffCap:        5 * time.Millisecond,
		StartupGrace:      time.Hour,
		AttemptThrottle:   throttle,
	}

	m, err := NewManager(cfg)
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		s := m.StateSnapshot()
		return s.Primary.Phase == PhaseGivenUp && s.Fallback.Phase == PhaseConnected
	}, 5*time.Second, 5*time.Millisecond)

	// Rescheduled attempts still count against the same budget: the initial
	// dial plus the full retry budget, nothing extra from throttling.
	attempts := primary.attempts()
	require.Len(t, attempts, 4)
	time.Sleep(2 * throttle)
	assert.Len(t, primary.attempts(), 4)

	for i := 1; i < len(attempts); i++ {
		gap := attempts[i].Sub(attempts[i-1])
		assert.GreaterOrEqual(t, gap, throttle-10*time.Millisecond,
			"attempts %d and %d only %v apart", i-1, i, gap)
	}
}

func TestPrimaryWinsRaceAndSuppressesFallback(t *testing.T) {
	primary := &connectingDialer{delay: 60 * time.Millisecond}
	fallback := &connectingDialer{}

	cfg := fastConfig(primary, fallback)
	cfg.StartupGrace = 5 * time.Millisecond

	m, err := NewManager(cfg)
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	// The fallback connects inside the grace window first.
	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	// Once the slow primary lands, it takes over and the fallback is torn
	// down so only one path delivers.
	require.Eventually(t, func() bool {
		s := m.StateSnapshot()
		return s.Primary.Phase == PhaseConnected && s.Fallback.Phase == PhaseClosed
	}, 2*time.Second, time.Millisecond)

	require.NotNil(t, fallback.lastConn())
	assert.True(t, fallback.lastConn().closed.Load())

	// Never both connected.
	s := m.StateSnapshot()
	connected := 0
	if s.Primary.Phase == PhaseConnected {
		connected++
	}
	if s.Fallback.Phase == PhaseConnected {
		connected++
	}
	assert.Equal(t, 1, connected)
}

func TestPrimaryDisabledUsesFallbackOnly(t *testing.T) {
	primary := &failingDialer{}
	fallback := &connectingDialer{}

	cfg := fastConfig(primary, fallback)
	cfg.PrimaryDisabled = true

	m, err := NewManager(cfg)
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, int64(0), primary.dials.Load())
	assert.Equal(t, PhaseIdle, m.StateSnapshot().Primary.Phase)
}

func TestDeactivateIdempotent(t *testing.T) {
	// Safe on a manager that never activated.
	m, err := NewManager(Config{Fallback: &connectingDialer{}, PrimaryDisabled: true})
	require.NoError(t, err)
	m.Deactivate()
	m.Deactivate()

	fallback := &connectingDialer{}
	m, err = NewManager(Config{Fallback: fallback, PrimaryDisabled: true, BackoffBase: time.Millisecond})
	require.NoError(t, err)

	m.Activate()
	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	m.Deactivate()
	m.Deactivate()

	assert.True(t, fallback.lastConn().closed.Load())

	// No reconnect activity after deactivation.
	before := fallback.dials.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, fallback.dials.Load())
	assert.Equal(t, PhaseClosed, m.StateSnapshot().Fallback.Phase)
}

func TestFallbackReconnectsAfterDrop(t *testing.T) {
	fallback := &connectingDialer{}
	m, err := NewManager(Config{Fallback: fallback, PrimaryDisabled: true, BackoffBase: time.Millisecond, BackoffCap: 5 * time.Millisecond})
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	first := fallback.lastConn()
	_ = first.Close()

	require.Eventually(t, func() bool {
		return fallback.dials.Load() >= 2 && m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)
	assert.NotSame(t, first, fallback.lastConn())
}

func TestMessageDispatchAndMalformedDrop(t *testing.T) {
	fallback := &connectingDialer{}
	sink := NewMemorySink(10)

	m, err := NewManager(Config{Fallback: fallback, PrimaryDisabled: true, Notices: sink})
	require.NoError(t, err)

	var mu sync.Mutex
	var got []Event
	m.AddListener(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	conn := fallback.lastConn()
	conn.msgs <- []byte(`{not json`)
	conn.msgs <- []byte(`{"title":"missing id"}`)
	conn.msgs <- []byte(`{"id":"n-1","title":"Trial ending","body":"3 days left"}`)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	assert.Equal(t, "n-1", got[0].ID)
	assert.Equal(t, "Trial ending", got[0].Title)
	mu.Unlock()

	require.Eventually(t, func() bool {
		return len(sink.All()) == 1
	}, 2*time.Second, time.Millisecond)
	assert.Equal(t, "3 days left", sink.All()[0].Body)
}

type staticPrefs struct {
	enabled bool
	err     error
	calls   atomic.Int64
}

func (p *staticPrefs) InAppEnabled(ctx context.Context) (bool, error) {
	p.calls.Add(1)
	return p.enabled, p.err
}

func TestNoticesRespectPreference(t *testing.T) {
	fallback := &connectingDialer{}
	sink := NewMemorySink(10)
	prefs := &staticPrefs{enabled: false}

	m, err := NewManager(Config{Fallback: fallback, PrimaryDisabled: true, Notices: sink, Preferences: prefs})
	require.NoError(t, err)

	var delivered atomic.Int64
	m.AddListener(func(Event) { delivered.Add(1) })

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	conn := fallback.lastConn()
	conn.msgs <- []byte(`{"id":"n-1"}`)
	conn.msgs <- []byte(`{"id":"n-2"}`)

	require.Eventually(t, func() bool {
		return delivered.Load() == 2
	}, 2*time.Second, time.Millisecond)

	// Listeners still fire; only the notice surface is muted, and the
	// preference is resolved once.
	assert.Empty(t, sink.All())
	assert.Equal(t, int64(1), prefs.calls.Load())
}

func TestNoticesDefaultEnabledOnLookupFailure(t *testing.T) {
	fallback := &connectingDialer{}
	sink := NewMemorySink(10)
	prefs := &staticPrefs{enabled: false, err: errors.New("pref service down")}

	m, err := NewManager(Config{Fallback: fallback, PrimaryDisabled: true, Notices: sink, Preferences: prefs})
	require.NoError(t, err)

	m.Activate()
	defer m.Deactivate()

	require.Eventually(t, func() bool {
		return m.StateSnapshot().Fallback.Phase == PhaseConnected
	}, 2*time.Second, time.Millisecond)

	fallback.lastConn().msgs <- []byte(`{"id":"n-1","title":"hello"}`)

	require.Eventually(t, func() bool {
		return len(sink.All()) == 1
	}, 2*time.Second, time.Millisecond)
}

func TestMemorySinkBounded(t *testing.T) {
	sink := NewMemorySink(3)
	for i := 0; i < 5; i++ {
		sink.Push(Notice{Title: string(rune('a' + i))})
	}
	all := sink.All()
	require.Len(t, all, 3)
	assert.Equal(t, "c", all[0].Title)
	assert.Equal(t, "e", all[2].Title)
}
