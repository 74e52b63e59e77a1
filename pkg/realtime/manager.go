// Package realtime maintains the push connection that delivers notification
// events to a signed-in client. It runs a dual-channel state machine: a
// primary broker-style transport and a fallback server-push stream, each with
// its own exponential backoff, with at most one delivering at a time.
//
// Delivery is at-most-once. Consumers that cannot afford to miss events must
// poll authoritative state on their own timer.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseConnected
	PhaseClosed
	PhaseGivenUp
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseConnecting:
		return "CONNECTING"
	case PhaseConnected:
		return "CONNECTED"
	case PhaseClosed:
		return "CLOSED"
	case PhaseGivenUp:
		return "GIVEN_UP"
	default:
		return "UNKNOWN"
	}
}

type Channel int

const (
	Primary Channel = iota
	Fallback
)

func (c Channel) String() string {
	if c == Primary {
		return "PRIMARY"
	}
	return "FALLBACK"
}

// ChannelState is the observable state of one channel.
type ChannelState struct {
	Channel       Channel
	Phase         Phase
	RetryCount    int
	LastAttemptAt time.Time
}

// State is a point-in-time snapshot of the whole manager.
type State struct {
	Primary  ChannelState
	Fallback ChannelState
}

// Connected reports whether any channel is delivering.
func (s State) Connected() bool {
	return s.Primary.Phase == PhaseConnected || s.Fallback.Phase == PhaseConnected
}

type channel struct {
	phase         Phase
	retryCount    int
	lastAttemptAt time.Time
	conn          Conn
	retryTimer    *time.Timer
	cancelDial    context.CancelFunc
}

// Manager owns the two channels. All transitions happen under one mutex;
// every async callback (dial result, reader exit, timer fire) carries the
// generation it was started under and is ignored once Deactivate bumps it.
type Manager struct {
	cfg Config

	mu         sync.Mutex
	active     bool
	gen        uint64
	primary    channel
	fallback   channel
	graceTimer *time.Timer
	listeners  []Listener

	prefOnce    sync.Once
	prefEnabled bool
}

func NewManager(cfg Config) (*Manager, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg}, nil
}

// AddListener registers fn for every well-formed inbound event. Listeners
// added after Activate still receive subsequent events.
func (m *Manager) AddListener(fn Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Activate starts connecting. Calling it while already active is a no-op.
func (m *Manager) Activate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active {
		return
	}
	m.active = true
	m.gen++
	gen := m.gen

	m.primary = channel{phase: PhaseIdle}
	m.fallback = channel{phase: PhaseIdle}

	if m.cfg.PrimaryDisabled {
		m.connectLocked(Fallback, gen)
		return
	}

	m.connectLocked(Primary, gen)
	m.graceTimer = time.AfterFunc(m.cfg.StartupGrace, func() {
		m.onStartupGrace(gen)
	})
}

// Deactivate tears both channels down, cancelling any pending reconnect
// timer. Idempotent; safe to call on a manager that was never activated.
// Must be called whenever the principal's credentials change.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.active = false

	if m.graceTimer != nil {
		m.graceTimer.Stop()
		m.graceTimer = nil
	}
	m.teardownLocked(&m.primary)
	m.teardownLocked(&m.fallback)
}

// StateSnapshot reports both channels, for the "disconnected" indicator and
// for tests.
func (m *Manager) StateSnapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		Primary: ChannelState{
			Channel:       Primary,
			Phase:         m.primary.phase,
			RetryCount:    m.primary.retryCount,
			LastAttemptAt: m.primary.lastAttemptAt,
		},
		Fallback: ChannelState{
			Channel:       Fallback,
			Phase:         m.fallback.phase,
			RetryCount:    m.fallback.retryCount,
			LastAttemptAt: m.fallback.lastAttemptAt,
		},
	}
}

func (m *Manager) state(ch Channel) *channel {
	if ch == Primary {
		return &m.primary
	}
	return &m.fallback
}

func (m *Manager) dialer(ch Channel) Dialer {
	if ch == Primary {
		return m.cfg.Primary
	}
	return m.cfg.Fallback
}

// teardownLocked cancels whatever the channel is doing and parks it. A
// channel that was doing nothing stays Idle; one that had any activity ends
// Closed.
func (m *Manager) teardownLocked(st *channel) {
	if st.retryTimer != nil {
		st.retryTimer.Stop()
		st.retryTimer = nil
	}
	if st.cancelDial != nil {
		st.cancelDial()
		st.cancelDial = nil
	}
	if st.conn != nil {
		_ = st.conn.Close()
		st.conn = nil
	}
	if st.phase != PhaseIdle {
		st.phase = PhaseClosed
	}
}

// connectLocked starts a connection attempt. The primary channel refuses
// attempts started within the throttle window of the previous one and
// reschedules for the remainder instead.
func (m *Manager) connectLocked(ch Channel, gen uint64) {
	st := m.state(ch)

	if ch == Primary && !st.lastAttemptAt.IsZero() {
		if since := time.Since(st.lastAttemptAt); since < m.cfg.AttemptThrottle {
			remaining := m.cfg.AttemptThrottle - since
			log.Printf("realtime: throttling %s attempt, retrying in %s", ch, remaining)
			st.retryTimer = time.AfterFunc(remaining, func() {
				m.onRetryTimer(ch, gen)
			})
			return
		}
	}

	st.phase = PhaseConnecting
	st.lastAttemptAt = time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	st.cancelDial = cancel
	dialer := m.dialer(ch)

	go func() {
		conn, err := dialer.Dial(ctx)
		m.onDialResult(ch, gen, conn, err)
	}()
}

func (m *Manager) onDialResult(ch Channel, gen uint64, conn Conn, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || !m.active {
		if conn != nil {
			_ = conn.Close()
		}
		return
	}

	st := m.state(ch)
	st.cancelDial = nil

	if err != nil {
		log.Printf("realtime: %s connect failed: %v", ch, err)
		st.phase = PhaseClosed
		m.scheduleRetryLocked(ch, gen)
		return
	}

	// Handshake succeeded. First channel to connect wins; the other is torn
	// down so at most one delivery path is ever live.
	st.phase = PhaseConnected
	st.retryCount = 0
	st.conn = conn
	log.Printf("realtime: %s connected", ch)

	if ch == Primary {
		m.teardownLocked(&m.fallback)
		if m.graceTimer != nil {
			m.graceTimer.Stop()
			m.graceTimer = nil
		}
	} else {
		// Never tear down a primary that has permanently given up; there is
		// nothing to suppress.
		if m.primary.phase != PhaseGivenUp {
			m.teardownLocked(&m.primary)
		}
	}

	go m.readLoop(ch, gen, conn)
}

func (m *Manager) readLoop(ch Channel, gen uint64, conn Conn) {
	for payload := range conn.Messages() {
		m.handleMessage(payload)
	}
	m.onConnClosed(ch, gen)
}

func (m *Manager) onConnClosed(ch Channel, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || !m.active {
		return
	}

	st := m.state(ch)
	if st.phase != PhaseConnected {
		return
	}

	log.Printf("realtime: %s connection closed", ch)
	if st.conn != nil {
		_ = st.conn.Close()
		st.conn = nil
	}
	st.phase = PhaseClosed
	m.scheduleRetryLocked(ch, gen)
}

// scheduleRetryLocked arms the backoff timer for a channel that just failed
// or closed. The primary gives up for good once its retry budget is spent
// and hands over to the fallback.
func (m *Manager) scheduleRetryLocked(ch Channel, gen uint64) {
	st := m.state(ch)

	if ch == Primary && st.retryCount >= m.cfg.MaxPrimaryRetries {
		st.phase = PhaseGivenUp
		log.Printf("realtime: %s gave up after %d retries, activating fallback", ch, st.retryCount)
		if m.fallback.phase != PhaseConnected && m.fallback.phase != PhaseConnecting {
			m.connectLocked(Fallback, gen)
		}
		return
	}

	delay := m.cfg.backoffDelay(st.retryCount)
	st.retryCount++
	st.retryTimer = time.AfterFunc(delay, func() {
		m.onRetryTimer(ch, gen)
	})
}

func (m *Manager) onRetryTimer(ch Channel, gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || !m.active {
		return
	}

	st := m.state(ch)
	st.retryTimer = nil
	if st.phase == PhaseConnected || st.phase == PhaseConnecting {
		return
	}
	m.connectLocked(ch, gen)
}

// onStartupGrace races the fallback alongside a primary that has not
// connected within the grace window.
func (m *Manager) onStartupGrace(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || !m.active {
		return
	}
	m.graceTimer = nil

	if m.primary.phase == PhaseConnected {
		return
	}
	if m.fallback.phase == PhaseIdle {
		log.Printf("realtime: primary slow to connect, racing fallback")
		m.connectLocked(Fallback, gen)
	}
}

// handleMessage deserializes an inbound payload and dispatches it. Payloads
// without an identifier are malformed and dropped without surfacing.
func (m *Manager) handleMessage(payload []byte) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("realtime: dropping malformed payload: %v", err)
		return
	}
	if event.ID == "" {
		log.Printf("realtime: dropping payload without id")
		return
	}

	m.mu.Lock()
	listeners := make([]Listener, len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(event)
	}

	if m.cfg.Notices != nil && m.noticesEnabled() {
		m.cfg.Notices.Push(Notice{
			Title: event.Title,
			Body:  event.Body,
			At:    time.Now(),
		})
	}
}

// noticesEnabled resolves the in-app alert preference once per session.
// Lookup failure counts as enabled.
func (m *Manager) noticesEnabled() bool {
	m.prefOnce.Do(func() {
		m.prefEnabled = true
		if m.cfg.Preferences == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		enabled, err := m.cfg.Preferences.InAppEnabled(ctx)
		if err != nil {
			log.Printf("realtime: preference lookup failed, defaulting to enabled: %v", err)
			return
		}
		m.prefEnabled = enabled
	})
	return m.prefEnabled
}
