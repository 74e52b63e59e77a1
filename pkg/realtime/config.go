package realtime

import (
	"errors"
	"time"
)

// Config holds tuning for the transport manager. Zero values get defaults;
// tests shrink the durations.
type Config struct {
	// Primary is the message-broker style transport, Fallback the
	// server-push stream. Fallback is required; Primary may be omitted only
	// when PrimaryDisabled is set.
	Primary  Dialer
	Fallback Dialer

	// PrimaryDisabled skips the primary transport entirely, for network
	// environments that block it.
	PrimaryDisabled bool

	// MaxPrimaryRetries bounds reconnection of the primary channel. Once
	// exhausted the channel is given up for the rest of the session and the
	// fallback takes over. The fallback itself retries forever.
	MaxPrimaryRetries int

	BackoffBase time.Duration
	BackoffCap  time.Duration

	// StartupGrace is how long the primary gets to connect before the
	// fallback is raced alongside it.
	StartupGrace time.Duration

	// AttemptThrottle rejects primary attempts started too close together,
	// so overlapping timers cannot stampede the broker.
	AttemptThrottle time.Duration

	// Preferences is consulted once per session to decide whether inbound
	// events also surface as notices. Nil means enabled.
	Preferences PreferenceSource

	// Notices receives a transient notice per inbound event when enabled.
	Notices NoticeSink
}

func (c *Config) Validate() error {
	if c.Fallback == nil {
		return errors.New("fallback dialer cannot be nil")
	}
	if c.Primary == nil && !c.PrimaryDisabled {
		return errors.New("primary dialer cannot be nil unless disabled")
	}
	return nil
}

func (c *Config) SetDefaults() {
	if c.MaxPrimaryRetries <= 0 {
		c.MaxPrimaryRetries = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.StartupGrace <= 0 {
		c.StartupGrace = 2 * time.Second
	}
	if c.AttemptThrottle <= 0 {
		c.AttemptThrottle = 2 * time.Second
	}
}

// backoffDelay is the wait before the retry following `retries` completed
// retry attempts: base * 2^min(retries, 5), capped.
func (c *Config) backoffDelay(retries int) time.Duration {
	exp := retries
	if exp > 5 {
		exp = 5
	}
	delay := c.BackoffBase << uint(exp)
	if delay > c.BackoffCap {
		delay = c.BackoffCap
	}
	return delay
}
