package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Riboost-Studio/perfect-menu-print-labels/internal/model"
)

const (
	DefaultRetryDelay     = 5 * time.Second
	DefaultReconnectDelay = 500 * time.Millisecond
)

// enumeration is the printer list a backend learns while opening its channel.
type enumeration struct {
	printers       []model.PrinterDescriptor
	defaultPrinter string
}

type opener[C io.Closer] func(ctx context.Context) (C, enumeration, error)

// machine drives the connection lifecycle of one backend. Every channel belongs
// to a generation; a reconnect or drop bumps the generation so that late opens,
// stale timers and reports from old channels are discarded. At most one
// channel is live at any time.
type machine[C io.Closer] struct {
	kind   Kind
	open   opener[C]
	log    *slog.Logger
	policy model.RetryConfig

	// onConnected runs outside the lock once a channel is live.
	onConnected func(gen uint64, ch C)

	mu        sync.Mutex
	state     State
	gen       uint64
	genCtx    context.Context
	genCancel context.CancelFunc
	ch        C
	live      bool
	enum      enumeration
	lastErr   error
	retries   int
	exhausted bool
	closed    bool
	timer     *time.Timer
	backoff   backoff.BackOff
	changed   chan struct{}
}

func newMachine[C io.Closer](kind Kind, policy model.RetryConfig, log *slog.Logger, open opener[C]) *machine[C] {
	if policy.Delay <= 0 {
		policy.Delay = DefaultRetryDelay
	}
	if policy.ReconnectDelay <= 0 {
		policy.ReconnectDelay = DefaultReconnectDelay
	}
	if log == nil {
		log = slog.Default()
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(policy.Delay)
	if policy.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(policy.MaxRetries))
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &machine[C]{
		kind:      kind,
		open:      open,
		log:       log.With("transport", string(kind)),
		policy:    policy,
		genCtx:    ctx,
		genCancel: cancel,
		backoff:   b,
		changed:   make(chan struct{}),
	}
}

// nextGenLocked retires the current generation. An open still in flight for
// it is cancelled.
func (m *machine[C]) nextGenLocked() {
	m.genCancel()
	m.gen++
	m.genCtx, m.genCancel = context.WithCancel(context.Background())
}

// start leaves Idle. Later calls are no-ops.
func (m *machine[C]) start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.state != StateIdle {
		return
	}
	m.setStateLocked(StateConnecting)
	gen := m.gen
	m.timer = time.AfterFunc(0, func() { m.connect(gen) })
}

func (m *machine[C]) connect(gen uint64) {
	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.timer = nil
	ctx := m.genCtx
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	m.log.Debug("Connecting")
	ch, enum, err := m.open(ctx)

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if err == nil {
			ch.Close()
		}
		return
	}
	if err != nil {
		m.lastErr = err
		m.setStateLocked(StateDisconnected)
		m.log.Warn("Connection failed", "error", err)
		m.scheduleRetryLocked()
		m.mu.Unlock()
		return
	}

	m.ch, m.live = ch, true
	m.enum = enum
	m.lastErr = nil
	m.retries = 0
	m.exhausted = false
	m.backoff.Reset()
	m.setStateLocked(StateConnected)
	cb := m.onConnected
	m.mu.Unlock()

	m.log.Info("Connected", "printers", len(enum.printers), "default", enum.defaultPrinter)
	if cb != nil {
		cb(gen, ch)
	}
}

func (m *machine[C]) scheduleRetryLocked() {
	delay := m.backoff.NextBackOff()
	if delay == backoff.Stop {
		m.exhausted = true
		m.lastErr = fmt.Errorf("%w: %w", model.ErrRetriesExhausted, m.lastErr)
		m.log.Error("Giving up reconnecting", "retries", m.retries, "error", m.lastErr)
		m.notifyLocked()
		return
	}
	m.retries++
	gen := m.gen
	m.log.Info("Retrying", "in", delay, "attempt", m.retries)
	m.timer = time.AfterFunc(delay, func() { m.connect(gen) })
}

// drop records that the channel of gen closed and arms the retry timer.
func (m *machine[C]) drop(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || gen != m.gen {
		return
	}
	m.nextGenLocked()
	m.closeChannelLocked()
	m.lastErr = err
	m.setStateLocked(StateDisconnected)
	m.log.Warn("Disconnected", "error", err)
	m.scheduleRetryLocked()
}

// degrade marks a live channel as failing. The printer list is kept.
func (m *machine[C]) degrade(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || !m.live {
		return
	}
	m.lastErr = err
	if m.state == StateConnected {
		m.log.Warn("Degraded", "error", err)
		m.setStateLocked(StateDegraded)
	}
}

// restore returns a degraded channel to Connected after a successful exchange.
func (m *machine[C]) restore(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen || m.state != StateDegraded {
		return
	}
	m.lastErr = nil
	m.setStateLocked(StateConnected)
}

func (m *machine[C]) setEnumeration(gen uint64, enum enumeration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.enum = enum
	m.notifyLocked()
}

// reconnect closes the current channel, cancels any pending retry and opens a
// fresh channel after the reconnect delay. Calling it repeatedly leaves a
// single channel.
func (m *machine[C]) reconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.nextGenLocked()
	m.stopTimerLocked()
	m.closeChannelLocked()
	m.retries = 0
	m.exhausted = false
	m.backoff.Reset()
	m.setStateLocked(StateConnecting)

	gen := m.gen
	m.log.Info("Reconnecting", "in", m.policy.ReconnectDelay)
	m.timer = time.AfterFunc(m.policy.ReconnectDelay, func() { m.connect(gen) })
}

// close tears the connection down for good. No timer fires afterwards.
func (m *machine[C]) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.nextGenLocked()
	m.genCancel()
	m.stopTimerLocked()
	err := m.closeChannelLocked()
	m.setStateLocked(StateDisconnected)
	return err
}

// current returns the live channel and its generation.
func (m *machine[C]) current() (C, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var zero C
	switch {
	case m.closed:
		return zero, 0, model.ErrTransportClosed
	case !m.live:
		if m.lastErr != nil {
			return zero, 0, fmt.Errorf("%w: %w", model.ErrNotConnected, m.lastErr)
		}
		return zero, 0, model.ErrNotConnected
	}
	return m.ch, m.gen, nil
}

func (m *machine[C]) status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		Kind:           m.kind,
		State:          m.state,
		Printers:       slices.Clone(m.enum.printers),
		DefaultPrinter: m.enum.defaultPrinter,
		LastError:      m.lastErr,
		Retries:        m.retries,
	}
}

func (m *machine[C]) waitReady(ctx context.Context) error {
	for {
		m.mu.Lock()
		state, closed, exhausted, lastErr, changed := m.state, m.closed, m.exhausted, m.lastErr, m.changed
		m.mu.Unlock()

		switch {
		case closed:
			return model.ErrTransportClosed
		case state.Usable():
			return nil
		case exhausted:
			return lastErr
		case state == StateIdle:
			return model.ErrNotConnected
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return errors.Join(ctx.Err(), lastErr)
			}
			return ctx.Err()
		case <-changed:
		}
	}
}

func (m *machine[C]) setStateLocked(s State) {
	if m.state != s {
		m.log.Debug("State changed", "from", m.state.String(), "to", s.String())
	}
	m.state = s
	m.notifyLocked()
}

func (m *machine[C]) notifyLocked() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *machine[C]) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *machine[C]) closeChannelLocked() error {
	if !m.live {
		return nil
	}
	var zero C
	ch := m.ch
	m.ch, m.live = zero, false
	return ch.Close()
}
