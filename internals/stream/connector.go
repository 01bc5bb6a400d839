package stream

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateWaiting    State = "waiting"
)

// Status is what the UI layer gets to render: the connection state, how
// many attempts failed since the last successful open, and a display-only
// countdown in whole seconds until the next retry.
type Status struct {
	State    State `json:"state"`
	Attempts int   `json:"attempts"`
	RetryIn  int   `json:"retry_in_seconds"`
}

type Config struct {
	Transport Transport
	Backoff   BackoffConfig
	// OnEvent receives every raw frame read off the connection.
	OnEvent func(raw []byte)
	// OnStatus receives every status change, including countdown ticks.
	OnStatus func(status Status)
	Logger   *slog.Logger
}

// Seams for deterministic timer tests.
var reconnectAfter = time.AfterFunc
var countdownAfter = time.AfterFunc

// Connector owns the lifecycle of one push connection to the progress
// producer: open, close, error detection, and reconnect scheduling with
// backoff. Stopping pauses the stream without touching accumulated state;
// only Dispose ends the connector for good.
type Connector struct {
	cfg     Config
	backoff func(attempt int) time.Duration

	mu             sync.Mutex
	state          State
	want           bool
	disposed       bool
	opening        bool
	conn           Conn
	gen            uint64
	dialCancel     context.CancelFunc
	attempts       int
	retryIn        int
	retryTimer     *time.Timer
	countdownTimer *time.Timer
}

func NewConnector(cfg Config) *Connector {
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff.Base = 2000 * time.Millisecond
	}
	if cfg.Backoff.Max <= 0 {
		cfg.Backoff.Max = 15000 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Connector{
		cfg:     cfg,
		backoff: BackoffLinear(cfg.Backoff),
		state:   StateIdle,
	}
}

// Start opens the transport if it is not already open (or opening). Safe to
// call repeatedly.
func (c *Connector) Start() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.want = true
	if c.conn != nil || c.opening {
		c.mu.Unlock()
		return
	}
	c.openLocked()
	c.mu.Unlock()
}

// Stop pauses the stream: the transport closes and the retry countdown
// clears, but the attempt counter survives so a later transport error
// resumes backoff where it left off. Task state held elsewhere is not
// touched.
func (c *Connector) Stop() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.want = false
	c.closeConnLocked()
	c.stopTimersLocked()
	c.retryIn = 0
	st := c.statusLocked(StateIdle)
	c.mu.Unlock()
	c.emit(st)
}

// Reconnect force-closes the current connection (or pending dial) and
// re-opens immediately, bypassing any scheduled retry timer.
func (c *Connector) Reconnect() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.want = true
	c.closeConnLocked()
	c.stopTimersLocked()
	c.retryIn = 0
	c.openLocked()
	c.mu.Unlock()
}

// Dispose closes the transport and synchronously cancels both the reconnect
// timer and the countdown, leaving no dangling timers. The connector is
// unusable afterwards.
func (c *Connector) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	c.want = false
	c.closeConnLocked()
	c.stopTimersLocked()
	c.retryIn = 0
	st := c.statusLocked(StateIdle)
	c.mu.Unlock()
	c.emit(st)
}

func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Attempts: c.attempts, RetryIn: c.retryIn}
}

func (c *Connector) openLocked() {
	c.opening = true
	go c.open(c.gen)
}

func (c *Connector) open(gen uint64) {
	c.mu.Lock()
	if c.disposed || !c.want || gen != c.gen {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.dialCancel = cancel
	st := c.statusLocked(StateConnecting)
	c.mu.Unlock()
	c.emit(st)

	conn, err := c.cfg.Transport.Connect(ctx)
	cancel()

	c.mu.Lock()
	if gen != c.gen || c.disposed || !c.want {
		c.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	c.dialCancel = nil
	c.opening = false
	if err != nil {
		c.cfg.Logger.Warn("Failed to connect to progress producer", "error", err)
		st := c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.emit(st)
		return
	}

	c.conn = conn
	c.attempts = 0
	c.retryIn = 0
	c.stopTimersLocked()
	st = c.statusLocked(StateConnected)
	c.mu.Unlock()
	c.emit(st)
	c.cfg.Logger.Info("Connected to progress producer")
	go c.readLoop(conn, gen)
}

func (c *Connector) readLoop(conn Conn, gen uint64) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.handleDisconnect(gen, err)
			return
		}
		if c.cfg.OnEvent != nil {
			c.cfg.OnEvent(data)
		}
	}
}

func (c *Connector) handleDisconnect(gen uint64, err error) {
	c.mu.Lock()
	if gen != c.gen || c.disposed {
		c.mu.Unlock()
		return
	}
	c.closeConnLocked()
	if !c.want {
		st := c.statusLocked(StateIdle)
		c.mu.Unlock()
		c.emit(st)
		return
	}
	c.cfg.Logger.Warn("Progress stream disconnected", "error", err)
	st := c.scheduleReconnectLocked()
	c.mu.Unlock()
	c.emit(st)
}

// scheduleReconnectLocked increments the attempt counter, schedules the
// next open after the backoff delay, and starts the one-second countdown
// used for display only.
func (c *Connector) scheduleReconnectLocked() Status {
	c.attempts++
	delay := c.backoff(c.attempts)
	c.retryIn = int((delay + time.Second - 1) / time.Second)
	gen := c.gen
	c.retryTimer = reconnectAfter(delay, func() { c.retryFire(gen) })
	c.scheduleCountdownLocked(gen)
	return c.statusLocked(StateWaiting)
}

func (c *Connector) retryFire(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || !c.want || c.conn != nil || c.opening {
		c.mu.Unlock()
		return
	}
	c.retryTimer = nil
	c.retryIn = 0
	c.stopCountdownLocked()
	c.openLocked()
	c.mu.Unlock()
}

func (c *Connector) scheduleCountdownLocked(gen uint64) {
	c.stopCountdownLocked()
	if c.retryIn <= 0 {
		return
	}
	c.countdownTimer = countdownAfter(time.Second, func() { c.countdownTick(gen) })
}

func (c *Connector) countdownTick(gen uint64) {
	c.mu.Lock()
	if c.disposed || gen != c.gen || c.retryIn <= 0 {
		c.mu.Unlock()
		return
	}
	c.retryIn--
	st := c.statusLocked(c.state)
	c.scheduleCountdownLocked(gen)
	c.mu.Unlock()
	c.emit(st)
}

func (c *Connector) closeConnLocked() {
	if c.dialCancel != nil {
		c.dialCancel()
		c.dialCancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.gen++
	c.opening = false
}

func (c *Connector) stopTimersLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.stopCountdownLocked()
}

func (c *Connector) stopCountdownLocked() {
	if c.countdownTimer != nil {
		c.countdownTimer.Stop()
		c.countdownTimer = nil
	}
}

func (c *Connector) statusLocked(state State) Status {
	c.state = state
	return Status{State: state, Attempts: c.attempts, RetryIn: c.retryIn}
}

func (c *Connector) emit(st Status) {
	if c.cfg.OnStatus != nil {
		c.cfg.OnStatus(st)
	}
}
