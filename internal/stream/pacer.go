package stream

import (
	"log"
	"sync"
	"time"
)

// Pacer timing defaults. These encode tuned real-time behavior; change with
// care.
const (
	DefaultTargetFPS = 15.0
	// DefaultEligibilityFactor makes tick timing permissive: a tick may fire
	// slightly early, trading minor jitter for lower latency.
	DefaultEligibilityFactor = 0.8
	// DefaultStaleFlightTimeout force-clears the in-flight flag at the next
	// send attempt so one stalled detector cycle cannot wedge the stream.
	DefaultStaleFlightTimeout = 500 * time.Millisecond
	// DefaultFailsafeTimeout clears the in-flight flag even when no further
	// sends happen.
	DefaultFailsafeTimeout = 1000 * time.Millisecond
)

// Frame is an encoded camera frame ready for transport.
type Frame struct {
	Data      []byte
	Timestamp time.Time
	Width     int
	Height    int
}

// PacerConfig holds the runtime-mutable pacing parameters.
type PacerConfig struct {
	TargetFPS          float64
	ProcessEveryN      int // frame decimation factor; <= 1 means every tick
	EligibilityFactor  float64
	StaleFlightTimeout time.Duration
	FailsafeTimeout    time.Duration
}

// DefaultPacerConfig returns the standard pacing parameters.
func DefaultPacerConfig() PacerConfig {
	return PacerConfig{
		TargetFPS:          DefaultTargetFPS,
		ProcessEveryN:      1,
		EligibilityFactor:  DefaultEligibilityFactor,
		StaleFlightTimeout: DefaultStaleFlightTimeout,
		FailsafeTimeout:    DefaultFailsafeTimeout,
	}
}

// Pacer implements the single-flight backpressure contract between the
// capture loop and the detector backend: at most one frame is in flight at a
// time, new frames are dropped rather than queued, and two failsafes recover
// from a detector that never answers.
type Pacer struct {
	mu  sync.Mutex
	cfg PacerConfig

	send    func(Frame) error
	onError func(error)

	inFlight     bool
	lastSend     time.Time
	lastAccepted time.Time
	tick         int
	seq          uint64 // identifies the send a failsafe belongs to
	failsafe     *time.Timer

	now func() time.Time
}

// NewPacer creates a pacer that transmits accepted frames through send.
// Transmission runs off the caller's tick goroutine; send errors are reported
// through onError (optional) and clear the in-flight state.
func NewPacer(cfg PacerConfig, send func(Frame) error, onError func(error)) *Pacer {
	def := DefaultPacerConfig()
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = def.TargetFPS
	}
	if cfg.EligibilityFactor <= 0 {
		cfg.EligibilityFactor = def.EligibilityFactor
	}
	if cfg.StaleFlightTimeout <= 0 {
		cfg.StaleFlightTimeout = def.StaleFlightTimeout
	}
	if cfg.FailsafeTimeout <= 0 {
		cfg.FailsafeTimeout = def.FailsafeTimeout
	}
	return &Pacer{
		cfg:     cfg,
		send:    send,
		onError: onError,
		now:     time.Now,
	}
}

// SetConfig replaces the pacing parameters without restarting capture.
func (p *Pacer) SetConfig(cfg PacerConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cfg.TargetFPS > 0 {
		p.cfg.TargetFPS = cfg.TargetFPS
	}
	if cfg.ProcessEveryN > 0 {
		p.cfg.ProcessEveryN = cfg.ProcessEveryN
	}
	if cfg.EligibilityFactor > 0 {
		p.cfg.EligibilityFactor = cfg.EligibilityFactor
	}
	if cfg.StaleFlightTimeout > 0 {
		p.cfg.StaleFlightTimeout = cfg.StaleFlightTimeout
	}
	if cfg.FailsafeTimeout > 0 {
		p.cfg.FailsafeTimeout = cfg.FailsafeTimeout
	}
}

// Config returns the current pacing parameters.
func (p *Pacer) Config() PacerConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cfg
}

// InFlight reports whether a frame is awaiting completion.
func (p *Pacer) InFlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inFlight
}

// Offer is called on every capture tick. encode is invoked only when the
// tick is accepted, so rejected ticks cost nothing. Returns whether the
// frame was sent.
func (p *Pacer) Offer(encode func() (Frame, error)) bool {
	p.mu.Lock()

	p.tick++
	if p.cfg.ProcessEveryN > 1 && p.tick%p.cfg.ProcessEveryN != 0 {
		p.mu.Unlock()
		return false
	}

	now := p.now()

	interval := time.Duration(float64(time.Second) / p.cfg.TargetFPS)
	eligible := time.Duration(p.cfg.EligibilityFactor * float64(interval))
	if !p.lastAccepted.IsZero() && now.Sub(p.lastAccepted) < eligible {
		p.mu.Unlock()
		return false
	}

	if p.inFlight {
		if now.Sub(p.lastSend) <= p.cfg.StaleFlightTimeout {
			// Previous frame still in flight: drop, never queue.
			p.mu.Unlock()
			return false
		}
		// The completion never came; force-clear and let this frame proceed.
		log.Printf("pacer: in-flight frame stale after %v, force-clearing", now.Sub(p.lastSend))
		p.clearFlightLocked()
	}

	p.lastAccepted = now
	p.lastSend = now
	p.inFlight = true
	p.seq++
	seq := p.seq
	send := p.send
	p.mu.Unlock()

	// Encode outside the lock so a slow encode cannot block Complete()
	// from the read loop. The flight is already reserved; roll it back if
	// the encode fails.
	frame, err := encode()
	if err != nil {
		p.completeSeq(seq)
		p.reportError(err)
		return false
	}

	p.mu.Lock()
	if p.inFlight && p.seq == seq {
		p.armFailsafeLocked(seq)
	}
	p.mu.Unlock()

	// Fire-and-forget from the tick's perspective.
	go func() {
		if err := send(frame); err != nil {
			p.completeSeq(seq)
			p.reportError(err)
		}
	}()

	return true
}

// Complete clears the in-flight state. It is idempotent: duplicate or
// out-of-order completions are no-ops.
func (p *Pacer) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearFlightLocked()
}

// completeSeq clears the in-flight state only if it still belongs to the
// given send, so a late failsafe cannot cancel a newer frame.
func (p *Pacer) completeSeq(seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inFlight && p.seq == seq {
		p.clearFlightLocked()
	}
}

// clearFlightLocked must be called with mu held.
func (p *Pacer) clearFlightLocked() {
	if !p.inFlight {
		return
	}
	p.inFlight = false
	if p.failsafe != nil {
		p.failsafe.Stop()
		p.failsafe = nil
	}
}

// armFailsafeLocked must be called with mu held.
func (p *Pacer) armFailsafeLocked(seq uint64) {
	if p.failsafe != nil {
		p.failsafe.Stop()
	}
	p.failsafe = time.AfterFunc(p.cfg.FailsafeTimeout, func() {
		p.completeSeq(seq)
	})
}

func (p *Pacer) reportError(err error) {
	if p.onError != nil {
		p.onError(err)
	}
}
