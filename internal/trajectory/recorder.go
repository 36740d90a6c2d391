package trajectory

import (
	"sync"
	"time"
)

// Recorder states.
type State int

const (
	// StateIdle means no hand is being tracked and nothing is recorded.
	StateIdle State = iota
	// StateWaitingToStart means a hand is present and the auto-start countdown is running.
	StateWaitingToStart
	// StateDrawing means detections are being appended to the trajectory.
	StateDrawing
	// StateWaitingToStop means the hand was lost mid-drawing and the grace countdown is running.
	StateWaitingToStop
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingToStart:
		return "waiting_to_start"
	case StateDrawing:
		return "drawing"
	case StateWaitingToStop:
		return "waiting_to_stop"
	default:
		return "unknown"
	}
}

// Default countdown durations.
const (
	DefaultAutoStartDelay = 500 * time.Millisecond
	DefaultAutoStopGrace  = 2 * time.Second
)

// Config holds the tunable timings and filters for a Recorder.
type Config struct {
	// AutoStartDelay is how long a hand must stay present before drawing starts.
	AutoStartDelay time.Duration
	// AutoStopGrace is how long the hand may disappear mid-drawing before the
	// trajectory is finalized.
	AutoStopGrace time.Duration
	// MinPointDistance is the consecutive-point distance filter.
	MinPointDistance float64
}

// DefaultConfig returns a Config with the standard timings.
func DefaultConfig() Config {
	return Config{
		AutoStartDelay:   DefaultAutoStartDelay,
		AutoStopGrace:    DefaultAutoStopGrace,
		MinPointDistance: MinPointDistance,
	}
}

// Recorder converts a stream of detection events into a recorded, filtered
// point sequence. Detections must be delivered one at a time; the recorder
// serializes its own state against the countdown timers.
type Recorder struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	points Trajectory

	startTimer *time.Timer
	stopTimer  *time.Timer
	gen        uint64 // invalidates countdowns cancelled after their timer fired

	// OnDrawingStarted is called when the auto-start countdown elapses.
	OnDrawingStarted func()
	// OnComplete receives the finished trajectory (always >= 2 points).
	OnComplete func(Trajectory)
	// OnTooShort is called when an explicit stop finds fewer than 2 points.
	OnTooShort func(n int)
}

// NewRecorder creates a Recorder with the given configuration. Zero values
// in cfg fall back to the defaults.
func NewRecorder(cfg Config) *Recorder {
	def := DefaultConfig()
	if cfg.AutoStartDelay <= 0 {
		cfg.AutoStartDelay = def.AutoStartDelay
	}
	if cfg.AutoStopGrace <= 0 {
		cfg.AutoStopGrace = def.AutoStopGrace
	}
	if cfg.MinPointDistance <= 0 {
		cfg.MinPointDistance = def.MinPointDistance
	}
	return &Recorder{cfg: cfg, state: StateIdle}
}

// State returns the current state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Points returns a copy of the trajectory recorded so far.
func (r *Recorder) Points() Trajectory {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.points.Clone()
}

// HandleDetection processes one detection event. pt == nil means the hand is
// absent for this cycle (an explicit "nothing to track" signal).
func (r *Recorder) HandleDetection(pt *Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateIdle:
		if pt != nil {
			r.state = StateWaitingToStart
			r.armStartTimer()
		}
	case StateWaitingToStart:
		if pt == nil {
			// Hand removed before the countdown elapsed.
			r.cancelTimers()
			r.state = StateIdle
		}
	case StateDrawing:
		if pt != nil {
			r.points, _ = r.points.Extend(*pt, r.cfg.MinPointDistance)
		} else if len(r.points) >= 2 {
			r.state = StateWaitingToStop
			r.armStopTimer()
		}
		// With < 2 points a lost hand just waits for the hand to return.
	case StateWaitingToStop:
		if pt != nil {
			// Hand returned within the grace window; keep drawing.
			r.cancelTimers()
			r.state = StateDrawing
			r.points, _ = r.points.Extend(*pt, r.cfg.MinPointDistance)
		}
	}
}

// Stop finalizes drawing on explicit user request. If the trajectory has at
// least 2 points it is delivered via OnComplete, otherwise OnTooShort fires.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateDrawing && r.state != StateWaitingToStop {
		r.mu.Unlock()
		return
	}
	r.cancelTimers()
	r.state = StateIdle
	pts := r.points
	r.points = nil
	r.mu.Unlock()

	if len(pts) >= 2 {
		if r.OnComplete != nil {
			r.OnComplete(pts)
		}
	} else if r.OnTooShort != nil {
		r.OnTooShort(len(pts))
	}
}

// Clear discards the recorded trajectory without moving the state machine.
func (r *Recorder) Clear() {
	r.mu.Lock()
	r.points = nil
	r.mu.Unlock()
}

// Reset cancels any countdown and returns the recorder to idle, discarding
// the trajectory. Used when the session drops mid-drawing.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.cancelTimers()
	r.state = StateIdle
	r.points = nil
	r.mu.Unlock()
}

// armStartTimer must be called with mu held.
func (r *Recorder) armStartTimer() {
	gen := r.gen
	r.startTimer = time.AfterFunc(r.cfg.AutoStartDelay, func() {
		r.mu.Lock()
		if r.gen != gen || r.state != StateWaitingToStart {
			r.mu.Unlock()
			return
		}
		r.state = StateDrawing
		r.points = nil
		cb := r.OnDrawingStarted
		r.mu.Unlock()

		if cb != nil {
			cb()
		}
	})
}

// armStopTimer must be called with mu held.
func (r *Recorder) armStopTimer() {
	gen := r.gen
	r.stopTimer = time.AfterFunc(r.cfg.AutoStopGrace, func() {
		r.mu.Lock()
		if r.gen != gen || r.state != StateWaitingToStop {
			r.mu.Unlock()
			return
		}
		r.state = StateIdle
		pts := r.points
		r.points = nil
		cb := r.OnComplete
		r.mu.Unlock()

		// The grace window arms with >= 2 points, but a Clear during the
		// countdown can empty them; deliver only a real trajectory.
		if cb != nil && len(pts) >= 2 {
			cb(pts)
		}
	})
}

// cancelTimers must be called with mu held. Bumping the generation makes a
// countdown that already fired but has not taken the lock a no-op, so a
// cancellation never half-applies a transition.
func (r *Recorder) cancelTimers() {
	r.gen++
	if r.startTimer != nil {
		r.startTimer.Stop()
		r.startTimer = nil
	}
	if r.stopTimer != nil {
		r.stopTimer.Stop()
		r.stopTimer = nil
	}
}
