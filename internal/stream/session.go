package stream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/furkanksl/aircut/internal/detector"
	"github.com/furkanksl/aircut/internal/gesture"
	"github.com/furkanksl/aircut/internal/trajectory"
)

// SessionState describes the session lifecycle.
type SessionState int

const (
	// StateDisconnected means no socket is open.
	StateDisconnected SessionState = iota
	// StateConnecting means a dial is in progress.
	StateConnecting
	// StateConnected means the socket is open and healthy.
	StateConnected
	// StateDegraded means the socket is open but the detector reported an error.
	StateDegraded
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned by send operations while no socket is open.
var ErrNotConnected = errors.New("session is not connected")

// DefaultHandshakeTimeout bounds the websocket dial.
const DefaultHandshakeTimeout = 10 * time.Second

// SessionConfig holds the connection parameters.
type SessionConfig struct {
	// URL is the detector backend websocket endpoint.
	URL string
	// HandshakeTimeout bounds the dial; zero uses the default.
	HandshakeTimeout time.Duration
	// HandConfidence is the initial hand-detection filter threshold.
	HandConfidence float64
}

// Handlers are the typed subscriber callbacks for session events. They are
// invoked synchronously from the session's single read loop, so callers get
// events in wire order. Nil handlers are skipped.
type Handlers struct {
	// OnDetection fires for every per-frame result. A nil detection is an
	// explicit "nothing to track" signal, either because the backend found
	// nothing or because the detection failed the confidence/class filter.
	OnDetection func(*detector.Detection)
	// OnCompletion fires whenever the backend is done with the frame in
	// flight: a detection result, an explicit no-detection, or an error.
	OnCompletion func()
	// OnState fires on every session state transition.
	OnState func(SessionState)
	// OnConfidence reports the backend's current thresholds.
	OnConfidence func(hand, gesture float64)
	// OnRecognized fires for a backend-side gesture match.
	OnRecognized func(GestureRecognizedMessage)
	// OnNotRecognized fires for a normal negative recognition result.
	OnNotRecognized func(reason string)
	// OnTracking reports tracking on/off acknowledgments.
	OnTracking func(active bool)
	// OnError receives backend application errors and malformed payloads.
	// The session stays open for these.
	OnError func(error)
}

// Session owns the one active socket to the detector backend. Reconnection
// is always caller-initiated: a closed socket surfaces as a state event and
// the caller decides whether to dial again.
type Session struct {
	cfg      SessionConfig
	handlers Handlers

	mu                sync.Mutex
	conn              *websocket.Conn
	state             SessionState
	reconnectAttempts int
	handConfidence    float64

	writeMu sync.Mutex
}

// NewSession creates a session in the disconnected state.
func NewSession(cfg SessionConfig, handlers Handlers) *Session {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	return &Session{
		cfg:            cfg,
		handlers:       handlers,
		state:          StateDisconnected,
		handConfidence: cfg.HandConfidence,
	}
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ReconnectAttempts returns the number of consecutive failed connect
// attempts. It resets only on a successful connection.
func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectAttempts
}

// SetHandConfidence updates the detection filter threshold at runtime.
func (s *Session) SetHandConfidence(v float64) {
	s.mu.Lock()
	s.handConfidence = v
	s.mu.Unlock()
}

// Connect dials the backend. On failure the attempt counter increments and
// the session stays disconnected; on success the counter resets and the read
// loop starts.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateConnecting || s.conn != nil {
		s.mu.Unlock()
		return fmt.Errorf("session already %s", s.state)
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.notifyState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.reconnectAttempts++
		s.mu.Unlock()
		s.notifyState(StateDisconnected)
		return fmt.Errorf("dial %s: %w", s.cfg.URL, err)
	}

	s.mu.Lock()
	s.conn = conn
	s.state = StateConnected
	s.reconnectAttempts = 0
	s.mu.Unlock()
	s.notifyState(StateConnected)

	go s.readLoop(conn)
	return nil
}

// Close shuts the socket down and transitions to disconnected. Safe to call
// when already disconnected. The exiting read loop sees a superseded conn and
// does not notify again.
func (s *Session) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	wasOpen := conn != nil && (s.state == StateConnected || s.state == StateDegraded)
	if conn != nil {
		s.state = StateDisconnected
	}
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close()
	if wasOpen {
		// The in-flight frame will never complete; clear it.
		s.notifyCompletion()
		s.notifyState(StateDisconnected)
	}
	return err
}

// SendFrame transmits one encoded frame.
func (s *Session) SendFrame(f Frame) error {
	return s.writeJSON(FrameMessage{
		Type:      TypeFrame,
		Data:      base64.StdEncoding.EncodeToString(f.Data),
		Timestamp: f.Timestamp.UnixMilli(),
		Width:     f.Width,
		Height:    f.Height,
	})
}

// StartTracking asks the backend to run detection on incoming frames.
func (s *Session) StartTracking() error {
	return s.writeJSON(ControlMessage{Type: TypeStartTracking})
}

// StopTracking asks the backend to stop running detection.
func (s *Session) StopTracking() error {
	return s.writeJSON(ControlMessage{Type: TypeStopTracking})
}

// Ping sends a keepalive.
func (s *Session) Ping() error {
	return s.writeJSON(ControlMessage{Type: TypePing})
}

// UpdateConfidence pushes new thresholds to the backend and applies the hand
// threshold to the local detection filter.
func (s *Session) UpdateConfidence(hand, gestureConf float64) error {
	s.SetHandConfidence(hand)
	return s.writeJSON(UpdateConfidenceMessage{
		Type:                         TypeUpdateConfidence,
		HandDetectionConfidence:      hand,
		GestureRecognitionConfidence: gestureConf,
	})
}

// RecognizeGesture submits a finished trajectory for backend-side matching.
func (s *Session) RecognizeGesture(t trajectory.Trajectory, threshold float64, templates []gesture.Template) error {
	payload := make([]TemplatePayload, len(templates))
	for i, tpl := range templates {
		payload[i] = TemplatePayload{
			Name:       tpl.Name,
			Command:    tpl.Command,
			Trajectory: tpl.Points,
		}
	}
	return s.writeJSON(RecognizeGestureMessage{
		Type:                TypeRecognizeGesture,
		Trajectory:          t,
		ConfidenceThreshold: threshold,
		Templates:           payload,
	})
}

func (s *Session) writeJSON(v any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(v)
}

// readLoop is the single owner of inbound messages; handlers run on this
// goroutine so event order matches wire order.
func (s *Session) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(conn, err)
			return
		}
		s.handleMessage(data)
	}
}

func (s *Session) handleDisconnect(conn *websocket.Conn, err error) {
	s.mu.Lock()
	// Only the active connection may transition the state; a superseded
	// read loop closes its own socket and exits without notifying.
	if s.conn != conn {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conn = nil
	wasOpen := s.state == StateConnected || s.state == StateDegraded
	s.state = StateDisconnected
	s.mu.Unlock()

	conn.Close()

	if wasOpen {
		if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			s.notifyError(fmt.Errorf("session read: %w", err))
		}
		// The in-flight frame will never complete; clear it.
		s.notifyCompletion()
		s.notifyState(StateDisconnected)
	}
}

func (s *Session) handleMessage(data []byte) {
	msgType, err := peekType(data)
	if err != nil {
		// Malformed payloads are dropped; the session stays open.
		s.notifyError(err)
		return
	}

	switch msgType {
	case TypeDetection:
		var msg DetectionMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse detection: %w", err))
			return
		}
		s.recoverDegraded()
		s.notifyCompletion()
		s.forwardDetection(msg.Detection)

	case TypeFrameReceived:
		// Receipt acknowledgment only; the frame is still in flight until a
		// detection or error arrives.

	case TypeConnectionEstablished:
		var msg ConnectionEstablishedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse connection_established: %w", err))
			return
		}
		if s.handlers.OnConfidence != nil {
			s.handlers.OnConfidence(msg.CurrentHandConfidence, msg.CurrentGestureConfidence)
		}

	case TypeConfidenceUpdated:
		var msg ConfidenceUpdatedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse confidence_updated: %w", err))
			return
		}
		if s.handlers.OnConfidence != nil {
			s.handlers.OnConfidence(msg.HandDetectionConfidence, msg.GestureRecognitionConfidence)
		}

	case TypeTrackingStarted:
		if s.handlers.OnTracking != nil {
			s.handlers.OnTracking(true)
		}

	case TypeTrackingStopped:
		if s.handlers.OnTracking != nil {
			s.handlers.OnTracking(false)
		}

	case TypeGestureRecognized:
		var msg GestureRecognizedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse gesture_recognized: %w", err))
			return
		}
		if s.handlers.OnRecognized != nil {
			s.handlers.OnRecognized(msg)
		}

	case TypeGestureNotRecognized:
		var msg GestureNotRecognizedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse gesture_not_recognized: %w", err))
			return
		}
		if s.handlers.OnNotRecognized != nil {
			s.handlers.OnNotRecognized(msg.Message)
		}

	case TypePong:
		// Keepalive answer, nothing to do.

	case TypeError:
		var msg ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.notifyError(fmt.Errorf("parse error message: %w", err))
			return
		}
		// A detector-side error still completes the frame so the pipeline
		// keeps moving.
		s.markDegraded()
		s.notifyCompletion()
		s.notifyError(fmt.Errorf("backend: %s", msg.Message))

	default:
		log.Printf("session: ignoring unknown message type %q", msgType)
	}
}

// forwardDetection applies the confidence/class filter. Filtered-out
// detections are forwarded as nil so hand absence stays observable.
func (s *Session) forwardDetection(d *detector.Detection) {
	if s.handlers.OnDetection == nil {
		return
	}
	s.mu.Lock()
	filter := detector.Filter{MinConfidence: s.handConfidence}
	s.mu.Unlock()

	if filter.Accept(d) {
		s.handlers.OnDetection(d)
	} else {
		s.handlers.OnDetection(nil)
	}
}

func (s *Session) markDegraded() {
	s.mu.Lock()
	changed := s.state == StateConnected
	if changed {
		s.state = StateDegraded
	}
	s.mu.Unlock()
	if changed {
		s.notifyState(StateDegraded)
	}
}

// recoverDegraded flips the session back to connected once the detector
// answers normally again.
func (s *Session) recoverDegraded() {
	s.mu.Lock()
	changed := s.state == StateDegraded
	if changed {
		s.state = StateConnected
	}
	s.mu.Unlock()
	if changed {
		s.notifyState(StateConnected)
	}
}

func (s *Session) notifyState(state SessionState) {
	if s.handlers.OnState != nil {
		s.handlers.OnState(state)
	}
}

func (s *Session) notifyCompletion() {
	if s.handlers.OnCompletion != nil {
		s.handlers.OnCompletion()
	}
}

func (s *Session) notifyError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(err)
	} else {
		log.Printf("session: %v", err)
	}
}
