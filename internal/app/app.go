// Package app wires the AirCut pipeline together: camera capture feeding the
// frame pacer, the backend session feeding the trajectory recorder, and
// finished trajectories feeding the matching engine and command dispatch.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/furkanksl/aircut/internal/capture"
	"github.com/furkanksl/aircut/internal/command"
	"github.com/furkanksl/aircut/internal/config"
	"github.com/furkanksl/aircut/internal/detector"
	"github.com/furkanksl/aircut/internal/gesture"
	"github.com/furkanksl/aircut/internal/store"
	"github.com/furkanksl/aircut/internal/stream"
	"github.com/furkanksl/aircut/internal/trajectory"
)

// Config holds the application dependencies.
type Config struct {
	Settings config.Config
	Store    *store.Store
	// Camera overrides the default device camera (used by tests).
	Camera capture.Camera
}

// Status is a snapshot of the pipeline for the control API and tray.
type Status struct {
	SessionState      string `json:"session_state"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	Tracking          bool   `json:"tracking"`
	DrawingState      string `json:"drawing_state"`
	FramesSent        uint64 `json:"frames_sent"`
	DetectionsSeen    uint64 `json:"detections_seen"`
	LastGesture       string `json:"last_gesture,omitempty"`
}

// App orchestrates the gesture pipeline.
type App struct {
	settings config.Config
	store    *store.Store
	camera   capture.Camera
	motion   *capture.MotionDetector
	session  *stream.Session
	pacer    *stream.Pacer
	recorder *trajectory.Recorder
	executor *command.Executor

	mu           sync.RWMutex
	tracking     bool
	stopCh       chan struct{}
	handConf     float64
	gestureConf  float64
	frameWidth   int
	frameHeight  int
	framesSent   uint64
	detections   uint64
	lastResult   *gesture.MatchResult
	lastTraj     trajectory.Trajectory
	onRecognized []func(gesture.MatchResult)
	onState      []func(stream.SessionState)
}

// New creates an App from the given configuration.
func New(cfg Config) *App {
	settings := cfg.Settings

	cam := cfg.Camera
	if cam == nil {
		cam = capture.NewCamera(settings.CameraID)
	}

	a := &App{
		settings:    settings,
		store:       cfg.Store,
		camera:      cam,
		motion:      capture.NewMotionDetector(settings.MotionThreshold),
		executor:    command.NewExecutor(settings.CommandTimeout),
		handConf:    settings.HandConfidence,
		gestureConf: settings.GestureConfidence,
		frameWidth:  settings.FrameWidth,
		frameHeight: settings.FrameHeight,
	}

	// Persisted settings take precedence over static config.
	if cfg.Store != nil {
		a.handConf = cfg.Store.Settings().GetFloat(store.SettingHandConfidence, a.handConf)
		a.gestureConf = cfg.Store.Settings().GetFloat(store.SettingGestureConfidence, a.gestureConf)
	}

	a.recorder = trajectory.NewRecorder(trajectory.Config{
		AutoStartDelay:   settings.AutoStartDelay,
		AutoStopGrace:    settings.AutoStopGrace,
		MinPointDistance: settings.MinPointDistance,
	})
	a.recorder.OnDrawingStarted = func() {
		log.Println("Drawing started")
	}
	a.recorder.OnComplete = func(t trajectory.Trajectory) {
		// Matching is CPU-bound; keep it off the session read loop.
		go a.submit(t)
	}
	a.recorder.OnTooShort = func(n int) {
		log.Printf("Drawing stopped with %d points, not enough to recognize", n)
	}

	a.session = stream.NewSession(stream.SessionConfig{
		URL:            settings.BackendURL,
		HandConfidence: a.handConf,
	}, stream.Handlers{
		OnCompletion:    func() { a.pacer.Complete() },
		OnDetection:     a.handleDetection,
		OnState:         a.handleSessionState,
		OnConfidence:    a.handleConfidence,
		OnRecognized:    a.handleRemoteRecognized,
		OnNotRecognized: a.handleNotRecognized,
		OnError:         func(err error) { log.Printf("Stream error: %v", err) },
	})

	a.pacer = stream.NewPacer(stream.PacerConfig{
		TargetFPS:          settings.TargetFPS,
		ProcessEveryN:      settings.ProcessEveryN,
		EligibilityFactor:  settings.EligibilityFactor,
		StaleFlightTimeout: settings.StaleFlightTimeout,
		FailsafeTimeout:    settings.FailsafeTimeout,
	}, a.session.SendFrame, func(err error) {
		log.Printf("Frame send error: %v", err)
	})

	return a
}

// Start opens the camera and launches the capture loop. The backend session
// is connected separately via Connect.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	a.camera.SetResolution(a.settings.FrameWidth, a.settings.FrameHeight)
	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	go a.runPipeline(a.stopCh)

	log.Println("Capture pipeline started")
	return nil
}

// Stop halts the pipeline and releases the camera and socket.
func (a *App) Stop() {
	a.mu.Lock()
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
	a.mu.Unlock()

	a.recorder.Reset()
	a.session.Close()
	a.motion.Close()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	log.Println("Capture pipeline stopped")
}

// Connect dials the backend. Reconnection after a drop is always explicit:
// callers invoke Connect again and read ReconnectAttempts for feedback.
func (a *App) Connect(ctx context.Context) error {
	return a.session.Connect(ctx)
}

// ReconnectAttempts returns the consecutive failed connect count.
func (a *App) ReconnectAttempts() int {
	return a.session.ReconnectAttempts()
}

// SetTracking toggles frame streaming and backend detection.
func (a *App) SetTracking(enabled bool) error {
	a.mu.Lock()
	a.tracking = enabled
	a.mu.Unlock()

	if !enabled {
		a.recorder.Reset()
	}

	var err error
	if enabled {
		err = a.session.StartTracking()
	} else {
		err = a.session.StopTracking()
	}
	if err != nil && err != stream.ErrNotConnected {
		return err
	}
	return nil
}

// IsTracking reports whether frames are being streamed.
func (a *App) IsTracking() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.tracking
}

// StopDrawing finalizes the current drawing on explicit user request.
func (a *App) StopDrawing() {
	a.recorder.Stop()
}

// ClearDrawing discards the in-progress trajectory and the last recognition
// result.
func (a *App) ClearDrawing() {
	a.recorder.Clear()
	a.mu.Lock()
	a.lastResult = nil
	a.lastTraj = nil
	a.mu.Unlock()
}

// DrawingState returns the capture state machine position.
func (a *App) DrawingState() trajectory.State {
	return a.recorder.State()
}

// LastResult returns the most recent recognition result, if any.
func (a *App) LastResult() *gesture.MatchResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResult
}

// SaveTemplate promotes the last finished trajectory to a stored template.
func (a *App) SaveTemplate(name, cmd string) (*store.Template, error) {
	a.mu.RLock()
	traj := a.lastTraj.Clone()
	a.mu.RUnlock()

	if len(traj) < gesture.MinTrajectoryPoints {
		return nil, store.ErrTooFewPoints
	}

	tpl := &store.Template{
		ID:      uuid.NewString(),
		Name:    name,
		Command: cmd,
		Points:  traj,
	}
	if err := a.store.Templates().Create(tpl); err != nil {
		return nil, err
	}

	log.Printf("Saved template %q with %d points", name, len(traj))
	return tpl, nil
}

// UpdateConfidence changes both thresholds, persists them, and pushes them
// to the backend.
func (a *App) UpdateConfidence(hand, gestureConf float64) error {
	a.mu.Lock()
	a.handConf = hand
	a.gestureConf = gestureConf
	a.mu.Unlock()

	if a.store != nil {
		if err := a.store.Settings().SetFloat(store.SettingHandConfidence, hand); err != nil {
			log.Printf("Failed to persist hand confidence: %v", err)
		}
		if err := a.store.Settings().SetFloat(store.SettingGestureConfidence, gestureConf); err != nil {
			log.Printf("Failed to persist gesture confidence: %v", err)
		}
	}

	if err := a.session.UpdateConfidence(hand, gestureConf); err != nil && err != stream.ErrNotConnected {
		return err
	}
	return nil
}

// OnRecognized registers a callback for recognition results.
func (a *App) OnRecognized(fn func(gesture.MatchResult)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onRecognized = append(a.onRecognized, fn)
}

// OnSessionState registers a callback for session state transitions.
func (a *App) OnSessionState(fn func(stream.SessionState)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onState = append(a.onState, fn)
}

// Status returns a pipeline snapshot.
func (a *App) Status() Status {
	a.mu.RLock()
	defer a.mu.RUnlock()

	st := Status{
		SessionState:      a.session.State().String(),
		ReconnectAttempts: a.session.ReconnectAttempts(),
		Tracking:          a.tracking,
		DrawingState:      a.recorder.State().String(),
		FramesSent:        a.framesSent,
		DetectionsSeen:    a.detections,
	}
	if a.lastResult != nil {
		st.LastGesture = a.lastResult.TemplateName
	}
	return st
}

// Session exposes the streaming session (used by tests and the control API).
func (a *App) Session() *stream.Session {
	return a.session
}

// Recorder exposes the capture state machine (used by tests).
func (a *App) Recorder() *trajectory.Recorder {
	return a.recorder
}

// handleDetection turns a filtered detection event into a recorder event.
func (a *App) handleDetection(d *detector.Detection) {
	if d == nil {
		a.recorder.HandleDetection(nil)
		return
	}

	a.mu.Lock()
	a.detections++
	w, h := float64(a.frameWidth), float64(a.frameHeight)
	a.mu.Unlock()

	pt, ok := d.Point(w, h)
	if !ok {
		a.recorder.HandleDetection(nil)
		return
	}
	a.recorder.HandleDetection(&pt)
}

func (a *App) handleSessionState(s stream.SessionState) {
	log.Printf("Session %s", s)

	a.mu.RLock()
	subs := append([]func(stream.SessionState){}, a.onState...)
	a.mu.RUnlock()
	for _, fn := range subs {
		fn(s)
	}
}

// handleConfidence records thresholds announced by the backend.
func (a *App) handleConfidence(hand, gestureConf float64) {
	a.mu.Lock()
	a.handConf = hand
	a.gestureConf = gestureConf
	a.mu.Unlock()
	a.session.SetHandConfidence(hand)
}

// submit runs recognition for a finished trajectory.
func (a *App) submit(t trajectory.Trajectory) {
	a.mu.Lock()
	a.lastTraj = t.Clone()
	threshold := a.gestureConf
	a.mu.Unlock()

	templates, err := a.loadTemplates()
	if err != nil {
		log.Printf("Failed to load templates: %v", err)
		return
	}
	if len(templates) == 0 {
		log.Println("No templates saved, skipping recognition")
		return
	}

	if a.settings.RemoteRecognition && a.session.State() == stream.StateConnected {
		if err := a.session.RecognizeGesture(t, threshold, templates); err != nil {
			log.Printf("Remote recognition failed, falling back to local: %v", err)
		} else {
			return
		}
	}

	if result, ok := gesture.Match(t, templates, threshold); ok {
		a.handleRecognized(result)
	} else {
		a.handleNotRecognized("no matching gesture found")
	}
}

func (a *App) loadTemplates() ([]gesture.Template, error) {
	if a.store == nil {
		return nil, nil
	}
	stored, err := a.store.Templates().List()
	if err != nil {
		return nil, err
	}
	templates := make([]gesture.Template, len(stored))
	for i, t := range stored {
		templates[i] = gesture.Template{
			ID:      t.ID,
			Name:    t.Name,
			Command: t.Command,
			Points:  t.Points,
		}
	}
	return templates, nil
}

func (a *App) handleRemoteRecognized(msg stream.GestureRecognizedMessage) {
	a.handleRecognized(gesture.MatchResult{
		TemplateName: msg.TemplateName,
		Command:      msg.Command,
		Similarity:   msg.Similarity,
	})
}

func (a *App) handleRecognized(result gesture.MatchResult) {
	log.Printf("Gesture recognized: %s (similarity %.3f)", result.TemplateName, result.Similarity)

	a.mu.Lock()
	a.lastResult = &result
	subs := append([]func(gesture.MatchResult){}, a.onRecognized...)
	a.mu.Unlock()

	for _, fn := range subs {
		fn(result)
	}

	if result.Command != "" {
		go func() {
			out, err := a.executor.Execute(context.Background(), result.Command)
			if err != nil {
				log.Printf("Command for %q failed: %v", result.TemplateName, err)
				return
			}
			if out != "" {
				log.Printf("Command for %q output: %s", result.TemplateName, out)
			}
		}()
	}
}

func (a *App) handleNotRecognized(reason string) {
	log.Printf("Gesture not recognized: %s", reason)
	a.mu.Lock()
	a.lastResult = nil
	a.mu.Unlock()
}

// markFrameSent is called by the pipeline after an accepted tick.
func (a *App) markFrameSent(width, height int) {
	a.mu.Lock()
	a.framesSent++
	a.frameWidth = width
	a.frameHeight = height
	a.mu.Unlock()
}

// idleMotionWindow is how long the scene must stay static (with no drawing
// in progress) before detector traffic is skipped.
const idleMotionWindow = 2 * time.Second
