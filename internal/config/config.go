// Package config holds the runtime configuration surface for the AirCut
// core. Every tuned constant that shapes real-time behavior lives here so
// tests can pin it down and deployments can override it.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Recognition defaults.
const (
	DefaultHandConfidence    = 0.75
	DefaultGestureConfidence = 0.85
)

// Config is the full configuration surface consumed by this core.
type Config struct {
	// BackendURL is the detector backend websocket endpoint.
	BackendURL string
	// HTTPAddr is the local control API listen address.
	HTTPAddr string
	// CameraID selects the capture device.
	CameraID int

	// TargetFPS is the frame-streaming rate ceiling.
	TargetFPS float64
	// Quality is the JPEG encoder quality in (0,1].
	Quality float64
	// FrameWidth and FrameHeight set the capture resolution.
	FrameWidth  int
	FrameHeight int
	// ProcessEveryN decimates capture ticks; <= 1 processes every tick.
	ProcessEveryN int

	// HandConfidence is the hand-detection filter threshold.
	HandConfidence float64
	// GestureConfidence is the recognition similarity threshold.
	GestureConfidence float64

	// AutoStartDelay is how long a hand must stay present before drawing starts.
	AutoStartDelay time.Duration
	// AutoStopGrace is the hand-loss grace window while drawing.
	AutoStopGrace time.Duration
	// MinPointDistance is the trajectory near-duplicate filter.
	MinPointDistance float64

	// StaleFlightTimeout and FailsafeTimeout are the frame pacer failsafes.
	StaleFlightTimeout time.Duration
	FailsafeTimeout    time.Duration
	// EligibilityFactor relaxes capture tick timing (fires slightly early).
	EligibilityFactor float64

	// RemoteRecognition sends finished trajectories to the backend instead
	// of matching locally.
	RemoteRecognition bool
	// MotionGating skips detector traffic while the scene is static and no
	// drawing is in progress. MotionThreshold is the percent of changed
	// pixels that counts as motion.
	MotionGating    bool
	MotionThreshold float64

	// CommandTimeout bounds gesture command execution.
	CommandTimeout time.Duration

	// DataDir is where the template database lives.
	DataDir string
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		BackendURL:         "ws://127.0.0.1:8000/ws/frames",
		HTTPAddr:           ":8080",
		CameraID:           0,
		TargetFPS:          15,
		Quality:            0.7,
		FrameWidth:         640,
		FrameHeight:        480,
		ProcessEveryN:      1,
		HandConfidence:     DefaultHandConfidence,
		GestureConfidence:  DefaultGestureConfidence,
		AutoStartDelay:     500 * time.Millisecond,
		AutoStopGrace:      2 * time.Second,
		MinPointDistance:   0.005,
		StaleFlightTimeout: 500 * time.Millisecond,
		FailsafeTimeout:    1000 * time.Millisecond,
		EligibilityFactor:  0.8,
		RemoteRecognition:  false,
		MotionGating:       true,
		MotionThreshold:    1.0,
		CommandTimeout:     5 * time.Second,
	}
}

// Load builds a Config from defaults overlaid with AIRCUT_* environment
// variables. A .env file in the working directory is honored when present.
func Load() Config {
	// Missing .env is the normal case.
	_ = godotenv.Load()

	cfg := Default()
	cfg.BackendURL = envString("AIRCUT_BACKEND_URL", cfg.BackendURL)
	cfg.HTTPAddr = envString("AIRCUT_HTTP_ADDR", cfg.HTTPAddr)
	cfg.CameraID = envInt("AIRCUT_CAMERA_ID", cfg.CameraID)
	cfg.TargetFPS = envFloat("AIRCUT_TARGET_FPS", cfg.TargetFPS)
	cfg.Quality = envFloat("AIRCUT_QUALITY", cfg.Quality)
	cfg.FrameWidth = envInt("AIRCUT_FRAME_WIDTH", cfg.FrameWidth)
	cfg.FrameHeight = envInt("AIRCUT_FRAME_HEIGHT", cfg.FrameHeight)
	cfg.ProcessEveryN = envInt("AIRCUT_PROCESS_EVERY_N", cfg.ProcessEveryN)
	cfg.HandConfidence = envFloat("AIRCUT_HAND_CONFIDENCE", cfg.HandConfidence)
	cfg.GestureConfidence = envFloat("AIRCUT_GESTURE_CONFIDENCE", cfg.GestureConfidence)
	cfg.AutoStartDelay = envDuration("AIRCUT_AUTO_START_DELAY", cfg.AutoStartDelay)
	cfg.AutoStopGrace = envDuration("AIRCUT_AUTO_STOP_GRACE", cfg.AutoStopGrace)
	cfg.MinPointDistance = envFloat("AIRCUT_MIN_POINT_DISTANCE", cfg.MinPointDistance)
	cfg.StaleFlightTimeout = envDuration("AIRCUT_STALE_FLIGHT_TIMEOUT", cfg.StaleFlightTimeout)
	cfg.FailsafeTimeout = envDuration("AIRCUT_FAILSAFE_TIMEOUT", cfg.FailsafeTimeout)
	cfg.EligibilityFactor = envFloat("AIRCUT_ELIGIBILITY_FACTOR", cfg.EligibilityFactor)
	cfg.RemoteRecognition = envBool("AIRCUT_REMOTE_RECOGNITION", cfg.RemoteRecognition)
	cfg.MotionGating = envBool("AIRCUT_MOTION_GATING", cfg.MotionGating)
	cfg.MotionThreshold = envFloat("AIRCUT_MOTION_THRESHOLD", cfg.MotionThreshold)
	cfg.CommandTimeout = envDuration("AIRCUT_COMMAND_TIMEOUT", cfg.CommandTimeout)
	cfg.DataDir = envString("AIRCUT_DATA_DIR", cfg.DataDir)
	return cfg
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
