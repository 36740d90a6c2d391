package config

import (
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.HandConfidence != 0.75 {
		t.Errorf("HandConfidence = %f, want 0.75", cfg.HandConfidence)
	}
	if cfg.GestureConfidence != 0.85 {
		t.Errorf("GestureConfidence = %f, want 0.85", cfg.GestureConfidence)
	}
	if cfg.TargetFPS != 15 {
		t.Errorf("TargetFPS = %f, want 15", cfg.TargetFPS)
	}
	if cfg.AutoStartDelay != 500*time.Millisecond {
		t.Errorf("AutoStartDelay = %v, want 500ms", cfg.AutoStartDelay)
	}
	if cfg.AutoStopGrace != 2*time.Second {
		t.Errorf("AutoStopGrace = %v, want 2s", cfg.AutoStopGrace)
	}
	if cfg.StaleFlightTimeout != 500*time.Millisecond {
		t.Errorf("StaleFlightTimeout = %v, want 500ms", cfg.StaleFlightTimeout)
	}
	if cfg.FailsafeTimeout != time.Second {
		t.Errorf("FailsafeTimeout = %v, want 1s", cfg.FailsafeTimeout)
	}
	if cfg.MinPointDistance != 0.005 {
		t.Errorf("MinPointDistance = %f, want 0.005", cfg.MinPointDistance)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("AIRCUT_BACKEND_URL", "ws://example.test:9000/ws/frames")
	t.Setenv("AIRCUT_TARGET_FPS", "30")
	t.Setenv("AIRCUT_HAND_CONFIDENCE", "0.6")
	t.Setenv("AIRCUT_AUTO_STOP_GRACE", "3s")
	t.Setenv("AIRCUT_MOTION_GATING", "false")
	t.Setenv("AIRCUT_PROCESS_EVERY_N", "2")

	cfg := Load()

	if cfg.BackendURL != "ws://example.test:9000/ws/frames" {
		t.Errorf("BackendURL = %q", cfg.BackendURL)
	}
	if cfg.TargetFPS != 30 {
		t.Errorf("TargetFPS = %f, want 30", cfg.TargetFPS)
	}
	if cfg.HandConfidence != 0.6 {
		t.Errorf("HandConfidence = %f, want 0.6", cfg.HandConfidence)
	}
	if cfg.AutoStopGrace != 3*time.Second {
		t.Errorf("AutoStopGrace = %v, want 3s", cfg.AutoStopGrace)
	}
	if cfg.MotionGating {
		t.Error("MotionGating should be disabled")
	}
	if cfg.ProcessEveryN != 2 {
		t.Errorf("ProcessEveryN = %d, want 2", cfg.ProcessEveryN)
	}
}

func TestLoad_MalformedEnvFallsBack(t *testing.T) {
	t.Setenv("AIRCUT_TARGET_FPS", "fast")
	t.Setenv("AIRCUT_AUTO_START_DELAY", "soon")
	t.Setenv("AIRCUT_MOTION_GATING", "maybe")

	cfg := Load()
	def := Default()

	if cfg.TargetFPS != def.TargetFPS {
		t.Errorf("TargetFPS = %f, want the default %f", cfg.TargetFPS, def.TargetFPS)
	}
	if cfg.AutoStartDelay != def.AutoStartDelay {
		t.Errorf("AutoStartDelay = %v, want the default %v", cfg.AutoStartDelay, def.AutoStartDelay)
	}
	if cfg.MotionGating != def.MotionGating {
		t.Errorf("MotionGating = %v, want the default %v", cfg.MotionGating, def.MotionGating)
	}
}
