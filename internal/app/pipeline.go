package app

import (
	"log"
	"time"

	"github.com/furkanksl/aircut/internal/capture"
	"github.com/furkanksl/aircut/internal/stream"
	"github.com/furkanksl/aircut/internal/trajectory"
)

// runPipeline is the capture tick loop. Ticks fire at twice the target frame
// rate; the pacer's eligibility window decides which ticks actually become
// frames, so pacing stays correct even as the configuration changes.
func (a *App) runPipeline(stopCh chan struct{}) {
	tickRate := a.settings.TargetFPS * 2
	if tickRate <= 0 {
		tickRate = 2 * stream.DefaultTargetFPS
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / tickRate))
	defer ticker.Stop()

	lastMotion := time.Now()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !a.IsTracking() {
				continue
			}

			frame, err := a.camera.ReadFrame()
			if err != nil {
				if err != capture.ErrCameraNotOpen {
					log.Printf("Error reading frame: %v", err)
				}
				continue
			}

			// While nothing moves and nothing is being drawn, skip the
			// round trip to the detector entirely. Once drawing begins the
			// backend must keep seeing frames so hand absence stays
			// observable for auto-stop.
			if a.settings.MotionGating && a.recorder.State() == trajectory.StateIdle {
				if active, _ := a.motion.Sample(frame); active {
					lastMotion = time.Now()
				} else if time.Since(lastMotion) > idleMotionWindow {
					frame.Close()
					continue
				}
			}

			width, height := frame.Cols(), frame.Rows()
			sent := a.pacer.Offer(func() (stream.Frame, error) {
				data, err := capture.EncodeJPEG(frame, a.settings.Quality)
				if err != nil {
					return stream.Frame{}, err
				}
				return stream.Frame{
					Data:      data,
					Timestamp: time.Now(),
					Width:     width,
					Height:    height,
				}, nil
			})
			frame.Close()

			if sent {
				a.markFrameSent(width, height)
			}
		}
	}
}
