package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/furkanksl/aircut/internal/app"
	"github.com/furkanksl/aircut/internal/detector"
	"github.com/furkanksl/aircut/internal/gesture"
	"github.com/furkanksl/aircut/internal/server"
	"github.com/furkanksl/aircut/internal/store"
	"github.com/furkanksl/aircut/internal/stream"
	"github.com/furkanksl/aircut/internal/trajectory"
	"github.com/furkanksl/aircut/testdata"
)

// fakeBackend is a minimal detector backend: it acknowledges the handshake
// and replays a scripted detection for every frame it receives.
type fakeBackend struct {
	upgrader websocket.Upgrader

	mu         sync.Mutex
	detections []*detector.Detection
	next       int
}

func (b *fakeBackend) pop() *detector.Detection {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.next >= len(b.detections) {
		return nil
	}
	d := b.detections[b.next]
	b.next++
	return d
}

func (b *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := b.upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		conn.WriteJSON(map[string]any{
			"type":                      "connection_established",
			"current_hand_confidence":   0.75,
			"current_gesture_confidence": 0.85,
		})

		for {
			var msg map[string]any
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			switch msg["type"] {
			case "frame":
				conn.WriteJSON(map[string]any{"type": "frame_received"})
				resp := map[string]any{"type": "detection"}
				if d := b.pop(); d != nil {
					resp["detection"] = d
				}
				conn.WriteJSON(resp)
			case "start_tracking":
				conn.WriteJSON(map[string]any{"type": "tracking_started"})
			case "stop_tracking":
				conn.WriteJSON(map[string]any{"type": "tracking_stopped"})
			case "ping":
				conn.WriteJSON(map[string]any{"type": "pong"})
			}
		}
	}
}

func scriptedDetections(path trajectory.Trajectory) []*detector.Detection {
	out := make([]*detector.Detection, len(path))
	for i, p := range path {
		out[i] = &detector.Detection{
			X:          p.X,
			Y:          p.Y,
			Confidence: 0.95,
			Class:      "hand",
			Space:      detector.SpaceNormalized,
		}
	}
	return out
}

// TestE2E_StreamToRecognition drives the full loop: frames out, detections
// back, recorder capture, local match against a stored template.
func TestE2E_StreamToRecognition(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	circle := testdata.Circle(0.5, 0.5, 0.2, 24)
	if err := s.Templates().Create(&store.Template{
		ID:      "tpl-circle",
		Name:    "circle",
		Command: "",
		Points:  circle,
	}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	backend := &fakeBackend{detections: scriptedDetections(circle)}
	ts := httptest.NewServer(backend.handler(t))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	recorder := trajectory.NewRecorder(trajectory.Config{
		AutoStartDelay: 20 * time.Millisecond,
		AutoStopGrace:  50 * time.Millisecond,
	})

	recognized := make(chan gesture.MatchResult, 1)
	recorder.OnComplete = func(traj trajectory.Trajectory) {
		stored, err := s.Templates().List()
		if err != nil {
			t.Errorf("List() error = %v", err)
			return
		}
		templates := make([]gesture.Template, len(stored))
		for i, tpl := range stored {
			templates[i] = gesture.Template{ID: tpl.ID, Name: tpl.Name, Command: tpl.Command, Points: tpl.Points}
		}
		if result, ok := gesture.Match(traj, templates, 0.85); ok {
			recognized <- result
		}
	}

	completed := make(chan struct{}, 64)
	session := stream.NewSession(stream.SessionConfig{
		URL:            wsURL,
		HandConfidence: 0.75,
	}, stream.Handlers{
		OnCompletion: func() { completed <- struct{}{} },
		OnDetection: func(d *detector.Detection) {
			if d == nil {
				recorder.HandleDetection(nil)
				return
			}
			pt, ok := d.Point(640, 480)
			if !ok {
				recorder.HandleDetection(nil)
				return
			}
			recorder.HandleDetection(&pt)
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := session.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer session.Close()

	if err := session.StartTracking(); err != nil {
		t.Fatalf("StartTracking() error = %v", err)
	}

	sendFrame := func() {
		err := session.SendFrame(stream.Frame{
			Data:      []byte{0xff, 0xd8},
			Timestamp: time.Now(),
			Width:     640,
			Height:    480,
		})
		if err != nil {
			t.Fatalf("SendFrame() error = %v", err)
		}
		select {
		case <-completed:
		case <-time.After(time.Second):
			t.Fatal("frame never completed")
		}
	}

	// First detection arms the auto-start countdown; let it elapse so the
	// recorder is drawing before the rest of the path streams in.
	sendFrame()
	time.Sleep(40 * time.Millisecond)
	for i := 1; i < len(circle); i++ {
		sendFrame()
	}

	// The script is exhausted, so further frames report hand absence and the
	// grace window finalizes the trajectory.
	sendFrame()

	select {
	case result := <-recognized:
		if result.TemplateName != "circle" {
			t.Errorf("TemplateName = %q, want %q", result.TemplateName, "circle")
		}
		if result.Similarity < 0.85 {
			t.Errorf("Similarity = %f, want >= 0.85", result.Similarity)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("gesture was never recognized")
	}
}

// fakeController satisfies server.Controller without a camera or backend.
type fakeController struct {
	mu       sync.Mutex
	tracking bool
}

func (c *fakeController) Status() app.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return app.Status{
		SessionState: "disconnected",
		Tracking:     c.tracking,
		DrawingState: "idle",
	}
}

func (c *fakeController) Connect(ctx context.Context) error { return nil }

func (c *fakeController) SetTracking(enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracking = enabled
	return nil
}

func (c *fakeController) StopDrawing()  {}
func (c *fakeController) ClearDrawing() {}

func (c *fakeController) SaveTemplate(name, command string) (*store.Template, error) {
	return nil, store.ErrTooFewPoints
}

func (c *fakeController) UpdateConfidence(hand, gesture float64) error { return nil }

func (c *fakeController) OnRecognized(fn func(gesture.MatchResult)) {}

func (c *fakeController) OnSessionState(fn func(stream.SessionState)) {}

// TestE2E_ControlAPI exercises template CRUD and tracking control over HTTP.
func TestE2E_ControlAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	defer s.Close()

	srv := server.New(server.Config{Store: s, App: &fakeController{}})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	client := ts.Client()

	var created struct {
		ID string `json:"id"`
	}

	t.Run("CreateTemplate", func(t *testing.T) {
		body := map[string]any{
			"name":       "swipe-right",
			"command":    "echo next",
			"trajectory": testdata.Line(0.2, 0.5, 0.8, 0.5, 12),
		}
		data, _ := json.Marshal(body)
		resp, err := client.Post(ts.URL+"/api/templates", "application/json", strings.NewReader(string(data)))
		if err != nil {
			t.Fatalf("create template error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
		json.NewDecoder(resp.Body).Decode(&created)
		if created.ID == "" {
			t.Fatal("expected an id in the create response")
		}
	})

	t.Run("RejectTooShort", func(t *testing.T) {
		resp, err := client.Post(
			ts.URL+"/api/templates",
			"application/json",
			strings.NewReader(`{"name": "dot", "trajectory": [{"x": 0.5, "y": 0.5}]}`),
		)
		if err != nil {
			t.Fatalf("create template error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
		}
	})

	t.Run("ListTemplates", func(t *testing.T) {
		resp, err := client.Get(ts.URL + "/api/templates")
		if err != nil {
			t.Fatalf("list templates error = %v", err)
		}
		defer resp.Body.Close()

		var listResp struct {
			Templates []struct {
				ID      string `json:"id"`
				Name    string `json:"name"`
				Command string `json:"command"`
			} `json:"templates"`
		}
		json.NewDecoder(resp.Body).Decode(&listResp)

		if len(listResp.Templates) != 1 {
			t.Fatalf("expected 1 template, got %d", len(listResp.Templates))
		}
		if listResp.Templates[0].Name != "swipe-right" {
			t.Errorf("name = %q, want %q", listResp.Templates[0].Name, "swipe-right")
		}
	})

	t.Run("ToggleTracking", func(t *testing.T) {
		resp, err := client.Post(ts.URL+"/api/tracking", "application/json", strings.NewReader(`{"enabled": true}`))
		if err != nil {
			t.Fatalf("tracking error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}

		resp, err = client.Get(ts.URL + "/api/status")
		if err != nil {
			t.Fatalf("status error = %v", err)
		}
		defer resp.Body.Close()

		var st struct {
			Tracking bool `json:"tracking"`
		}
		json.NewDecoder(resp.Body).Decode(&st)
		if !st.Tracking {
			t.Error("tracking should be enabled after toggle")
		}
	})

	t.Run("DeleteTemplate", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/templates/"+created.ID, nil)
		resp, err := client.Do(req)
		if err != nil {
			t.Fatalf("delete template error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNoContent)
		}

		resp, err = client.Get(ts.URL + "/api/templates/" + created.ID)
		if err != nil {
			t.Fatalf("get template error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("status after delete = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})
}
