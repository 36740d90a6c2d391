// Package stream owns the connection to the detector backend: the frame
// pacer that decides which camera frames are worth sending, and the
// websocket session that carries frames out and detection events in.
package stream

import (
	"encoding/json"
	"fmt"

	"github.com/furkanksl/aircut/internal/detector"
	"github.com/furkanksl/aircut/internal/trajectory"
)

// MessageType discriminates the JSON message envelopes on the wire. There is
// no versioning field; shape changes are breaking.
type MessageType string

// Outbound message types.
const (
	TypeFrame            MessageType = "frame"
	TypeStartTracking    MessageType = "start_tracking"
	TypeStopTracking     MessageType = "stop_tracking"
	TypeUpdateConfidence MessageType = "update_confidence"
	TypeRecognizeGesture MessageType = "recognize_gesture"
	TypePing             MessageType = "ping"
)

// Inbound message types.
const (
	TypeDetection             MessageType = "detection"
	TypeFrameReceived         MessageType = "frame_received"
	TypeTrackingStarted       MessageType = "tracking_started"
	TypeTrackingStopped       MessageType = "tracking_stopped"
	TypeConnectionEstablished MessageType = "connection_established"
	TypeConfidenceUpdated     MessageType = "confidence_updated"
	TypeGestureRecognized     MessageType = "gesture_recognized"
	TypeGestureNotRecognized  MessageType = "gesture_not_recognized"
	TypePong                  MessageType = "pong"
	TypeError                 MessageType = "error"
)

// envelope is used to peek at the discriminator before the full decode.
type envelope struct {
	Type MessageType `json:"type"`
}

// FrameMessage carries one encoded camera frame to the detector.
type FrameMessage struct {
	Type      MessageType `json:"type"`
	Data      string      `json:"data"` // base64 JPEG
	Timestamp int64       `json:"timestamp"`
	Width     int         `json:"width"`
	Height    int         `json:"height"`
}

// ControlMessage is a bare type-only command (start/stop tracking, ping).
type ControlMessage struct {
	Type MessageType `json:"type"`
}

// UpdateConfidenceMessage pushes new confidence thresholds to the backend.
type UpdateConfidenceMessage struct {
	Type                         MessageType `json:"type"`
	HandDetectionConfidence      float64     `json:"hand_detection_confidence"`
	GestureRecognitionConfidence float64     `json:"gesture_recognition_confidence"`
}

// TemplatePayload is the wire form of a template sent with a recognition
// request.
type TemplatePayload struct {
	Name       string                `json:"name"`
	Command    string                `json:"command,omitempty"`
	Trajectory trajectory.Trajectory `json:"trajectory"`
}

// RecognizeGestureMessage asks the backend to match a finished trajectory
// against the supplied templates. The backend is stateless: templates travel
// with every request.
type RecognizeGestureMessage struct {
	Type                MessageType           `json:"type"`
	Trajectory          trajectory.Trajectory `json:"trajectory"`
	ConfidenceThreshold float64               `json:"confidence_threshold"`
	Templates           []TemplatePayload     `json:"templates"`
}

// DetectionMessage is the backend's per-frame result. Detection is null when
// nothing was found, which is still a completion signal.
type DetectionMessage struct {
	Type      MessageType         `json:"type"`
	Detection *detector.Detection `json:"detection"`
	Timestamp float64             `json:"timestamp"`
}

// ConnectionEstablishedMessage is the first message after the socket opens.
type ConnectionEstablishedMessage struct {
	Type                     MessageType `json:"type"`
	Message                  string      `json:"message,omitempty"`
	CurrentHandConfidence    float64     `json:"current_hand_confidence"`
	CurrentGestureConfidence float64     `json:"current_gesture_confidence"`
}

// ConfidenceUpdatedMessage acknowledges an update_confidence request.
type ConfidenceUpdatedMessage struct {
	Type                         MessageType `json:"type"`
	HandDetectionConfidence      float64     `json:"hand_detection_confidence"`
	GestureRecognitionConfidence float64     `json:"gesture_recognition_confidence"`
}

// GestureRecognizedMessage reports a successful backend-side match.
type GestureRecognizedMessage struct {
	Type         MessageType `json:"type"`
	TemplateName string      `json:"template_name"`
	Similarity   float64     `json:"similarity"`
	Command      string      `json:"command"`
}

// GestureNotRecognizedMessage reports a normal negative recognition result.
type GestureNotRecognizedMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message,omitempty"`
}

// ErrorMessage is a backend application error; it does not end the session.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// peekType extracts the type discriminator from a raw message.
func peekType(data []byte) (MessageType, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("parse message envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("message has no type discriminator")
	}
	return env.Type, nil
}
