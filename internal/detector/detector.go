// Package detector defines the output contract of the remote hand detector.
// The detector itself is an external inference service; this package only
// models its results and derives trajectory points from them.
package detector

import "github.com/furkanksl/aircut/internal/trajectory"

// Space declares the coordinate space of a detection's bounding box.
type Space string

const (
	// SpaceNormalized means coordinates are in [0,1] relative to the frame.
	SpaceNormalized Space = "normalized"
	// SpacePixel means coordinates are absolute pixel values.
	SpacePixel Space = "pixel"
	// SpaceUnknown means the backend did not declare a space; the magnitude
	// heuristic decides. Backends should declare their space explicitly, a
	// pixel box near the frame origin is indistinguishable from a normalized
	// one.
	SpaceUnknown Space = ""
)

// Detection is one inference result for a single frame: a bounding box whose
// x,y is the box center, a class label, and a confidence. Ephemeral, one per
// inference cycle.
type Detection struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
	Class      string  `json:"class"`
	Space      Space   `json:"space,omitempty"`
}

// handClasses are the detector labels treated as a trackable hand.
var handClasses = map[string]bool{
	"hand":   true,
	"finger": true,
	"palm":   true,
	"":       true, // some backends omit the label for single-class models
}

// IsHand reports whether the detection's class is a recognized hand label.
func (d *Detection) IsHand() bool {
	return handClasses[d.Class]
}

// IsNormalized reports whether the bounding box is in normalized coordinates.
// When the space is undeclared it falls back to the magnitude heuristic: a
// box whose coordinates and size all fit in [0,1] is taken as normalized.
func (d *Detection) IsNormalized() bool {
	switch d.Space {
	case SpaceNormalized:
		return true
	case SpacePixel:
		return false
	}
	return d.X <= 1.0 && d.Y <= 1.0 && d.Width <= 1.0 && d.Height <= 1.0
}

// Point derives the normalized trajectory point for this detection: the box
// center scaled into [0,1] using the frame dimensions when the box is in
// pixel units. Returns false if the frame size is needed but unusable.
func (d *Detection) Point(frameWidth, frameHeight float64) (trajectory.Point, bool) {
	if d.IsNormalized() {
		return trajectory.Point{X: d.X, Y: d.Y}, true
	}
	if frameWidth <= 0 || frameHeight <= 0 {
		return trajectory.Point{}, false
	}
	return trajectory.Point{X: d.X / frameWidth, Y: d.Y / frameHeight}, true
}

// Filter decides which detections are worth surfacing to the rest of the
// pipeline.
type Filter struct {
	// MinConfidence is the hand-detection confidence threshold. Detections at
	// or below it are treated as "nothing to track".
	MinConfidence float64
}

// Accept reports whether d passes the confidence and class filters. A nil
// detection never passes.
func (f Filter) Accept(d *Detection) bool {
	if d == nil {
		return false
	}
	return d.Confidence > f.MinConfidence && d.IsHand()
}
