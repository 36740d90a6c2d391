// Package trajectory records air-drawn hand paths as ordered point sequences.
package trajectory

import "math"

// MinPointDistance is the default minimum normalized distance between two
// consecutive recorded points. Detections closer than this to the previous
// point are discarded so a held-still hand does not grow the trajectory.
const MinPointDistance = 0.005

// Point is a position normalized to [0,1] relative to the frame size,
// origin top-left.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance to another point.
func (p Point) DistanceTo(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Trajectory is an ordered sequence of points, insertion order = temporal order.
type Trajectory []Point

// Extend appends p to the trajectory if it is farther than minDist from the
// last recorded point. It returns the (possibly grown) trajectory and whether
// the point was accepted.
func (t Trajectory) Extend(p Point, minDist float64) (Trajectory, bool) {
	if n := len(t); n > 0 && t[n-1].DistanceTo(p) <= minDist {
		return t, false
	}
	return append(t, p), true
}

// Clone returns an independent copy of the trajectory.
func (t Trajectory) Clone() Trajectory {
	if t == nil {
		return nil
	}
	out := make(Trajectory, len(t))
	copy(out, t)
	return out
}
