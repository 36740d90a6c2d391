package gesture

import "github.com/furkanksl/aircut/internal/trajectory"

// MaxComparePoints caps the number of points fed into the DTW comparison.
// Longer trajectories are resampled down by arc length first.
const MaxComparePoints = 50

// Normalize translates and scales a trajectory so its bounding box fits the
// unit square. This removes dependence on absolute screen position and
// overall gesture size. A degenerate axis (zero extent) collapses to 0.
func Normalize(t trajectory.Trajectory) trajectory.Trajectory {
	n := len(t)
	if n == 0 {
		return nil
	}
	if n == 1 {
		return trajectory.Trajectory{{X: 0, Y: 0}}
	}

	minX, maxX := t[0].X, t[0].X
	minY, maxY := t[0].Y, t[0].Y
	for _, p := range t {
		if p.X < minX {
			minX = p.X
		}
		if p.X > maxX {
			maxX = p.X
		}
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY

	out := make(trajectory.Trajectory, n)
	for i, p := range t {
		var x, y float64
		if rangeX > 0 {
			x = (p.X - minX) / rangeX
		}
		if rangeY > 0 {
			y = (p.Y - minY) / rangeY
		}
		out[i] = trajectory.Point{X: x, Y: y}
	}
	return out
}

// Resample redistributes a trajectory to exactly target points spaced at
// equal intervals along the path, preserving the start and end points.
// Trajectories at or below the target (or degenerate ones) are returned
// unchanged.
func Resample(t trajectory.Trajectory, target int) trajectory.Trajectory {
	if target <= 1 || len(t) <= target {
		return t
	}

	total := pathLength(t)
	if total == 0 {
		return t
	}

	out := make(trajectory.Trajectory, 0, target)
	out = append(out, t[0])

	step := total / float64(target-1)
	walked := 0.0
	seg := 0

	for i := 1; i < target-1; i++ {
		want := float64(i) * step

		for seg < len(t)-1 {
			segLen := t[seg].DistanceTo(t[seg+1])
			if walked+segLen >= want {
				// Interpolate within this segment.
				if segLen > 0 {
					ratio := (want - walked) / segLen
					out = append(out, trajectory.Point{
						X: t[seg].X + (t[seg+1].X-t[seg].X)*ratio,
						Y: t[seg].Y + (t[seg+1].Y-t[seg].Y)*ratio,
					})
				} else {
					out = append(out, t[seg])
				}
				break
			}
			walked += segLen
			seg++
		}
	}

	out = append(out, t[len(t)-1])
	return out
}

func pathLength(t trajectory.Trajectory) float64 {
	var total float64
	for i := 1; i < len(t); i++ {
		total += t[i-1].DistanceTo(t[i])
	}
	return total
}
