package gesture

import (
	"math"
	"testing"

	"github.com/furkanksl/aircut/internal/trajectory"
)

func TestNormalize_FitsUnitSquare(t *testing.T) {
	path := trajectory.Trajectory{
		{X: 100, Y: 200},
		{X: 300, Y: 400},
		{X: 200, Y: 300},
	}

	out := Normalize(path)
	if len(out) != len(path) {
		t.Fatalf("len = %d, want %d", len(out), len(path))
	}
	for i, p := range out {
		if p.X < 0 || p.X > 1 || p.Y < 0 || p.Y > 1 {
			t.Errorf("point %d = %+v, outside the unit square", i, p)
		}
	}
	if out[0].X != 0 || out[0].Y != 0 {
		t.Errorf("min corner = %+v, want (0,0)", out[0])
	}
	if out[1].X != 1 || out[1].Y != 1 {
		t.Errorf("max corner = %+v, want (1,1)", out[1])
	}
}

func TestNormalize_PositionAndScaleInvariant(t *testing.T) {
	small := trajectory.Trajectory{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.1}, {X: 0.2, Y: 0.2}}
	large := trajectory.Trajectory{{X: 0.5, Y: 0.5}, {X: 0.9, Y: 0.5}, {X: 0.9, Y: 0.9}}

	a := Normalize(small)
	b := Normalize(large)
	for i := range a {
		if math.Abs(a[i].X-b[i].X) > 1e-9 || math.Abs(a[i].Y-b[i].Y) > 1e-9 {
			t.Errorf("point %d differs after normalization: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestNormalize_Degenerate(t *testing.T) {
	if out := Normalize(nil); out != nil {
		t.Errorf("Normalize(nil) = %v, want nil", out)
	}

	single := Normalize(trajectory.Trajectory{{X: 0.7, Y: 0.3}})
	if len(single) != 1 || single[0].X != 0 || single[0].Y != 0 {
		t.Errorf("Normalize(single) = %v, want [(0,0)]", single)
	}

	// A horizontal line has zero Y extent; that axis collapses to 0.
	line := Normalize(trajectory.Trajectory{{X: 0, Y: 0.5}, {X: 1, Y: 0.5}})
	for i, p := range line {
		if p.Y != 0 {
			t.Errorf("point %d Y = %f, want 0", i, p.Y)
		}
	}
	if line[0].X != 0 || line[1].X != 1 {
		t.Errorf("X values = %f, %f, want 0, 1", line[0].X, line[1].X)
	}
}

func TestResample_TargetCount(t *testing.T) {
	path := make(trajectory.Trajectory, 100)
	for i := range path {
		path[i] = trajectory.Point{X: float64(i) / 99, Y: 0}
	}

	out := Resample(path, MaxComparePoints)
	if len(out) != MaxComparePoints {
		t.Fatalf("len = %d, want %d", len(out), MaxComparePoints)
	}
	if out[0] != path[0] {
		t.Errorf("start = %+v, want %+v", out[0], path[0])
	}
	if out[len(out)-1] != path[len(path)-1] {
		t.Errorf("end = %+v, want %+v", out[len(out)-1], path[len(path)-1])
	}
}

func TestResample_EvenSpacing(t *testing.T) {
	// Unevenly sampled line: dense at the start, sparse at the end.
	path := trajectory.Trajectory{
		{X: 0, Y: 0}, {X: 0.01, Y: 0}, {X: 0.02, Y: 0}, {X: 0.03, Y: 0}, {X: 1, Y: 0},
	}

	out := Resample(path, 4)
	if len(out) != 4 {
		t.Fatalf("len = %d, want 4", len(out))
	}

	step := out[1].X - out[0].X
	for i := 2; i < len(out); i++ {
		if math.Abs((out[i].X-out[i-1].X)-step) > 1e-6 {
			t.Errorf("spacing between points %d and %d = %f, want %f", i-1, i, out[i].X-out[i-1].X, step)
		}
	}
}

func TestResample_ReturnsShortUnchanged(t *testing.T) {
	path := trajectory.Trajectory{{X: 0, Y: 0}, {X: 1, Y: 1}}

	if out := Resample(path, 50); len(out) != 2 {
		t.Errorf("len = %d, want 2 (below target stays unchanged)", len(out))
	}
	if out := Resample(path, 2); len(out) != 2 {
		t.Errorf("len = %d, want 2 (already at target)", len(out))
	}
	if out := Resample(nil, 10); out != nil {
		t.Errorf("Resample(nil) = %v, want nil", out)
	}
}

func TestResample_ZeroLengthPath(t *testing.T) {
	// All points coincide: nothing to walk, input comes back unchanged.
	path := trajectory.Trajectory{{X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.5}, {X: 0.5, Y: 0.5}}
	if out := Resample(path, 2); len(out) != 3 {
		t.Errorf("len = %d, want 3", len(out))
	}
}
