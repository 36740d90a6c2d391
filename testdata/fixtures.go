// Package testdata provides synthetic trajectories and frames for tests.
package testdata

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"

	"github.com/furkanksl/aircut/internal/trajectory"
)

// Circle returns n points tracing a circle of the given radius around
// (cx, cy), starting at angle zero.
func Circle(cx, cy, radius float64, n int) trajectory.Trajectory {
	points := make(trajectory.Trajectory, n)
	for i := 0; i < n; i++ {
		angle := 2 * math.Pi * float64(i) / float64(n)
		points[i] = trajectory.Point{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return points
}

// Line returns n evenly spaced points from (x0, y0) to (x1, y1).
func Line(x0, y0, x1, y1 float64, n int) trajectory.Trajectory {
	points := make(trajectory.Trajectory, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		points[i] = trajectory.Point{
			X: x0 + t*(x1-x0),
			Y: y0 + t*(y1-y0),
		}
	}
	return points
}

// Square returns a closed square path with pointsPerSide points on each
// edge, starting at the top-left corner (x, y).
func Square(x, y, side float64, pointsPerSide int) trajectory.Trajectory {
	corners := []trajectory.Point{
		{X: x, Y: y},
		{X: x + side, Y: y},
		{X: x + side, Y: y + side},
		{X: x, Y: y + side},
		{X: x, Y: y},
	}
	var points trajectory.Trajectory
	for i := 0; i < len(corners)-1; i++ {
		edge := Line(corners[i].X, corners[i].Y, corners[i+1].X, corners[i+1].Y, pointsPerSide)
		if i > 0 {
			edge = edge[1:]
		}
		points = append(points, edge...)
	}
	return points
}

// ZigZag returns a horizontal zig-zag of the given number of peaks.
func ZigZag(x0, y0, width, height float64, peaks int) trajectory.Trajectory {
	n := peaks*2 + 1
	points := make(trajectory.Trajectory, n)
	step := width / float64(n-1)
	for i := 0; i < n; i++ {
		y := y0
		if i%2 == 1 {
			y = y0 + height
		}
		points[i] = trajectory.Point{X: x0 + float64(i)*step, Y: y}
	}
	return points
}

// SolidFrame returns a uniform BGR frame of the given size. Callers own
// the Mat and must Close it.
func SolidFrame(width, height int, b, g, r uint8) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(float64(b), float64(g), float64(r), 0))
	return mat
}

// FrameWithBlock returns a frame with a white rectangle at (x, y), useful
// for exercising motion detection between differing frames.
func FrameWithBlock(width, height, x, y, size int) gocv.Mat {
	mat := SolidFrame(width, height, 0, 0, 0)
	gocv.Rectangle(&mat, image.Rect(x, y, x+size, y+size), color.RGBA{255, 255, 255, 255}, -1)
	return mat
}
