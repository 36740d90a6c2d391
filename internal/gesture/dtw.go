package gesture

import (
	"math"

	"github.com/furkanksl/aircut/internal/trajectory"
)

// DTWDistance computes the Dynamic Time Warping distance between two
// trajectories: the cumulative cost of the lowest-cost monotonic alignment
// of their points under Euclidean distance, normalized by the longer length
// so the result is comparable across trajectory sizes. Returns infinity if
// either trajectory is empty.
//
// The straightforward O(n*m) table is fine at the lengths involved (tens to
// low hundreds of points).
func DTWDistance(a, b trajectory.Trajectory) float64 {
	n := len(a)
	m := len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}

	dtw := make([][]float64, n+1)
	for i := range dtw {
		dtw[i] = make([]float64, m+1)
		for j := range dtw[i] {
			dtw[i][j] = math.Inf(1)
		}
	}
	dtw[0][0] = 0

	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := a[i-1].DistanceTo(b[j-1])
			dtw[i][j] = cost + min3(dtw[i-1][j], dtw[i][j-1], dtw[i-1][j-1])
		}
	}

	return dtw[n][m] / float64(maxInt(n, m))
}

// Similarity maps a DTW distance to a bounded score in [0,1]: identical
// trajectories score 1.0 and the score strictly decreases as distance grows.
func Similarity(distance float64) float64 {
	if math.IsInf(distance, 1) {
		return 0
	}
	return 1.0 / (1.0 + distance)
}

func min3(a, b, c float64) float64 {
	if a <= b && a <= c {
		return a
	}
	if b <= c {
		return b
	}
	return c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
