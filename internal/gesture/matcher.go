package gesture

import "github.com/furkanksl/aircut/internal/trajectory"

// MinTrajectoryPoints is the minimum number of points a trajectory needs to
// be matched or saved as a template.
const MinTrajectoryPoints = 2

// Match scores the candidate trajectory against every template and returns
// the best match whose similarity clears the threshold (inclusive). The
// second return is false when nothing matches, which is a normal negative
// outcome, not an error.
//
// Match is stateless: templates are supplied fresh on every call and never
// mutated, so concurrent calls are safe.
func Match(candidate trajectory.Trajectory, templates []Template, threshold float64) (MatchResult, bool) {
	if len(candidate) < MinTrajectoryPoints || len(templates) == 0 {
		return MatchResult{}, false
	}

	normalized := prepare(candidate)

	var best MatchResult
	found := false

	for _, tpl := range templates {
		if len(tpl.Points) < MinTrajectoryPoints {
			continue
		}

		sim := Similarity(DTWDistance(normalized, prepare(tpl.Points)))

		// Strictly-greater keeps the earliest template on equal scores.
		if sim >= threshold && (!found || sim > best.Similarity) {
			best = MatchResult{
				TemplateID:   tpl.ID,
				TemplateName: tpl.Name,
				Command:      tpl.Command,
				Similarity:   sim,
			}
			found = true
		}
	}

	return best, found
}

// prepare normalizes a trajectory into the unit square and caps its length
// for comparison.
func prepare(t trajectory.Trajectory) trajectory.Trajectory {
	n := Normalize(t)
	if len(n) > MaxComparePoints {
		n = Resample(n, MaxComparePoints)
	}
	return n
}
