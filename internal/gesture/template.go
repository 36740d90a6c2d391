// Package gesture provides the stateless matching engine that scores a drawn
// trajectory against saved templates using Dynamic Time Warping.
package gesture

import "github.com/furkanksl/aircut/internal/trajectory"

// Template is a named, persisted trajectory with an optional associated
// command, used as a matching target. Templates are read-only inputs to the
// engine.
type Template struct {
	ID      string                `json:"id"`
	Name    string                `json:"name"`
	Command string                `json:"command,omitempty"`
	Points  trajectory.Trajectory `json:"trajectory"`
}

// MatchResult describes the best template match for a candidate trajectory.
type MatchResult struct {
	TemplateID   string  `json:"template_id"`
	TemplateName string  `json:"template_name"`
	Command      string  `json:"command,omitempty"`
	Similarity   float64 `json:"similarity"`
}
