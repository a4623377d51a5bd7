package engine

import "github.com/samber/lo"

// Action records what the rewriter did with an entry.
type Action string

const (
	ActionCopied      Action = "copied"
	ActionTransformed Action = "transformed"
	ActionFallback    Action = "fallback"
)

// Outcome is the per-entry record of a rewrite.
type Outcome struct {
	Name    string `json:"name"`
	Format  Format `json:"format"`
	Action  Action `json:"action"`
	Reason  string `json:"reason,omitempty"`
	SizeIn  int    `json:"size_in"`
	SizeOut int    `json:"size_out"`
}

// Report summarizes one rewritten archive.
type Report struct {
	Outcomes   []Outcome `json:"outcomes"`
	InputSize  int64     `json:"input_size"`
	OutputSize int64     `json:"output_size"`
}

// Reduction is the size saving of the whole archive, in percent.
func (r *Report) Reduction() float64 {
	if r.InputSize == 0 {
		return 0
	}
	return (1 - float64(r.OutputSize)/float64(r.InputSize)) * 100
}

// Count returns how many entries ended with the given action.
func (r *Report) Count(action Action) int {
	return lo.CountBy(r.Outcomes, func(o Outcome) bool {
		return o.Action == action
	})
}

// Fallbacks returns the image entries that were copied unchanged because
// their transform failed.
func (r *Report) Fallbacks() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool {
		return o.Action == ActionFallback
	})
}
