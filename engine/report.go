package engine

import (
	"time"

	"github.com/c360/semboot/selector"
)

// ConditionRecord captures one factory gate evaluation.
type ConditionRecord struct {
	Factory string `json:"factory"`
	Matched bool   `json:"matched"`
	Reason  string `json:"reason"`
}

// CandidateRecord groups the gate evaluations of one selected candidate.
type CandidateRecord struct {
	Name       string            `json:"name"`
	Conditions []ConditionRecord `json:"conditions"`
}

// Report describes what a startup pass decided: the selection result, every
// factory gate outcome, and the roles that ended up registered. It is
// serialized as-is on the report endpoint.
type Report struct {
	BootID     string            `json:"boot_id"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration_ns"`
	Selection  selector.Result   `json:"selection"`
	Candidates []CandidateRecord `json:"candidates"`
	Roles      []string          `json:"roles"`
	Error      string            `json:"error,omitempty"`
}

func newReport(bootID string, startedAt time.Time) *Report {
	return &Report{BootID: bootID, StartedAt: startedAt}
}

func (r *Report) finish(duration time.Duration, err error) {
	r.Duration = duration
	if err != nil {
		r.Error = err.Error()
	}
}

func (r *Report) clone() *Report {
	out := *r
	out.Candidates = make([]CandidateRecord, len(r.Candidates))
	for i, c := range r.Candidates {
		out.Candidates[i] = CandidateRecord{
			Name:       c.Name,
			Conditions: append([]ConditionRecord(nil), c.Conditions...),
		}
	}
	out.Roles = append([]string(nil), r.Roles...)
	out.Selection.Selected = append([]string(nil), r.Selection.Selected...)
	out.Selection.Excluded = append([]selector.Exclusion(nil), r.Selection.Excluded...)
	return &out
}
