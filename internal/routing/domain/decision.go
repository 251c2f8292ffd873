package domain

import "github.com/google/uuid"

// Action is the outcome of the allocation decision.
type Action string

const (
	ActionAutoAssign  Action = "auto_assign"
	ActionRecommend   Action = "recommend"
	ActionNoCandidate Action = "no_candidate"
)

// Decision is produced fresh for every routing run; nothing is remembered
// between invocations.
type Decision struct {
	Action          Action
	PartnerID       uuid.UUID   // set for ActionAutoAssign
	Selected        *Candidate  // set for ActionAutoAssign
	Recommendations []Candidate // top candidates for ActionRecommend
}
