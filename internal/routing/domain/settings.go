package domain

import "time"

const (
	DefaultRegionWeight        = 50
	DefaultPerformanceWeight   = 50
	DefaultFairnessWeight      = 50
	DefaultAutoAssign          = true
	DefaultAutoAssignThreshold = 70
)

// RouterSettings is an immutable snapshot of the operator-tunable routing
// configuration. Callers fetch it once per operation and pass it down.
type RouterSettings struct {
	RegionWeight        int       `json:"regionWeight"`
	PerformanceWeight   int       `json:"performanceWeight"`
	FairnessWeight      int       `json:"fairnessWeight"`
	AutoAssign          bool      `json:"autoAssign"`
	AutoAssignThreshold int       `json:"autoAssignThreshold"`
	UpdatedBy           string    `json:"updatedBy,omitempty"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings used before any operator change.
func DefaultSettings() RouterSettings {
	return RouterSettings{
		RegionWeight:        DefaultRegionWeight,
		PerformanceWeight:   DefaultPerformanceWeight,
		FairnessWeight:      DefaultFairnessWeight,
		AutoAssign:          DefaultAutoAssign,
		AutoAssignThreshold: DefaultAutoAssignThreshold,
		UpdatedBy:           "system",
	}
}
