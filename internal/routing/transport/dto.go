// Package transport holds the request and response shapes of the routing API.
package transport

import (
	"time"

	"lead_router_backend/internal/routing/domain"

	"github.com/google/uuid"
)

// MaxBulkLeads caps a single bulk auto-assign request.
const MaxBulkLeads = 100

type ManualAssignRequest struct {
	PartnerID uuid.UUID `json:"partnerId" validate:"required"`
}

type BulkAutoAssignRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=100,unique,dive,required"`
}

// UpdateSettingsRequest replaces the whole settings record. Ranges are
// checked by the settings store so that out-of-range values surface as
// configuration errors.
type UpdateSettingsRequest struct {
	RegionWeight        *int  `json:"regionWeight" validate:"required"`
	PerformanceWeight   *int  `json:"performanceWeight" validate:"required"`
	FairnessWeight      *int  `json:"fairnessWeight" validate:"required"`
	AutoAssign          *bool `json:"autoAssign" validate:"required"`
	AutoAssignThreshold *int  `json:"autoAssignThreshold" validate:"required"`
}

type DistributionQuery struct {
	WindowDays int `form:"windowDays" validate:"omitempty,min=1,max=365"`
}

// Window converts the query to a duration. Zero means the default window.
func (q DistributionQuery) Window() time.Duration {
	return time.Duration(q.WindowDays) * 24 * time.Hour
}

type SettingsResponse struct {
	RegionWeight        int            `json:"regionWeight"`
	PerformanceWeight   int            `json:"performanceWeight"`
	FairnessWeight      int            `json:"fairnessWeight"`
	AutoAssign          bool           `json:"autoAssign"`
	AutoAssignThreshold int            `json:"autoAssignThreshold"`
	EffectiveWeights    domain.Weights `json:"effectiveWeights"`
	UpdatedBy           string         `json:"updatedBy,omitempty"`
	UpdatedAt           time.Time      `json:"updatedAt"`
}

type BucketResponse struct {
	Branch               string  `json:"branch"`
	Region               string  `json:"region"`
	Partners             int     `json:"partners"`
	Leads                int     `json:"leads"`
	Ratio                float64 `json:"ratio"`
	Status               string  `json:"status"`
	VarianceContribution float64 `json:"varianceContribution"`
}

type DistributionResponse struct {
	WindowDays     float64                `json:"windowDays"`
	GeneratedAt    time.Time              `json:"generatedAt"`
	Buckets        []BucketResponse       `json:"buckets"`
	Shortages      []BucketResponse       `json:"shortages"`
	Overcapacity   []BucketResponse       `json:"overcapacity"`
	Fairness       domain.FairnessSummary `json:"fairness"`
	SkippedRecords int                    `json:"skippedRecords"`
}
