package domain

import "time"

// BucketStatus classifies the supply/demand balance of a bucket.
type BucketStatus string

const (
	BucketShortage     BucketStatus = "shortage"
	BucketOvercapacity BucketStatus = "overcapacity"
	BucketBalanced     BucketStatus = "balanced"
)

// DistributionBucket aggregates leads and partners for one branch × region.
type DistributionBucket struct {
	Branch               string       `json:"branch"`
	Region               string       `json:"region"`
	PartnerCount         int          `json:"partners"`
	LeadCount            int          `json:"leads"`
	Ratio                float64      `json:"ratio"`
	Status               BucketStatus `json:"status"`
	VarianceContribution float64      `json:"varianceContribution"`
}

// FairnessSummary describes how evenly leads are spread across partners.
type FairnessSummary struct {
	AvgWaitHours float64 `json:"avgWaitHours"`
	Variance     float64 `json:"variance"`
	StdDevHours  float64 `json:"stdDevHours"`
	PartnerCount int     `json:"partnerCount"`
}

// DistributionReport is the derived, discardable output of a fairness run.
type DistributionReport struct {
	Window         time.Duration        `json:"window"`
	GeneratedAt    time.Time            `json:"generatedAt"`
	Buckets        []DistributionBucket `json:"buckets"`
	Shortages      []DistributionBucket `json:"shortages"`
	Overcapacity   []DistributionBucket `json:"overcapacity"`
	Fairness       FairnessSummary      `json:"fairness"`
	SkippedRecords int                  `json:"skippedRecords"`
}
