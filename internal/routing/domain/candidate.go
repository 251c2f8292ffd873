package domain

import "github.com/google/uuid"

// Weights are the normalised blend weights used for a score. They always
// sum to 1.
type Weights struct {
	Branch      float64 `json:"branch"`
	Region      float64 `json:"region"`
	Performance float64 `json:"performance"`
	Fairness    float64 `json:"fairness"`
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.Branch + w.Region + w.Performance + w.Fairness
}

// Factors is the per-factor breakdown of a partner's score. Every sub-score
// is on a 0-100 scale before weighting.
type Factors struct {
	BranchMatch   float64  `json:"branchMatch"`
	RegionMatch   float64  `json:"regionMatch"`
	Performance   float64  `json:"performance"`
	Fairness      float64  `json:"fairness"`
	ResponseSpeed *float64 `json:"responseSpeed,omitempty"`
	// UrgencyBonus shifts performance toward response speed for urgent
	// leads. It is weighted like Performance and may be negative.
	UrgencyBonus  float64 `json:"urgencyBonus,omitempty"`
	WaitHours     float64 `json:"waitHours"`
	NeverAssigned bool    `json:"neverAssigned"`
	NewPartner    bool    `json:"newPartner"`
	Weights       Weights `json:"weights"`
}

// Candidate is a scored partner for a specific lead.
type Candidate struct {
	PartnerID    uuid.UUID `json:"partnerId"`
	PartnerName  string    `json:"partnerName"`
	TotalScore   float64   `json:"totalScore"`
	Factors      Factors   `json:"factors"`
	OpenLeads    int       `json:"openLeads"`
	MaxOpenLeads int       `json:"maxOpenLeads"`
}
