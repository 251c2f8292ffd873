// Package tuning holds the implementation-fixed routing constants. They are
// not operator-tunable at runtime, but can be overridden per deployment with
// a YAML file.
package tuning

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning groups the constants used by scoring, allocation and analytics.
type Tuning struct {
	// BranchWeight is the fixed share of the total score given to branch match.
	BranchWeight float64 `yaml:"branch_weight"`
	// PartialCredit is the sub-score for a partner that accepts any branch/region.
	PartialCredit float64 `yaml:"partial_credit"`
	// NeutralPerformance is the performance sub-score for partners without history.
	NeutralPerformance float64 `yaml:"neutral_performance"`
	// FairnessCeiling is the wait time at which the fairness sub-score reaches 100.
	FairnessCeiling time.Duration `yaml:"fairness_ceiling"`
	// UrgentResponseShare is the share of the performance sub-score taken by
	// response speed for urgent leads.
	UrgentResponseShare float64 `yaml:"urgent_response_share"`
	// RecommendationLimit caps the manual-review recommendation list.
	RecommendationLimit int `yaml:"recommendation_limit"`
	// MaxRouteAttempts bounds pipeline restarts after a capacity race loss.
	MaxRouteAttempts int `yaml:"max_route_attempts"`
	// ShortageRatio marks a bucket as shortage when leads/partners reaches it.
	ShortageRatio float64 `yaml:"shortage_ratio"`
	// OvercapacityRatio marks a bucket as overcapacity below it.
	OvercapacityRatio float64 `yaml:"overcapacity_ratio"`
	// DistributionWindow is the default trailing window for the distribution report.
	DistributionWindow time.Duration `yaml:"distribution_window"`
}

// Default returns the built-in tuning.
func Default() Tuning {
	return Tuning{
		BranchWeight:        0.10,
		PartialCredit:       50,
		NeutralPerformance:  50,
		FairnessCeiling:     48 * time.Hour,
		UrgentResponseShare: 0.30,
		RecommendationLimit: 5,
		MaxRouteAttempts:    3,
		ShortageRatio:       5,
		OvercapacityRatio:   0.5,
		DistributionWindow:  7 * 24 * time.Hour,
	}
}

// Load reads a YAML override file on top of Default. An empty path returns
// the defaults.
func Load(path string) (Tuning, error) {
	t := Default()
	if path == "" {
		return t, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning file: %w", err)
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, err
	}
	return t, nil
}

// Validate checks that every constant is within its usable range.
func (t Tuning) Validate() error {
	switch {
	case t.BranchWeight < 0 || t.BranchWeight >= 1:
		return fmt.Errorf("branch_weight must be in [0,1), got %v", t.BranchWeight)
	case t.PartialCredit < 0 || t.PartialCredit > 100:
		return fmt.Errorf("partial_credit must be in [0,100], got %v", t.PartialCredit)
	case t.NeutralPerformance < 0 || t.NeutralPerformance > 100:
		return fmt.Errorf("neutral_performance must be in [0,100], got %v", t.NeutralPerformance)
	case t.FairnessCeiling <= 0:
		return fmt.Errorf("fairness_ceiling must be positive, got %v", t.FairnessCeiling)
	case t.UrgentResponseShare < 0 || t.UrgentResponseShare > 1:
		return fmt.Errorf("urgent_response_share must be in [0,1], got %v", t.UrgentResponseShare)
	case t.RecommendationLimit < 1:
		return fmt.Errorf("recommendation_limit must be at least 1, got %d", t.RecommendationLimit)
	case t.MaxRouteAttempts < 1:
		return fmt.Errorf("max_route_attempts must be at least 1, got %d", t.MaxRouteAttempts)
	case t.OvercapacityRatio < 0 || t.ShortageRatio <= t.OvercapacityRatio:
		return fmt.Errorf("ratios must satisfy 0 <= overcapacity_ratio < shortage_ratio, got %v and %v", t.OvercapacityRatio, t.ShortageRatio)
	case t.DistributionWindow <= 0:
		return fmt.Errorf("distribution_window must be positive, got %v", t.DistributionWindow)
	}
	return nil
}
