// Package fairness builds the branch x region distribution report and the
// wait-time fairness summary.
package fairness

import (
	"math"
	"sort"
	"time"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/tuning"
)

type bucketKey struct {
	branch string
	region string
}

// Build computes a report from a snapshot. It never fails: malformed leads
// and partners are skipped and counted.
func Build(leads []domain.Lead, partners []domain.PartnerRecord, window time.Duration, now time.Time, t tuning.Tuning) domain.DistributionReport {
	report := domain.DistributionReport{
		Window:       window,
		GeneratedAt:  now.UTC(),
		Buckets:      []domain.DistributionBucket{},
		Shortages:    []domain.DistributionBucket{},
		Overcapacity: []domain.DistributionBucket{},
	}
	since := now.Add(-window)

	leadCounts := make(map[bucketKey]int)
	for _, lead := range leads {
		if lead.CreatedAt.Before(since) {
			continue
		}
		key := bucketKey{domain.NormalizeTag(lead.Branch), domain.NormalizeTag(lead.Region)}
		if key.branch == "" || key.region == "" {
			report.SkippedRecords++
			continue
		}
		leadCounts[key]++
	}

	active := make([]domain.PartnerRecord, 0, len(partners))
	for _, rec := range partners {
		if !rec.Partner.Active {
			continue
		}
		if malformed(rec) {
			report.SkippedRecords++
			continue
		}
		active = append(active, rec)
	}

	keys := make(map[bucketKey]struct{}, len(leadCounts))
	for key := range leadCounts {
		keys[key] = struct{}{}
	}
	for _, rec := range active {
		if rec.Partner.Branches.IsAny() || rec.Partner.Regions.IsAny() {
			continue
		}
		for _, b := range rec.Partner.Branches.Tags {
			for _, r := range rec.Partner.Regions.Tags {
				keys[bucketKey{b, r}] = struct{}{}
			}
		}
	}

	waits := make([]float64, len(active))
	for i, rec := range active {
		waits[i] = waitHours(rec, now)
	}
	summary := summarize(waits)
	report.Fairness = summary

	for key := range keys {
		bucket := domain.DistributionBucket{
			Branch:    key.branch,
			Region:    key.region,
			LeadCount: leadCounts[key],
		}
		var sq float64
		for i, rec := range active {
			if rec.Partner.Branches.Accepts(key.branch) && rec.Partner.Regions.Accepts(key.region) {
				bucket.PartnerCount++
				d := waits[i] - summary.AvgWaitHours
				sq += d * d
			}
		}
		if summary.PartnerCount > 0 {
			bucket.VarianceContribution = sq / float64(summary.PartnerCount)
		}
		bucket.Ratio = float64(bucket.LeadCount) / math.Max(float64(bucket.PartnerCount), 1)
		bucket.Status = classify(bucket.Ratio, t)
		report.Buckets = append(report.Buckets, bucket)
	}

	sort.Slice(report.Buckets, func(i, j int) bool {
		if report.Buckets[i].Branch != report.Buckets[j].Branch {
			return report.Buckets[i].Branch < report.Buckets[j].Branch
		}
		return report.Buckets[i].Region < report.Buckets[j].Region
	})
	for _, b := range report.Buckets {
		switch b.Status {
		case domain.BucketShortage:
			report.Shortages = append(report.Shortages, b)
		case domain.BucketOvercapacity:
			report.Overcapacity = append(report.Overcapacity, b)
		}
	}
	return report
}

// classify treats the shortage threshold as inclusive and the overcapacity
// threshold as exclusive.
func classify(ratio float64, t tuning.Tuning) domain.BucketStatus {
	switch {
	case ratio >= t.ShortageRatio:
		return domain.BucketShortage
	case ratio < t.OvercapacityRatio:
		return domain.BucketOvercapacity
	default:
		return domain.BucketBalanced
	}
}

func malformed(rec domain.PartnerRecord) bool {
	if rec.Partner.MaxOpenLeads < 0 || rec.Stats.OpenLeads < 0 {
		return true
	}
	if !rec.Partner.Branches.IsAny() && len(rec.Partner.Branches.Tags) == 0 {
		return true
	}
	return !rec.Partner.Regions.IsAny() && len(rec.Partner.Regions.Tags) == 0
}

// waitHours measures from the last assignment, or from creation for
// partners that never received a lead.
func waitHours(rec domain.PartnerRecord, now time.Time) float64 {
	from := rec.Partner.CreatedAt
	if rec.Stats.LastAssignedAt != nil {
		from = *rec.Stats.LastAssignedAt
	}
	if from.IsZero() || from.After(now) {
		return 0
	}
	return now.Sub(from).Hours()
}

// summarize returns the mean and population variance of waits.
func summarize(waits []float64) domain.FairnessSummary {
	n := len(waits)
	if n == 0 {
		return domain.FairnessSummary{}
	}
	var sum float64
	for _, w := range waits {
		sum += w
	}
	mean := sum / float64(n)

	var sq float64
	for _, w := range waits {
		d := w - mean
		sq += d * d
	}
	variance := sq / float64(n)

	return domain.FairnessSummary{
		AvgWaitHours: mean,
		Variance:     variance,
		StdDevHours:  math.Sqrt(variance),
		PartnerCount: n,
	}
}
