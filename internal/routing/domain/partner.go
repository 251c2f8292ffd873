package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EligibilityKind distinguishes "accepts a specific set" from "accepts anything".
type EligibilityKind string

const (
	EligibilitySpecific EligibilityKind = "specific"
	EligibilityAny      EligibilityKind = "any"
)

// MatchKind is the result of matching a lead tag against an Eligibility.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchAny
	MatchExact
)

// Eligibility is the set of branches or regions a partner accepts. The zero
// value is a specific empty set and matches nothing.
type Eligibility struct {
	Kind EligibilityKind `json:"kind"`
	Tags []string        `json:"tags,omitempty"`
}

// AcceptsAny returns an Eligibility that matches every tag.
func AcceptsAny() Eligibility {
	return Eligibility{Kind: EligibilityAny}
}

// AcceptsOnly returns an Eligibility that matches exactly the given tags.
func AcceptsOnly(tags ...string) Eligibility {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		norm := NormalizeTag(tag)
		if norm == "" {
			continue
		}
		if _, dup := seen[norm]; dup {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	sort.Strings(out)
	return Eligibility{Kind: EligibilitySpecific, Tags: out}
}

// IsAny reports whether the eligibility accepts every tag.
func (e Eligibility) IsAny() bool {
	return e.Kind == EligibilityAny
}

// Match classifies how tag matches this eligibility.
func (e Eligibility) Match(tag string) MatchKind {
	if e.IsAny() {
		return MatchAny
	}
	norm := NormalizeTag(tag)
	if norm == "" {
		return MatchNone
	}
	for _, t := range e.Tags {
		if NormalizeTag(t) == norm {
			return MatchExact
		}
	}
	return MatchNone
}

// Accepts reports whether tag is eligible at all.
func (e Eligibility) Accepts(tag string) bool {
	return e.Match(tag) != MatchNone
}

// NormalizeTag trims and lower-cases a branch or region tag.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

// Partner is a service provider that can receive leads.
type Partner struct {
	ID           uuid.UUID
	Name         string
	Branches     Eligibility
	Regions      Eligibility
	MaxOpenLeads int
	Active       bool
	CreatedAt    time.Time
}

// PartnerStats holds the rolling 30-day performance window of a partner.
type PartnerStats struct {
	LeadsAssigned      int
	LeadsAccepted      int
	LeadsRejected      int
	ConversionRate     float64 // 0-100
	OpenLeads          int
	LastAssignedAt     *time.Time
	AvgResponseMinutes *float64
}

// HasObservations reports whether the partner has any assignment history.
func (s PartnerStats) HasObservations() bool {
	return s.LeadsAssigned > 0
}

// PartnerRecord pairs a partner with its stats as read from the directory.
type PartnerRecord struct {
	Partner Partner
	Stats   PartnerStats
}

// HasCapacity reports whether the partner can take another lead.
func (r PartnerRecord) HasCapacity() bool {
	return r.Stats.OpenLeads < r.Partner.MaxOpenLeads
}
