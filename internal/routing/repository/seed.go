package repository

import (
	"fmt"
	"io"
	"os"
	"time"

	"lead_router_backend/internal/routing/domain"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Seed is the YAML fixture format used to populate a MemoryStore for local
// runs and demos.
type Seed struct {
	Partners []SeedPartner `yaml:"partners"`
	Leads    []SeedLead    `yaml:"leads"`
}

type SeedPartner struct {
	ID                 uuid.UUID  `yaml:"id"`
	Name               string     `yaml:"name"`
	Branches           []string   `yaml:"branches"` // ["*"] accepts every branch
	Regions            []string   `yaml:"regions"`
	MaxOpenLeads       int        `yaml:"max_open_leads"`
	Paused             bool       `yaml:"paused"`
	OpenLeads          int        `yaml:"open_leads"`
	LeadsAssigned      int        `yaml:"leads_assigned"`
	ConversionRate     float64    `yaml:"conversion_rate"`
	AvgResponseMinutes *float64   `yaml:"avg_response_minutes"`
	LastAssignedAt     *time.Time `yaml:"last_assigned_at"`
	CreatedAt          time.Time  `yaml:"created_at"`
}

type SeedLead struct {
	ID        uuid.UUID `yaml:"id"`
	Branch    string    `yaml:"branch"`
	Region    string    `yaml:"region"`
	Urgent    bool      `yaml:"urgent"`
	CreatedAt time.Time `yaml:"created_at"`
}

// LoadSeedFile reads a seed file into the store.
func (s *MemoryStore) LoadSeedFile(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return s.LoadSeed(f)
}

// LoadSeed decodes YAML from r and inserts its partners and leads. It
// returns how many of each were loaded. Missing ids are generated.
func (s *MemoryStore) LoadSeed(r io.Reader) (partners int, leads int, err error) {
	var seed Seed
	if err := yaml.NewDecoder(r).Decode(&seed); err != nil && err != io.EOF {
		return 0, 0, fmt.Errorf("decode seed: %w", err)
	}

	for _, p := range seed.Partners {
		id := p.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		created := p.CreatedAt
		if created.IsZero() {
			created = s.now().UTC()
		}
		s.PutPartner(domain.PartnerRecord{
			Partner: domain.Partner{
				ID:           id,
				Name:         p.Name,
				Branches:     seedEligibility(p.Branches),
				Regions:      seedEligibility(p.Regions),
				MaxOpenLeads: p.MaxOpenLeads,
				Active:       !p.Paused,
				CreatedAt:    created,
			},
			Stats: domain.PartnerStats{
				LeadsAssigned:      p.LeadsAssigned,
				ConversionRate:     p.ConversionRate,
				OpenLeads:          p.OpenLeads,
				LastAssignedAt:     p.LastAssignedAt,
				AvgResponseMinutes: p.AvgResponseMinutes,
			},
		})
	}

	for _, l := range seed.Leads {
		id := l.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		s.PutLead(domain.Lead{
			ID:        id,
			Branch:    domain.NormalizeTag(l.Branch),
			Region:    domain.NormalizeTag(l.Region),
			Urgent:    l.Urgent,
			Status:    domain.LeadStatusNew,
			CreatedAt: l.CreatedAt,
		})
	}

	return len(seed.Partners), len(seed.Leads), nil
}

func seedEligibility(tags []string) domain.Eligibility {
	for _, tag := range tags {
		if tag == "*" {
			return domain.AcceptsAny()
		}
	}
	return domain.AcceptsOnly(tags...)
}
