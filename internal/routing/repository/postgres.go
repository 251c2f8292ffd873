// Package repository implements the routing ports on PostgreSQL and in memory.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lead_router_backend/internal/routing/domain"
	"lead_router_backend/internal/routing/ports"
	"lead_router_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository is the PostgreSQL implementation of the routing ports.
type Repository struct {
	pool db.Pool
}

var (
	_ ports.LeadReader         = (*Repository)(nil)
	_ ports.PartnerDirectory   = (*Repository)(nil)
	_ ports.AssignmentStore    = (*Repository)(nil)
	_ ports.SettingsRepository = (*Repository)(nil)
	_ ports.ActivityWriter     = (*Repository)(nil)
	_ ports.EscalationLog      = (*Repository)(nil)
)

func New(pool db.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, branch, region, is_urgent, status, assigned_partner_id, assigned_at, created_at`

func scanLead(row pgx.Row) (domain.Lead, error) {
	var (
		lead   domain.Lead
		status string
	)
	if err := row.Scan(
		&lead.ID, &lead.Branch, &lead.Region, &lead.Urgent, &status,
		&lead.AssignedPartnerID, &lead.AssignedAt, &lead.CreatedAt,
	); err != nil {
		return domain.Lead{}, err
	}
	lead.Status = domain.LeadStatus(status)
	return lead, nil
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM routing_leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound(id)
	}
	if err != nil {
		return domain.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

func (r *Repository) ListLeadsCreatedSince(ctx context.Context, since time.Time) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM routing_leads
		WHERE created_at >= $1
		ORDER BY created_at ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

const partnerSelect = `
	SELECT p.id, p.business_name, p.any_branch, p.branches, p.any_region, p.regions,
		p.max_open_leads, p.is_active, p.created_at,
		COALESCE(s.leads_assigned_30d, 0), COALESCE(s.leads_accepted_30d, 0),
		COALESCE(s.leads_rejected_30d, 0), COALESCE(s.conversion_rate_30d, 0),
		COALESCE(s.open_leads_count, 0), s.last_lead_assigned_at, s.avg_response_time_minutes
	FROM routing_partners p
	LEFT JOIN routing_partner_stats s ON s.partner_id = p.id`

func scanPartner(row pgx.Row) (domain.PartnerRecord, error) {
	var (
		rec                  domain.PartnerRecord
		anyBranch, anyRegion bool
		branches, regions    []string
	)
	if err := row.Scan(
		&rec.Partner.ID, &rec.Partner.Name, &anyBranch, &branches, &anyRegion, &regions,
		&rec.Partner.MaxOpenLeads, &rec.Partner.Active, &rec.Partner.CreatedAt,
		&rec.Stats.LeadsAssigned, &rec.Stats.LeadsAccepted,
		&rec.Stats.LeadsRejected, &rec.Stats.ConversionRate,
		&rec.Stats.OpenLeads, &rec.Stats.LastAssignedAt, &rec.Stats.AvgResponseMinutes,
	); err != nil {
		return domain.PartnerRecord{}, err
	}
	rec.Partner.Branches = eligibility(anyBranch, branches)
	rec.Partner.Regions = eligibility(anyRegion, regions)
	return rec, nil
}

func eligibility(anyTag bool, tags []string) domain.Eligibility {
	if anyTag {
		return domain.AcceptsAny()
	}
	return domain.AcceptsOnly(tags...)
}

func (r *Repository) GetPartner(ctx context.Context, id uuid.UUID) (domain.PartnerRecord, error) {
	rec, err := scanPartner(r.pool.QueryRow(ctx, partnerSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PartnerRecord{}, domain.ErrPartnerNotFound(id)
	}
	if err != nil {
		return domain.PartnerRecord{}, fmt.Errorf("get partner: %w", err)
	}
	return rec, nil
}

// ListRoutablePartners narrows the set in SQL. Callers still apply the
// eligibility predicate, so this query may be looser but never stricter.
func (r *Repository) ListRoutablePartners(ctx context.Context, branch, region string) ([]domain.PartnerRecord, error) {
	return r.listPartners(ctx, partnerSelect+`
		WHERE p.is_active
			AND (p.any_branch OR $1 = ANY(p.branches))
			AND (p.any_region OR $2 = ANY(p.regions))
			AND COALESCE(s.open_leads_count, 0) < p.max_open_leads
		ORDER BY p.id`, domain.NormalizeTag(branch), domain.NormalizeTag(region))
}

func (r *Repository) ListPartners(ctx context.Context) ([]domain.PartnerRecord, error) {
	return r.listPartners(ctx, partnerSelect+` ORDER BY p.id`)
}

func (r *Repository) listPartners(ctx context.Context, query string, args ...any) ([]domain.PartnerRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	defer rows.Close()

	records := make([]domain.PartnerRecord, 0)
	for rows.Next() {
		rec, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scan partner: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list partners: %w", err)
	}
	return records, nil
}

// CommitAssignment writes the lead status, partner counters and audit row in
// one transaction. Both guarded UPDATEs re-check their precondition under the
// row lock, so concurrent callers serialize on the lead and on the partner.
func (r *Repository) CommitAssignment(ctx context.Context, a domain.Assignment) (domain.Assignment, error) {
	factors, err := json.Marshal(a.Factors)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("marshal factors: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("begin assignment: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE routing_leads
		SET status = 'assigned', assigned_partner_id = $2, assigned_at = $3
		WHERE id = $1 AND status = 'new'`, a.LeadID, a.PartnerID, a.CreatedAt)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("claim lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Assignment{}, r.leadClaimFailure(ctx, tx, a.LeadID)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO routing_partner_stats (partner_id)
		SELECT id FROM routing_partners WHERE id = $1
		ON CONFLICT (partner_id) DO NOTHING`, a.PartnerID); err != nil {
		return domain.Assignment{}, fmt.Errorf("ensure partner stats: %w", err)
	}

	tag, err = tx.Exec(ctx, `
		UPDATE routing_partner_stats ps
		SET open_leads_count = ps.open_leads_count + 1,
			leads_assigned_30d = ps.leads_assigned_30d + 1,
			last_lead_assigned_at = $2,
			updated_at = $2
		FROM routing_partners p
		WHERE ps.partner_id = $1
			AND p.id = ps.partner_id
			AND p.is_active
			AND ps.open_leads_count < p.max_open_leads`, a.PartnerID, a.CreatedAt)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("reserve partner capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Assignment{}, r.capacityFailure(ctx, tx, a.PartnerID)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO routing_assignments (id, lead_id, partner_id, score, factors, mode, actor, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.LeadID, a.PartnerID, a.Score, factors, string(a.Mode), a.Actor, a.CreatedAt); err != nil {
		return domain.Assignment{}, fmt.Errorf("insert assignment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Assignment{}, fmt.Errorf("commit assignment: %w", err)
	}
	return a, nil
}

func (r *Repository) leadClaimFailure(ctx context.Context, tx pgx.Tx, leadID uuid.UUID) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM routing_leads WHERE id = $1`, leadID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrLeadNotFound(leadID)
	}
	if err != nil {
		return fmt.Errorf("inspect lead: %w", err)
	}
	return domain.ErrLeadAlreadyAssigned(leadID)
}

func (r *Repository) capacityFailure(ctx context.Context, tx pgx.Tx, partnerID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM routing_partners WHERE id = $1)`, partnerID).Scan(&exists); err != nil {
		return fmt.Errorf("inspect partner: %w", err)
	}
	if !exists {
		return domain.ErrPartnerNotFound(partnerID)
	}
	return domain.ErrPartnerAtCapacity(partnerID)
}

const settingsColumns = `region_weight, performance_weight, fairness_weight, auto_assign, auto_assign_threshold, updated_by, updated_at`

func scanSettings(row pgx.Row) (domain.RouterSettings, error) {
	var s domain.RouterSettings
	err := row.Scan(&s.RegionWeight, &s.PerformanceWeight, &s.FairnessWeight, &s.AutoAssign, &s.AutoAssignThreshold, &s.UpdatedBy, &s.UpdatedAt)
	return s, err
}

// GetSettings returns the singleton settings row, creating it with defaults
// on first use.
func (r *Repository) GetSettings(ctx context.Context) (domain.RouterSettings, error) {
	def := domain.DefaultSettings()
	if _, err := r.pool.Exec(ctx, `
		INSERT INTO routing_settings (id, `+settingsColumns+`)
		VALUES (1, $1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (id) DO NOTHING`,
		def.RegionWeight, def.PerformanceWeight, def.FairnessWeight, def.AutoAssign, def.AutoAssignThreshold, def.UpdatedBy); err != nil {
		return domain.RouterSettings{}, fmt.Errorf("seed settings: %w", err)
	}

	s, err := scanSettings(r.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM routing_settings WHERE id = 1`))
	if err != nil {
		return domain.RouterSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return s, nil
}

func (r *Repository) SaveSettings(ctx context.Context, s domain.RouterSettings) (domain.RouterSettings, error) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	}
	saved, err := scanSettings(r.pool.QueryRow(ctx, `
		INSERT INTO routing_settings (id, `+settingsColumns+`)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			region_weight = EXCLUDED.region_weight,
			performance_weight = EXCLUDED.performance_weight,
			fairness_weight = EXCLUDED.fairness_weight,
			auto_assign = EXCLUDED.auto_assign,
			auto_assign_threshold = EXCLUDED.auto_assign_threshold,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
		RETURNING `+settingsColumns,
		s.RegionWeight, s.PerformanceWeight, s.FairnessWeight, s.AutoAssign, s.AutoAssignThreshold, s.UpdatedBy, s.UpdatedAt))
	if err != nil {
		return domain.RouterSettings{}, fmt.Errorf("save settings: %w", err)
	}
	return saved, nil
}

func (r *Repository) WriteActivity(ctx context.Context, a ports.Activity) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	metadata := a.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO routing_lead_activities (id, lead_id, type, description, actor, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.LeadID, a.Type, a.Description, a.Actor, raw, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *Repository) EscalatedLeads(ctx context.Context, leadIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool)
	if len(leadIDs) == 0 {
		return out, nil
	}
	ids := make([]string, len(leadIDs))
	for i, id := range leadIDs {
		ids[i] = id.String()
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT lead_id
		FROM routing_lead_activities
		WHERE type = $1 AND lead_id = ANY($2::uuid[])`, ports.ActivityRoutingEscalated, ids)
	if err != nil {
		return nil, fmt.Errorf("list escalated leads: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan escalated lead: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list escalated leads: %w", err)
	}
	return out, nil
}
