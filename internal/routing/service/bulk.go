package service

import (
	"context"

	"lead_router_backend/platform/apperr"

	"github.com/google/uuid"
)

// BulkItem is the per-lead result of a bulk run.
type BulkItem struct {
	LeadID    uuid.UUID  `json:"leadId"`
	Outcome   Outcome    `json:"outcome,omitempty"`
	PartnerID *uuid.UUID `json:"partnerId,omitempty"`
	Score     float64    `json:"score,omitempty"`
	Error     *BulkError `json:"error,omitempty"`
}

// bulkInternalMessage replaces infrastructure error text in bulk results.
const bulkInternalMessage = "internal error"

// BulkError carries the stable error code of a failed lead.
type BulkError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BulkResult summarizes a bulk auto-assign run.
type BulkResult struct {
	Items     []BulkItem `json:"items"`
	Assigned  int        `json:"assigned"`
	Escalated int        `json:"escalated"`
	Failed    int        `json:"failed"`
}

// BulkAutoAssign routes leads one by one in the given order. A failure on
// one lead does not stop the others; a cancelled context does.
func (s *Service) BulkAutoAssign(ctx context.Context, leadIDs []uuid.UUID, actor string) (BulkResult, error) {
	result := BulkResult{Items: make([]BulkItem, 0, len(leadIDs))}

	for _, leadID := range leadIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		item := BulkItem{LeadID: leadID}
		res, err := s.AutoAssign(ctx, leadID, actor)
		switch {
		case err != nil:
			kind := apperr.GetKind(err)
			if kind == apperr.KindUnknown {
				kind = apperr.KindInternal
			}
			msg := err.Error()
			if kind == apperr.KindInternal {
				s.log.WithContext(ctx).Error("bulk auto-assign failed", "lead_id", leadID, "error", err)
				msg = bulkInternalMessage
			}
			item.Error = &BulkError{Code: kind.Code(), Message: msg}
			result.Failed++
		case res.Outcome == OutcomeAssigned:
			item.Outcome = res.Outcome
			item.PartnerID = &res.Assignment.PartnerID
			item.Score = res.Assignment.Score
			result.Assigned++
		default:
			item.Outcome = res.Outcome
			result.Escalated++
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}
