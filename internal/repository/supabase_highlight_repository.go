package repository

import (
	"context"

	"github.com/supabase-community/postgrest-go"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

// SupabaseHighlightRepository implements domain.HighlightRemote on the highlights table.
type SupabaseHighlightRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

var _ domain.HighlightRemote = (*SupabaseHighlightRepository)(nil)

func NewSupabaseHighlightRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseHighlightRepository {
	return &SupabaseHighlightRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

func (r *SupabaseHighlightRepository) ListHighlights(ctx context.Context, documentID, token string) ([]*domain.Anchor, error) {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return nil, err
	}

	data, err := execute(ctx, client.From("highlights").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("document_id", documentID).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}),
	)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to list highlights", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Anchor, 0, len(rows))
	for _, row := range rows {
		a, err := mapToAnchor(row)
		if err != nil {
			r.logger.Warn("Skipping malformed highlight row", "id", getString(row, "id"), "error", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *SupabaseHighlightRepository) CreateHighlight(ctx context.Context, documentID string, draft domain.AnchorDraft, token string) (*domain.Anchor, error) {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return nil, err
	}

	row := map[string]interface{}{
		"user_id":     userID,
		"document_id": documentID,
		"color":       string(draft.Color),
		"note":        sanitizeText(draft.Note),
		"quote":       sanitizeText(draft.Quote),
	}
	if draft.Range.Page > 0 {
		row["page_number"] = draft.Range.Page
		row["rects"] = draft.Range.Rects
	}
	if draft.Range.CFI != "" {
		row["cfi"] = draft.Range.CFI
	}

	// Request "representation" so PostgREST returns the inserted row.
	data, err := execute(ctx, client.From("highlights").
		Insert(row, false, "", "representation", ""),
	)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to create highlight", err)
	}
	return r.singleRow(data, "create")
}

func (r *SupabaseHighlightRepository) UpdateHighlight(ctx context.Context, id string, patch domain.AnchorPatch, token string) (*domain.Anchor, error) {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return nil, err
	}

	row := map[string]interface{}{}
	if patch.Color != nil {
		row["color"] = string(*patch.Color)
	}
	if patch.Note != nil {
		row["note"] = sanitizeText(*patch.Note)
	}

	data, err := execute(ctx, client.From("highlights").
		Update(row, "representation", "").
		Eq("id", id).
		Eq("user_id", userID),
	)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to update highlight", err)
	}
	return r.singleRow(data, "update")
}

func (r *SupabaseHighlightRepository) DeleteHighlight(ctx context.Context, id, token string) error {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return err
	}

	data, err := execute(ctx, client.From("highlights").
		Delete("representation", "").
		Eq("id", id).
		Eq("user_id", userID),
	)
	if err != nil {
		return apperrors.NewNetworkError("failed to delete highlight", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperrors.NewConflictError("highlight not found", nil)
	}
	return nil
}

// singleRow maps a representation response; no rows means the highlight is gone.
func (r *SupabaseHighlightRepository) singleRow(data []byte, op string) (*domain.Anchor, error) {
	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.NewConflictError("highlight not found", nil)
	}
	a, err := mapToAnchor(rows[0])
	if err != nil {
		return nil, apperrors.NewNetworkError("malformed highlight after "+op, err)
	}
	return a, nil
}

func mapToAnchor(row map[string]interface{}) (*domain.Anchor, error) {
	rects, err := getRects(row, "rects")
	if err != nil {
		return nil, err
	}
	return &domain.Anchor{
		ID:         getString(row, "id"),
		DocumentID: getString(row, "document_id"),
		Range: domain.AnchorRange{
			Page:  getInt(row, "page_number"),
			Rects: rects,
			CFI:   getString(row, "cfi"),
		},
		Color:     domain.HighlightColor(getString(row, "color")),
		Note:      getString(row, "note"),
		Quote:     getString(row, "quote"),
		CreatedAt: getTime(row, "created_at"),
	}, nil
}
