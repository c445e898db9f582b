package repository

import (
	"context"
	"time"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

// SupabaseProgressRepository implements domain.ProgressRemote on the
// reading_positions table.
type SupabaseProgressRepository struct {
	supabaseClient domain.SupabaseClient
	logger         domain.Logger
}

var _ domain.ProgressRemote = (*SupabaseProgressRepository)(nil)

func NewSupabaseProgressRepository(supabaseClient domain.SupabaseClient, logger domain.Logger) *SupabaseProgressRepository {
	return &SupabaseProgressRepository{
		supabaseClient: supabaseClient,
		logger:         logger,
	}
}

// FetchPosition retrieves the server position for a document, or nil if there is none.
func (r *SupabaseProgressRepository) FetchPosition(ctx context.Context, documentID, token string) (*domain.Position, error) {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return nil, err
	}

	data, err := execute(ctx, client.From("reading_positions").
		Select("*", "", false).
		Eq("user_id", userID).
		Eq("document_id", documentID),
	)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to get reading position", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	row := rows[0]
	return &domain.Position{
		Page:       getInt(row, "page_number"),
		Locator:    getString(row, "locator"),
		Percentage: getFloat64(row, "progress"),
	}, nil
}

// PushPosition upserts the server position for a document.
func (r *SupabaseProgressRepository) PushPosition(ctx context.Context, documentID string, pos domain.Position, token string) error {
	client, userID, err := userClient(r.supabaseClient, token)
	if err != nil {
		return err
	}

	data := map[string]interface{}{
		"user_id":     userID,
		"document_id": documentID,
		"page_number": pos.Page,
		"locator":     pos.Locator,
		"progress":    pos.Percentage,
		"updated_at":  time.Now().UTC(),
	}

	_, err = execute(ctx, client.From("reading_positions").
		Upsert(data, "user_id,document_id", "", ""),
	)
	if err != nil {
		return apperrors.NewNetworkError("failed to update reading position", err)
	}

	r.logger.Debug("Reading position upserted",
		"user_id", userID,
		"document_id", documentID,
		"page_number", pos.Page,
		"progress", pos.Percentage)
	return nil
}
