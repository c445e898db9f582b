package repository

import (
	"context"
	"net/http"
	"net/url"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

// RESTProgressClient implements domain.ProgressRemote over the REST backend.
type RESTProgressClient struct {
	client *RESTClient
}

var _ domain.ProgressRemote = (*RESTProgressClient)(nil)

func NewRESTProgressClient(client *RESTClient) *RESTProgressClient {
	return &RESTProgressClient{client: client}
}

type progressResponse struct {
	Position *domain.Position `json:"position"`
}

type progressRequest struct {
	DocumentID string          `json:"documentId"`
	Position   domain.Position `json:"position"`
}

// FetchPosition returns nil when the server has no position for the document.
func (c *RESTProgressClient) FetchPosition(ctx context.Context, documentID, token string) (*domain.Position, error) {
	var out progressResponse
	err := c.client.do(ctx, http.MethodGet, "/progress/"+url.PathEscape(documentID), token, nil, &out)
	if apperrors.IsConflict(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Position, nil
}

// PushPosition overwrites the server position. Idempotent.
func (c *RESTProgressClient) PushPosition(ctx context.Context, documentID string, pos domain.Position, token string) error {
	return c.client.do(ctx, http.MethodPost, "/progress", token, progressRequest{DocumentID: documentID, Position: pos}, nil)
}
