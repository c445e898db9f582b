package repository

import (
	"context"
	"net/http"
	"net/url"

	"reader-sync/internal/domain"
)

// RESTHighlightClient implements domain.HighlightRemote over the REST backend.
type RESTHighlightClient struct {
	client *RESTClient
}

var _ domain.HighlightRemote = (*RESTHighlightClient)(nil)

func NewRESTHighlightClient(client *RESTClient) *RESTHighlightClient {
	return &RESTHighlightClient{client: client}
}

type createHighlightRequest struct {
	DocumentID string                `json:"documentId"`
	Range      domain.AnchorRange    `json:"range"`
	Color      domain.HighlightColor `json:"color"`
	Note       string                `json:"note,omitempty"`
	Quote      string                `json:"quote,omitempty"`
}

func (c *RESTHighlightClient) ListHighlights(ctx context.Context, documentID, token string) ([]*domain.Anchor, error) {
	var out []*domain.Anchor
	if err := c.client.do(ctx, http.MethodGet, "/highlights/"+url.PathEscape(documentID), token, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []*domain.Anchor{}
	}
	return out, nil
}

func (c *RESTHighlightClient) CreateHighlight(ctx context.Context, documentID string, draft domain.AnchorDraft, token string) (*domain.Anchor, error) {
	req := createHighlightRequest{
		DocumentID: documentID,
		Range:      draft.Range,
		Color:      draft.Color,
		Note:       draft.Note,
		Quote:      draft.Quote,
	}
	var out domain.Anchor
	if err := c.client.do(ctx, http.MethodPost, "/highlights", token, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTHighlightClient) UpdateHighlight(ctx context.Context, id string, patch domain.AnchorPatch, token string) (*domain.Anchor, error) {
	var out domain.Anchor
	if err := c.client.do(ctx, http.MethodPatch, "/highlights/"+url.PathEscape(id), token, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *RESTHighlightClient) DeleteHighlight(ctx context.Context, id, token string) error {
	return c.client.do(ctx, http.MethodDelete, "/highlights/"+url.PathEscape(id), token, nil, nil)
}
