package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *RESTClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRESTClient(srv.URL, time.Second)
}

func TestRESTProgressClient_FetchPosition(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/progress/doc-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"position":{"page":40,"percentage":0.13}}`))
	})

	got, err := NewRESTProgressClient(client).FetchPosition(context.Background(), "doc-1", "tok")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 40, got.Page)
}

func TestRESTProgressClient_FetchAbsent(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"Not found", http.StatusNotFound, `{"error":"no progress"}`},
		{"Null position", http.StatusOK, `{"position":null}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			got, err := NewRESTProgressClient(client).FetchPosition(context.Background(), "doc-1", "tok")
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestRESTProgressClient_PushPosition(t *testing.T) {
	var received progressRequest
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/progress", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	})

	pos := domain.Position{Locator: "epubcfi(/6/4)", Percentage: 0.4}
	require.NoError(t, NewRESTProgressClient(client).PushPosition(context.Background(), "book", pos, "tok"))
	assert.Equal(t, "book", received.DocumentID)
	assert.Equal(t, pos, received.Position)
}

func TestRESTClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   apperrors.ErrorType
	}{
		{http.StatusUnauthorized, apperrors.ErrorTypeUnauthorized},
		{http.StatusForbidden, apperrors.ErrorTypeUnauthorized},
		{http.StatusNotFound, apperrors.ErrorTypeConflict},
		{http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{http.StatusUnprocessableEntity, apperrors.ErrorTypeValidation},
		{http.StatusInternalServerError, apperrors.ErrorTypeNetwork},
		{http.StatusBadGateway, apperrors.ErrorTypeNetwork},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			})
			err := NewRESTHighlightClient(client).DeleteHighlight(context.Background(), "h1", "tok")
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, tt.want), "got %v", err)
		})
	}
}

func TestRESTClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewRESTClient(srv.URL, time.Second)
	srv.Close()

	_, err := NewRESTHighlightClient(client).ListHighlights(context.Background(), "doc-1", "tok")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNetwork), "got %v", err)
}

func TestRESTHighlightClient_CreateAndUpdate(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/highlights":
			var req createHighlightRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "doc-1", req.DocumentID)
			json.NewEncoder(w).Encode(domain.Anchor{ID: "srv-9", DocumentID: req.DocumentID, Range: req.Range, Color: req.Color})
		case r.Method == http.MethodPatch && r.URL.Path == "/highlights/srv-9":
			var patch map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			assert.Equal(t, "pink", patch["color"])
			_, hasNote := patch["note"]
			assert.False(t, hasNote)
			json.NewEncoder(w).Encode(domain.Anchor{ID: "srv-9", Color: domain.ColorPink})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	highlights := NewRESTHighlightClient(client)

	draft := domain.AnchorDraft{
		Range: domain.AnchorRange{Page: 2, Rects: []domain.Rect{{Width: 1, Height: 1}}},
		Color: domain.ColorYellow,
	}
	created, err := highlights.CreateHighlight(context.Background(), "doc-1", draft, "tok")
	require.NoError(t, err)
	assert.Equal(t, "srv-9", created.ID)
	assert.Equal(t, 2, created.Range.Page)

	pink := domain.ColorPink
	updated, err := highlights.UpdateHighlight(context.Background(), "srv-9", domain.AnchorPatch{Color: &pink}, "tok")
	require.NoError(t, err)
	assert.Equal(t, domain.ColorPink, updated.Color)
}

func TestRESTHighlightClient_ListEmpty(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	got, err := NewRESTHighlightClient(client).ListHighlights(context.Background(), "doc-1", "tok")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Len(t, got, 0)
}
