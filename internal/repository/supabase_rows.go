package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/supabase-community/supabase-go"

	"reader-sync/internal/domain"
	apperrors "reader-sync/pkg/errors"
)

// userClient resolves the caller and returns a token-scoped client.
func userClient(supabaseClient domain.SupabaseClient, token string) (*supabase.Client, string, error) {
	user, err := supabaseClient.ValidateToken(token)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidToken) {
			return nil, "", apperrors.NewUnauthorizedError("invalid token")
		}
		return nil, "", apperrors.NewNetworkError("failed to resolve user", err)
	}
	client, err := supabaseClient.GetClientWithToken(token)
	if err != nil {
		return nil, "", apperrors.NewNetworkError("failed to get client with token", err)
	}
	if client == nil {
		return nil, "", apperrors.NewInternalError("supabase client not initialized", nil)
	}
	return client, user.ID, nil
}

// executor is the terminal step of a postgrest-go request.
type executor interface {
	Execute() ([]byte, int64, error)
}

// execute runs req and returns ctx.Err() as soon as ctx is done. postgrest-go
// takes no context, so an abandoned request finishes in the background.
func execute(ctx context.Context, req executor) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, _, err := req.Execute()
		done <- result{data: data, err: err}
	}()
	select {
	case r := <-done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func decodeRows(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, apperrors.NewNetworkError("failed to unmarshal response", err)
	}
	return rows, nil
}

// Helper functions for type conversion
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getInt(data map[string]interface{}, key string) int {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}

func getFloat64(data map[string]interface{}, key string) float64 {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		}
	}
	return 0.0
}

func getTime(data map[string]interface{}, key string) time.Time {
	s := getString(data, key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

// getRects accepts a jsonb array either already decoded or as a JSON string.
func getRects(data map[string]interface{}, key string) ([]domain.Rect, error) {
	val, ok := data[key]
	if !ok || val == nil {
		return nil, nil
	}
	var raw []byte
	switch v := val.(type) {
	case string:
		raw = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	var rects []domain.Rect
	if err := json.Unmarshal(raw, &rects); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return rects, nil
}

// sanitizeText removes NUL runes, which PostgreSQL rejects in text fields.
func sanitizeText(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
