package handler

import (
	"net/http"
	"strings"
	"testing"

	"reader-sync/internal/domain"
)

func TestSessionHandler_OpenAndGet(t *testing.T) {
	api := newTestAPI(t)
	api.progressRemote.positions["doc-1"] = domain.Position{Page: 5, Percentage: 4.0 / 9.0}

	rr := api.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"document":     map[string]interface{}{"id": "doc-1", "format": "paginated", "total_units": 10},
		"device_class": "wide",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	var opened sessionResponse
	decodeBody(t, rr, &opened)
	if opened.StartAction != domain.SyncActionPullRemoteToLocal {
		t.Fatalf("expected pull, got %s", opened.StartAction)
	}
	if opened.Viewport.Mode != domain.ViewModeDouble || opened.Viewport.Position.Page != 5 {
		t.Fatalf("expected double mode at page 5, got %+v", opened.Viewport)
	}
	if len(opened.Viewport.Spread) != 2 || opened.Viewport.Spread[1] != 6 {
		t.Fatalf("expected spread 5-6, got %v", opened.Viewport.Spread)
	}

	rr = api.do(t, http.MethodGet, "/api/v1/sessions/doc-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestSessionHandler_OpenInvalidRequests(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"missing id", map[string]interface{}{"document": map[string]interface{}{"format": "paginated", "total_units": 3}}},
		{"unknown format", map[string]interface{}{"document": map[string]interface{}{"id": "d", "format": "scroll"}}},
		{"no pages", map[string]interface{}{"document": map[string]interface{}{"id": "d", "format": "paginated"}}},
		{"unknown device", map[string]interface{}{
			"document":     map[string]interface{}{"id": "d", "format": "paginated", "total_units": 3},
			"device_class": "watch",
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, "/api/v1/sessions", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d: %s", http.StatusBadRequest, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestSessionHandler_AdvancePushesProgressWithLatestToken(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 10, domain.DeviceWide)

	rr := api.doWithToken(t, http.MethodPost, "/api/v1/sessions/doc-1/advance", "t2", advanceRequest{Direction: 1})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var nav navigationResponse
	decodeBody(t, rr, &nav)
	if !nav.Moved || nav.Viewport.Position.Page != 3 {
		t.Fatalf("expected to move to spread 3, got %+v", nav)
	}

	api.progress.Wait()
	if got := api.progressRemote.positions["doc-1"]; got.Page != 3 {
		t.Fatalf("expected remote at page 3, got %+v", got)
	}
	if tok := api.progressRemote.lastToken(); tok != "t2" {
		t.Fatalf("expected push with refreshed token, got %q", tok)
	}

	rr = api.do(t, http.MethodGet, "/api/v1/sessions/doc-1/progress", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "user_id") {
		t.Fatalf("expected no user_id in progress body, got %s", rr.Body.String())
	}
	var progress domain.ReadingProgress
	decodeBody(t, rr, &progress)
	if progress.Local == nil || progress.Local.Page != 3 || progress.Pending {
		t.Fatalf("expected acknowledged local page 3, got %+v", progress)
	}
}

func TestSessionHandler_AdvancePastEnd(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 2, domain.DeviceNarrow)

	rr := api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: domain.ViewModeSingle})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodPost, "/api/v1/sessions/doc-1/advance", advanceRequest{Direction: -1})
	var nav navigationResponse
	decodeBody(t, rr, &nav)
	if nav.Moved || nav.Viewport.Position.Page != 1 {
		t.Fatalf("expected no movement at page 1, got %+v", nav)
	}

	rr = api.do(t, http.MethodPost, "/api/v1/sessions/doc-1/advance", advanceRequest{Direction: 2})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_GoToClamps(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 10, domain.DeviceNarrow)

	rr := api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/position", domain.Position{Page: 42})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var nav navigationResponse
	decodeBody(t, rr, &nav)
	if !nav.Moved || nav.Viewport.Position.Page != 10 || nav.Viewport.Position.Percentage != 1 {
		t.Fatalf("expected clamp to last page, got %+v", nav)
	}

	rr = api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/position", domain.Position{Page: 99})
	nav = navigationResponse{}
	decodeBody(t, rr, &nav)
	if nav.Moved {
		t.Fatalf("expected a jump that clamps onto the current page not to move, got %+v", nav)
	}
}

func TestSessionHandler_ViewModeRoundTripKeepsProgress(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 10, domain.DeviceWide)

	api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: domain.ViewModeSingle})
	api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/position", domain.Position{Page: 10})
	api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: domain.ViewModeDouble})
	api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: domain.ViewModeSingle})
	api.progress.Wait()

	if cached := api.store.positions["doc-1"]; cached.Page != 10 {
		t.Fatalf("expected local cache to stay at page 10, got %d", cached.Page)
	}
	if remote := api.progressRemote.positions["doc-1"]; remote.Page != 10 {
		t.Fatalf("expected remote to stay at page 10, got %d", remote.Page)
	}
}

func TestSessionHandler_ScrollInContinuousMode(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 3, domain.DeviceNarrow)

	rr := api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/layout", layoutRequest{Pages: []domain.PageExtent{
		{Top: 0, Height: 100},
		{Top: 100, Height: 100},
		{Top: 200, Height: 100},
	}})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNoContent, rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodPost, "/api/v1/sessions/doc-1/scroll", scrollRequest{Offset: 120, ViewportHeight: 100})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var nav navigationResponse
	decodeBody(t, rr, &nav)
	if !nav.Moved || nav.Viewport.Position.Page != 2 {
		t.Fatalf("expected page 2 to be current, got %+v", nav)
	}

	rr = api.do(t, http.MethodPost, "/api/v1/sessions/doc-1/scroll", scrollRequest{Offset: 120})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d for zero viewport, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_SetViewModeDegradesOnNarrow(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 10, domain.DeviceNarrow)

	rr := api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: domain.ViewModeDouble})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var st struct {
		Mode domain.ViewMode `json:"view_mode"`
	}
	decodeBody(t, rr, &st)
	if st.Mode != domain.ViewModeSingle {
		t.Fatalf("expected single mode on narrow device, got %s", st.Mode)
	}

	rr = api.do(t, http.MethodPut, "/api/v1/sessions/doc-1/view-mode", viewModeRequest{ViewMode: "carousel"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
}

func TestSessionHandler_ReflowableAdvanceUnsupported(t *testing.T) {
	api := newTestAPI(t)
	rr := api.do(t, http.MethodPost, "/api/v1/sessions", map[string]interface{}{
		"document": map[string]interface{}{"id": "book-1", "format": "reflowable"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rr.Code, rr.Body.String())
	}

	rr = api.do(t, http.MethodPost, "/api/v1/sessions/book-1/advance", advanceRequest{Direction: 1})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, rr.Code)
	}
}

func TestSessionHandler_CloseSession(t *testing.T) {
	api := newTestAPI(t)
	api.openPaginated(t, "doc-1", 10, domain.DeviceNarrow)

	rr := api.do(t, http.MethodDelete, "/api/v1/sessions/doc-1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}

	for _, path := range []string{"/api/v1/sessions/doc-1", "/api/v1/sessions/doc-1/progress"} {
		rr = api.do(t, http.MethodGet, path, nil)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected status %d for %s, got %d", http.StatusNotFound, path, rr.Code)
		}
	}

	rr = api.do(t, http.MethodDelete, "/api/v1/sessions/doc-1", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d closing twice, got %d", http.StatusNotFound, rr.Code)
	}
}
