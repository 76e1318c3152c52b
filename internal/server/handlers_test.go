package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/desertthunder/floe/internal/store"
	"github.com/desertthunder/floe/internal/tasks"
	tu "github.com/desertthunder/floe/internal/testing"
)

type apiFixture struct {
	api       *API
	router    *BasicRouter
	store     *store.Store
	playlists *tu.MockPlaylists
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	st := store.New(t.TempDir(), t.TempDir())
	if err := st.SaveCollections([]models.Collection{
		{Key: "workout", Name: "Workout", Description: "High energy", RemoteID: "PLw"},
	}); err != nil {
		t.Fatalf("failed to seed collections: %v", err)
	}
	if err := st.SaveSchedule(models.Schedule{DefaultPlaylist: "workout"}); err != nil {
		t.Fatalf("failed to seed schedule: %v", err)
	}

	logger := shared.NewLogger(io.Discard)
	playlists := tu.NewMockPlaylists()
	history := &tu.MockHistory{Tracks: []models.Track{{VideoID: "v1", Title: "Song", Artist: "A"}}}
	classifier := &tu.MockClassifier{Playlist: "workout", Confidence: 0.9}

	orchestrator := tasks.NewOrchestrator(history, playlists, classifier, st, 0.6, logger)
	api := NewAPI(st, orchestrator, playlists, logger)

	router := NewBasicRouter()
	api.Register(router)

	return &apiFixture{api: api, router: router, store: st, playlists: playlists}
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSyncStatusIdle(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/sync/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snap tasks.StateSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
	if snap.State != tasks.StateIdle {
		t.Errorf("expected idle state, got %s", snap.State)
	}
}

func TestSyncConflict(t *testing.T) {
	f := newAPIFixture(t)

	if err := f.api.orchestrator.State().TryStart(); err != nil {
		t.Fatalf("TryStart failed: %v", err)
	}

	rec := f.do(t, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

// waitCompleted polls the status endpoint until the in-flight run finishes.
func (f *apiFixture) waitCompleted(t *testing.T) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		var snap tasks.StateSnapshot
		rec := f.do(t, http.MethodGet, "/api/sync/status", "")
		if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
			t.Fatalf("failed to decode snapshot: %v", err)
		}
		if snap.State == tasks.StateCompleted {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("sync did not complete, state %s", snap.State)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// stallingHistory blocks FetchHistory until release is closed, keeping a
// dispatched run in flight for as long as the test needs.
type stallingHistory struct {
	release chan struct{}
}

func (s *stallingHistory) FetchHistory(ctx context.Context) ([]models.Track, error) {
	select {
	case <-s.release:
		return []models.Track{{VideoID: "v1", Title: "Song", Artist: "A"}}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestSyncGuardClaimedBeforeResponse(t *testing.T) {
	f := newAPIFixture(t)

	history := &stallingHistory{release: make(chan struct{})}
	logger := shared.NewLogger(io.Discard)
	f.api.orchestrator = tasks.NewOrchestrator(history, f.playlists, &tu.MockClassifier{Playlist: "workout", Confidence: 0.9},
		f.store, 0.6, logger)

	rec := f.do(t, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// the guard is held from the moment the first trigger is accepted, so a
	// burst of retriggers all conflict while the run is still in flight
	for i := 0; i < 3; i++ {
		if rec = f.do(t, http.MethodPost, "/api/sync", ""); rec.Code != http.StatusConflict {
			t.Fatalf("expected 409 on retrigger %d, got %d", i, rec.Code)
		}
	}

	close(history.release)
	f.waitCompleted(t)

	rec = f.do(t, http.MethodPost, "/api/sync", "")
	if rec.Code != http.StatusAccepted {
		t.Errorf("expected runnable after completion, got %d", rec.Code)
	}
	f.waitCompleted(t)
}

func TestSyncDispatch(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/sync", `{"limit": 1}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	// background run completes and leaves a report behind
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f.api.orchestrator.State().Snapshot().State == tasks.StateCompleted {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	snap := f.api.orchestrator.State().Snapshot()
	if snap.State != tasks.StateCompleted {
		t.Fatalf("expected completed run, got %s", snap.State)
	}
	if snap.LastReport == nil || snap.LastReport.Status != models.StatusSuccess {
		t.Errorf("expected success report, got %+v", snap.LastReport)
	}
}

func TestListCollections(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/collections", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var collections []models.Collection
	if err := json.Unmarshal(rec.Body.Bytes(), &collections); err != nil {
		t.Fatalf("failed to decode collections: %v", err)
	}
	if len(collections) != 1 || collections[0].Key != "workout" {
		t.Errorf("unexpected collections: %+v", collections)
	}
}

func TestCreateCollection(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/collections", `{"name": "Deep Focus", "description": "Concentration"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.Collection
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode collection: %v", err)
	}
	if created.Key != "deep-focus" {
		t.Errorf("expected slugged key, got %q", created.Key)
	}
	if created.RemoteID == "" {
		t.Error("expected best-effort provisioning to set remote id")
	}

	saved, err := f.store.LoadCollections()
	if err != nil {
		t.Fatalf("failed to load collections: %v", err)
	}
	if len(saved) != 2 {
		t.Errorf("expected 2 collections, got %d", len(saved))
	}
}

func TestCreateCollectionDuplicate(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/collections", `{"name": "Workout"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestCreateCollectionInvalid(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty name", `{"name": ""}`},
		{"bad json", `{`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/collections", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestCreateCollectionProvisionFailure(t *testing.T) {
	f := newAPIFixture(t)
	f.playlists.Err = io.ErrUnexpectedEOF

	rec := f.do(t, http.MethodPost, "/api/collections", `{"name": "Chill"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite provisioning failure, got %d", rec.Code)
	}

	var created models.Collection
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode collection: %v", err)
	}
	if created.RemoteID != "" {
		t.Error("expected empty remote id after provisioning failure")
	}
}

func TestAddActivity(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"name": "Gym", "playlist": "workout", "days": ["mon", "wed"], "windows": [{"start": "06:00", "end": "08:00"}]}`
	rec := f.do(t, http.MethodPost, "/api/schedule/activities", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/schedule", "")
	var schedule models.Schedule
	if err := json.Unmarshal(rec.Body.Bytes(), &schedule); err != nil {
		t.Fatalf("failed to decode schedule: %v", err)
	}
	if len(schedule.Activities) != 1 || schedule.Activities[0].Name != "Gym" {
		t.Errorf("unexpected schedule: %+v", schedule)
	}
}

func TestAddActivityMissingFields(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/schedule/activities", `{"name": "Gym"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestLogEntryLifecycle(t *testing.T) {
	f := newAPIFixture(t)

	body := `{"start": "2025-06-10T18:00", "end": "2025-06-10T20:00", "playlist": "workout", "note": "long drive"}`
	rec := f.do(t, http.MethodPost, "/api/log", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var created models.ActivityLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	if created.ID == "" {
		t.Error("expected generated id")
	}

	rec = f.do(t, http.MethodGet, "/api/log", "")
	var entries []models.ActivityLogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Note != "long drive" {
		t.Errorf("unexpected entries: %+v", entries)
	}
}

func TestLogEntryInvalid(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad timestamp", `{"start": "yesterday", "end": "2025-06-10T20:00", "playlist": "workout"}`},
		{"end before start", `{"start": "2025-06-10T20:00", "end": "2025-06-10T18:00", "playlist": "workout"}`},
		{"missing playlist", `{"start": "2025-06-10T18:00", "end": "2025-06-10T20:00"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/log", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLastReportEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/report", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no reports, got %d", rec.Code)
	}

	report := &models.SyncReport{ID: "r1", Status: models.StatusSuccess, Date: "2025-06-01T08:00:00Z"}
	if err := f.store.SaveReport(report); err != nil {
		t.Fatalf("failed to save report: %v", err)
	}

	rec = f.do(t, http.MethodGet, "/api/report", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got models.SyncReport
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if got.ID != "r1" {
		t.Errorf("expected report r1, got %s", got.ID)
	}
}

func TestStatsWithoutArchive(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/stats", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without archive, got %d", rec.Code)
	}
}

func TestMethodRouting(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodDelete, "/api/collections", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
