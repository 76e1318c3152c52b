package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/repositories"
	"github.com/desertthunder/floe/internal/services"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/desertthunder/floe/internal/store"
	"github.com/desertthunder/floe/internal/tasks"
)

// API exposes the sync engine over HTTP for schedulers and local tooling.
type API struct {
	store        *store.Store
	orchestrator *tasks.Orchestrator
	playlists    services.PlaylistStore
	archive      *repositories.HistoryArchive
	logger       *log.Logger
}

// NewAPI creates the HTTP API around the orchestrator and its state store.
func NewAPI(st *store.Store, orchestrator *tasks.Orchestrator, playlists services.PlaylistStore, logger *log.Logger) *API {
	return &API{
		store:        st,
		orchestrator: orchestrator,
		playlists:    playlists,
		logger:       logger,
	}
}

// WithArchive enables the stats endpoint backed by the sqlite archive.
func (a *API) WithArchive(archive *repositories.HistoryArchive) *API {
	a.archive = archive
	return a
}

// Register wires all API routes into the router.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(a.handleHealth))
	r.Handle(http.MethodPost, "/api/sync", http.HandlerFunc(a.handleSync))
	r.Handle(http.MethodGet, "/api/sync/status", http.HandlerFunc(a.handleSyncStatus))
	r.Handle(http.MethodGet, "/api/collections", http.HandlerFunc(a.handleListCollections))
	r.Handle(http.MethodPost, "/api/collections", http.HandlerFunc(a.handleCreateCollection))
	r.Handle(http.MethodGet, "/api/schedule", http.HandlerFunc(a.handleGetSchedule))
	r.Handle(http.MethodPost, "/api/schedule/activities", http.HandlerFunc(a.handleAddActivity))
	r.Handle(http.MethodGet, "/api/log", http.HandlerFunc(a.handleListLog))
	r.Handle(http.MethodPost, "/api/log", http.HandlerFunc(a.handleAddLogEntry))
	r.Handle(http.MethodGet, "/api/report", http.HandlerFunc(a.handleLastReport))
	r.Handle(http.MethodGet, "/api/stats", http.HandlerFunc(a.handleStats))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSync dispatches a sync run in the background. The run guard is
// claimed before the response is written, so at most one concurrent trigger
// gets 202; the rest get 409. The dispatched run records its own report,
// including failures.
func (a *API) handleSync(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Limit int `json:"limit"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	if err := a.orchestrator.Reserve(); err != nil {
		writeError(w, http.StatusConflict, "sync already in progress")
		return
	}

	go func() {
		// request context dies with the response; the run outlives it
		report, err := a.orchestrator.RunReserved(context.Background(), body.Limit, nil)
		if err != nil {
			a.logger.Error("sync run failed", "error", err)
			return
		}
		a.logger.Info("sync run finished", "status", report.Status, "added", report.TotalAdded)
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (a *API) handleSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.orchestrator.State().Snapshot())
}

func (a *API) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := a.store.LoadCollections()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load collections: %v", err)
		return
	}
	if collections == nil {
		collections = []models.Collection{}
	}
	writeJSON(w, http.StatusOK, collections)
}

// handleCreateCollection persists a new collection and provisions its remote
// playlist best-effort. Provisioning failures leave RemoteID empty for the
// next sync run to retry.
func (a *API) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	collection := models.Collection{
		Key:         shared.Slugify(body.Name),
		Name:        body.Name,
		Description: body.Description,
	}
	if err := collection.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	collections, err := a.store.LoadCollections()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load collections: %v", err)
		return
	}

	for _, existing := range collections {
		if existing.Key == collection.Key {
			writeError(w, http.StatusConflict, "%v: %s", shared.ErrDuplicateKey, collection.Key)
			return
		}
	}

	if a.playlists != nil {
		id, err := a.playlists.FindPlaylistByName(r.Context(), collection.Name)
		if err == nil && id == "" {
			id, err = a.playlists.CreatePlaylist(r.Context(), collection.Name, collection.Description)
		}
		if err != nil {
			a.logger.Warn("failed to provision playlist", "collection", collection.Key, "error", err)
		} else {
			collection.RemoteID = id
		}
	}

	collections = append(collections, collection)
	if err := a.store.SaveCollections(collections); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save collections: %v", err)
		return
	}

	writeJSON(w, http.StatusCreated, collection)
}

func (a *API) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := a.store.LoadSchedule()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load schedule: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, schedule)
}

func (a *API) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	var activity models.Activity
	if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if activity.Name == "" || activity.Playlist == "" {
		writeError(w, http.StatusBadRequest, "name and playlist are required")
		return
	}

	schedule, err := a.store.LoadSchedule()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load schedule: %v", err)
		return
	}

	schedule.Activities = append(schedule.Activities, activity)
	if err := a.store.SaveSchedule(schedule); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save schedule: %v", err)
		return
	}

	writeJSON(w, http.StatusCreated, activity)
}

func (a *API) handleListLog(w http.ResponseWriter, r *http.Request) {
	entries, err := a.store.LoadActivityLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load activity log: %v", err)
		return
	}
	if entries == nil {
		entries = []models.ActivityLogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (a *API) handleAddLogEntry(w http.ResponseWriter, r *http.Request) {
	var entry models.ActivityLogEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := entry.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "%v", err)
		return
	}

	entry.ID = shared.GenerateID()

	entries, err := a.store.LoadActivityLog()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load activity log: %v", err)
		return
	}

	entries = append(entries, entry)
	if err := a.store.SaveActivityLog(entries); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save activity log: %v", err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (a *API) handleLastReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.store.LastReport()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load report: %v", err)
		return
	}
	if report == nil {
		writeError(w, http.StatusNotFound, "no sync reports yet")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	if a.archive == nil {
		writeError(w, http.StatusNotFound, "archive not configured")
		return
	}

	stats, err := a.archive.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
