// package tasks implements the listening-history sync pipeline.
//
// The core abstraction is Orchestrator, which runs one end-to-end sync:
// provision playlists, fetch history, categorize new songs, reconcile
// playlist membership, and write the day's report. Operations emit progress
// updates via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/services"
	"github.com/desertthunder/floe/internal/shared"
	"github.com/desertthunder/floe/internal/store"
	"golang.org/x/time/rate"
)

// Pipeline step names used in report step results.
const (
	stepProvision = "provision"
	stepFetch     = "fetch_history"
	stepClassify  = "classify"
	stepPersist   = "persist_cache"
	stepReconcile = "reconcile"
)

// Archiver records run summaries and track verdicts in durable storage.
// Archival is best-effort: failures are logged and never fail a sync.
type Archiver interface {
	RecordRun(ctx context.Context, report *models.SyncReport) error
	RecordTracks(ctx context.Context, day string, tracks []models.Track, verdicts map[string]models.ClassificationResult) error
}

// Orchestrator runs sync pipelines against the configured collaborators.
// Playlist mutations are paced through a shared rate limiter.
type Orchestrator struct {
	history    services.HistorySource
	playlists  services.PlaylistStore
	classifier services.Classifier
	store      *store.Store
	archive    Archiver
	limiter    *rate.Limiter
	floor      float64
	logger     *log.Logger
	state      *RunState
}

// NewOrchestrator creates an Orchestrator. floor is the confidence threshold
// below which songs fall back to the schedule's default playlist.
func NewOrchestrator(history services.HistorySource, playlists services.PlaylistStore, classifier services.Classifier, st *store.Store, floor float64, logger *log.Logger) *Orchestrator {
	if floor <= 0 {
		floor = services.DefaultPromptPolicy.ConfidenceFloor
	}

	return &Orchestrator{
		history:    history,
		playlists:  playlists,
		classifier: classifier,
		store:      st,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
		floor:      floor,
		logger:     logger,
		state:      NewRunState(),
	}
}

// WithArchive attaches a durable archive for run summaries.
func (o *Orchestrator) WithArchive(archive Archiver) *Orchestrator {
	o.archive = archive
	return o
}

// State exposes the run guard for status surfaces.
func (o *Orchestrator) State() *RunState {
	return o.state
}

// sendProgress sends a progress update through the channel without blocking.
func (o *Orchestrator) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func addStep(report *models.SyncReport, name, outcome, reason string) {
	report.Steps = append(report.Steps, models.StepResult{Name: name, Outcome: outcome, Reason: reason})
}

// fail marks the report as errored, persists it, and returns the cause.
func (o *Orchestrator) fail(report *models.SyncReport, err error) (*models.SyncReport, error) {
	report.Status = models.StatusError
	report.Error = err.Error()
	if saveErr := o.store.SaveReport(report); saveErr != nil {
		o.logger.Error("failed to save error report", "error", saveErr)
	}
	return report, err
}

// Reserve atomically claims the run guard without starting a sync. Callers
// that dispatch RunReserved asynchronously use it to reject concurrent
// triggers before handing back control.
func (o *Orchestrator) Reserve() error {
	return o.state.TryStart()
}

// Run performs one end-to-end sync. Only one run may be in flight at a time;
// a second concurrent call returns ErrSyncInProgress. limit > 0 caps how many
// history entries are processed regardless of cache state.
func (o *Orchestrator) Run(ctx context.Context, limit int, progress chan<- ProgressUpdate) (*models.SyncReport, error) {
	if err := o.state.TryStart(); err != nil {
		return nil, err
	}
	return o.run(ctx, limit, progress)
}

// RunReserved performs a sync with the run guard already claimed via Reserve.
func (o *Orchestrator) RunReserved(ctx context.Context, limit int, progress chan<- ProgressUpdate) (*models.SyncReport, error) {
	return o.run(ctx, limit, progress)
}

func (o *Orchestrator) run(ctx context.Context, limit int, progress chan<- ProgressUpdate) (*models.SyncReport, error) {
	report := &models.SyncReport{
		ID:        shared.GenerateID(),
		Status:    models.StatusSuccess,
		Date:      time.Now().Format(time.RFC3339),
		Breakdown: make(map[string]models.CollectionReport),
	}
	defer o.state.Complete(report)

	collections, err := o.store.LoadCollections()
	if err != nil {
		return o.fail(report, fmt.Errorf("failed to load collections: %w", err))
	}
	if len(collections) == 0 {
		return o.fail(report, shared.ErrNoCollections)
	}

	schedule, err := o.store.LoadSchedule()
	if err != nil {
		return o.fail(report, fmt.Errorf("failed to load schedule: %w", err))
	}

	activityLog, err := o.store.LoadActivityLog()
	if err != nil {
		return o.fail(report, fmt.Errorf("failed to load activity log: %w", err))
	}

	cache, err := o.store.LoadCache()
	if err != nil {
		return o.fail(report, fmt.Errorf("failed to load cache: %w", err))
	}

	if err := o.provision(ctx, report, collections, progress); err != nil {
		return o.fail(report, err)
	}

	o.sendProgress(progress, fetchHistoryUpdate())
	tracks, err := o.history.FetchHistory(ctx)
	if err != nil {
		addStep(report, stepFetch, models.OutcomeFailed, err.Error())
		return o.fail(report, fmt.Errorf("failed to fetch history: %w", err))
	}
	addStep(report, stepFetch, models.OutcomeSuccess, "")

	tracks = o.scopeTracks(tracks, cache, schedule, limit)
	report.SongsFetched = len(tracks)

	if len(tracks) == 0 {
		report.Status = models.StatusEmpty
		o.finish(ctx, report, tracks, cache, progress)
		return report, nil
	}

	newTracks := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if !cache.Has(t.VideoID) {
			newTracks = append(newTracks, t)
		}
	}
	report.Cached = len(tracks) - len(newTracks)

	o.classify(ctx, report, newTracks, collections, schedule, activityLog, cache, progress)
	o.reconcile(ctx, report, tracks, collections, schedule, cache, progress)

	for _, step := range report.Steps {
		if step.Outcome == models.OutcomeFailed {
			report.Status = models.StatusPartial
			break
		}
	}

	o.finish(ctx, report, tracks, cache, progress)
	return report, nil
}

// provision ensures every collection has a remote playlist, reusing an
// existing playlist with the same name before creating one. Per-collection
// failures leave the collection unprovisioned and the run continues.
func (o *Orchestrator) provision(ctx context.Context, report *models.SyncReport, collections []models.Collection, progress chan<- ProgressUpdate) error {
	var failures int
	var changed bool
	var firstErr error

	for i := range collections {
		if collections[i].RemoteID != "" {
			continue
		}

		o.sendProgress(progress, provisionUpdate(i+1, len(collections), collections[i].Name))

		if err := o.limiter.Wait(ctx); err != nil {
			return err
		}

		id, err := o.playlists.FindPlaylistByName(ctx, collections[i].Name)
		if err == nil && id == "" {
			if err = o.limiter.Wait(ctx); err != nil {
				return err
			}
			id, err = o.playlists.CreatePlaylist(ctx, collections[i].Name, collections[i].Description)
		}
		if err != nil {
			failures++
			if firstErr == nil {
				firstErr = err
			}
			o.logger.Warn("failed to provision collection", "collection", collections[i].Key, "error", err)
			continue
		}

		collections[i].RemoteID = id
		changed = true
	}

	if changed {
		// losing provisioned IDs would create duplicate playlists next run
		if err := o.store.SaveCollections(collections); err != nil {
			return fmt.Errorf("failed to save collections: %w", err)
		}
	}

	if failures > 0 {
		addStep(report, stepProvision, models.OutcomeFailed, fmt.Sprintf("%d collections unprovisioned: %v", failures, firstErr))
	} else {
		addStep(report, stepProvision, models.OutcomeSuccess, "")
	}
	return nil
}

// scopeTracks bounds the working set. An empty cache means a first run, which
// is capped at the schedule's initial scan depth so ancient history does not
// flood the playlists. An explicit limit overrides the depth cap.
func (o *Orchestrator) scopeTracks(tracks []models.Track, cache *store.Cache, schedule models.Schedule, limit int) []models.Track {
	if limit > 0 {
		if len(tracks) > limit {
			tracks = tracks[:limit]
		}
		return tracks
	}

	if cache.Len() == 0 {
		if depth := schedule.ScanDepth(); len(tracks) > depth {
			o.logger.Info("first run, limiting scan depth", "depth", depth, "fetched", len(tracks))
			tracks = tracks[:depth]
		}
	}
	return tracks
}

// classify runs uncached tracks through the categorizer and merges the
// verdicts into the cache. The cache file is rewritten at most once per run.
func (o *Orchestrator) classify(ctx context.Context, report *models.SyncReport, newTracks []models.Track, collections []models.Collection, schedule models.Schedule, activityLog []models.ActivityLogEntry, cache *store.Cache, progress chan<- ProgressUpdate) {
	o.sendProgress(progress, classifyUpdate(len(newTracks), report.Cached))

	if len(newTracks) == 0 {
		addStep(report, stepClassify, models.OutcomeSkipped, "all songs cached")
		return
	}

	cc := services.ClassifyContext{
		Collections:     collections,
		Schedule:        schedule,
		ActivityLog:     activityLog,
		DefaultPlaylist: schedule.DefaultPlaylist,
	}

	results, err := o.classifier.Classify(ctx, newTracks, cc)
	if err != nil {
		addStep(report, stepClassify, models.OutcomeFailed, err.Error())
		o.logger.Warn("categorization failed, continuing with cached verdicts", "error", err)
		return
	}

	report.NewCategorization = len(results)
	switch {
	case len(results) == len(newTracks):
		addStep(report, stepClassify, models.OutcomeSuccess, "")
	default:
		// uncategorized songs stay out of the cache and retry next run
		addStep(report, stepClassify, models.OutcomeSkipped, fmt.Sprintf("%d of %d songs categorized", len(results), len(newTracks)))
	}

	if len(results) == 0 {
		return
	}

	cache.UpsertBatch(results)
	if err := o.store.SaveCache(cache); err != nil {
		addStep(report, stepPersist, models.OutcomeFailed, err.Error())
		o.logger.Error("failed to save classification cache", "error", err)
	}
}

// reconcile groups classified tracks by target collection and appends the
// ones not already present. A failure on one collection never blocks the
// others.
func (o *Orchestrator) reconcile(ctx context.Context, report *models.SyncReport, tracks []models.Track, collections []models.Collection, schedule models.Schedule, cache *store.Cache, progress chan<- ProgressUpdate) {
	known := make(map[string]struct{}, len(collections))
	for _, c := range collections {
		known[c.Key] = struct{}{}
	}

	// group in fetch order, dropping duplicate plays of the same video
	byKey := make(map[string][]string)
	grouped := make(map[string]struct{})
	for _, t := range tracks {
		verdict, ok := cache.Lookup(t.VideoID)
		if !ok {
			continue
		}
		if _, dup := grouped[t.VideoID]; dup {
			continue
		}
		grouped[t.VideoID] = struct{}{}

		key := verdict.BestPlaylist
		if verdict.Confidence < o.floor {
			key = schedule.DefaultPlaylist
		}
		if _, exists := known[key]; !exists {
			key = schedule.DefaultPlaylist
			if _, exists := known[key]; !exists {
				continue
			}
		}
		byKey[key] = append(byKey[key], t.VideoID)
	}

	var failures int
	for i, c := range collections {
		ids := byKey[c.Key]
		if len(ids) == 0 {
			continue
		}

		o.sendProgress(progress, reconcileUpdate(i+1, len(collections), c.Name, len(ids)))

		added, err := o.addTracks(ctx, c, ids)
		report.Breakdown[c.Key] = models.CollectionReport{Name: c.Name, Attempted: len(ids), Added: added}
		if err != nil {
			failures++
			o.logger.Warn("failed to reconcile collection", "collection", c.Key, "error", err)
			continue
		}
		report.TotalAdded += added
	}

	if failures > 0 {
		addStep(report, stepReconcile, models.OutcomeFailed, fmt.Sprintf("%d collections failed", failures))
	} else {
		addStep(report, stepReconcile, models.OutcomeSuccess, "")
	}
}

// addTracks appends ids to the collection's remote playlist, filtering out
// tracks already present. The add endpoint duplicates on repeat adds, so the
// membership check is mandatory.
func (o *Orchestrator) addTracks(ctx context.Context, c models.Collection, ids []string) (int, error) {
	if c.RemoteID == "" {
		return 0, fmt.Errorf("%w: collection %q has no remote playlist", shared.ErrPlaylistNotFound, c.Key)
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	existing, err := o.playlists.PlaylistTrackIDs(ctx, c.RemoteID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch playlist contents: %w", err)
	}

	toAdd := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, present := existing[id]; !present {
			toAdd = append(toAdd, id)
		}
	}
	if len(toAdd) == 0 {
		return 0, nil
	}

	if err := o.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	if err := o.playlists.AddPlaylistItems(ctx, c.RemoteID, toAdd); err != nil {
		return 0, fmt.Errorf("failed to add playlist items: %w", err)
	}
	return len(toAdd), nil
}

// finish writes the day's report and archives the run.
func (o *Orchestrator) finish(ctx context.Context, report *models.SyncReport, tracks []models.Track, cache *store.Cache, progress chan<- ProgressUpdate) {
	o.sendProgress(progress, reportUpdate(report.TotalAdded))

	if err := o.store.SaveReport(report); err != nil {
		o.logger.Error("failed to save report", "error", err)
	}

	if o.archive == nil {
		return
	}

	if err := o.archive.RecordRun(ctx, report); err != nil {
		o.logger.Warn("failed to archive run", "error", err)
	}

	verdicts := make(map[string]models.ClassificationResult, len(tracks))
	for _, t := range tracks {
		if v, ok := cache.Lookup(t.VideoID); ok {
			verdicts[t.VideoID] = v
		}
	}
	if err := o.archive.RecordTracks(ctx, report.Day(), tracks, verdicts); err != nil {
		o.logger.Warn("failed to archive tracks", "error", err)
	}
}
