// package repositories provides the durable archive behind reporting surfaces.
//
// The JSON documents in the data directory are the source of truth for sync
// state; the archive is a best-effort sqlite mirror used for run history and
// aggregate stats.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/floe/internal/models"
)

// HistoryArchive records sync runs and classified tracks in sqlite.
type HistoryArchive struct {
	db *sql.DB
}

// NewHistoryArchive creates a HistoryArchive with the given database connection.
func NewHistoryArchive(db *sql.DB) *HistoryArchive {
	return &HistoryArchive{db: db}
}

// RecordRun upserts the run summary for its calendar day. Re-running on the
// same day replaces that day's row, matching the report store's semantics.
func (r *HistoryArchive) RecordRun(ctx context.Context, report *models.SyncReport) error {
	query := `
		INSERT INTO sync_runs (day, status, songs_fetched, new_categorizations, cached, total_added)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(day) DO UPDATE SET
			status = excluded.status,
			songs_fetched = excluded.songs_fetched,
			new_categorizations = excluded.new_categorizations,
			cached = excluded.cached,
			total_added = excluded.total_added,
			created_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		report.Day(),
		report.Status,
		report.SongsFetched,
		report.NewCategorization,
		report.Cached,
		report.TotalAdded,
	)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	return nil
}

// RecordTracks upserts tracks with their verdicts. Tracks without a verdict
// are still archived so unclassified plays remain visible in stats.
func (r *HistoryArchive) RecordTracks(ctx context.Context, day string, tracks []models.Track, verdicts map[string]models.ClassificationResult) error {
	if len(tracks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO track_archive (video_id, title, artist, album, duration_seconds, played_at, best_playlist, confidence, energy_level, tempo, mood, first_seen_day)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			played_at = excluded.played_at,
			best_playlist = excluded.best_playlist,
			confidence = excluded.confidence,
			energy_level = excluded.energy_level,
			tempo = excluded.tempo,
			mood = excluded.mood
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	seen := make(map[string]struct{}, len(tracks))
	for _, track := range tracks {
		if _, dup := seen[track.VideoID]; dup {
			continue
		}
		seen[track.VideoID] = struct{}{}

		var playlist, tempo, mood any
		var confidence, energy any
		if v, ok := verdicts[track.VideoID]; ok {
			playlist, tempo, mood = v.BestPlaylist, v.Tempo, v.Mood
			confidence, energy = v.Confidence, v.EnergyLevel
		}

		_, err := stmt.ExecContext(ctx,
			track.VideoID,
			track.Title,
			track.Artist,
			track.Album,
			track.DurationSec,
			track.PlayedAt,
			playlist,
			confidence,
			energy,
			tempo,
			mood,
			day,
		)
		if err != nil {
			return fmt.Errorf("failed to archive track %s: %w", track.VideoID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit archive transaction: %w", err)
	}

	return nil
}

// RunSummary is one sync_runs row.
type RunSummary struct {
	Day               string `json:"day"`
	Status            string `json:"status"`
	SongsFetched      int    `json:"songs_fetched"`
	NewCategorization int    `json:"new_categorizations"`
	Cached            int    `json:"cached"`
	TotalAdded        int    `json:"total_added"`
}

// RecentRuns returns up to limit run summaries, newest first.
func (r *HistoryArchive) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 30
	}

	query := `
		SELECT day, status, songs_fetched, new_categorizations, cached, total_added
		FROM sync_runs
		ORDER BY day DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var run RunSummary
		if err := rows.Scan(&run.Day, &run.Status, &run.SongsFetched, &run.NewCategorization, &run.Cached, &run.TotalAdded); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// PlaylistCount is the number of archived tracks assigned to one playlist.
type PlaylistCount struct {
	Playlist string `json:"playlist"`
	Count    int    `json:"count"`
}

// Stats aggregates the track archive for the stats surface.
type Stats struct {
	TotalTracks   int             `json:"total_tracks"`
	Classified    int             `json:"classified"`
	TotalRuns     int             `json:"total_runs"`
	TotalAdded    int             `json:"total_added"`
	AvgConfidence float64         `json:"avg_confidence"`
	ByPlaylist    []PlaylistCount `json:"by_playlist"`
}

// Stats computes archive-wide aggregates.
func (r *HistoryArchive) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT COUNT(*),
			COUNT(best_playlist),
			COALESCE(AVG(confidence), 0)
		FROM track_archive
	`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalTracks, &stats.Classified, &stats.AvgConfidence); err != nil {
		return nil, fmt.Errorf("failed to aggregate tracks: %w", err)
	}

	query = `SELECT COUNT(*), COALESCE(SUM(total_added), 0) FROM sync_runs`
	if err := r.db.QueryRowContext(ctx, query).Scan(&stats.TotalRuns, &stats.TotalAdded); err != nil {
		return nil, fmt.Errorf("failed to aggregate runs: %w", err)
	}

	query = `
		SELECT best_playlist, COUNT(*)
		FROM track_archive
		WHERE best_playlist IS NOT NULL
		GROUP BY best_playlist
		ORDER BY COUNT(*) DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate playlists: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pc PlaylistCount
		if err := rows.Scan(&pc.Playlist, &pc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan playlist count: %w", err)
		}
		stats.ByPlaylist = append(stats.ByPlaylist, pc)
	}

	return stats, rows.Err()
}
