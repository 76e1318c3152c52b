// package services defines the collaborator contracts the sync engine
// depends on, plus their HTTP implementations
//
// YouTube Music (via the ytmusicapi proxy), Anthropic (categorizer)
package services

import (
	"context"

	"github.com/desertthunder/floe/internal/models"
)

// HistorySource supplies the user's listening history, most recent first,
// bounded by whatever the backing service retains.
type HistorySource interface {
	FetchHistory(ctx context.Context) ([]models.Track, error)
}

// PlaylistStore is the remote collection store. Creation is not idempotent on
// the server side, so callers must pre-filter against current membership
// before adding.
type PlaylistStore interface {
	// FindPlaylistByName returns the remote ID of the playlist with an exact
	// title match, or "" when absent.
	FindPlaylistByName(ctx context.Context, name string) (string, error)

	// CreatePlaylist creates a playlist and returns its remote ID.
	CreatePlaylist(ctx context.Context, name, description string) (string, error)

	// PlaylistTrackIDs returns the set of video IDs currently in a playlist.
	PlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error)

	// AddPlaylistItems appends the given videos to a playlist.
	AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error
}

// ClassifyContext is the configuration the categorizer folds into every
// batch prompt: the collection catalog, the recurring schedule, the raw
// activity log (filtered for recency by the implementation), and the
// fallback collection key.
type ClassifyContext struct {
	Collections     []models.Collection
	Schedule        models.Schedule
	ActivityLog     []models.ActivityLogEntry
	DefaultPlaylist string
}

// Classifier categorizes tracks into the user's collections. Implementations
// are best-effort per batch: a track missing from the response or a discarded
// batch simply stays unclassified this run and is retried on the next sync.
type Classifier interface {
	Classify(ctx context.Context, tracks []models.Track, cc ClassifyContext) ([]models.ClassificationResult, error)
}
