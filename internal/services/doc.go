// Package services defines the collaborator interfaces the sync engine depends on and implements them for YouTube Music and Anthropic.
//
// # Interfaces
//
// [HistorySource] supplies listening history; [PlaylistStore] manages remote
// playlists; [Classifier] categorizes tracks into collections. The engine in
// internal/tasks consumes only these interfaces, so collaborators can be
// swapped for test doubles.
//
// # YouTube Music
//
// [YTMusicService] implements [HistorySource] and [PlaylistStore] against the
// FastAPI proxy wrapping the ytmusicapi Python library. The proxy is the only
// way to reach YouTube Music's private endpoints; requests carry an
// X-Auth-File header naming the browser-header auth file generated by the
// setup command.
//
// # Anthropic
//
// [Categorizer] implements [Classifier] over the Anthropic Messages API.
// Tracks travel in fixed-size batches; each batch prompt folds in the
// collection catalog, the recurring schedule, and recent activity-log
// overrides so play time can dominate the verdict. A batch whose response
// cannot be parsed as a JSON array is discarded, leaving its tracks for the
// next run.
//
// Both HTTP clients share the retry helper: transient failures, 429s, and
// 5xx responses back off exponentially, honoring Retry-After.
package services
