// package models defines the data model for the Floe playlist curation service
package models

import (
	"fmt"
	"strings"
	"time"
)

// Tempo classifications produced by the categorizer.
const (
	TempoSlow   = "slow"
	TempoMedium = "medium"
	TempoFast   = "fast"
)

// Track is one playable listening-history entry. Tracks are immutable once
// fetched from the history source.
type Track struct {
	VideoID     string `json:"videoId"`
	Title       string `json:"title"`
	Artist      string `json:"artist"` // joined display string ("A, B")
	Album       string `json:"album"`
	DurationSec int    `json:"duration_seconds"`
	PlayedAt    string `json:"played_at"`
}

// ClassificationResult is the categorizer's verdict for a single track.
// There is at most one result per video ID; re-classification overwrites.
type ClassificationResult struct {
	VideoID      string  `json:"videoId"`
	EnergyLevel  int     `json:"energy_level"` // 1-10
	Tempo        string  `json:"tempo"`        // slow|medium|fast
	Mood         string  `json:"mood"`
	BestPlaylist string  `json:"best_playlist"` // collection key
	Confidence   float64 `json:"confidence"`    // 0.0-1.0
	Reasoning    string  `json:"reasoning"`
}

// Valid reports whether the result carries a usable video ID and sane bounds.
func (r ClassificationResult) Valid() bool {
	return r.VideoID != "" && r.Confidence >= 0 && r.Confidence <= 1
}

// Collection is a user-defined named bucket (playlist) that tracks are
// sorted into. Key is an immutable slug; RemoteID is empty until the
// playlist has been provisioned on YouTube Music and is set at most once.
type Collection struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	RemoteID    string `json:"ytmusic_playlist_id"`
}

// Validate checks that the collection has a key and a display name.
func (c Collection) Validate() error {
	if strings.TrimSpace(c.Key) == "" {
		return fmt.Errorf("collection key is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("collection name is required")
	}
	return nil
}

// TimeWindow is a daily interval in "HH:MM" wall-clock time.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Activity is one recurring schedule entry mapping weekday/time windows to a
// target collection.
type Activity struct {
	Name     string       `json:"name"`
	Playlist string       `json:"playlist"` // target collection key
	Days     []string     `json:"days"`     // mon..sun
	Windows  []TimeWindow `json:"windows"`
}

// Schedule is the user's recurring listening schedule plus sync defaults.
type Schedule struct {
	Activities       []Activity `json:"activities"`
	DefaultPlaylist  string     `json:"default_playlist"`
	InitialScanDepth int        `json:"initial_scan_depth"`
}

// DefaultInitialScanDepth bounds the first sync when the cache is empty and
// the schedule does not specify a depth.
const DefaultInitialScanDepth = 100

// ScanDepth returns the configured initial scan depth or the default.
func (s Schedule) ScanDepth() int {
	if s.InitialScanDepth > 0 {
		return s.InitialScanDepth
	}
	return DefaultInitialScanDepth
}

// ActivityLogEntry is a one-off override: when its interval covers a track's
// play time it takes priority over the recurring schedule.
type ActivityLogEntry struct {
	ID       string `json:"id,omitempty"`
	Start    string `json:"start"` // "2006-01-02T15:04"
	End      string `json:"end"`
	Playlist string `json:"playlist"`
	Note     string `json:"note,omitempty"`
}

// activityTimeLayout is the wire format for activity-log timestamps.
const activityTimeLayout = "2006-01-02T15:04"

// StartTime parses the entry's start timestamp.
func (e ActivityLogEntry) StartTime() (time.Time, error) {
	return time.Parse(activityTimeLayout, e.Start)
}

// EndTime parses the entry's end timestamp.
func (e ActivityLogEntry) EndTime() (time.Time, error) {
	return time.Parse(activityTimeLayout, e.End)
}

// Validate checks timestamps and the target playlist key.
func (e ActivityLogEntry) Validate() error {
	start, err := e.StartTime()
	if err != nil {
		return fmt.Errorf("invalid start time: %w", err)
	}
	end, err := e.EndTime()
	if err != nil {
		return fmt.Errorf("invalid end time: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("end must be after start")
	}
	if strings.TrimSpace(e.Playlist) == "" {
		return fmt.Errorf("playlist is required")
	}
	return nil
}

// SameMonth reports whether the entry starts in the same calendar month as t.
func (e ActivityLogEntry) SameMonth(t time.Time) bool {
	return strings.HasPrefix(e.Start, t.Format("2006-01"))
}

// Sync report status values.
const (
	StatusSuccess = "success"
	StatusEmpty   = "empty"
	StatusPartial = "partial"
	StatusError   = "error"
)

// Step outcomes for degrade-and-continue reporting.
const (
	OutcomeSuccess = "success"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// StepResult records how one pipeline step ended so the report can enumerate
// what was skipped and why instead of hiding failures in logs.
type StepResult struct {
	Name    string `json:"name"`
	Outcome string `json:"outcome"` // success|skipped|failed
	Reason  string `json:"reason,omitempty"`
}

// CollectionReport is the per-collection slice of a sync run.
type CollectionReport struct {
	Name      string `json:"name"`
	Attempted int    `json:"attempted"`
	Added     int    `json:"added"`
}

// SyncReport summarizes one end-to-end sync run. Reports are keyed by
// calendar date; a second run on the same day overwrites that day's report.
type SyncReport struct {
	ID                string                      `json:"id"`
	Status            string                      `json:"status"`
	Date              string                      `json:"date"` // RFC 3339
	SongsFetched      int                         `json:"songs_fetched"`
	NewCategorization int                         `json:"new_categorizations"`
	Cached            int                         `json:"cached"`
	TotalAdded        int                         `json:"total_added"`
	Breakdown         map[string]CollectionReport `json:"breakdown,omitempty"`
	Steps             []StepResult                `json:"steps,omitempty"`
	Error             string                      `json:"error,omitempty"`
}

// Day returns the report's calendar date ("2006-01-02") for file keying.
func (r SyncReport) Day() string {
	if len(r.Date) >= 10 {
		return r.Date[:10]
	}
	return r.Date
}
