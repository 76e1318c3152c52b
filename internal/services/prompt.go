package services

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/floe/internal/models"
)

// recentEntriesCap bounds how many activity-log overrides make it into a prompt.
const recentEntriesCap = 20

const promptTemplate = `You are analyzing songs to categorize them into the user's custom playlists.

Available Playlists:
%s

User's Recurring Schedule:
%s

Recent Activity Log (one-off entries that override the recurring schedule):
%s

Default playlist (when no schedule matches): "%s"

For each song, consider:
- Play time is a strong signal (%d%% weight): match it against the schedule/activity log above
- Song characteristics (%d%% weight): use the playlist descriptions to judge fit
- If a one-off activity log entry covers the play time, it takes priority over the recurring schedule
- If confidence < %.1f, assign to the default playlist

Analyze each song below and return a JSON array. For each song, return:
{
  "videoId": "<the videoId>",
  "energy_level": <1-10>,
  "tempo": "slow|medium|fast",
  "mood": "<one word>",
  "best_playlist": "<playlist key from the list above>",
  "confidence": <0.0-1.0>,
  "reasoning": "<brief explanation>"
}

Songs to analyze:
%s

Return ONLY a valid JSON array, no markdown fencing.`

// PromptPolicy is the scoring policy rendered into every batch prompt. The
// weights belong to the categorizer's instructions, not to the sync engine's
// control flow, so they travel as configuration data.
type PromptPolicy struct {
	TimeWeight      int
	SongWeight      int
	ConfidenceFloor float64
}

// DefaultPromptPolicy matches the documented 60/40 split with a 0.6 floor.
var DefaultPromptPolicy = PromptPolicy{TimeWeight: 60, SongWeight: 40, ConfidenceFloor: 0.6}

// promptSong is the trimmed track shape sent to the model.
type promptSong struct {
	VideoID  string `json:"videoId"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	PlayedAt string `json:"played_at"`
}

// buildPrompt renders one batch into the full categorization prompt.
func buildPrompt(batch []models.Track, cc ClassifyContext, policy PromptPolicy, now time.Time) (string, error) {
	songs := make([]promptSong, len(batch))
	for i, track := range batch {
		songs[i] = promptSong{
			VideoID:  track.VideoID,
			Title:    track.Title,
			Artist:   track.Artist,
			Album:    track.Album,
			PlayedAt: track.PlayedAt,
		}
	}

	songsJSON, err := json.MarshalIndent(songs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal songs: %w", err)
	}

	return fmt.Sprintf(promptTemplate,
		buildCollectionsSection(cc.Collections),
		buildScheduleSection(cc.Schedule),
		buildActivityLogSection(cc.ActivityLog, now),
		cc.DefaultPlaylist,
		policy.TimeWeight,
		policy.SongWeight,
		policy.ConfidenceFloor,
		string(songsJSON),
	), nil
}

// buildCollectionsSection renders the collection catalog.
func buildCollectionsSection(collections []models.Collection) string {
	if len(collections) == 0 {
		return "No playlists configured."
	}

	lines := make([]string, len(collections))
	for i, c := range collections {
		lines[i] = fmt.Sprintf("- %q: %s - %s", c.Key, c.Name, c.Description)
	}
	return strings.Join(lines, "\n")
}

var dayLabels = map[string]string{
	"mon": "Mon", "tue": "Tue", "wed": "Wed", "thu": "Thu",
	"fri": "Fri", "sat": "Sat", "sun": "Sun",
}

// buildScheduleSection renders recurring activities as day/window/collection triples.
func buildScheduleSection(schedule models.Schedule) string {
	if len(schedule.Activities) == 0 {
		return "No recurring schedule configured."
	}

	var lines []string
	for _, act := range schedule.Activities {
		days := make([]string, len(act.Days))
		for i, d := range act.Days {
			label, ok := dayLabels[d]
			if !ok {
				label = d
			}
			days[i] = label
		}

		windows := make([]string, len(act.Windows))
		for i, w := range act.Windows {
			windows[i] = fmt.Sprintf("%s-%s", w.Start, w.End)
		}

		lines = append(lines, fmt.Sprintf("- %s %s: %s -> playlist %q",
			strings.Join(days, ", "), strings.Join(windows, ", "), act.Name, act.Playlist))
	}
	return strings.Join(lines, "\n")
}

// buildActivityLogSection renders the override layer, filtered to entries from
// the current month and capped to the most recent entries.
func buildActivityLogSection(log []models.ActivityLogEntry, now time.Time) string {
	var recent []models.ActivityLogEntry
	for _, entry := range log {
		if entry.SameMonth(now) {
			recent = append(recent, entry)
		}
	}

	if len(recent) == 0 {
		return "No recent activity logged."
	}

	if len(recent) > recentEntriesCap {
		recent = recent[len(recent)-recentEntriesCap:]
	}

	lines := make([]string, len(recent))
	for i, entry := range recent {
		note := ""
		if entry.Note != "" {
			note = fmt.Sprintf(" (%s)", entry.Note)
		}
		lines[i] = fmt.Sprintf("- %s to %s: playlist %q%s", entry.Start, entry.End, entry.Playlist, note)
	}
	return strings.Join(lines, "\n")
}
