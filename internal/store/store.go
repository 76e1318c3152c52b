// package store persists Floe's user configuration and run artifacts as
// whole-document JSON files.
//
// Every document is read fully at run start and written fully at well-defined
// points; there are no partial updates. Writes go through a temp file and
// rename so a crash never leaves a half-written document behind. Correctness
// depends on there being exactly one writer process, which the tasks package's
// single-run guard enforces.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/desertthunder/floe/internal/models"
)

const (
	collectionsFile = "collections.json"
	scheduleFile    = "schedule.json"
	activityLogFile = "activity_log.json"
	songCacheFile   = "song_cache.json"
	reportSuffix    = "_report.json"
)

// Store owns the data and reports directories.
type Store struct {
	dataDir    string
	reportsDir string
}

// New creates a Store rooted at the given directories.
func New(dataDir, reportsDir string) *Store {
	return &Store{dataDir: dataDir, reportsDir: reportsDir}
}

// LoadCollections reads the collection configs. A missing file is an empty list.
func (s *Store) LoadCollections() ([]models.Collection, error) {
	var collections []models.Collection
	if err := s.readJSON(filepath.Join(s.dataDir, collectionsFile), &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// SaveCollections overwrites the collection configs.
func (s *Store) SaveCollections(collections []models.Collection) error {
	return s.writeJSON(filepath.Join(s.dataDir, collectionsFile), collections)
}

// LoadSchedule reads the recurring schedule. A missing file is a zero schedule.
func (s *Store) LoadSchedule() (models.Schedule, error) {
	var schedule models.Schedule
	if err := s.readJSON(filepath.Join(s.dataDir, scheduleFile), &schedule); err != nil {
		return models.Schedule{}, err
	}
	return schedule, nil
}

// SaveSchedule overwrites the recurring schedule.
func (s *Store) SaveSchedule(schedule models.Schedule) error {
	return s.writeJSON(filepath.Join(s.dataDir, scheduleFile), schedule)
}

// LoadActivityLog reads the one-off activity log entries.
func (s *Store) LoadActivityLog() ([]models.ActivityLogEntry, error) {
	var log []models.ActivityLogEntry
	if err := s.readJSON(filepath.Join(s.dataDir, activityLogFile), &log); err != nil {
		return nil, err
	}
	return log, nil
}

// SaveActivityLog overwrites the activity log.
func (s *Store) SaveActivityLog(log []models.ActivityLogEntry) error {
	return s.writeJSON(filepath.Join(s.dataDir, activityLogFile), log)
}

// LoadCache reads the classification cache. A missing file is an empty cache.
func (s *Store) LoadCache() (*Cache, error) {
	entries := map[string]models.ClassificationResult{}
	if err := s.readJSON(filepath.Join(s.dataDir, songCacheFile), &entries); err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// SaveCache overwrites the classification cache. Called exactly once per sync
// run, after all batches complete.
func (s *Store) SaveCache(cache *Cache) error {
	return s.writeJSON(filepath.Join(s.dataDir, songCacheFile), cache.entries)
}

// SaveReport persists a sync report keyed by the run's calendar date.
// A second run on the same day overwrites that day's report.
func (s *Store) SaveReport(report *models.SyncReport) error {
	name := report.Day() + reportSuffix
	return s.writeJSON(filepath.Join(s.reportsDir, name), report)
}

// LastReport returns the most recent sync report, or nil if none exist.
func (s *Store) LastReport() (*models.SyncReport, error) {
	entries, err := os.ReadDir(s.reportsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read reports directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), reportSuffix) {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	// Date-prefixed names sort chronologically
	sort.Strings(names)
	var report models.SyncReport
	if err := s.readJSON(filepath.Join(s.reportsDir, names[len(names)-1]), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// readJSON decodes path into v, treating a missing file as empty.
func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// writeJSON writes v to path atomically (temp file + rename), creating the
// parent directory when needed.
func (s *Store) writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", filepath.Base(path), err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
