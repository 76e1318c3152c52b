// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/services"
)

// MockHistory is a test double for [services.HistorySource].
type MockHistory struct {
	Tracks []models.Track
	Err    error
}

func (m *MockHistory) FetchHistory(ctx context.Context) ([]models.Track, error) {
	return m.Tracks, m.Err
}

// MockPlaylists is a test double for [services.PlaylistStore] backed by an
// in-memory library.
type MockPlaylists struct {
	Library     map[string]string              // playlist name -> remote id
	Members     map[string]map[string]struct{} // remote id -> member video ids
	Added       map[string][]string            // remote id -> ids passed to add
	Err         error                          // forced failure for every call
	CreateCalls int
}

func NewMockPlaylists() *MockPlaylists {
	return &MockPlaylists{
		Library: make(map[string]string),
		Members: make(map[string]map[string]struct{}),
		Added:   make(map[string][]string),
	}
}

func (m *MockPlaylists) FindPlaylistByName(ctx context.Context, name string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.Library[name], nil
}

func (m *MockPlaylists) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.CreateCalls++
	id := fmt.Sprintf("PL%d", m.CreateCalls)
	m.Library[name] = id
	return id, nil
}

func (m *MockPlaylists) PlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	ids := make(map[string]struct{})
	for id := range m.Members[playlistID] {
		ids[id] = struct{}{}
	}
	return ids, nil
}

func (m *MockPlaylists) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Added[playlistID] = append(m.Added[playlistID], videoIDs...)
	if m.Members[playlistID] == nil {
		m.Members[playlistID] = make(map[string]struct{})
	}
	for _, id := range videoIDs {
		m.Members[playlistID][id] = struct{}{}
	}
	return nil
}

// MockClassifier is a test double for [services.Classifier]. Verdict maps
// each track; nil Verdict assigns everything to Playlist with Confidence.
type MockClassifier struct {
	Playlist   string
	Confidence float64
	Verdict    func(t models.Track) models.ClassificationResult
	Err        error
}

func (m *MockClassifier) Classify(ctx context.Context, tracks []models.Track, cc services.ClassifyContext) ([]models.ClassificationResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	results := make([]models.ClassificationResult, len(tracks))
	for i, t := range tracks {
		if m.Verdict != nil {
			results[i] = m.Verdict(t)
			continue
		}
		results[i] = models.ClassificationResult{
			VideoID:      t.VideoID,
			BestPlaylist: m.Playlist,
			Confidence:   m.Confidence,
		}
	}
	return results, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
