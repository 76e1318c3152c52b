// YouTube Music API client
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python
// library. The proxy reads credentials from the auth file referenced by the
// X-Auth-File header.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/desertthunder/floe/internal/models"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
	Played      string          `json:"played"`
}

// YTMusicService implements HistorySource and PlaylistStore against the proxy.
type YTMusicService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
}

// NewYTMusicService creates a new YouTube Music service instance.
func NewYTMusicService(baseURL, authFile string) *YTMusicService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YTMusicService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authFile:   authFile,
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YTMusicService) Name() string {
	return "YouTube Music"
}

func (y *YTMusicService) doRequest(ctx context.Context, method, endpoint string, payload, result any) error {
	apiURL := y.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("youtube music API error (status %d): %s", resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("youtube music API error: status %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// FetchHistory retrieves recent listening history, most recent first, and
// returns normalized tracks. Entries without a video ID are skipped.
//
// Calls GET /api/library/history on the proxy.
func (y *YTMusicService) FetchHistory(ctx context.Context) ([]models.Track, error) {
	var raw []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, "/api/library/history", nil, &raw); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(raw))
	for _, item := range raw {
		if item.VideoID == "" {
			continue
		}
		tracks = append(tracks, normalizeTrack(item))
	}

	return tracks, nil
}

func normalizeTrack(item YouTubeTrack) models.Track {
	track := models.Track{
		VideoID:     item.VideoID,
		Title:       item.Title,
		Artist:      "Unknown",
		Album:       "Unknown",
		DurationSec: item.DurationSec,
		PlayedAt:    item.Played,
	}

	if track.Title == "" {
		track.Title = "Unknown"
	}

	if len(item.Artists) > 0 {
		names := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			if artist.Name != "" {
				names = append(names, artist.Name)
			}
		}
		if len(names) > 0 {
			track.Artist = strings.Join(names, ", ")
		}
	}

	if item.Album != nil && item.Album.Name != "" {
		track.Album = item.Album.Name
	}

	if track.DurationSec == 0 {
		track.DurationSec = parseDuration(item.Duration)
	}

	return track
}

// parseDuration parses "3:45" or "1:02:30" into total seconds.
func parseDuration(duration string) int {
	parts := strings.Split(duration, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// FindPlaylistByName searches the user's library for a playlist with an exact
// title match and returns its ID, or "" when absent.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YTMusicService) FindPlaylistByName(ctx context.Context, name string) (string, error) {
	var ytPlaylists []struct {
		PlaylistID string `json:"playlistId"`
		Title      string `json:"title"`
	}

	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", nil, &ytPlaylists); err != nil {
		return "", err
	}

	for _, pl := range ytPlaylists {
		if pl.Title == name {
			return pl.PlaylistID, nil
		}
	}

	return "", nil
}

// CreatePlaylist creates a private playlist and returns its remote ID.
//
// Calls POST /api/playlists on the proxy.
func (y *YTMusicService) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	createReq := struct {
		Title         string `json:"title"`
		Description   string `json:"description"`
		PrivacyStatus string `json:"privacy_status"`
	}{
		Title:         name,
		Description:   description,
		PrivacyStatus: "PRIVATE",
	}

	var createResp struct {
		PlaylistID string `json:"playlist_id"`
	}

	if err := y.doRequest(ctx, http.MethodPost, "/api/playlists", createReq, &createResp); err != nil {
		return "", err
	}

	if createResp.PlaylistID == "" {
		return "", fmt.Errorf("proxy returned no playlist ID")
	}

	return createResp.PlaylistID, nil
}

// PlaylistTrackIDs returns the set of video IDs currently in a playlist.
//
// Calls GET /api/playlists/{id} on the proxy.
func (y *YTMusicService) PlaylistTrackIDs(ctx context.Context, playlistID string) (map[string]struct{}, error) {
	var ytPlaylist struct {
		Tracks []YouTubeTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", playlistID)
	if err := y.doRequest(ctx, http.MethodGet, endpoint, nil, &ytPlaylist); err != nil {
		return nil, err
	}

	ids := make(map[string]struct{}, len(ytPlaylist.Tracks))
	for _, track := range ytPlaylist.Tracks {
		if track.VideoID != "" {
			ids[track.VideoID] = struct{}{}
		}
	}

	return ids, nil
}

// AddPlaylistItems appends videos to a playlist. The proxy's add endpoint may
// create duplicate memberships, so callers must pre-filter against
// PlaylistTrackIDs.
//
// Calls POST /api/playlists/{id}/items on the proxy.
func (y *YTMusicService) AddPlaylistItems(ctx context.Context, playlistID string, videoIDs []string) error {
	if len(videoIDs) == 0 {
		return nil
	}

	addReq := struct {
		VideoIDs []string `json:"video_ids"`
	}{
		VideoIDs: videoIDs,
	}

	endpoint := fmt.Sprintf("/api/playlists/%s/items", playlistID)
	return y.doRequest(ctx, http.MethodPost, endpoint, addReq, nil)
}
