package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/floe/internal/models"
	"github.com/desertthunder/floe/internal/shared"
)

func testContext() ClassifyContext {
	return ClassifyContext{
		Collections: []models.Collection{
			{Key: "workout", Name: "Workout", Description: "High energy"},
			{Key: "chill", Name: "Chill", Description: "Wind down"},
		},
		Schedule: models.Schedule{
			Activities: []models.Activity{
				{
					Name:     "Gym",
					Playlist: "workout",
					Days:     []string{"mon", "wed", "fri"},
					Windows:  []models.TimeWindow{{Start: "06:00", End: "08:00"}},
				},
			},
			DefaultPlaylist: "chill",
		},
		DefaultPlaylist: "chill",
	}
}

func newTestCategorizer(baseURL string) *Categorizer {
	c := NewCategorizer("test-key", "", DefaultPromptPolicy, shared.NewLogger(io.Discard))
	c.baseURL = baseURL
	return c
}

func verdictJSON(videoIDs ...string) string {
	verdicts := make([]models.ClassificationResult, len(videoIDs))
	for i, id := range videoIDs {
		verdicts[i] = models.ClassificationResult{
			VideoID:      id,
			EnergyLevel:  7,
			Tempo:        models.TempoFast,
			Mood:         "energetic",
			BestPlaylist: "workout",
			Confidence:   0.85,
			Reasoning:    "played during gym window",
		}
	}
	data, _ := json.Marshal(verdicts)
	return string(data)
}

func messagesBody(text string) string {
	resp := map[string]any{
		"content": []map[string]string{{"type": "text", "text": text}},
	}
	data, _ := json.Marshal(resp)
	return string(data)
}

func TestClassify(t *testing.T) {
	var gotVersion, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotVersion = r.Header.Get("anthropic-version")
		gotKey = r.Header.Get("x-api-key")

		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Messages) != 1 {
			t.Fatalf("expected one message, got %d", len(req.Messages))
		}
		prompt := req.Messages[0].Content
		for _, fragment := range []string{"workout", "Gym", "v1", "60% weight", "40% weight"} {
			if !strings.Contains(prompt, fragment) {
				t.Errorf("prompt missing %q", fragment)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesBody(verdictJSON("v1", "v2"))))
	}))
	defer server.Close()

	c := newTestCategorizer(server.URL)
	results, err := c.Classify(context.Background(), []models.Track{
		{VideoID: "v1", Title: "Song One", Artist: "A", PlayedAt: "2025-06-02T06:30"},
		{VideoID: "v2", Title: "Song Two", Artist: "B", PlayedAt: "2025-06-02T06:34"},
	}, testContext())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if gotVersion != anthropicVersion || gotKey != "test-key" {
		t.Errorf("unexpected headers: version %q key %q", gotVersion, gotKey)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].BestPlaylist != "workout" {
		t.Errorf("unexpected verdict: %+v", results[0])
	}
}

func TestClassifyEmpty(t *testing.T) {
	c := newTestCategorizer("http://localhost:0")
	results, err := c.Classify(context.Background(), nil, testContext())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if results != nil {
		t.Errorf("expected no results, got %v", results)
	}
}

func TestClassifyFencedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fenced := "```json\n" + verdictJSON("v1") + "\n```"
		_, _ = w.Write([]byte(messagesBody(fenced)))
	}))
	defer server.Close()

	c := newTestCategorizer(server.URL)
	results, err := c.Classify(context.Background(), []models.Track{{VideoID: "v1", Title: "Song"}}, testContext())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestClassifyBatching(t *testing.T) {
	var batchSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req messagesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}

		// count song objects in the prompt payload
		n := strings.Count(req.Messages[0].Content, `"videoId"`) - 1
		batchSizes = append(batchSizes, n)

		ids := make([]string, n)
		for i := range ids {
			ids[i] = fmt.Sprintf("v%d", len(batchSizes)*100+i)
		}
		_, _ = w.Write([]byte(messagesBody(verdictJSON(ids...))))
	}))
	defer server.Close()

	// ids line up with what the handler fabricates per batch
	tracks := make([]models.Track, 25)
	for i := range tracks {
		batch := i / classifyBatchSize
		tracks[i] = models.Track{
			VideoID: fmt.Sprintf("v%d", (batch+1)*100+i%classifyBatchSize),
			Title:   "Song",
		}
	}

	c := newTestCategorizer(server.URL)
	results, err := c.Classify(context.Background(), tracks, testContext())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if len(batchSizes) != 2 || batchSizes[0] != classifyBatchSize || batchSizes[1] != 5 {
		t.Errorf("unexpected batch sizes: %v", batchSizes)
	}
	if len(results) != 25 {
		t.Errorf("expected 25 results, got %d", len(results))
	}
}

func TestClassifyMalformedBatchDiscarded(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(messagesBody("I could not categorize these songs, sorry!")))
			return
		}
		_, _ = w.Write([]byte(messagesBody(verdictJSON("v20"))))
	}))
	defer server.Close()

	tracks := make([]models.Track, classifyBatchSize+1)
	for i := range tracks {
		tracks[i] = models.Track{VideoID: fmt.Sprintf("v%d", i), Title: "Song"}
	}

	c := newTestCategorizer(server.URL)
	results, err := c.Classify(context.Background(), tracks, testContext())
	if err != nil {
		t.Fatalf("expected partial success, got %v", err)
	}
	if len(results) != 1 || results[0].VideoID != "v20" {
		t.Errorf("expected only second batch's verdict, got %v", results)
	}
}

func TestClassifyAllBatchesFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"type": "invalid_request_error", "message": "bad model"}}`))
	}))
	defer server.Close()

	c := newTestCategorizer(server.URL)
	_, err := c.Classify(context.Background(), []models.Track{{VideoID: "v1"}}, testContext())
	if err == nil {
		t.Fatal("expected error when every batch fails")
	}
	if !strings.Contains(err.Error(), "bad model") {
		t.Errorf("expected API error message, got %v", err)
	}
}

func TestClassifyFiltersUnknownIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(messagesBody(verdictJSON("v1", "hallucinated"))))
	}))
	defer server.Close()

	c := newTestCategorizer(server.URL)
	results, err := c.Classify(context.Background(), []models.Track{{VideoID: "v1", Title: "Song"}}, testContext())
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(results) != 1 || results[0].VideoID != "v1" {
		t.Errorf("expected hallucinated id filtered, got %v", results)
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"no fence", `[{"a":1}]`, `[{"a":1}]`},
		{"json fence", "```json\n[1,2]\n```", "[1,2]"},
		{"bare fence", "```\n[1,2]\n```", "[1,2]"},
		{"leading whitespace", "  ```json\n[]\n```  ", "[]"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := stripCodeFence(tc.input); got != tc.want {
				t.Errorf("stripCodeFence(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestBuildPromptSections(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cc := testContext()
	cc.ActivityLog = []models.ActivityLogEntry{
		{Start: "2025-05-01T10:00", End: "2025-05-01T12:00", Playlist: "workout", Note: "stale"},
		{Start: "2025-06-10T18:00", End: "2025-06-10T20:00", Playlist: "chill", Note: "long drive"},
	}

	prompt, err := buildPrompt([]models.Track{{VideoID: "v1", Title: "Song"}}, cc, DefaultPromptPolicy, now)
	if err != nil {
		t.Fatalf("buildPrompt failed: %v", err)
	}

	if !strings.Contains(prompt, "long drive") {
		t.Error("expected current-month log entry in prompt")
	}
	if strings.Contains(prompt, "stale") {
		t.Error("expected prior-month entry filtered out")
	}
	if !strings.Contains(prompt, "Mon, Wed, Fri 06:00-08:00") {
		t.Error("expected schedule rendering with day labels")
	}
	if !strings.Contains(prompt, `confidence < 0.6`) {
		t.Error("expected confidence floor in prompt")
	}
}
