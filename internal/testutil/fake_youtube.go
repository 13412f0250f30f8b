package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/Belphemur/TubeSubs/internal/models"
)

// FakeTrack is a caption track served by FakeYouTube
type FakeTrack struct {
	LanguageCode string
	Name         string
	Generated    bool
	Snippets     []models.Snippet
	// Status, when non-zero, is returned by the timed text endpoint instead of the content.
	Status int
	// RawBody, when set, is served instead of the XML generated from Snippets.
	RawBody string
}

// FakeVideo is a video known to FakeYouTube
type FakeVideo struct {
	ID         string
	Tracks     []FakeTrack
	NoCaptions bool
	Status     string // playabilityStatus.status, defaults to "OK"
	Reason     string
}

// FakeYouTube is an httptest server mimicking the watch page, the innertube
// player endpoint and the timed text endpoint. Unknown video IDs get the
// "video unavailable" playability error.
type FakeYouTube struct {
	Server *httptest.Server

	// WatchPageHTML, when set, replaces the generated watch page for every video.
	WatchPageHTML string
	// PlayerStatus, when non-zero, is returned by the player endpoint instead of a response.
	PlayerStatus int

	mu       sync.Mutex
	videos   map[string]FakeVideo
	requests map[string]int
}

// NewFakeYouTube starts a fake server for the given videos and closes it on test cleanup.
func NewFakeYouTube(t *testing.T, videos ...FakeVideo) *FakeYouTube {
	t.Helper()

	f := &FakeYouTube{
		videos:   make(map[string]FakeVideo, len(videos)),
		requests: make(map[string]int),
	}
	for _, v := range videos {
		f.videos[v.ID] = v
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /watch", f.handleWatch)
	mux.HandleFunc("POST /youtubei/v1/player", f.handlePlayer)
	mux.HandleFunc("GET /api/timedtext", f.handleTimedText)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// URL returns the base URL of the fake server.
func (f *FakeYouTube) URL() string {
	return f.Server.URL
}

// Requests returns how many requests hit the given path.
func (f *FakeYouTube) Requests(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func (f *FakeYouTube) count(r *http.Request) {
	f.mu.Lock()
	f.requests[r.URL.Path]++
	f.mu.Unlock()
}

func (f *FakeYouTube) video(id string) (FakeVideo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.videos[id]
	return v, ok
}

func (f *FakeYouTube) handleWatch(w http.ResponseWriter, r *http.Request) {
	f.count(r)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if f.WatchPageHTML != "" {
		_, _ = w.Write([]byte(f.WatchPageHTML))
		return
	}
	_, _ = w.Write([]byte(GenerateWatchPageHTML(TestAPIKey)))
}

func (f *FakeYouTube) handlePlayer(w http.ResponseWriter, r *http.Request) {
	f.count(r)
	if f.PlayerStatus != 0 {
		w.WriteHeader(f.PlayerStatus)
		return
	}
	if r.URL.Query().Get("key") != TestAPIKey {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	var req struct {
		VideoID string `json:"videoId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	v, ok := f.video(req.VideoID)
	if !ok {
		_, _ = w.Write([]byte(GeneratePlayerResponseJSON(PlayerResponseOptions{
			Status: "ERROR",
			Reason: "This video is unavailable",
		})))
		return
	}

	opts := PlayerResponseOptions{Status: v.Status, Reason: v.Reason, NoCaptions: v.NoCaptions}
	for _, t := range v.Tracks {
		kind := ""
		if t.Generated {
			kind = "&kind=asr"
		}
		opts.Tracks = append(opts.Tracks, TrackOptions{
			LanguageCode:   t.LanguageCode,
			Name:           t.Name,
			Generated:      t.Generated,
			IsTranslatable: true,
			BaseURL:        fmt.Sprintf("%s/api/timedtext?v=%s&lang=%s%s&fmt=srv3", f.Server.URL, v.ID, t.LanguageCode, kind),
		})
	}
	_, _ = w.Write([]byte(GeneratePlayerResponseJSON(opts)))
}

func (f *FakeYouTube) handleTimedText(w http.ResponseWriter, r *http.Request) {
	f.count(r)
	q := r.URL.Query()
	if q.Get("fmt") != "" {
		// Only the plain XML format is supported
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	v, ok := f.video(q.Get("v"))
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	generated := q.Get("kind") == "asr"
	for _, t := range v.Tracks {
		if t.LanguageCode != q.Get("lang") || t.Generated != generated {
			continue
		}
		if t.Status != 0 {
			w.WriteHeader(t.Status)
			return
		}
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		body := t.RawBody
		if body == "" {
			body = GenerateTimedTextXML(t.Snippets)
		}
		_, _ = w.Write([]byte(body))
		return
	}
	w.WriteHeader(http.StatusNotFound)
}
