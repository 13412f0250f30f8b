package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Belphemur/TubeSubs/internal/apperrors"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/models"
	"github.com/Belphemur/TubeSubs/internal/testutil"
)

var (
	englishSnippets = []models.Snippet{
		{Text: "Hello", Start: 0, Duration: 1.5},
		{Text: "Tom & Jerry <3", Start: 1.5, Duration: 2.25},
	}
	japaneseSnippets = []models.Snippet{
		{Text: "こんにちは", Start: 0, Duration: 2},
		{Text: "さようなら", Start: 2, Duration: 1.04},
	}
)

func newTestClient(t *testing.T, baseURL string) Client {
	t.Helper()

	cfg := &config.Config{
		YouTubeDomain: baseURL,
		ClientTimeout: "10s",
	}
	cfg.Retry.MaxRetries = 2
	cfg.Retry.Delay = "1ms"

	c := NewClient(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func abcVideo() testutil.FakeVideo {
	return testutil.FakeVideo{
		ID: "ABC123",
		Tracks: []testutil.FakeTrack{
			{LanguageCode: "en", Name: "English", Snippets: englishSnippets},
			{LanguageCode: "ja", Name: "Japanese (auto-generated)", Generated: true, Snippets: japaneseSnippets},
		},
	}
}

func TestClient_ListTracks(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	c := newTestClient(t, fake.URL())

	tracks, err := c.ListTracks(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}

	if len(tracks.Manual) != 1 || tracks.Manual[0].LanguageCode != "en" {
		t.Fatalf("Expected one manual en track, got %+v", tracks.Manual)
	}
	if len(tracks.Generated) != 1 || tracks.Generated[0].LanguageCode != "ja" {
		t.Fatalf("Expected one generated ja track, got %+v", tracks.Generated)
	}
	for _, track := range tracks.All() {
		if strings.Contains(track.BaseURL, "fmt=srv3") {
			t.Errorf("Expected fmt=srv3 to be stripped from %s", track.BaseURL)
		}
		if track.VideoID != "ABC123" {
			t.Errorf("Expected video ID ABC123, got %q", track.VideoID)
		}
	}

	if n := fake.Requests("/watch"); n != 1 {
		t.Errorf("Expected 1 watch request, got %d", n)
	}
	if n := fake.Requests("/youtubei/v1/player"); n != 1 {
		t.Errorf("Expected 1 player request, got %d", n)
	}
}

func TestClient_ListTracks_Errors(t *testing.T) {
	tests := []struct {
		name    string
		videoID string
		video   testutil.FakeVideo
		wantErr error
	}{
		{
			name:    "captions disabled",
			videoID: "NOCAPS",
			video:   testutil.FakeVideo{ID: "NOCAPS", NoCaptions: true},
			wantErr: &apperrors.ErrTranscriptsDisabled{},
		},
		{
			name:    "no tracks",
			videoID: "EMPTY",
			video:   testutil.FakeVideo{ID: "EMPTY"},
			wantErr: &apperrors.ErrTranscriptsDisabled{},
		},
		{
			name:    "unknown video",
			videoID: "MISSING",
			video:   testutil.FakeVideo{ID: "OTHER"},
			wantErr: &apperrors.ErrVideoUnavailable{},
		},
		{
			name:    "url instead of id",
			videoID: "https://www.youtube.com/watch?v=ABC123",
			video:   testutil.FakeVideo{ID: "OTHER"},
			wantErr: &apperrors.ErrInvalidVideoID{},
		},
		{
			name:    "bot detection",
			videoID: "BOT",
			video:   testutil.FakeVideo{ID: "BOT", Status: "LOGIN_REQUIRED", Reason: "Sign in to confirm you're not a bot"},
			wantErr: &apperrors.ErrRequestBlocked{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := testutil.NewFakeYouTube(t, tt.video)
			c := newTestClient(t, fake.URL())

			tracks, err := c.ListTracks(context.Background(), tt.videoID)
			if err == nil {
				t.Fatalf("Expected error, got tracks %+v", tracks)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %T, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestClient_ListTracks_Captcha(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	fake.WatchPageHTML = testutil.GenerateCaptchaPageHTML()
	c := newTestClient(t, fake.URL())

	_, err := c.ListTracks(context.Background(), "ABC123")
	if !errors.Is(err, &apperrors.ErrRequestBlocked{}) {
		t.Fatalf("Expected ErrRequestBlocked, got %v", err)
	}
	if n := fake.Requests("/youtubei/v1/player"); n != 0 {
		t.Errorf("Expected no player request after captcha, got %d", n)
	}
}

func TestClient_ListTracks_Consent(t *testing.T) {
	const consentValue = "cb.20210328-17-p0.en+FX+119"
	var watchCalls, playerCalls atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("CONSENT")
		consented := err == nil && cookie.Value == "YES+"+consentValue

		switch r.URL.Path {
		case "/watch":
			watchCalls.Add(1)
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			if !consented {
				_, _ = w.Write([]byte(testutil.GenerateConsentPageHTML(consentValue)))
				return
			}
			_, _ = w.Write([]byte(testutil.GenerateWatchPageHTML(testutil.TestAPIKey)))
		case "/youtubei/v1/player":
			playerCalls.Add(1)
			if !consented {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			_, _ = w.Write([]byte(testutil.GeneratePlayerResponseJSON(testutil.PlayerResponseOptions{
				Tracks: []testutil.TrackOptions{{LanguageCode: "de", Name: "German", BaseURL: "http://example.invalid/api/timedtext?lang=de"}},
			})))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	tracks, err := c.ListTracks(context.Background(), "CONSENT1")
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	if _, err := tracks.Find("de"); err != nil {
		t.Errorf("Expected de track, got %v", err)
	}
	if n := watchCalls.Load(); n != 2 {
		t.Errorf("Expected 2 watch requests (plain + consented), got %d", n)
	}
	if n := playerCalls.Load(); n != 1 {
		t.Errorf("Expected 1 player request, got %d", n)
	}
}

func TestClient_ListTracks_ConsentRejected(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	fake.WatchPageHTML = testutil.GenerateConsentPageHTML("cb.1")
	c := newTestClient(t, fake.URL())

	_, err := c.ListTracks(context.Background(), "ABC123")
	if err == nil || !strings.Contains(err.Error(), "consent") {
		t.Fatalf("Expected consent error, got %v", err)
	}
	if n := fake.Requests("/watch"); n != 2 {
		t.Errorf("Expected exactly one consent retry, got %d watch requests", n)
	}
}

func TestClient_ListTracks_TooManyRequestsNotRetried(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	fake.PlayerStatus = http.StatusTooManyRequests
	c := newTestClient(t, fake.URL())

	_, err := c.ListTracks(context.Background(), "ABC123")
	if !errors.Is(err, &apperrors.ErrTooManyRequests{}) {
		t.Fatalf("Expected ErrTooManyRequests, got %v", err)
	}
	if n := fake.Requests("/youtubei/v1/player"); n != 1 {
		t.Errorf("Expected 429 not to be retried, got %d player requests", n)
	}
}

func TestClient_ListTracks_ServerErrorRetried(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	fake.PlayerStatus = http.StatusServiceUnavailable
	c := newTestClient(t, fake.URL())

	_, err := c.ListTracks(context.Background(), "ABC123")
	if err == nil {
		t.Fatal("Expected error for persistent 503")
	}
	var se *statusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected statusError 503, got %v", err)
	}
	// first attempt + 2 retries
	if n := fake.Requests("/youtubei/v1/player"); n != 3 {
		t.Errorf("Expected 3 player requests, got %d", n)
	}
}

func TestClient_ListTracks_Cached(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	c := newTestClient(t, fake.URL())

	for i := 0; i < 3; i++ {
		if _, err := c.ListTracks(context.Background(), "ABC123"); err != nil {
			t.Fatalf("ListTracks #%d failed: %v", i, err)
		}
	}
	if n := fake.Requests("/watch"); n != 1 {
		t.Errorf("Expected the player response to be cached, got %d watch requests", n)
	}
}

func TestClient_ListTracks_FailuresNotCached(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, testutil.FakeVideo{ID: "NOCAPS", NoCaptions: true})
	c := newTestClient(t, fake.URL())

	for i := 0; i < 2; i++ {
		if _, err := c.ListTracks(context.Background(), "NOCAPS"); err == nil {
			t.Fatal("Expected error")
		}
	}
	if n := fake.Requests("/youtubei/v1/player"); n != 2 {
		t.Errorf("Expected every failing call to reach the provider, got %d player requests", n)
	}
}

func TestClient_FetchTrack(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	c := newTestClient(t, fake.URL())
	ctx := context.Background()

	tracks, err := c.ListTracks(ctx, "ABC123")
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}

	tests := []struct {
		lang string
		want []models.Snippet
	}{
		{"en", englishSnippets},
		{"ja", japaneseSnippets},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			track, err := tracks.Find(tt.lang)
			if err != nil {
				t.Fatalf("Find(%s) failed: %v", tt.lang, err)
			}

			got, err := c.FetchTrack(ctx, track)
			if err != nil {
				t.Fatalf("FetchTrack failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FetchTrack(%s) = %+v, want %+v", tt.lang, got, tt.want)
			}
		})
	}
}

func TestClient_FetchTrack_Cached(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	c := newTestClient(t, fake.URL())
	ctx := context.Background()

	tracks, err := c.ListTracks(ctx, "ABC123")
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}
	track, _ := tracks.Find("en")

	for i := 0; i < 2; i++ {
		if _, err := c.FetchTrack(ctx, track); err != nil {
			t.Fatalf("FetchTrack #%d failed: %v", i, err)
		}
	}
	if n := fake.Requests("/api/timedtext"); n != 1 {
		t.Errorf("Expected timed text to be cached, got %d requests", n)
	}
}

func TestClient_FetchTrack_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(testutil.GenerateTimedTextXML(englishSnippets)))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.FetchTrack(context.Background(), models.Track{
		VideoID:      "ABC123",
		LanguageCode: "en",
		BaseURL:      server.URL + "/api/timedtext?v=ABC123&lang=en",
	})
	if err != nil {
		t.Fatalf("FetchTrack failed: %v", err)
	}
	if !reflect.DeepEqual(got, englishSnippets) {
		t.Errorf("Unexpected snippets: %+v", got)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("Expected 2 attempts, got %d", n)
	}
}

func TestClient_FetchTrack_Errors(t *testing.T) {
	video := testutil.FakeVideo{
		ID: "BROKEN",
		Tracks: []testutil.FakeTrack{
			{LanguageCode: "en", Name: "English", Status: http.StatusNotFound},
			{LanguageCode: "fr", Name: "French", RawBody: "<transcript><text start="},
		},
	}
	fake := testutil.NewFakeYouTube(t, video)
	c := newTestClient(t, fake.URL())
	ctx := context.Background()

	tracks, err := c.ListTracks(ctx, "BROKEN")
	if err != nil {
		t.Fatalf("ListTracks failed: %v", err)
	}

	en, _ := tracks.Find("en")
	if _, err := c.FetchTrack(ctx, en); err == nil {
		t.Error("Expected error for 404 timed text")
	}
	if n := fake.Requests("/api/timedtext"); n != 1 {
		t.Errorf("Expected 404 not to be retried, got %d requests", n)
	}

	fr, _ := tracks.Find("fr")
	if _, err := c.FetchTrack(ctx, fr); err == nil {
		t.Error("Expected error for malformed timed text")
	}
}

func TestClient_FetchTrack_Compressed(t *testing.T) {
	body := compressGzip(t, []byte(testutil.GenerateTimedTextXML(japaneseSnippets)))
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(body)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	got, err := c.FetchTrack(context.Background(), models.Track{VideoID: "X", LanguageCode: "ja", BaseURL: server.URL + "/api/timedtext"})
	if err != nil {
		t.Fatalf("FetchTrack failed: %v", err)
	}
	if !reflect.DeepEqual(got, japaneseSnippets) {
		t.Errorf("Unexpected snippets: %+v", got)
	}
}

func TestClient_SendsHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept-Language"); got != "en-US" {
			t.Errorf("Expected Accept-Language en-US, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != config.DefaultUserAgent {
			t.Errorf("Expected default User-Agent, got %q", got)
		}
		_, _ = w.Write([]byte(testutil.GenerateTimedTextXML(englishSnippets)))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.FetchTrack(context.Background(), models.Track{BaseURL: server.URL}); err != nil {
		t.Fatalf("FetchTrack failed: %v", err)
	}
}

func TestClient_ContextCanceled(t *testing.T) {
	fake := testutil.NewFakeYouTube(t, abcVideo())
	c := newTestClient(t, fake.URL())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := c.ListTracks(ctx, "ABC123"); err == nil {
		t.Fatal("Expected error for canceled context")
	}
}

func TestClient_Close(t *testing.T) {
	c := NewClient(&config.Config{YouTubeDomain: "http://localhost"})
	if err := c.Close(); err != nil {
		t.Errorf("Close returned error: %v", err)
	}
}

func TestNewClient_RedisFallback(t *testing.T) {
	cfg := &config.Config{YouTubeDomain: "http://localhost"}
	cfg.Cache.Type = "redis"
	cfg.Cache.Redis.Address = "127.0.0.1:1"

	c := NewClient(cfg)
	defer c.Close()

	if c.(*client).cache == nil {
		t.Fatal("Expected fallback memory cache when redis is unreachable")
	}
}

func TestCacheTTL(t *testing.T) {
	tests := []struct {
		cacheType string
		value     string
		want      time.Duration
	}{
		{"memory", "", defaultCacheTTL},
		{"memory", "24h", 24 * time.Hour},
		{"redis", "", defaultCacheTTL},
		{"redis", "30m", 30 * time.Minute},
		{"redis", "1h", time.Hour},
		{"redis", "6h", maxSharedCacheTTL},
		{"redis", "bogus", defaultCacheTTL},
	}

	for _, tt := range tests {
		if got := cacheTTL(tt.cacheType, tt.value); got != tt.want {
			t.Errorf("cacheTTL(%q, %q) = %s, want %s", tt.cacheType, tt.value, got, tt.want)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"too many requests", &apperrors.ErrTooManyRequests{URL: "x"}, false},
		{"not found", &statusError{StatusCode: 404}, false},
		{"server error", &statusError{StatusCode: 500}, true},
		{"transport", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
