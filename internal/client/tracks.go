package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Belphemur/TubeSubs/internal/apperrors"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/models"
	"github.com/Belphemur/TubeSubs/internal/parser"
)

// The innertube player API answers with caption tracks for this client
// without requiring a signed-in session.
const (
	innertubeClientName    = "ANDROID"
	innertubeClientVersion = "20.10.38"
)

type playerRequest struct {
	Context struct {
		Client struct {
			ClientName    string `json:"clientName"`
			ClientVersion string `json:"clientVersion"`
		} `json:"client"`
	} `json:"context"`
	VideoID string `json:"videoId"`
}

func playerCacheKey(videoID string) string {
	return "player:" + videoID
}

// ListTracks resolves the watch page, queries the player API and returns the
// caption tracks of the video.
func (c *client) ListTracks(ctx context.Context, videoID string) (*models.TrackList, error) {
	logger := config.GetLogger()
	key := playerCacheKey(videoID)

	if data, ok := c.cacheGet(ctx, key); ok {
		tracks, err := parser.ParsePlayerResponse(videoID, data)
		if err == nil {
			logger.Debug().Str("videoID", videoID).Msg("Using cached player response")
			return tracks, nil
		}
		logger.Warn().Err(err).Str("videoID", videoID).Msg("Cached player response is unusable, refetching")
	}

	apiKey, consent, err := c.fetchAPIKey(ctx, videoID)
	if err != nil {
		return nil, err
	}

	data, err := c.fetchPlayerResponse(ctx, videoID, apiKey, consent)
	if err != nil {
		return nil, err
	}

	tracks, err := parser.ParsePlayerResponse(videoID, data)
	if err != nil {
		return nil, err
	}
	c.cacheSet(ctx, key, data)

	logger.Info().
		Str("videoID", videoID).
		Int("manual", len(tracks.Manual)).
		Int("generated", len(tracks.Generated)).
		Msg("Listed caption tracks")

	return tracks, nil
}

// fetchAPIKey loads the watch page and returns its innertube API key. When the
// provider answers with the consent interstitial, the page is requested once
// more with the consent cookie, which is returned for the following requests.
func (c *client) fetchAPIKey(ctx context.Context, videoID string) (string, *http.Cookie, error) {
	page, err := c.fetchWatchPage(ctx, videoID, nil)
	if err != nil {
		return "", nil, err
	}

	var consent *http.Cookie
	if page.NeedsConsent() {
		consent = &http.Cookie{Name: "CONSENT", Value: "YES+" + page.ConsentValue}
		page, err = c.fetchWatchPage(ctx, videoID, consent)
		if err != nil {
			return "", nil, err
		}
		if page.NeedsConsent() {
			return "", nil, fmt.Errorf("consent cookie was not accepted for video %s", videoID)
		}
	}

	if page.Captcha {
		return "", nil, &apperrors.ErrRequestBlocked{VideoID: videoID}
	}

	return page.APIKey, consent, nil
}

func (c *client) fetchWatchPage(ctx context.Context, videoID string, consent *http.Cookie) (*parser.WatchPage, error) {
	logger := config.GetLogger()
	watchURL := fmt.Sprintf("%s/watch?v=%s", c.baseURL, url.QueryEscape(videoID))

	logger.Debug().Str("url", watchURL).Bool("consent", consent != nil).Msg("Fetching watch page")

	resp, err := c.do(ctx, endpointWatch, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		if consent != nil {
			req.AddCookie(consent)
		}
		return req, nil
	})
	if err != nil {
		return nil, c.wrapRequestError(videoID, "watch page", err)
	}
	defer resp.Body.Close()

	page, err := parser.ParseWatchPage(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page for video %s: %w", videoID, err)
	}
	return page, nil
}

func (c *client) fetchPlayerResponse(ctx context.Context, videoID, apiKey string, consent *http.Cookie) ([]byte, error) {
	logger := config.GetLogger()
	playerURL := fmt.Sprintf("%s/youtubei/v1/player?key=%s", c.baseURL, url.QueryEscape(apiKey))

	var body playerRequest
	body.Context.Client.ClientName = innertubeClientName
	body.Context.Client.ClientVersion = innertubeClientVersion
	body.VideoID = videoID

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode player request: %w", err)
	}

	logger.Debug().Str("videoID", videoID).Msg("Querying player API")

	resp, err := c.do(ctx, endpointPlayer, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if consent != nil {
			req.AddCookie(consent)
		}
		return req, nil
	})
	if err != nil {
		return nil, c.wrapRequestError(videoID, "player response", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read player response: %w", err)
	}
	return data, nil
}

// wrapRequestError keeps typed provider errors intact and adds context to the rest.
func (c *client) wrapRequestError(videoID, what string, err error) error {
	if errors.Is(err, &apperrors.ErrTooManyRequests{}) {
		return err
	}
	return fmt.Errorf("failed to fetch %s for video %s: %w", what, videoID, err)
}

func (c *client) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(ctx, key)
}

func (c *client) cacheSet(ctx context.Context, key string, value []byte) {
	if c.cache == nil {
		return
	}
	c.cache.Set(ctx, key, value)
}
