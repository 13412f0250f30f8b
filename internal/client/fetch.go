package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/models"
)

func timedTextCacheKey(baseURL string) string {
	return "timedtext:" + baseURL
}

// FetchTrack downloads the timed text document of a track and parses it into snippets.
func (c *client) FetchTrack(ctx context.Context, track models.Track) ([]models.Snippet, error) {
	logger := config.GetLogger()
	key := timedTextCacheKey(track.BaseURL)

	if data, ok := c.cacheGet(ctx, key); ok {
		snippets, err := c.timedTextParser.Parse(bytes.NewReader(data))
		if err == nil {
			logger.Debug().Str("videoID", track.VideoID).Str("language", track.LanguageCode).Msg("Using cached timed text")
			return snippets, nil
		}
		logger.Warn().Err(err).Str("language", track.LanguageCode).Msg("Cached timed text is unusable, refetching")
	}

	resp, err := c.do(ctx, endpointTimedText, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, track.BaseURL, nil)
	})
	if err != nil {
		return nil, c.wrapRequestError(track.VideoID, track.LanguageCode+" timed text", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read timed text: %w", err)
	}

	snippets, err := c.timedTextParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s timed text for video %s: %w", track.LanguageCode, track.VideoID, err)
	}
	c.cacheSet(ctx, key, data)

	logger.Debug().
		Str("videoID", track.VideoID).
		Str("language", track.LanguageCode).
		Bool("generated", track.IsGenerated).
		Int("snippets", len(snippets)).
		Msg("Fetched timed text")

	return snippets, nil
}
