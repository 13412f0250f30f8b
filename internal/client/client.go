package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/Belphemur/TubeSubs/internal/cache"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/models"
	"github.com/Belphemur/TubeSubs/internal/parser"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Client defines the interface for querying the transcript provider
type Client interface {
	// ListTracks returns every caption track available for the video.
	ListTracks(ctx context.Context, videoID string) (*models.TrackList, error)
	// FetchTrack downloads and parses the timed text of a single track.
	FetchTrack(ctx context.Context, track models.Track) ([]models.Snippet, error)

	// Close releases any resources held by the client (e.g., cache connections).
	Close() error
}

const (
	defaultCacheSize = 64
	defaultCacheTTL  = 10 * time.Minute
	cacheGroup       = "provider"

	// maxSharedCacheTTL bounds entries in a cache that outlives the process.
	// Cached player responses carry signed timedtext URLs that YouTube stops
	// honouring after a few hours.
	maxSharedCacheTTL = time.Hour
)

// client implements the Client interface
type client struct {
	httpClient      *http.Client
	baseURL         string
	userAgent       string
	retryPolicy     retrypolicy.RetryPolicy[*http.Response]
	cache           cache.Cache
	timedTextParser parser.Parser[models.Snippet]
}

// NewClient creates a new client instance with proxy configuration if provided
func NewClient(cfg *config.Config) Client {
	logger := config.GetLogger()

	timeout := parseDuration(cfg.ClientTimeout, 30*time.Second, "client_timeout")

	// Clone DefaultTransport to preserve all its settings (timeouts, connection pooling, HTTP/2, etc.)
	baseTransport := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.ProxyConnectionString != "" {
		proxyURL, err := url.Parse(cfg.ProxyConnectionString)
		if err != nil {
			logger.Warn().Err(err).Str("proxy", cfg.ProxyConnectionString).Msg("Invalid proxy URL, continuing without proxy")
		} else {
			baseTransport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	httpClient := &http.Client{
		Timeout:   timeout,
		Transport: newCompressionTransport(baseTransport),
	}

	baseURL := cfg.YouTubeDomain
	if baseURL == "" {
		baseURL = config.DefaultYouTubeDomain
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = config.GetUserAgent()
	}

	return &client{
		httpClient:      httpClient,
		baseURL:         baseURL,
		userAgent:       userAgent,
		retryPolicy:     newRetryPolicy(cfg.Retry.MaxRetries, parseDuration(cfg.Retry.Delay, 500*time.Millisecond, "retry.delay")),
		cache:           newResponseCache(cfg),
		timedTextParser: parser.NewTimedTextParser(),
	}
}

// newResponseCache builds the configured cache, falling back to memory when
// the configured provider cannot be created (e.g. Redis is unreachable).
func newResponseCache(cfg *config.Config) cache.Cache {
	logger := config.GetLogger()

	size := cfg.Cache.Size
	if size <= 0 {
		size = defaultCacheSize
	}
	cacheType := cfg.Cache.Type
	if cacheType == "" {
		cacheType = "memory"
	}

	providerCfg := cache.ProviderConfig{
		Size:   size,
		TTL:    cacheTTL(cacheType, cfg.Cache.TTL),
		Logger: cache.ZerologAdapter{Logger: logger},
		Redis: cache.RedisOptions{
			Address:  cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		},
		Group: cacheGroup,
	}

	c, err := cache.New(cacheType, providerCfg)
	if err == nil {
		logger.Debug().Str("type", cacheType).Int("size", size).Dur("ttl", providerCfg.TTL).Msg("Response cache ready")
		return c
	}

	logger.Warn().Err(err).Str("type", cacheType).Msg("Failed to create cache, falling back to memory")
	c, err = cache.New("memory", providerCfg)
	if err != nil {
		// Size and TTL are validated above, so only a broken registry gets here
		logger.Error().Err(err).Msg("Failed to create memory cache")
		return nil
	}
	return c
}

// cacheTTL parses the configured TTL. Only the memory cache dies with the
// process; any other backend is capped at maxSharedCacheTTL.
func cacheTTL(cacheType, value string) time.Duration {
	ttl := parseDuration(value, defaultCacheTTL, "cache.ttl")
	if cacheType == "memory" || ttl <= maxSharedCacheTTL {
		return ttl
	}
	logger := config.GetLogger()
	logger.Warn().Str("type", cacheType).Dur("ttl", ttl).Dur("max", maxSharedCacheTTL).Msg("Cache TTL exceeds signed URL lifetime, capping")
	return maxSharedCacheTTL
}

func parseDuration(value string, fallback time.Duration, key string) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		logger := config.GetLogger()
		logger.Warn().Err(err).Str(key, value).Dur("default", fallback).Msg("Invalid duration, using default")
		return fallback
	}
	return d
}

// Close releases any resources held by the client, such as cache connections.
func (c *client) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
