package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Belphemur/TubeSubs/internal/client"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/metrics"
	"github.com/Belphemur/TubeSubs/internal/services"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
)

const (
	defaultVideoID = "UNqX4Aq64Dg"
	defaultPreview = 5
)

var defaultLanguages = []string{"en", "ja"}

func newRootCommand(cfg *config.Config) *cobra.Command {
	var langs []string
	var outputDir string
	var preview int

	initialLangs := cfg.Languages
	if len(initialLangs) == 0 {
		initialLangs = defaultLanguages
	}
	initialDir := cfg.OutputDir
	if initialDir == "" {
		initialDir = "."
	}

	cmd := &cobra.Command{
		Use:           "tubesubs [video-id]",
		Short:         "Download YouTube subtitles as JSON files",
		Long:          "Downloads the subtitles of a YouTube video, writes one <video-id>_<lang>.json file per language and previews the first records.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			videoID := defaultVideoID
			if len(args) == 1 {
				videoID = strings.TrimSpace(args[0])
			}
			if videoID == "" {
				return fmt.Errorf("video ID must not be empty")
			}

			languages, err := normalizeLanguages(langs)
			if err != nil {
				return err
			}
			if preview < 0 {
				return fmt.Errorf("--preview must not be negative, got %d", preview)
			}

			return run(cmd.Context(), cmd.OutOrStdout(), cfg, videoID, languages, outputDir, preview)
		},
	}

	cmd.Flags().StringSliceVarP(&langs, "lang", "l", initialLangs, "Language codes to download, in order (repeatable or comma separated)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", initialDir, "Directory the JSON files are written to")
	cmd.Flags().IntVar(&preview, "preview", defaultPreview, "Number of records previewed per language")

	return cmd
}

func run(ctx context.Context, out io.Writer, cfg *config.Config, videoID string, languages []string, outputDir string, preview int) error {
	logger := config.GetLogger()

	logger.Info().
		Str("proxy_connection_string", cfg.ProxyConnectionString).
		Str("youtube_domain", cfg.YouTubeDomain).
		Str("cache_type", cfg.Cache.Type).
		Msg("Application started with configuration")

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
		}); err != nil {
			logger.Warn().Err(err).Msg("Failed to initialise Sentry, continuing without error reporting")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	if cfg.Metrics.Enabled {
		stop := metrics.Serve(metrics.NewHTTPServer(cfg.Metrics.Address, cfg.Metrics.Port), logger)
		defer stop()
	}

	provider := client.NewClient(cfg)
	defer func() {
		if err := provider.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close client")
		}
	}()

	saver := services.NewSubtitleSaver(provider, afero.NewOsFs())
	result := saver.SaveSubtitles(ctx, videoID, languages, outputDir)

	metrics.LogSummary(logger)

	if err := ctx.Err(); err != nil {
		return err
	}

	renderPreview(out, result, languages, preview)
	return nil
}

// normalizeLanguages validates BCP 47 codes and canonicalises their case
// ("ZH-hans" becomes "zh-Hans") without replacing deprecated codes such as
// "iw", which the provider still uses. Duplicates are dropped.
func normalizeLanguages(raw []string) ([]string, error) {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))

	for _, code := range raw {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}
		tag, err := language.Raw.Parse(code)
		if err != nil {
			return nil, fmt.Errorf("invalid language code %q: %w", code, err)
		}
		normalized := tag.String()
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("at least one language code is required")
	}
	return out, nil
}
