package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/Belphemur/TubeSubs/internal/apperrors"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/metrics"
	"github.com/Belphemur/TubeSubs/internal/models"
	"github.com/getsentry/sentry-go"
	"github.com/spf13/afero"
)

// DefaultSubtitleSaver is the default implementation of SubtitleSaver
type DefaultSubtitleSaver struct {
	provider TranscriptProvider
	fs       afero.Fs
}

// NewSubtitleSaver creates a saver writing through fs. A nil fs writes to the OS filesystem.
func NewSubtitleSaver(provider TranscriptProvider, fs afero.Fs) SubtitleSaver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &DefaultSubtitleSaver{
		provider: provider,
		fs:       fs,
	}
}

// SaveSubtitles implements SubtitleSaver. Languages are processed in order and
// independently of each other; disabled captions abort the whole call.
func (s *DefaultSubtitleSaver) SaveSubtitles(ctx context.Context, videoID string, languages []string, outputDir string) models.SubtitleSet {
	logger := config.GetLogger()
	result := make(models.SubtitleSet)

	logger.Info().Str("videoID", videoID).Strs("languages", languages).Msg("Fetching subtitles")

	tracks, err := s.provider.ListTracks(ctx, videoID)
	if err != nil {
		if errors.Is(err, &apperrors.ErrTranscriptsDisabled{}) {
			logger.Warn().Str("videoID", videoID).Msg("Subtitles are disabled for this video")
			metrics.TracksTotal.WithLabelValues(metrics.StatusDisabled).Add(float64(len(languages)))
			return result
		}
		logger.Error().Err(err).Str("videoID", videoID).Msg("Failed to list subtitle tracks")
		metrics.TracksTotal.WithLabelValues(metrics.StatusError).Add(float64(len(languages)))
		reportError(err, videoID, "")
		return result
	}

	for _, track := range tracks.All() {
		logger.Info().Str("language", track.LanguageCode).Bool("generated", track.IsGenerated).Msg("Available subtitle track")
	}

	for _, lang := range languages {
		snippets, path, err := s.saveLanguage(ctx, tracks, videoID, lang, outputDir)
		switch {
		case err == nil:
			result[lang] = snippets
			metrics.TracksTotal.WithLabelValues(metrics.StatusSuccess).Inc()
			metrics.SnippetsWrittenTotal.Add(float64(len(snippets)))
			logger.Info().Str("language", lang).Str("path", path).Int("snippets", len(snippets)).Msg("Saved subtitles")
		case errors.Is(err, &apperrors.ErrNoTranscriptFound{}):
			metrics.TracksTotal.WithLabelValues(metrics.StatusNotFound).Inc()
			logger.Warn().Str("language", lang).Str("videoID", videoID).Msg("No subtitles found for language")
		default:
			metrics.TracksTotal.WithLabelValues(metrics.StatusError).Inc()
			logger.Error().Err(err).Str("language", lang).Str("videoID", videoID).Msg("Failed to save subtitles")
			reportError(err, videoID, lang)
		}
	}

	return result
}

func (s *DefaultSubtitleSaver) saveLanguage(ctx context.Context, tracks *models.TrackList, videoID, lang, outputDir string) ([]models.Snippet, string, error) {
	track, err := tracks.Find(lang)
	if err != nil {
		return nil, "", err
	}

	snippets, err := s.provider.FetchTrack(ctx, track)
	if err != nil {
		return nil, "", err
	}
	if snippets == nil {
		snippets = []models.Snippet{}
	}

	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.json", videoID, lang))
	if err := s.writeJSON(path, snippets); err != nil {
		return nil, "", err
	}
	return snippets, path, nil
}

// writeJSON encodes snippets into a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func (s *DefaultSubtitleSaver) writeJSON(path string, snippets []models.Snippet) error {
	dir := filepath.Dir(path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	enc := json.NewEncoder(tmp)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(snippets); err != nil {
		_ = tmp.Close()
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to encode subtitles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", tmpName, err)
	}
	if err := s.fs.Rename(tmpName, path); err != nil {
		_ = s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move subtitles into %s: %w", path, err)
	}
	return nil
}

// reportError sends err to Sentry. Without sentry.Init this is a no-op.
func reportError(err error, videoID, lang string) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("video_id", videoID)
		if lang != "" {
			scope.SetTag("language", lang)
		}
		sentry.CaptureException(err)
	})
}
