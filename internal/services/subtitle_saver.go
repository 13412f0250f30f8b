package services

import (
	"context"

	"github.com/Belphemur/TubeSubs/internal/models"
)

// TranscriptProvider lists and downloads the caption tracks of a video.
// client.Client satisfies it.
type TranscriptProvider interface {
	ListTracks(ctx context.Context, videoID string) (*models.TrackList, error)
	FetchTrack(ctx context.Context, track models.Track) ([]models.Snippet, error)
}

// SubtitleSaver defines the interface for downloading subtitles and persisting them as JSON
type SubtitleSaver interface {
	// SaveSubtitles fetches every requested language of a video and writes each one to
	// <outputDir>/<videoID>_<lang>.json. Failures are logged, never returned: the
	// result only holds the languages that were written.
	SaveSubtitles(ctx context.Context, videoID string, languages []string, outputDir string) models.SubtitleSet
}
