package models

import (
	"github.com/Belphemur/TubeSubs/internal/apperrors"
)

// Track describes a subtitle track offered by the provider, before its content is fetched
type Track struct {
	VideoID        string `json:"videoId"`
	LanguageCode   string `json:"languageCode"` // e.g. "en", "ja", "zh-Hans"
	Language       string `json:"language"`     // Display name, e.g. "English (auto-generated)"
	IsGenerated    bool   `json:"isGenerated"`  // Automatic speech recognition track
	IsTranslatable bool   `json:"isTranslatable"`
	BaseURL        string `json:"baseUrl"` // Timed text URL used to fetch the content
}

// TrackList holds every track available for one video.
// Manually created and generated tracks are kept apart so lookups can prefer human subtitles.
type TrackList struct {
	VideoID   string  `json:"videoId"`
	Manual    []Track `json:"manual"`
	Generated []Track `json:"generated"`
}

// NewTrackList splits tracks into manual and generated, preserving provider order.
func NewTrackList(videoID string, tracks []Track) *TrackList {
	list := &TrackList{VideoID: videoID}
	for _, t := range tracks {
		if t.IsGenerated {
			list.Generated = append(list.Generated, t)
		} else {
			list.Manual = append(list.Manual, t)
		}
	}
	return list
}

// All returns manual tracks followed by generated ones.
func (l *TrackList) All() []Track {
	all := make([]Track, 0, len(l.Manual)+len(l.Generated))
	all = append(all, l.Manual...)
	return append(all, l.Generated...)
}

// Find returns the best track for the first language code that has one.
// For each code a manually created track wins over a generated one.
func (l *TrackList) Find(languageCodes ...string) (Track, error) {
	for _, code := range languageCodes {
		for _, group := range [][]Track{l.Manual, l.Generated} {
			for _, t := range group {
				if t.LanguageCode == code {
					return t, nil
				}
			}
		}
	}
	return Track{}, apperrors.NewNoTranscriptFoundError(l.VideoID, languageCodes, l.LanguageCodes())
}

// LanguageCodes lists the distinct language codes of all tracks.
func (l *TrackList) LanguageCodes() []string {
	seen := make(map[string]bool)
	codes := make([]string, 0, len(l.Manual)+len(l.Generated))
	for _, t := range l.All() {
		if !seen[t.LanguageCode] {
			seen[t.LanguageCode] = true
			codes = append(codes, t.LanguageCode)
		}
	}
	return codes
}
