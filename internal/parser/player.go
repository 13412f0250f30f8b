package parser

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Belphemur/TubeSubs/internal/apperrors"
	"github.com/Belphemur/TubeSubs/internal/config"
	"github.com/Belphemur/TubeSubs/internal/models"
)

// Playability reasons the provider uses for statuses that need special handling
const (
	reasonBotDetected      = "Sign in to confirm you"
	reasonAgeRestricted    = "This video may be inappropriate for some users"
	reasonVideoUnavailable = "This video is unavailable"
)

// PlayerResponse is the subset of the innertube /player response used to list caption tracks
type PlayerResponse struct {
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []CaptionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

// CaptionTrack is a single entry of captions.playerCaptionsTracklistRenderer.captionTracks
type CaptionTrack struct {
	BaseURL        string    `json:"baseUrl"`
	Name           trackName `json:"name"`
	LanguageCode   string    `json:"languageCode"`
	Kind           string    `json:"kind"` // "asr" = auto-generated
	IsTranslatable bool      `json:"isTranslatable"`
}

type trackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n trackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// ParsePlayerResponse decodes a /player response and returns the caption tracks of the video.
// Playability failures and missing captions are mapped to apperrors types.
func ParsePlayerResponse(videoID string, data []byte) (*models.TrackList, error) {
	logger := config.GetLogger()

	var resp PlayerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode player response: %w", err)
	}

	if err := checkPlayability(videoID, resp); err != nil {
		return nil, err
	}

	if resp.Captions == nil || len(resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		return nil, &apperrors.ErrTranscriptsDisabled{VideoID: videoID}
	}

	captionTracks := resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	tracks := make([]models.Track, 0, len(captionTracks))
	for _, ct := range captionTracks {
		if ct.BaseURL == "" || ct.LanguageCode == "" {
			logger.Debug().Str("videoID", videoID).Str("language", ct.LanguageCode).Msg("Skipping caption track without URL or language")
			continue
		}
		tracks = append(tracks, models.Track{
			VideoID:        videoID,
			LanguageCode:   ct.LanguageCode,
			Language:       ct.Name.String(),
			IsGenerated:    ct.Kind == "asr",
			IsTranslatable: ct.IsTranslatable,
			BaseURL:        strings.Replace(ct.BaseURL, "&fmt=srv3", "", 1),
		})
	}

	if len(tracks) == 0 {
		return nil, &apperrors.ErrTranscriptsDisabled{VideoID: videoID}
	}

	return models.NewTrackList(videoID, tracks), nil
}

func checkPlayability(videoID string, resp PlayerResponse) error {
	if resp.PlayabilityStatus == nil {
		return nil
	}

	status := resp.PlayabilityStatus.Status
	reason := resp.PlayabilityStatus.Reason

	switch status {
	case "OK", "":
		return nil
	case "LOGIN_REQUIRED":
		if strings.HasPrefix(reason, reasonBotDetected) {
			return &apperrors.ErrRequestBlocked{VideoID: videoID}
		}
		if strings.HasPrefix(reason, reasonAgeRestricted) {
			return &apperrors.ErrVideoUnplayable{VideoID: videoID, Reason: "age restricted"}
		}
	case "ERROR":
		if reason == reasonVideoUnavailable {
			if strings.HasPrefix(videoID, "http://") || strings.HasPrefix(videoID, "https://") {
				return &apperrors.ErrInvalidVideoID{VideoID: videoID}
			}
			return &apperrors.ErrVideoUnavailable{VideoID: videoID}
		}
	}

	return &apperrors.ErrVideoUnplayable{VideoID: videoID, Reason: reason}
}
