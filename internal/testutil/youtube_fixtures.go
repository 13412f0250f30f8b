package testutil

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/Belphemur/TubeSubs/internal/models"
)

// TestAPIKey is the innertube key embedded in generated watch pages
const TestAPIKey = "AIzaTestKey_0123-abc"

// GenerateWatchPageHTML generates a minimal watch page carrying the innertube config
// the way the real page does (inside a ytcfg.set call).
func GenerateWatchPageHTML(apiKey string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8">
	<title>Test video - YouTube</title>
	<script nonce="abc">var ytInitialData = {};</script>
	<script nonce="abc">ytcfg.set({"CLIENT_CANARY_STATE":"none","INNERTUBE_API_KEY": "%s","INNERTUBE_CLIENT_NAME":"WEB"});</script>
</head>
<body><div id="player"></div></body>
</html>`, apiKey)
}

// GenerateConsentPageHTML generates the cookie consent interstitial
func GenerateConsentPageHTML(consentValue string) string {
	return fmt.Sprintf(`<html><body>
<form action="https://consent.youtube.com/s" method="POST">
	<input type="hidden" name="gl" value="DE">
	<input type="hidden" name="v" value="%s">
	<button>Accept all</button>
</form>
</body></html>`, consentValue)
}

// GenerateCaptchaPageHTML generates the reCAPTCHA page served to blocked clients
func GenerateCaptchaPageHTML() string {
	return `<html><body><form id="captcha-form"><div class="g-recaptcha" data-sitekey="x"></div></form></body></html>`
}

// TrackOptions describes one caption track in a generated player response
type TrackOptions struct {
	LanguageCode   string
	Name           string
	Generated      bool
	IsTranslatable bool
	BaseURL        string
	UseRuns        bool // encode the name as runs instead of simpleText
}

// PlayerResponseOptions contains options for generating a /player response
type PlayerResponseOptions struct {
	Status     string // playabilityStatus.status, defaults to "OK"
	Reason     string
	NoCaptions bool // omit the captions object entirely
	Tracks     []TrackOptions
}

// GeneratePlayerResponseJSON generates an innertube /player response body
func GeneratePlayerResponseJSON(opts PlayerResponseOptions) string {
	status := opts.Status
	if status == "" {
		status = "OK"
	}

	playability := map[string]any{"status": status}
	if opts.Reason != "" {
		playability["reason"] = opts.Reason
	}

	resp := map[string]any{
		"responseContext":   map[string]any{"visitorData": "Cgt4"},
		"playabilityStatus": playability,
		"videoDetails":      map[string]any{"title": "Test video"},
	}

	if !opts.NoCaptions {
		tracks := make([]map[string]any, 0, len(opts.Tracks))
		for _, t := range opts.Tracks {
			track := map[string]any{
				"baseUrl":        t.BaseURL,
				"languageCode":   t.LanguageCode,
				"isTranslatable": t.IsTranslatable,
				"vssId":          "." + t.LanguageCode,
			}
			if t.UseRuns {
				track["name"] = map[string]any{"runs": []map[string]string{{"text": t.Name}}}
			} else {
				track["name"] = map[string]string{"simpleText": t.Name}
			}
			if t.Generated {
				track["kind"] = "asr"
				track["vssId"] = "a." + t.LanguageCode
			}
			tracks = append(tracks, track)
		}
		resp["captions"] = map[string]any{
			"playerCaptionsTracklistRenderer": map[string]any{
				"captionTracks":        tracks,
				"audioTracks":          []any{},
				"translationLanguages": []any{},
			},
		}
	}

	data, _ := json.Marshal(resp)
	return string(data)
}

// GenerateTimedTextXML generates a timed text document. Text is HTML-escaped and
// then XML-escaped, matching the double encoding of the real endpoint.
func GenerateTimedTextXML(snippets []models.Snippet) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="utf-8" ?><transcript>`)
	for _, s := range snippets {
		var escaped bytes.Buffer
		_ = xml.EscapeText(&escaped, []byte(html.EscapeString(s.Text)))
		fmt.Fprintf(&sb, `<text start="%s" dur="%s">%s</text>`,
			strconv.FormatFloat(s.Start, 'f', -1, 64),
			strconv.FormatFloat(s.Duration, 'f', -1, 64),
			escaped.String())
	}
	sb.WriteString(`</transcript>`)
	return sb.String()
}
