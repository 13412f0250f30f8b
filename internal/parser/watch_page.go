package parser

import (
	"fmt"
	"io"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/Belphemur/TubeSubs/internal/config"
)

// consentFormAction is the form target of the cookie consent interstitial served to EU visitors.
const consentFormAction = "https://consent.youtube.com/s"

var innertubeAPIKeyRE = regexp.MustCompile(`"INNERTUBE_API_KEY":\s*"([a-zA-Z0-9_-]+)"`)

// WatchPage holds what is needed from a watch page to query the player API
type WatchPage struct {
	APIKey string
	// ConsentValue is set when the page is a consent interstitial; the caller
	// must retry with cookie CONSENT=YES+<ConsentValue>.
	ConsentValue string
	// Captcha is true when the page is a reCAPTCHA challenge instead of the video.
	Captcha bool
}

// NeedsConsent reports whether the page is the consent interstitial.
func (p *WatchPage) NeedsConsent() bool {
	return p.ConsentValue != ""
}

// ParseWatchPage extracts the innertube API key from a watch page HTML document.
// A page that neither carries a key nor is a consent/captcha page is an error.
func ParseWatchPage(body io.Reader, contentType string) (*WatchPage, error) {
	logger := config.GetLogger()

	utf8Body, err := NewUTF8Reader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to detect watch page charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse watch page HTML: %w", err)
	}

	page := &WatchPage{}

	if doc.Find(".g-recaptcha").Length() > 0 {
		page.Captcha = true
		return page, nil
	}

	if value, ok := doc.Find(fmt.Sprintf(`form[action=%q] input[name="v"]`, consentFormAction)).Attr("value"); ok && value != "" {
		page.ConsentValue = value
		logger.Debug().Str("consent", value).Msg("Watch page is a consent interstitial")
		return page, nil
	}

	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := innertubeAPIKeyRE.FindStringSubmatch(s.Text()); len(m) == 2 {
			page.APIKey = m[1]
			return false
		}
		return true
	})

	if page.APIKey == "" {
		return nil, fmt.Errorf("INNERTUBE_API_KEY not found in watch page")
	}

	return page, nil
}
