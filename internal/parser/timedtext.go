package parser

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/Belphemur/TubeSubs/internal/models"
)

// TimedTextParser decodes the timed text XML format served for caption tracks:
//
//	<transcript><text start="0.0" dur="1.5">Hello &amp;amp; welcome</text></transcript>
type TimedTextParser struct{}

// NewTimedTextParser creates a new timed text parser
func NewTimedTextParser() Parser[models.Snippet] {
	return &TimedTextParser{}
}

type timedText struct {
	Lines []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start    float64 `xml:"start,attr"`
	Duration float64 `xml:"dur,attr"`
	Text     string  `xml:",chardata"`
}

// Parse implements Parser[models.Snippet]. Lines whose text is empty after cleanup are dropped.
func (p *TimedTextParser) Parse(body io.Reader) ([]models.Snippet, error) {
	decoder := xml.NewDecoder(body)
	decoder.CharsetReader = xmlCharsetReader

	var tt timedText
	if err := decoder.Decode(&tt); err != nil {
		return nil, fmt.Errorf("failed to parse timed text XML: %w", err)
	}

	snippets := make([]models.Snippet, 0, len(tt.Lines))
	for _, line := range tt.Lines {
		text := cleanText(line.Text)
		if text == "" {
			continue
		}
		snippets = append(snippets, models.Snippet{
			Text:     text,
			Start:    line.Start,
			Duration: line.Duration,
		})
	}

	return snippets, nil
}

// cleanText strips HTML markup (<i>, <font>, ...) and decodes the entities
// that survive XML decoding, since caption text is HTML-escaped twice.
func cleanText(raw string) string {
	if !strings.ContainsAny(raw, "<&") {
		return strings.TrimSpace(raw)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(doc.Text())
}
