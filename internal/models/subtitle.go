package models

// Snippet is one timed line of a subtitle track
type Snippet struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`    // Offset from the start of the video, in seconds
	Duration float64 `json:"duration"` // Seconds the line stays on screen
}

// SubtitleSet maps a language code to the snippets downloaded for it.
// A language missing from the map was either not found or failed.
type SubtitleSet map[string][]Snippet

// Languages returns the language codes present in the set, in the order they were requested.
func (s SubtitleSet) Languages(requested []string) []string {
	langs := make([]string, 0, len(s))
	for _, lang := range requested {
		if _, ok := s[lang]; ok {
			langs = append(langs, lang)
		}
	}
	return langs
}
