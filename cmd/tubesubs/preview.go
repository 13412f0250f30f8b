package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/Belphemur/TubeSubs/internal/models"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

const previewTextLimit = 50

// renderPreview prints the first limit records of every downloaded language.
func renderPreview(out io.Writer, result models.SubtitleSet, languages []string, limit int) {
	langs := result.Languages(languages)
	if len(langs) == 0 {
		fmt.Fprintln(out, "no subtitles downloaded")
		return
	}

	fmt.Fprintln(out, "Downloaded subtitles:")
	for _, lang := range langs {
		snippets := result[lang]
		shown := min(limit, len(snippets))

		fmt.Fprintf(out, "%s subtitles (first %d):\n", lang, shown)

		if shown > 0 {
			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Start", "Duration", "Text"})
			for _, s := range snippets[:shown] {
				tw.AppendRow(table.Row{
					strconv.FormatFloat(s.Start, 'f', 2, 64) + "s",
					strconv.FormatFloat(s.Duration, 'f', 2, 64) + "s",
					truncate(s.Text, previewTextLimit),
				})
			}
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
				{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
				{Number: 3, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
			})
			fmt.Fprintln(out, tw.Render())
		}

		if len(snippets) > shown {
			fmt.Fprintf(out, "  ... (%d total)\n", len(snippets))
		}
	}
}

// truncate cuts s to n runes and appends "..." when anything was cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
