// Package view renders operation results and the status indicator.
//
// TextRenderer writes to a terminal (or any io.Writer) with lipgloss styling that
// degrades to plain text when the writer is not a TTY. HTMLRenderer writes HTML
// fragments; answer markdown is converted with goldmark, which drops raw
// HTML embedded in the markdown, and every other field is escaped.
//
// Both satisfy services.Renderer and status.Sink.
package view

import "strconv"

// previewLimit is how many characters of a match's text are shown.
const previewLimit = 800

func formatScore(s float64) string {
	return strconv.FormatFloat(s, 'f', 4, 64)
}

func formatPage(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLimit {
		return s
	}
	return string(r[:previewLimit])
}
