package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/status"
)

const clearScreen = "\x1b[H\x1b[2J"

// TextRenderer renders to a terminal.
type TextRenderer struct {
	mu     sync.Mutex
	w      io.Writer
	clear  bool
	dirty  bool
	ok     lipgloss.Style
	warn   lipgloss.Style
	label  lipgloss.Style
	header lipgloss.Style
	code   lipgloss.Style
}

// NewTextRenderer builds a terminal renderer. When interactive is true, Clear wipes
// the screen; otherwise results simply accumulate.
func NewTextRenderer(w io.Writer, interactive bool) *TextRenderer {
	r := lipgloss.NewRenderer(w)
	return &TextRenderer{
		w:      w,
		clear:  interactive,
		ok:     r.NewStyle().Foreground(lipgloss.Color("42")),
		warn:   r.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		label:  r.NewStyle().Foreground(lipgloss.Color("245")),
		header: r.NewStyle().Bold(true).Underline(true),
		code:   r.NewStyle().Foreground(lipgloss.Color("111")),
	}
}

func (t *TextRenderer) ShowStatus(r status.Record) {
	t.mu.Lock()
	defer t.mu.Unlock()

	style := t.ok
	if r.Severity == status.Warn {
		style = t.warn
	}
	fmt.Fprintln(t.w, style.Render(fmt.Sprintf("[%s] %s", r.Severity, r.Message)))
}

func (t *TextRenderer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.clear && t.dirty {
		fmt.Fprint(t.w, clearScreen)
	}
	t.dirty = false
}

func (t *TextRenderer) RenderSearch(resp models.SearchResponse) {
	var b strings.Builder
	b.WriteString(t.header.Render("Top Matches"))
	b.WriteString("\n")
	for _, m := range resp.TopK {
		b.WriteString("\n")
		t.kv(&b, "Score", formatScore(m.Score))
		t.kv(&b, "Page", formatPage(m.Page))
		t.kv(&b, "Chunk", t.code.Render(m.ChunkID))
		t.kv(&b, "Source", t.code.Render(m.Source))
		b.WriteString(t.label.Render("Preview"))
		b.WriteString("\n")
		b.WriteString(preview(m.Text))
		b.WriteString("\n")
	}
	t.emit(b.String())
}

func (t *TextRenderer) RenderAnswer(resp models.AnswerResponse) {
	var b strings.Builder
	b.WriteString(t.header.Render("Answer"))
	b.WriteString("\n")
	if resp.Polished() {
		b.WriteString(t.label.Render("Polished (Markdown)"))
		b.WriteString("\n")
		b.WriteString(resp.AnswerMD)
	} else {
		b.WriteString(t.label.Render("Raw"))
		b.WriteString("\n")
		b.WriteString(resp.RawText())
	}
	b.WriteString("\n\n")
	b.WriteString(t.label.Render("Citations"))
	b.WriteString("\n")
	for _, c := range resp.Citations {
		b.WriteString("\n")
		t.kv(&b, "Score", formatScore(c.Score))
		t.kv(&b, "Page", formatPage(c.Page))
		t.kv(&b, "Chunk", t.code.Render(c.ChunkID))
		t.kv(&b, "Source", t.code.Render(c.Source))
	}
	t.emit(b.String())
}

func (t *TextRenderer) RenderUpload(meta models.UploadMetadata) {
	var b strings.Builder
	t.kv(&b, "Key", t.code.Render(meta.Key))
	t.kv(&b, "S3 URI", t.code.Render(meta.S3URI))
	t.kv(&b, "Type", meta.ContentType)
	t.emit(b.String())
}

func (t *TextRenderer) kv(b *strings.Builder, k, v string) {
	b.WriteString(t.label.Render(fmt.Sprintf("%-7s", k)))
	b.WriteString(" ")
	b.WriteString(v)
	b.WriteString("\n")
}

func (t *TextRenderer) emit(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, s)
	t.dirty = true
}
