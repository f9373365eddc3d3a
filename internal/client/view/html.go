package view

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"
	"sync"

	"github.com/dmitrijs2005/docqa/internal/client/models"
	"github.com/dmitrijs2005/docqa/internal/client/status"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

type markdownConverter interface {
	Convert(source []byte, w io.Writer, opts ...parser.ParseOption) error
}

// HTMLRenderer renders results as HTML fragments, one card per result.
type HTMLRenderer struct {
	mu sync.Mutex
	w  io.Writer
	md markdownConverter

	// OnMarkdownError is called when answer markdown cannot be converted
	// and the raw text is shown instead. May be nil.
	OnMarkdownError func(err error)
}

func NewHTMLRenderer(w io.Writer) *HTMLRenderer {
	return &HTMLRenderer{
		w:  w,
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (h *HTMLRenderer) ShowStatus(r status.Record) {
	h.write(fmt.Sprintf(`<div id="status" class="%s">%s</div>`, r.Severity, esc(r.Message)))
}

// Clear is a no-op: fragments already written cannot be recalled.
func (h *HTMLRenderer) Clear() {}

func (h *HTMLRenderer) RenderSearch(resp models.SearchResponse) {
	var b strings.Builder
	b.WriteString(`<div class="card grid"><h1>Top Matches</h1>`)
	for _, m := range resp.TopK {
		b.WriteString(`<div class="result"><div class="kvs">`)
		writeKVs(&b, m.Score, m.Page, m.ChunkID, m.Source)
		b.WriteString(`</div><div class="muted" style="margin-top:8px">Preview</div><div>`)
		b.WriteString(esc(preview(m.Text)))
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div>`)
	h.write(b.String())
}

func (h *HTMLRenderer) RenderAnswer(resp models.AnswerResponse) {
	var b strings.Builder
	b.WriteString(`<div class="card grid"><h1>Answer</h1><div class="result">`)
	if resp.Polished() {
		b.WriteString(`<div class="muted" style="margin-bottom:6px">Polished (Markdown)</div><div class="md">`)
		b.WriteString(h.renderMarkdown(resp.AnswerMD))
		b.WriteString(`</div>`)
	} else {
		b.WriteString(`<div class="muted" style="margin-bottom:6px">Raw</div><div>`)
		b.WriteString(esc(resp.RawText()))
		b.WriteString(`</div>`)
	}
	b.WriteString(`</div><div class="stack"><div class="muted">Citations</div>`)
	for _, c := range resp.Citations {
		b.WriteString(`<div class="result"><div class="kvs">`)
		writeKVs(&b, c.Score, c.Page, c.ChunkID, c.Source)
		b.WriteString(`</div></div>`)
	}
	b.WriteString(`</div></div>`)
	h.write(b.String())
}

func (h *HTMLRenderer) RenderUpload(meta models.UploadMetadata) {
	h.write(fmt.Sprintf(`<div class="card"><div class="kvs">`+
		`<div>Key</div><div><code>%s</code></div>`+
		`<div>S3 URI</div><div><code>%s</code></div>`+
		`<div>Type</div><div>%s</div>`+
		`</div></div>`, esc(meta.Key), esc(meta.S3URI), esc(meta.ContentType)))
}

// renderMarkdown converts md to HTML. Raw HTML inside md is omitted by
// goldmark's default renderer. On failure the escaped source is returned in
// a <pre> block.
func (h *HTMLRenderer) renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(md), &buf); err != nil {
		if h.OnMarkdownError != nil {
			h.OnMarkdownError(err)
		}
		return "<pre>" + esc(md) + "</pre>"
	}
	return buf.String()
}

func writeKVs(b *strings.Builder, score float64, page *int, chunkID, source string) {
	fmt.Fprintf(b, `<div>Score</div><div>%s</div>`, formatScore(score))
	fmt.Fprintf(b, `<div>Page</div><div>%s</div>`, formatPage(page))
	fmt.Fprintf(b, `<div>Chunk</div><div><code>%s</code></div>`, esc(chunkID))
	fmt.Fprintf(b, `<div>Source</div><div><code>%s</code></div>`, esc(source))
}

func esc(s string) string {
	return html.EscapeString(s)
}

func (h *HTMLRenderer) write(s string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	fmt.Fprintln(h.w, s)
}
