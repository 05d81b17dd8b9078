// Package render turns user-submitted bug text into safe output: markdown
// descriptions become sanitised HTML, titles and comments lose all markup.
package render

import (
	"bytes"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer implements ports.ContentRenderer. It is safe for concurrent use.
type Renderer struct {
	md     goldmark.Markdown
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
}

func New() *Renderer {
	return &Renderer{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		ugc:    bluemonday.UGCPolicy(),
		strict: bluemonday.StrictPolicy(),
	}
}

// Markdown renders src and sanitises the result. Raw HTML in src is dropped by
// goldmark and anything that slips through is removed by the UGC policy.
func (r *Renderer) Markdown(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return html.EscapeString(src)
	}
	return r.ugc.Sanitize(buf.String())
}

// PlainText removes every tag. Entities produced by sanitising are decoded so
// stored text stays human-readable.
func (r *Renderer) PlainText(s string) string {
	return html.UnescapeString(r.strict.Sanitize(s))
}
