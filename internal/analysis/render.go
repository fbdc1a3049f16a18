package analysis

import (
	"bytes"
	"html/template"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// Render converts model markdown to HTML for embedding in the result page.
func Render(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil //nolint:gosec // model output rendered as the answer body
}
