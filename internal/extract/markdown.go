package extract

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

// Markdown converts Markdown source to a single text segment by way of an
// intermediate HTML rendering. Markdown files carry no reliable in-band
// title, so the caller-supplied name is used.
func Markdown(source []byte, name string, removeCode bool) (Result, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert(source, &buf); err != nil {
		return Result{}, fmt.Errorf("failed to render markdown: %w", err)
	}

	text, err := HTMLToText(buf.String(), removeCode)
	if err != nil {
		return Result{}, err
	}

	return Result{Title: name, Texts: []string{text}}, nil
}
