package extract

import (
	"bytes"

	rst "github.com/hhatto/gorst"
)

// RST converts reStructuredText source to a single text segment via an
// intermediate HTML rendering, mirroring the Markdown path. Like Markdown
// files, RST files carry no reliable in-band title.
func RST(source []byte, name string, removeCode bool) (Result, error) {
	p := rst.NewParser(nil)
	var buf bytes.Buffer
	p.ReStructuredText(bytes.NewReader(source), rst.ToHTML(&buf))

	text, err := HTMLToText(buf.String(), removeCode)
	if err != nil {
		return Result{}, err
	}

	return Result{Title: name, Texts: []string{text}}, nil
}
