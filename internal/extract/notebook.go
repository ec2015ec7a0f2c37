package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strings"

	"github.com/yuin/goldmark"
)

// notebook models the subset of the Jupyter nbformat v4 schema needed to
// export cells as HTML.
type notebook struct {
	Cells []notebookCell `json:"cells"`
}

type notebookCell struct {
	CellType string           `json:"cell_type"`
	Source   sourceLines      `json:"source"`
	Outputs  []notebookOutput `json:"outputs"`
}

type notebookOutput struct {
	OutputType string                     `json:"output_type"`
	Text       sourceLines                `json:"text"`
	Data       map[string]json.RawMessage `json:"data"`
}

// sourceLines accepts both the list-of-lines and plain-string encodings that
// nbformat allows for cell sources.
type sourceLines string

func (s *sourceLines) UnmarshalJSON(data []byte) error {
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*s = sourceLines(joined)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*s = sourceLines(strings.Join(lines, ""))
	return nil
}

// Notebook converts an .ipynb file to a single text segment: cells are
// exported to an intermediate HTML document (markdown cells rendered, code
// cells and textual outputs wrapped in pre blocks), then reduced to text the
// same way the other formats are.
func Notebook(source []byte, name string, removeCode bool) (Result, error) {
	var nb notebook
	if err := json.Unmarshal(source, &nb); err != nil {
		return Result{}, fmt.Errorf("failed to parse notebook: %w", err)
	}

	htmlDoc, err := exportNotebookHTML(nb)
	if err != nil {
		return Result{}, err
	}

	text, err := HTMLToText(htmlDoc, removeCode)
	if err != nil {
		return Result{}, err
	}

	return Result{Title: name, Texts: []string{text}}, nil
}

func exportNotebookHTML(nb notebook) (string, error) {
	var sb strings.Builder
	sb.WriteString("<html><body>")

	for _, cell := range nb.Cells {
		switch cell.CellType {
		case "markdown":
			var buf bytes.Buffer
			if err := goldmark.Convert([]byte(cell.Source), &buf); err != nil {
				return "", fmt.Errorf("failed to render notebook cell: %w", err)
			}
			sb.WriteString(buf.String())
		case "code":
			sb.WriteString("<pre><code>")
			sb.WriteString(html.EscapeString(string(cell.Source)))
			sb.WriteString("</code></pre>")
			for _, out := range cell.Outputs {
				writeOutputHTML(&sb, out)
			}
		case "raw":
			sb.WriteString("<p>")
			sb.WriteString(html.EscapeString(string(cell.Source)))
			sb.WriteString("</p>")
		}
	}

	sb.WriteString("</body></html>")
	return sb.String(), nil
}

func writeOutputHTML(sb *strings.Builder, out notebookOutput) {
	text := string(out.Text)
	if text == "" {
		if raw, ok := out.Data["text/plain"]; ok {
			var lines sourceLines
			if err := json.Unmarshal(raw, &lines); err == nil {
				text = string(lines)
			}
		}
	}
	if text == "" {
		return
	}
	sb.WriteString("<pre>")
	sb.WriteString(html.EscapeString(text))
	sb.WriteString("</pre>")
}
