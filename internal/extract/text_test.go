package extract

import (
	"strings"
	"testing"
)

func TestHTMLToText(t *testing.T) {
	text, err := HTMLToText(`<html><body><h1>Guide</h1><p>Hello world.</p></body></html>`, false)
	if err != nil {
		t.Fatalf("HTMLToText() error = %v", err)
	}
	if !strings.Contains(text, "Guide") {
		t.Errorf("text should contain the heading, got %q", text)
	}
	if !strings.Contains(text, "Hello world.") {
		t.Errorf("text should contain the paragraph, got %q", text)
	}
}

func TestHTMLToText_RemoveCode(t *testing.T) {
	content := `<html><body>
		<p>Install with the command below.</p>
		<pre><code>go install example.com/tool</code></pre>
	</body></html>`

	text, err := HTMLToText(content, true)
	if err != nil {
		t.Fatalf("HTMLToText() error = %v", err)
	}
	if strings.Contains(text, "go install") {
		t.Errorf("code block should be stripped, got %q", text)
	}
	if !strings.Contains(text, "Install with the command below.") {
		t.Errorf("prose should survive, got %q", text)
	}

	// With removeCode disabled the code block is kept.
	text, err = HTMLToText(content, false)
	if err != nil {
		t.Fatalf("HTMLToText() error = %v", err)
	}
	if !strings.Contains(text, "go install") {
		t.Errorf("code block should be kept, got %q", text)
	}
}
