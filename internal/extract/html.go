package extract

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/LadyD56/vectara-ingest/internal/lang"
)

// HTML extracts the readable main content of a rendered page. It yields
// exactly one segment containing the full extracted text.
type HTML struct {
	RemoveCode bool
	Detector   *lang.Detector // optional; detection runs once and is cached
}

// Extract parses the rendered DOM content and returns the page title and body
// text, preferring the main content region over navigation chrome.
func (e *HTML) Extract(content, pageURL string) (Result, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return Result{}, fmt.Errorf("failed to parse html: %w", err)
	}

	if e.Detector != nil {
		if body := findElement(doc, "body"); body != nil {
			e.Detector.DetectOnce(nodeText(body))
		}
	}

	title := pageTitle(doc)

	text, err := HTMLToText(renderNode(mainContent(doc)), e.RemoveCode)
	if err != nil {
		return Result{}, err
	}

	return Result{Title: title, Texts: []string{text}}, nil
}

// pageTitle returns the <title> text, falling back to the first h1.
func pageTitle(doc *html.Node) string {
	if node := findElement(doc, "title"); node != nil && node.FirstChild != nil {
		if title := strings.TrimSpace(node.FirstChild.Data); title != "" {
			return title
		}
	}
	if node := findElement(doc, "h1"); node != nil {
		return nodeText(node)
	}
	return ""
}

// mainContent selects the main content region in priority order, stripping
// navigation chrome from the body when no explicit region exists.
func mainContent(doc *html.Node) *html.Node {
	for _, selector := range []string{"main", "article", "[role=main]"} {
		if node := findElement(doc, selector); node != nil {
			return node
		}
	}

	removeElements(doc, []string{
		"nav", "header", "footer", "aside", "script", "style", "noscript",
		"iframe", "form",
	})

	if body := findElement(doc, "body"); body != nil {
		return body
	}
	return doc
}
