// Package extract converts raw fetched content into a document title and an
// ordered sequence of text segments, one strategy per content type.
package extract

import "strings"

// Kind identifies the extraction strategy for a piece of content.
type Kind int

const (
	KindUnknown Kind = iota
	KindHTML
	KindPDF
	KindMarkdown
	KindRST
	KindNotebook
)

// Result is extractor output: a best-effort document title plus the ordered
// segment texts.
type Result struct {
	Title string
	Texts []string
}

// DetectKind selects the extraction strategy for a URL or path by suffix.
// Rendered HTML is the default for anything without a recognized document
// suffix.
func DetectKind(url string) Kind {
	if k := suffixKind(url); k != KindUnknown {
		return k
	}
	return KindHTML
}

// DetectDownloadKind classifies a downloaded file by suffix. Unrecognized
// suffixes come back as KindUnknown so the caller can reject the file.
func DetectDownloadKind(url string) Kind {
	return suffixKind(url)
}

// The notebook suffix is matched case-insensitively; the others are not.
func suffixKind(url string) Kind {
	switch {
	case strings.HasSuffix(url, ".pdf"):
		return KindPDF
	case strings.HasSuffix(url, ".md"):
		return KindMarkdown
	case strings.HasSuffix(url, ".rst"):
		return KindRST
	case strings.HasSuffix(strings.ToLower(url), ".ipynb"):
		return KindNotebook
	default:
		return KindUnknown
	}
}
