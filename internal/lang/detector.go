// Package lang detects the dominant natural language of crawled content.
package lang

import (
	"log/slog"
	"sync"

	"github.com/abadojack/whatlanggo"
)

// Detector caches the language of the first content it sees. Detection runs
// once per pipeline lifetime; later calls return the cached code. Safe for
// concurrent use.
type Detector struct {
	once sync.Once
	code string
}

// DetectOnce returns the ISO 639-3 code of the detected language. The first
// call performs detection on the given text; subsequent calls ignore their
// argument and return the cached value.
func (d *Detector) DetectOnce(text string) string {
	d.once.Do(func() {
		info := whatlanggo.Detect(text)
		d.code = whatlanggo.LangToString(info.Lang)
		slog.Info("detected content language", "lang", d.code, "confidence", info.Confidence)
	})
	return d.code
}
