// Package pipeline orchestrates ingestion: acquire content from a URL or a
// local file, extract text segments per content type, assemble a document and
// submit it to the corpus. Every entry point returns a bool per unit of work;
// failures are logged, never propagated as errors, so one bad unit never
// stops a batch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"runtime/debug"
	"strings"

	"github.com/LadyD56/vectara-ingest/internal/browser"
	"github.com/LadyD56/vectara-ingest/internal/config"
	"github.com/LadyD56/vectara-ingest/internal/extract"
	"github.com/LadyD56/vectara-ingest/internal/lang"
	"github.com/LadyD56/vectara-ingest/internal/summarize"
	"github.com/LadyD56/vectara-ingest/internal/vectara"
	"github.com/LadyD56/vectara-ingest/pkg/models"
)

// Fetcher acquires rendered pages and probes URLs for downloads.
type Fetcher interface {
	Fetch(ctx context.Context, url string) browser.PageResult
	TriggersDownload(ctx context.Context, url string) bool
	Close()
}

// Indexer submits assembled documents and raw files to the corpus.
type Indexer interface {
	IndexDocument(ctx context.Context, doc models.Document) bool
	DeleteDocument(ctx context.Context, docID string) bool
	UploadFile(ctx context.Context, path, uri string, metadata map[string]any) bool
}

// Pipeline ties acquisition, extraction and indexing together.
type Pipeline struct {
	fetcher    Fetcher
	indexer    Indexer
	httpClient *http.Client
	detector   *lang.Detector
	summarizer extract.TableSummarizer

	userAgent       string
	removeCode      bool
	summarizeTables bool
	maxUploadBytes  int64
}

// minContentLength is the fetched-content threshold below which a page is
// considered empty and skipped before any extraction work happens.
const minContentLength = 3

// New builds a Pipeline from configuration, launching the shared browser.
// Table summarization is quietly disabled when no summarizer key is set.
func New(cfg config.Config) (*Pipeline, error) {
	fetcher, err := browser.Launch(browser.Config{
		NavTimeout: cfg.Browser.NavTimeout,
		Headless:   cfg.Browser.Headless,
		UserAgent:  cfg.Browser.UserAgent,
	})
	if err != nil {
		return nil, err
	}

	indexer, err := vectara.New(vectara.Config{
		Endpoint:   cfg.Vectara.Endpoint,
		CustomerID: cfg.Vectara.CustomerID,
		CorpusID:   cfg.Vectara.CorpusID,
		APIKey:     cfg.Vectara.APIKey,
		Timeout:    cfg.Vectara.Timeout,
		Reindex:    cfg.Vectara.Reindex,
	})
	if err != nil {
		fetcher.Close()
		return nil, err
	}

	p := &Pipeline{
		fetcher:         fetcher,
		indexer:         indexer,
		httpClient:      &http.Client{Timeout: cfg.Vectara.Timeout},
		detector:        &lang.Detector{},
		userAgent:       cfg.Browser.UserAgent,
		removeCode:      cfg.Extraction.RemoveCode,
		summarizeTables: cfg.Extraction.SummarizeTables,
		maxUploadBytes:  cfg.Extraction.MaxUploadMB * 1024 * 1024,
	}

	if cfg.Extraction.SummarizeTables {
		s, err := summarize.New(summarize.Config{
			APIKey:  cfg.Summarizer.APIKey,
			Model:   cfg.Summarizer.Model,
			BaseURL: cfg.Summarizer.BaseURL,
		})
		if err != nil {
			slog.Info("summarizer API key not found, disabling table summarization")
			p.summarizeTables = false
		} else {
			p.summarizer = s
		}
	}

	return p, nil
}

// Close releases the shared browser.
func (p *Pipeline) Close() {
	p.fetcher.Close()
}

// IndexURL acquires the page or file behind a URL, extracts its text and
// submits the resulting document. Returns true when the document was indexed.
func (p *Pipeline) IndexURL(ctx context.Context, rawURL string, metadata map[string]any) bool {
	pageURL, _, _ := strings.Cut(rawURL, "#")

	if p.fetcher.TriggersDownload(ctx, pageURL) {
		return p.indexDownload(ctx, pageURL, metadata)
	}

	res := p.fetcher.Fetch(ctx, pageURL)
	if len(res.Content) < minContentLength {
		slog.Info("page content is too short, skipping", "url", pageURL, "length", len(res.Content))
		return false
	}

	result, err := p.extractPage(res)
	if err != nil {
		slog.Info("failed to crawl page, skipping", "url", pageURL, "error", err)
		return false
	}

	docID := models.GenerateDocumentID(res.URL)
	doc, err := models.NewDocument(docID, result.Texts, nil, nil, metadata, result.Title)
	if err != nil {
		slog.Info("failed to assemble document, skipping", "url", pageURL, "error", err)
		return false
	}
	return p.indexer.IndexDocument(ctx, doc)
}

// extractPage runs the HTML extractor with a recover guard: a panic inside
// parsing of hostile markup downgrades to a per-unit error.
func (p *Pipeline) extractPage(res browser.PageResult) (result extract.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v\n%s", r, debug.Stack())
		}
	}()
	e := &extract.HTML{RemoveCode: p.removeCode, Detector: p.detector}
	return e.Extract(res.Content, res.URL)
}

// indexDownload handles a URL that serves a file instead of a page: fetch the
// bytes over plain HTTP, extract text per the file's suffix, and index the
// segmented result.
func (p *Pipeline) indexDownload(ctx context.Context, fileURL string, metadata map[string]any) bool {
	kind := extract.DetectDownloadKind(fileURL)
	if kind == extract.KindUnknown {
		slog.Info("downloaded file type is not supported, skipping", "url", fileURL)
		return false
	}

	tmpPath, err := p.downloadFile(ctx, fileURL)
	if err != nil {
		slog.Info("file download failed, skipping", "url", fileURL, "error", err)
		return false
	}
	defer os.Remove(tmpPath)

	name := path.Base(fileURL)
	result, err := p.extractDownload(ctx, kind, tmpPath, name)
	if err != nil {
		slog.Info("file extraction failed, skipping", "url", fileURL, "error", err)
		return false
	}

	docID := models.GenerateDocumentID(fileURL)
	doc, err := models.NewDocument(docID, result.Texts, nil, nil, metadata, result.Title)
	if err != nil {
		slog.Info("failed to assemble document, skipping", "url", fileURL, "error", err)
		return false
	}
	return p.indexer.IndexDocument(ctx, doc)
}

func (p *Pipeline) extractDownload(ctx context.Context, kind extract.Kind, filePath, name string) (extract.Result, error) {
	switch kind {
	case extract.KindPDF:
		e := &extract.PDF{}
		if p.summarizeTables {
			e.Summarizer = p.summarizer
		}
		return e.Extract(ctx, filePath)
	case extract.KindMarkdown, extract.KindRST, extract.KindNotebook:
		source, err := os.ReadFile(filePath)
		if err != nil {
			return extract.Result{}, err
		}
		switch kind {
		case extract.KindMarkdown:
			return extract.Markdown(source, name, p.removeCode)
		case extract.KindRST:
			return extract.RST(source, name, p.removeCode)
		default:
			return extract.Notebook(source, name, p.removeCode)
		}
	default:
		return extract.Result{}, fmt.Errorf("unsupported content kind %d", kind)
	}
}

func (p *Pipeline) downloadFile(ctx context.Context, fileURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "ingest-*"+path.Ext(fileURL))
	if err != nil {
		return "", err
	}
	defer tmp.Close()
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save download: %w", err)
	}
	return tmp.Name(), nil
}

// IndexFile submits a local file to the corpus. PDFs above the upload size
// limit are extracted locally and indexed as segments instead of uploaded
// whole. When table summarization is on, a PDF's tables are additionally
// indexed as a companion document; a failure there fails the whole unit.
func (p *Pipeline) IndexFile(ctx context.Context, filePath, uri string, metadata map[string]any) bool {
	info, err := os.Stat(filePath)
	if err != nil {
		slog.Error("file does not exist", "path", filePath)
		return false
	}
	if uri == "" {
		uri = filePath
	}

	isPDF := extract.DetectDownloadKind(filePath) == extract.KindPDF

	if isPDF && info.Size() >= p.maxUploadBytes {
		slog.Info("file too large for direct upload, indexing extracted text instead",
			"path", filePath, "size", info.Size())
		return p.indexLargePDF(ctx, filePath, uri, metadata)
	}

	if p.summarizeTables && isPDF {
		if !p.indexTables(ctx, filePath, metadata) {
			return false
		}
	}

	return p.indexer.UploadFile(ctx, filePath, uri, metadata)
}

func (p *Pipeline) indexLargePDF(ctx context.Context, filePath, uri string, metadata map[string]any) bool {
	e := &extract.PDF{}
	if p.summarizeTables {
		e.Summarizer = p.summarizer
	}
	result, err := e.Extract(ctx, filePath)
	if err != nil {
		slog.Error("failed to extract large file", "path", filePath, "error", err)
		return false
	}

	docID := models.GenerateDocumentID(uri)
	doc, err := models.NewDocument(docID, result.Texts, nil, nil, metadata, result.Title)
	if err != nil {
		slog.Error("failed to assemble document", "path", filePath, "error", err)
		return false
	}
	return p.indexer.IndexDocument(ctx, doc)
}

// indexTables extracts only the tables of a PDF and indexes them as a
// companion document. The companion's submission outcome does not gate the
// unit, but extraction or summarization errors do.
func (p *Pipeline) indexTables(ctx context.Context, filePath string, metadata map[string]any) bool {
	e := &extract.PDF{TablesOnly: true, Summarizer: p.summarizer}
	result, err := e.Extract(ctx, filePath)
	if err != nil {
		slog.Error("failed to extract tables", "path", filePath, "error", err)
		return false
	}
	if len(result.Texts) == 0 {
		return true
	}

	docID := models.GenerateDocumentID(filePath + "_tables")
	title := "Tables for " + filePath
	doc, err := models.NewDocument(docID, result.Texts, nil, nil, metadata, title)
	if err != nil {
		slog.Error("failed to assemble tables document", "path", filePath, "error", err)
		return false
	}
	p.indexer.IndexDocument(ctx, doc)
	return true
}
