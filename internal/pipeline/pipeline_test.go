package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jung-kurt/gofpdf"

	"github.com/LadyD56/vectara-ingest/internal/browser"
	"github.com/LadyD56/vectara-ingest/internal/lang"
	"github.com/LadyD56/vectara-ingest/pkg/models"
)

type fakeFetcher struct {
	result   browser.PageResult
	download bool
	fetched  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) browser.PageResult {
	f.fetched = append(f.fetched, url)
	return f.result
}

func (f *fakeFetcher) TriggersDownload(ctx context.Context, url string) bool { return f.download }

func (f *fakeFetcher) Close() {}

type fakeIndexer struct {
	docs    []models.Document
	uploads []string
}

func (f *fakeIndexer) IndexDocument(ctx context.Context, doc models.Document) bool {
	f.docs = append(f.docs, doc)
	return true
}

func (f *fakeIndexer) DeleteDocument(ctx context.Context, docID string) bool { return true }

func (f *fakeIndexer) UploadFile(ctx context.Context, path, uri string, metadata map[string]any) bool {
	f.uploads = append(f.uploads, path)
	return true
}

type failSummarizer struct{}

func (failSummarizer) SummarizeTable(ctx context.Context, table string) (string, error) {
	return "", errors.New("summarization backend unavailable")
}

func testPipeline(fetcher *fakeFetcher, indexer *fakeIndexer) *Pipeline {
	return &Pipeline{
		fetcher:        fetcher,
		indexer:        indexer,
		httpClient:     http.DefaultClient,
		detector:       &lang.Detector{},
		removeCode:     true,
		maxUploadBytes: 50 * 1024 * 1024,
	}
}

func TestIndexURL_ShortContentSkips(t *testing.T) {
	fetcher := &fakeFetcher{result: browser.PageResult{Content: "ok", URL: "https://example.com/"}}
	indexer := &fakeIndexer{}
	p := testPipeline(fetcher, indexer)

	if p.IndexURL(context.Background(), "https://example.com/", nil) {
		t.Error("IndexURL() = true, want false for near-empty page")
	}
	if len(indexer.docs) != 0 {
		t.Errorf("indexed %d documents, want 0", len(indexer.docs))
	}
}

func TestIndexURL_IndexesPage(t *testing.T) {
	page := `<html><head><title>Release Notes</title></head><body><main><p>Version two ships faster queries and a smaller memory footprint.</p></main></body></html>`
	fetcher := &fakeFetcher{result: browser.PageResult{Content: page, URL: "https://example.com/docs/notes"}}
	indexer := &fakeIndexer{}
	p := testPipeline(fetcher, indexer)

	if !p.IndexURL(context.Background(), "https://example.com/redirect-me", map[string]any{"team": "infra"}) {
		t.Fatal("IndexURL() = false, want true")
	}
	if len(indexer.docs) != 1 {
		t.Fatalf("indexed %d documents, want 1", len(indexer.docs))
	}

	doc := indexer.docs[0]
	// The id comes from the resolved location, not the requested URL.
	if doc.DocumentID != models.GenerateDocumentID("https://example.com/docs/notes") {
		t.Errorf("document id = %q", doc.DocumentID)
	}
	if doc.Title != "Release Notes" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 1 || !strings.Contains(doc.Sections[0].Text, "faster queries") {
		t.Errorf("sections = %+v", doc.Sections)
	}
	// Caller metadata is passed through untouched, with nothing folded in.
	if doc.MetadataJSON != `{"team":"infra"}` {
		t.Errorf("metadata = %q, want the caller's metadata verbatim", doc.MetadataJSON)
	}
}

func TestIndexURL_StripsFragment(t *testing.T) {
	page := `<html><head><title>T</title></head><body><main><p>Some sufficiently long anchor target content.</p></main></body></html>`
	fetcher := &fakeFetcher{result: browser.PageResult{Content: page, URL: "https://example.com/page"}}
	indexer := &fakeIndexer{}
	p := testPipeline(fetcher, indexer)

	p.IndexURL(context.Background(), "https://example.com/page#section-3", nil)
	if len(fetcher.fetched) != 1 || fetcher.fetched[0] != "https://example.com/page" {
		t.Errorf("fetched %v, want the fragment stripped", fetcher.fetched)
	}
}

func TestIndexURL_RejectsUnknownDownloadType(t *testing.T) {
	fetcher := &fakeFetcher{download: true}
	indexer := &fakeIndexer{}
	p := testPipeline(fetcher, indexer)

	if p.IndexURL(context.Background(), "https://example.com/archive.zip", nil) {
		t.Error("IndexURL() = true, want false for unsupported download type")
	}
	if len(indexer.docs) != 0 {
		t.Errorf("indexed %d documents, want 0", len(indexer.docs))
	}
}

func TestIndexURL_DownloadsMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("# Setup Guide\n\nInstall the binary and point it at your corpus.\n"))
	}))
	defer srv.Close()

	fetcher := &fakeFetcher{download: true}
	indexer := &fakeIndexer{}
	p := testPipeline(fetcher, indexer)

	if !p.IndexURL(context.Background(), srv.URL+"/setup.md", nil) {
		t.Fatal("IndexURL() = false, want true for markdown download")
	}
	if len(indexer.docs) != 1 {
		t.Fatalf("indexed %d documents, want 1", len(indexer.docs))
	}
	doc := indexer.docs[0]
	if doc.Title != "setup.md" {
		t.Errorf("title = %q, want the file name", doc.Title)
	}
	if len(doc.Sections) != 1 || !strings.Contains(doc.Sections[0].Text, "Install the binary") {
		t.Errorf("sections = %+v", doc.Sections)
	}
}

func TestIndexFile_MissingFile(t *testing.T) {
	indexer := &fakeIndexer{}
	p := testPipeline(&fakeFetcher{}, indexer)

	if p.IndexFile(context.Background(), "/no/such/file.pdf", "", nil) {
		t.Error("IndexFile() = true, want false for missing file")
	}
	if len(indexer.uploads) != 0 || len(indexer.docs) != 0 {
		t.Error("expected no indexer calls for missing file")
	}
}

func TestIndexFile_UploadsDirectly(t *testing.T) {
	path := writeReportPDF(t, false)
	indexer := &fakeIndexer{}
	p := testPipeline(&fakeFetcher{}, indexer)

	if !p.IndexFile(context.Background(), path, "doc://report", map[string]any{"k": "v"}) {
		t.Fatal("IndexFile() = false, want true")
	}
	if len(indexer.uploads) != 1 || indexer.uploads[0] != path {
		t.Errorf("uploads = %v", indexer.uploads)
	}
	if len(indexer.docs) != 0 {
		t.Errorf("indexed %d documents, want 0 for direct upload", len(indexer.docs))
	}
}

func TestIndexFile_LargePDFIndexesSegments(t *testing.T) {
	path := writeReportPDF(t, false)
	indexer := &fakeIndexer{}
	p := testPipeline(&fakeFetcher{}, indexer)
	p.maxUploadBytes = 1 // force every fixture over the limit

	if !p.IndexFile(context.Background(), path, "", nil) {
		t.Fatal("IndexFile() = false, want true")
	}
	if len(indexer.uploads) != 0 {
		t.Errorf("uploads = %v, want none for oversized file", indexer.uploads)
	}
	if len(indexer.docs) != 1 {
		t.Fatalf("indexed %d documents, want 1", len(indexer.docs))
	}
	if got := indexer.docs[0].Title; got != "Annual Infrastructure Report" {
		t.Errorf("title = %q", got)
	}
}

func TestIndexFile_TablesCompanionDocument(t *testing.T) {
	path := writeReportPDF(t, true)
	indexer := &fakeIndexer{}
	p := testPipeline(&fakeFetcher{}, indexer)
	p.summarizeTables = true

	if !p.IndexFile(context.Background(), path, "", nil) {
		t.Fatal("IndexFile() = false, want true")
	}
	if len(indexer.docs) != 1 {
		t.Fatalf("indexed %d companion documents, want 1", len(indexer.docs))
	}
	doc := indexer.docs[0]
	if want := "Tables for " + path; doc.Title != want {
		t.Errorf("companion title = %q, want %q", doc.Title, want)
	}
	if doc.DocumentID != models.GenerateDocumentID(path+"_tables") {
		t.Errorf("companion id = %q", doc.DocumentID)
	}
	if len(indexer.uploads) != 1 {
		t.Errorf("uploads = %v, want the direct upload to still happen", indexer.uploads)
	}
}

func TestIndexFile_SummarizerErrorFailsUnit(t *testing.T) {
	path := writeReportPDF(t, true)
	indexer := &fakeIndexer{}
	p := testPipeline(&fakeFetcher{}, indexer)
	p.summarizeTables = true
	p.summarizer = failSummarizer{}

	if p.IndexFile(context.Background(), path, "", nil) {
		t.Error("IndexFile() = true, want false when table summarization fails")
	}
	if len(indexer.uploads) != 0 {
		t.Errorf("uploads = %v, want none after summarization failure", indexer.uploads)
	}
}

// writeReportPDF renders a small fixture report, optionally with a table.
func writeReportPDF(t *testing.T, withTable bool) string {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 8, "Annual Infrastructure Report", "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 12)
	pdf.MultiCell(0, 6, "The platform served twelve million requests this quarter.", "", "L", false)
	pdf.Ln(6)

	if withTable {
		rows := [][]string{
			{"Region", "Servers", "Cost"},
			{"East", "40", "18000"},
			{"West", "25", "11000"},
		}
		for _, row := range rows {
			for _, cell := range row {
				pdf.CellFormat(60, 7, cell, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
	return path
}
