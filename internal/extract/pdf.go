package extract

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ElementType classifies a partitioned PDF element.
type ElementType int

const (
	ElementNarrative ElementType = iota
	ElementTitle
	ElementTable
)

// Element is one typed unit of PDF content in reading order.
type Element struct {
	Type ElementType
	Text string
}

// TableSummarizer rewrites a table's raw text as prose.
type TableSummarizer interface {
	SummarizeTable(ctx context.Context, table string) (string, error)
}

// PDF partitions a PDF file into typed elements and turns them into ordered
// segments. In TablesOnly mode only table elements become segments; otherwise
// every non-title element does. When a Summarizer is set, table text is
// replaced by its summarized form.
type PDF struct {
	TablesOnly bool
	Summarizer TableSummarizer
}

// minTitleLength filters out page numbers and short decorations when picking
// the document title.
const minTitleLength = 10

// Extract partitions the file and builds the extraction result. The document
// title is the first heading element longer than minTitleLength characters,
// or "unknown" when none qualifies.
func (e *PDF) Extract(ctx context.Context, path string) (Result, error) {
	elements, err := PartitionPDF(path)
	if err != nil {
		return Result{}, err
	}

	title := "unknown"
	for _, el := range elements {
		if el.Type == ElementTitle && len(el.Text) > minTitleLength {
			title = el.Text
			break
		}
	}

	var texts []string
	for _, el := range elements {
		if e.TablesOnly {
			if el.Type != ElementTable {
				continue
			}
		} else if el.Type == ElementTitle {
			continue
		}

		text := el.Text
		if el.Type == ElementTable && e.Summarizer != nil {
			summary, err := e.Summarizer.SummarizeTable(ctx, text)
			if err != nil {
				return Result{}, fmt.Errorf("failed to summarize table: %w", err)
			}
			text = summary
		}
		texts = append(texts, text)
	}

	return Result{Title: title, Texts: texts}, nil
}

// PartitionPDF reads a PDF and partitions its text into typed elements in
// reading order: headings by font size, tables by repeated column alignment,
// narrative text otherwise.
func PartitionPDF(path string) ([]Element, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var elements []Element
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		rows := groupRows(page.Content().Text)
		elements = append(elements, classifyRows(rows)...)
	}
	return elements, nil
}

// textRow is one visual line of the page: gap-separated cells at a shared
// baseline.
type textRow struct {
	y        float64
	fontSize float64
	cells    []string
}

const (
	// Fragments within this vertical distance share a baseline.
	rowTolerance = 2.0
	// A horizontal gap below this fraction of the font size joins a word.
	spaceGapFactor = 0.25
	// A horizontal gap above this multiple of the font size starts a new cell.
	cellGapFactor = 3.0
)

// groupRows buckets glyph runs into baseline rows and merges runs into
// space/cell-separated text.
func groupRows(texts []pdf.Text) []textRow {
	if len(texts) == 0 {
		return nil
	}

	// Reading order: top of the page first (PDF y grows upward), then left
	// to right.
	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > rowTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var rows []textRow
	var cells []string
	var cell strings.Builder
	rowY := sorted[0].Y
	rowFont := sorted[0].FontSize
	prevEnd := sorted[0].X

	flushCell := func() {
		if text := strings.TrimSpace(cell.String()); text != "" {
			cells = append(cells, text)
		}
		cell.Reset()
	}
	flushRow := func() {
		flushCell()
		if len(cells) > 0 {
			rows = append(rows, textRow{y: rowY, fontSize: rowFont, cells: cells})
		}
		cells = nil
	}

	for i, t := range sorted {
		if i > 0 && math.Abs(t.Y-rowY) > rowTolerance {
			flushRow()
			rowY = t.Y
			rowFont = t.FontSize
			prevEnd = t.X
		}
		if t.FontSize > rowFont {
			rowFont = t.FontSize
		}

		gap := t.X - prevEnd
		size := t.FontSize
		if size <= 0 {
			size = 12
		}
		switch {
		case gap > cellGapFactor*size:
			flushCell()
		case gap > spaceGapFactor*size && cell.Len() > 0:
			cell.WriteByte(' ')
		}
		cell.WriteString(t.S)
		prevEnd = t.X + t.W
	}
	flushRow()

	return rows
}

// classifyRows types each row and merges runs of rows into elements:
// oversized single-cell rows become titles, two or more consecutive
// multi-cell rows become one table, everything else accumulates into
// narrative paragraphs.
func classifyRows(rows []textRow) []Element {
	body := bodyFontSize(rows)

	var elements []Element
	var paragraph []string
	var table [][]string

	flushParagraph := func() {
		if len(paragraph) > 0 {
			elements = append(elements, Element{Type: ElementNarrative, Text: strings.Join(paragraph, " ")})
			paragraph = nil
		}
	}
	flushTable := func() {
		if len(table) >= 2 {
			var lines []string
			for _, cells := range table {
				lines = append(lines, strings.Join(cells, "\t"))
			}
			elements = append(elements, Element{Type: ElementTable, Text: strings.Join(lines, "\n")})
		} else if len(table) == 1 {
			// A lone multi-cell row is a header or footer, not a table.
			elements = append(elements, Element{Type: ElementNarrative, Text: strings.Join(table[0], " ")})
		}
		table = nil
	}

	for _, row := range rows {
		text := strings.Join(row.cells, " ")
		switch {
		case len(row.cells) >= 2:
			flushParagraph()
			table = append(table, row.cells)
		case row.fontSize >= body+1.5 && len(text) < 120:
			flushParagraph()
			flushTable()
			elements = append(elements, Element{Type: ElementTitle, Text: text})
		default:
			flushTable()
			paragraph = append(paragraph, text)
		}
	}
	flushParagraph()
	flushTable()

	return elements
}

// bodyFontSize estimates the dominant text size on the page, weighted by how
// much text each size carries.
func bodyFontSize(rows []textRow) float64 {
	weights := make(map[float64]int)
	for _, row := range rows {
		size := math.Round(row.fontSize*2) / 2
		for _, cell := range row.cells {
			weights[size] += len(cell)
		}
	}

	var body float64
	var max int
	for size, weight := range weights {
		if weight > max {
			body, max = size, weight
		}
	}
	if body == 0 {
		body = 12
	}
	return body
}
