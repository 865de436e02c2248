package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/dgallion1/bookfetch/internal/book"
)

// Document is a decoded, page-structured document.
type Document interface {
	NumPages() int
	// Extractor returns a PageExtractor for the exclusive use of one worker.
	// Work it starts outside the process is bound to ctx.
	Extractor(ctx context.Context) (PageExtractor, error)
	// Close releases resources held by the document.
	Close() error
}

// PageExtractor extracts the text of one page by zero-based index. An
// extractor shares no mutable state with extractors of the same document.
type PageExtractor interface {
	ExtractPage(index int) (string, error)
}

// SupportedFormats lists the file extensions (without dot) that can be decoded.
var SupportedFormats = map[string]bool{
	"pdf":      true,
	"txt":      true,
	"md":       true,
	"markdown": true,
	"html":     true,
	"htm":      true,
	"docx":     true,
}

// IsSupportedFormat checks if a format is supported.
func IsSupportedFormat(format string) bool {
	return SupportedFormats[normalizeFormat(format)]
}

// Decoder turns raw payloads into Documents.
type Decoder struct {
	// ValidatePDF runs a structural validation pass before extraction.
	ValidatePDF bool
	// FallbackPdftotext retries failed PDF pages with the pdftotext binary.
	FallbackPdftotext bool
}

// Decode parses data as the given format. Malformed input yields
// *book.ParseError with Page -1.
func (d Decoder) Decode(data []byte, format string) (Document, error) {
	var (
		doc Document
		err error
	)
	switch normalizeFormat(format) {
	case "pdf":
		doc, err = decodePDF(data, d.ValidatePDF, d.FallbackPdftotext)
	case "txt":
		doc = decodeText(data)
	case "md", "markdown":
		doc = decodeMarkdown(data)
	case "html", "htm":
		doc, err = decodeHTML(data)
	case "docx":
		doc, err = decodeDOCX(data)
	default:
		return nil, &book.ParseError{Page: -1, Err: fmt.Errorf("unsupported format: %q", format)}
	}
	if err != nil {
		return nil, &book.ParseError{Page: -1, Err: err}
	}
	return doc, nil
}

func normalizeFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// sections is a Document whose pages are precomputed strings.
type sections []string

func (s sections) NumPages() int                                    { return len(s) }
func (s sections) Extractor(context.Context) (PageExtractor, error) { return s, nil }
func (s sections) Close() error                                     { return nil }

func (s sections) ExtractPage(index int) (string, error) {
	if index < 0 || index >= len(s) {
		return "", fmt.Errorf("page %d out of range", index)
	}
	return s[index], nil
}

// sectionBuilder splits structured text into heading-delimited sections.
type sectionBuilder struct {
	out     []string
	current strings.Builder
}

// heading starts a new section titled t.
func (b *sectionBuilder) heading(t string) {
	b.flush()
	b.current.WriteString(t)
}

func (b *sectionBuilder) paragraph(t string) {
	if t == "" {
		return
	}
	if b.current.Len() > 0 {
		b.current.WriteString("\n\n")
	}
	b.current.WriteString(t)
}

func (b *sectionBuilder) flush() {
	if t := strings.TrimSpace(b.current.String()); t != "" {
		b.out = append(b.out, t)
	}
	b.current.Reset()
}

func (b *sectionBuilder) done() sections {
	b.flush()
	return sections(b.out)
}
