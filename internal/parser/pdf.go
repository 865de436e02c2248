package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// pdftotextBin is the fallback extractor binary.
var pdftotextBin = "pdftotext"

// pdfDocument holds the raw payload; each worker opens its own reader over it.
type pdfDocument struct {
	data     []byte
	numPages int
	fallback bool

	tmpOnce sync.Once
	tmpPath string
	tmpErr  error
}

func decodePDF(data []byte, validate, fallback bool) (*pdfDocument, error) {
	if validate {
		if err := validatePDF(data); err != nil {
			return nil, fmt.Errorf("validate pdf: %w", err)
		}
	}

	r, err := openPDF(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	n := r.NumPage()
	if n <= 0 {
		return nil, errors.New("pdf has no pages")
	}

	return &pdfDocument{
		data:     data,
		numPages: n,
		fallback: fallback,
	}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.numPages
}

func (d *pdfDocument) Extractor(ctx context.Context) (PageExtractor, error) {
	r, err := openPDF(d.data)
	if err != nil {
		return nil, err
	}
	return &pdfPages{ctx: ctx, doc: d, reader: r}, nil
}

func (d *pdfDocument) Close() error {
	if d.tmpPath != "" {
		return os.Remove(d.tmpPath)
	}
	return nil
}

// pdftotext extracts one page (1-based) with the pdftotext binary. The
// payload is written to a temp file once and shared read-only. The process
// is killed when ctx ends.
func (d *pdfDocument) pdftotext(ctx context.Context, page int) (string, error) {
	d.tmpOnce.Do(func() {
		tmp, err := os.CreateTemp("", "bookfetch-pdf-*.pdf")
		if err != nil {
			d.tmpErr = fmt.Errorf("create temp file: %w", err)
			return
		}
		d.tmpPath = tmp.Name()
		if _, err := tmp.Write(d.data); err != nil {
			d.tmpErr = fmt.Errorf("write temp file: %w", err)
		}
		tmp.Close()
	})
	if d.tmpErr != nil {
		return "", d.tmpErr
	}

	p := strconv.Itoa(page)
	cmd := exec.CommandContext(ctx, pdftotextBin, "-f", p, "-l", p, "-layout", d.tmpPath, "-")
	cmd.WaitDelay = time.Second
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

// pdfPages is one worker's view of a pdfDocument.
type pdfPages struct {
	ctx    context.Context
	doc    *pdfDocument
	reader *pdflib.Reader
}

func (p *pdfPages) ExtractPage(index int) (string, error) {
	text, err := plainText(p.reader, index+1)
	if err != nil && p.doc.fallback {
		fb, fbErr := p.doc.pdftotext(p.ctx, index+1)
		if fbErr == nil {
			return fb, nil
		}
		return "", fmt.Errorf("%w (fallback: %v)", err, fbErr)
	}
	return text, err
}

// plainText extracts page num (1-based). Pages with no page object yield no
// text.
func plainText(r *pdflib.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	page := r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func openPDF(data []byte) (r *pdflib.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf reader panic: %v", rec)
		}
	}()
	return pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
}

func validatePDF(data []byte) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf validation panic: %v", rec)
		}
	}()
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	_, err = api.PageCount(bytes.NewReader(data), conf)
	return err
}
