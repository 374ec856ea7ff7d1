package sign

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxPreviewTextSize caps the per-page text preview.
const maxPreviewTextSize = 64 * 1024

// Session holds one loaded document: its immutable raw bytes, page
// count and per-page dimensions. A Session is created on a successful
// load, replaced wholesale by the next load, and never mutated after
// construction, so its accessors are safe for concurrent use.
type Session struct {
	raw        []byte
	baseName   string
	pageCount  int
	dims       []types.Dim
	generation uint64
}

// PageRender is the output of rendering a single page: a one-page PDF
// preview for display plus a best-effort plain-text preview and the
// page dimensions needed by the coordinate transform.
type PageRender struct {
	PageIndex  int
	PDF        []byte
	Text       string
	WidthPts   float64
	HeightPts  float64
	Generation uint64
}

// NewSession decodes document metadata from raw bytes. It fails with
// ErrUnreadableDocument when the bytes are not a valid PDF. The current
// page index starts at 0.
func NewSession(data []byte, fileName string, generation uint64) (*Session, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}
	dims, err := ctx.PageDims()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
	}

	return &Session{
		raw:        data,
		baseName:   baseName(fileName),
		pageCount:  ctx.PageCount,
		dims:       dims,
		generation: generation,
	}, nil
}

// PageCount returns the number of pages in the document.
func (s *Session) PageCount() int {
	return s.pageCount
}

// Generation returns the generation stamp this session was created under.
func (s *Session) Generation() uint64 {
	return s.generation
}

// Bytes returns the original document bytes. Callers must not mutate
// the returned slice.
func (s *Session) Bytes() []byte {
	return s.raw
}

// PageSize returns the document-space dimensions of a page in points.
func (s *Session) PageSize(index int) (widthPts, heightPts float64, err error) {
	if index < 0 || index >= s.pageCount {
		return 0, 0, fmt.Errorf("%w: %d of %d", ErrPageIndexOutOfRange, index, s.pageCount)
	}
	d := s.dims[index]
	return d.Width, d.Height, nil
}

// RenderPage produces a render of the given page. Decoding is delegated
// to pdfcpu (page preview) and ledongthuc/pdf (text preview); this is an
// I/O-bound suspension point, hence the context. Which page counts as
// current is tracked by the owning Service, not here.
func (s *Session) RenderPage(ctx context.Context, index int) (*PageRender, error) {
	if index < 0 || index >= s.pageCount {
		return nil, fmt.Errorf("%w: %d of %d", ErrPageIndexOutOfRange, index, s.pageCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	var buf bytes.Buffer
	pages := []string{strconv.Itoa(index + 1)}
	if err := api.Trim(bytes.NewReader(s.raw), &buf, pages, conf); err != nil {
		return nil, fmt.Errorf("failed to render page %d: %w", index, err)
	}

	w, h, err := s.PageSize(index)
	if err != nil {
		return nil, err
	}

	return &PageRender{
		PageIndex:  index,
		PDF:        buf.Bytes(),
		Text:       s.pageText(index),
		WidthPts:   w,
		HeightPts:  h,
		Generation: s.generation,
	}, nil
}

// SignedFileName returns the download name for composed output.
func (s *Session) SignedFileName() string {
	return s.baseName + "_signed.pdf"
}

// pageText extracts a best-effort plain-text preview of one page.
// Extraction failures yield an empty preview, never an error.
func (s *Session) pageText(index int) string {
	defer func() {
		// ledongthuc/pdf can panic on malformed content streams.
		_ = recover()
	}()

	r, err := ledongthuc.NewReader(bytes.NewReader(s.raw), int64(len(s.raw)))
	if err != nil {
		return ""
	}
	page := r.Page(index + 1)
	if page.V.IsNull() {
		return ""
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return ""
	}
	if len(text) > maxPreviewTextSize {
		text = text[:maxPreviewTextSize]
	}
	return text
}

func baseName(fileName string) string {
	base := filepath.Base(fileName)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		return "document"
	}
	return base
}
