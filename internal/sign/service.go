package sign

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Service owns the single signing session: at most one document, one
// selection and one signature asset at a time. It replaces the ambient
// globals of a per-tab UI with an explicit lifecycle: a session is
// created on the first document load and replaced wholesale by the
// next.
//
// A monotonically incremented generation counter guards against stale
// completions: LoadDocument and LoadAsset bump it, long-running
// operations capture it at start and their results are discarded with
// ErrSuperseded when a newer load finished in between. The mutex
// serializes access because served surfaces may deliver events from
// more than one connection. Sessions are immutable; all mutable state,
// including the current page index, lives here under the mutex.
type Service struct {
	mu          sync.Mutex
	generation  uint64
	session     *Session
	currentPage int
	tracker     *Tracker
	asset       *Asset
	committed   *CommittedSelection
	maxFileSize int64
}

// CommittedSelection pairs the committed screen rectangle with its
// one-time document-space conversion.
type CommittedSelection struct {
	PageIndex int          `json:"pageIndex"`
	Screen    ScreenRect   `json:"screen"`
	Document  DocumentRect `json:"document"`
}

// LoadDocumentResult reports a successful document load.
type LoadDocumentResult struct {
	PageCount  int    `json:"pageCount"`
	FileName   string `json:"fileName"`
	Generation uint64 `json:"-"`
}

// ApplyResult carries composed document bytes and their download name.
type ApplyResult struct {
	Bytes    []byte
	FileName string
}

// NewService creates a signing service. maxFileSize bounds accepted
// document and asset uploads; zero means unbounded.
func NewService(maxFileSize int64) *Service {
	return &Service{
		tracker:     NewTracker(),
		maxFileSize: maxFileSize,
	}
}

// MaxFileSize returns the configured upload bound in bytes.
func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

// LoadDocument replaces the active session with a new one decoded from
// data. Any selection and any in-flight render or load is invalidated.
func (s *Service) LoadDocument(ctx context.Context, data []byte, fileName string) (*LoadDocumentResult, error) {
	if err := s.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	session, err := NewSession(data, fileName, gen)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrSuperseded
	}
	s.session = session
	s.currentPage = 0
	s.tracker.Invalidate()
	s.committed = nil

	return &LoadDocumentResult{
		PageCount:  session.PageCount(),
		FileName:   fileName,
		Generation: gen,
	}, nil
}

// RenderPage renders the given page of the active document and makes it
// the current page. Switching away from the page of a committed
// selection invalidates the selection. A completion overtaken by a
// newer document load is dropped with ErrSuperseded.
func (s *Service) RenderPage(ctx context.Context, index int) (*PageRender, error) {
	s.mu.Lock()
	session := s.session
	gen := s.generation
	s.mu.Unlock()

	if session == nil {
		return nil, ErrNoDocument
	}

	render, err := session.RenderPage(ctx, index)
	if err != nil {
		return nil, err
	}

	return s.commitRender(gen, render)
}

// commitRender applies a finished render under the generation guard:
// it makes the rendered page current and drops a committed selection
// bound to a different page.
func (s *Service) commitRender(gen uint64, render *PageRender) (*PageRender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrSuperseded
	}
	s.currentPage = render.PageIndex
	if s.committed != nil && s.committed.PageIndex != render.PageIndex {
		s.tracker.Invalidate()
		s.committed = nil
	}
	return render, nil
}

// PageInfo returns the page count and the current page index.
func (s *Service) PageInfo() (pageCount, currentPage int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0, 0, ErrNoDocument
	}
	return s.session.PageCount(), s.currentPage, nil
}

// PageSize returns document-space dimensions of one page in points.
func (s *Service) PageSize(index int) (widthPts, heightPts float64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return 0, 0, ErrNoDocument
	}
	return s.session.PageSize(index)
}

// BeginSelection starts a drag on the given page.
func (s *Service) BeginSelection(p ScreenPoint, pageIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return ErrNoDocument
	}
	if pageIndex < 0 || pageIndex >= s.session.PageCount() {
		return fmt.Errorf("%w: %d of %d", ErrPageIndexOutOfRange, pageIndex, s.session.PageCount())
	}
	s.committed = nil
	s.tracker.BeginDrag(p, pageIndex)
	return nil
}

// UpdateSelection extends the in-progress drag and returns the current
// rectangle.
func (s *Service) UpdateSelection(p ScreenPoint) ScreenRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.UpdateDrag(p)
}

// EndSelection finishes the drag. When the rectangle reaches the
// minimum size it is committed and converted once into document space
// using the rendered surface dimensions supplied by the caller. Too
// small a rectangle yields (nil, nil): selection discarded, no error.
func (s *Service) EndSelection(renderedWpx, renderedHpx float64) (*CommittedSelection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, ErrNoDocument
	}

	rect, ok := s.tracker.EndDrag()
	if !ok {
		return nil, nil
	}
	selection, _ := s.tracker.Committed()

	pageW, pageH, err := s.session.PageSize(selection.PageIndex)
	if err != nil {
		s.tracker.Invalidate()
		return nil, err
	}

	docRect := ToDocumentRect(rect, renderedWpx, renderedHpx, pageW, pageH)
	if docRect.IsZero() {
		s.tracker.Invalidate()
		return nil, nil
	}

	s.committed = &CommittedSelection{
		PageIndex: selection.PageIndex,
		Screen:    rect,
		Document:  docRect,
	}
	return s.committed, nil
}

// InvalidateSelection resets the tracker, e.g. on page navigation
// initiated by the client without a render round-trip.
func (s *Service) InvalidateSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker.Invalidate()
	s.committed = nil
}

// Selection returns the committed selection, if any.
func (s *Service) Selection() (*CommittedSelection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.committed == nil {
		return nil, false
	}
	sel := *s.committed
	return &sel, true
}

// LoadAsset replaces the held signature asset. A new load supersedes
// any still in flight, mirroring the document load guard.
func (s *Service) LoadAsset(ctx context.Context, data []byte, fileNameHint string) (*Asset, error) {
	if err := s.checkSize(int64(len(data))); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	asset, err := LoadAsset(ctx, data, fileNameHint)
	if err != nil && asset == nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrSuperseded
	}
	s.asset = asset
	return asset, err
}

// Asset returns the held signature asset, if any.
func (s *Service) Asset() (*Asset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.asset == nil {
		return nil, false
	}
	return s.asset, true
}

// InspectAsset decodes the held certificate container for display.
func (s *Service) InspectAsset(password string) (*InspectionResult, error) {
	s.mu.Lock()
	asset := s.asset
	s.mu.Unlock()

	if asset == nil || asset.Kind != AssetCertificateContainer {
		return nil, ErrNoCertificateContainer
	}
	return Inspect(asset.Container, password)
}

// Apply composes the committed selection and the image asset onto the
// loaded document and returns new document bytes plus their download
// name. The committed selection must target the currently rendered
// page.
func (s *Service) Apply(ctx context.Context, ts time.Time) (*ApplyResult, error) {
	s.mu.Lock()
	session := s.session
	committed := s.committed
	asset := s.asset
	gen := s.generation
	currentPage := s.currentPage
	s.mu.Unlock()

	if session == nil {
		return nil, ErrNoDocument
	}
	if committed == nil || committed.PageIndex != currentPage {
		return nil, ErrNoSelection
	}
	if asset == nil || asset.Kind != AssetImage {
		return nil, ErrNoImageAsset
	}

	out, err := Compose(ctx, session.Bytes(), committed.PageIndex, &committed.Document, asset, ts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil, ErrSuperseded
	}
	return &ApplyResult{Bytes: out, FileName: session.SignedFileName()}, nil
}

func (s *Service) checkSize(n int64) error {
	if s.maxFileSize > 0 && n > s.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", n, s.maxFileSize)
	}
	return nil
}
