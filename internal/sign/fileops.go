package sign

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minatonamikaze1763/DGSIGNER/internal/security"
)

const signedFilePerm = 0o644

// FileService exposes the signing operations over files on disk for the
// MCP tools and the command-line stamper. Paths are confined to the
// configured working directory; relative paths resolve against it.
type FileService struct {
	paths       *security.PathValidator
	maxFileSize int64
}

// NewFileService creates a file-backed signing service rooted at workDir.
func NewFileService(workDir string, maxFileSize int64) (*FileService, error) {
	paths, err := security.NewPathValidator(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &FileService{paths: paths, maxFileSize: maxFileSize}, nil
}

// MaxFileSize returns the per-file size limit in bytes.
func (f *FileService) MaxFileSize() int64 {
	return f.maxFileSize
}

// WorkDirectory returns the directory file paths resolve against.
func (f *FileService) WorkDirectory() string {
	return f.paths.WorkDirectory()
}

// PageDimensions holds the size of one page in PDF points.
type PageDimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// PageInfoResult reports the page geometry of a document on disk.
type PageInfoResult struct {
	Path  string           `json:"path"`
	Pages int              `json:"pages"`
	Sizes []PageDimensions `json:"sizes"`
}

// PageInfo opens the document at path and reports its page count and
// per-page dimensions.
func (f *FileService) PageInfo(ctx context.Context, path string) (*PageInfoResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolved, data, err := f.readFile(path)
	if err != nil {
		return nil, err
	}

	session, err := NewSession(data, filepath.Base(resolved), 0)
	if err != nil {
		return nil, err
	}

	result := &PageInfoResult{
		Path:  resolved,
		Pages: session.PageCount(),
		Sizes: make([]PageDimensions, 0, session.PageCount()),
	}
	for i := 0; i < session.PageCount(); i++ {
		w, h, err := session.PageSize(i)
		if err != nil {
			return nil, err
		}
		result.Sizes = append(result.Sizes, PageDimensions{Width: w, Height: h})
	}

	return result, nil
}

// StampFileRequest describes a file-based stamping operation. Rect is
// in PDF points with a bottom-left origin. When Screen is set, the
// rectangle is instead given in rendered-view pixels (top-left origin)
// and converted against RenderedWidth/RenderedHeight and the page size.
type StampFileRequest struct {
	Path      string
	ImagePath string
	PageIndex int
	Rect      DocumentRect

	Screen         *ScreenRect
	RenderedWidth  float64
	RenderedHeight float64
}

// StampFileResult reports where the signed copy was written.
type StampFileResult struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath"`
	PageIndex  int    `json:"pageIndex"`
	Size       int64  `json:"size"`
}

// StampFile embeds the signature image into the given rectangle of the
// document at req.Path and writes "{name}_signed.pdf" next to the input.
// The input file is never modified; on any failure no output is written.
func (f *FileService) StampFile(ctx context.Context, req StampFileRequest, ts time.Time) (*StampFileResult, error) {
	resolved, doc, err := f.readFile(req.Path)
	if err != nil {
		return nil, err
	}

	imagePath, imageData, err := f.readFile(req.ImagePath)
	if err != nil {
		return nil, err
	}

	asset, err := LoadAsset(ctx, imageData, filepath.Base(imagePath))
	if err != nil {
		return nil, err
	}
	if asset.Kind != AssetImage {
		return nil, ErrNoImageAsset
	}

	session, err := NewSession(doc, filepath.Base(resolved), 0)
	if err != nil {
		return nil, err
	}

	rect := req.Rect
	if req.Screen != nil {
		if req.RenderedWidth <= 0 || req.RenderedHeight <= 0 {
			return nil, fmt.Errorf("rendered dimensions must be positive for a screen-space rectangle")
		}
		pageW, pageH, err := session.PageSize(req.PageIndex)
		if err != nil {
			return nil, err
		}
		rect = ToDocumentRect(*req.Screen, req.RenderedWidth, req.RenderedHeight, pageW, pageH)
	}

	signed, err := Compose(ctx, doc, req.PageIndex, &rect, asset, ts)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(filepath.Dir(resolved), session.SignedFileName())

	if err := os.WriteFile(outputPath, signed, signedFilePerm); err != nil {
		return nil, fmt.Errorf("failed to write signed document: %w", err)
	}

	return &StampFileResult{
		InputPath:  resolved,
		OutputPath: outputPath,
		PageIndex:  req.PageIndex,
		Size:       int64(len(signed)),
	}, nil
}

// InspectContainerFile inspects a PKCS#12 container on disk. Only
// metadata is reported; no key material leaves the container.
func (f *FileService) InspectContainerFile(ctx context.Context, path, password string) (*InspectionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, data, err := f.readFile(path)
	if err != nil {
		return nil, err
	}

	return Inspect(data, password)
}

// readFile resolves a path against the work directory, enforces the
// size limit, and returns the resolved path with the file contents.
func (f *FileService) readFile(path string) (string, []byte, error) {
	resolved, err := f.paths.NormalizePath(path)
	if err != nil {
		return "", nil, fmt.Errorf("security validation failed: %w", err)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("cannot access file %s: %w", resolved, err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("path is a directory: %s", resolved)
	}
	if f.maxFileSize > 0 && info.Size() > f.maxFileSize {
		return "", nil, fmt.Errorf("file size %d exceeds maximum allowed size %d", info.Size(), f.maxFileSize)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read file %s: %w", resolved, err)
	}

	return resolved, data, nil
}
