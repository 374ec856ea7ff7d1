package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/minatonamikaze1763/DGSIGNER/internal/sign"
)

// multipartMemoryLimit is the in-memory spill threshold for uploads.
const multipartMemoryLimit = 8 << 20

type errorResponse struct {
	Error string `json:"error"`
}

type infoResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	MaxFileSize int64  `json:"maxFileSize"`
}

type loadDocumentResponse struct {
	FileName  string `json:"fileName"`
	PageCount int    `json:"pageCount"`
}

type beginSelectionRequest struct {
	X         float64 `json:"x" validate:"min=0"`
	Y         float64 `json:"y" validate:"min=0"`
	PageIndex int     `json:"pageIndex" validate:"min=0"`
}

type updateSelectionRequest struct {
	X float64 `json:"x" validate:"min=0"`
	Y float64 `json:"y" validate:"min=0"`
}

type endSelectionRequest struct {
	RenderedWidth  float64 `json:"renderedWidth" validate:"required,gt=0"`
	RenderedHeight float64 `json:"renderedHeight" validate:"required,gt=0"`
}

type endSelectionResponse struct {
	Committed bool                     `json:"committed"`
	Selection *sign.CommittedSelection `json:"selection,omitempty"`
}

type pageTextResponse struct {
	PageIndex int    `json:"pageIndex"`
	Text      string `json:"text"`
}

type loadAssetResponse struct {
	Kind     string `json:"kind"`
	FileName string `json:"fileName"`
}

type inspectAssetRequest struct {
	Password string `json:"password"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, infoResponse{
		Name:        s.cfg.ServerName,
		Version:     s.cfg.Version,
		MaxFileSize: s.svc.MaxFileSize(),
	})
}

func (s *Server) handleLoadDocument(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.svc.LoadDocument(r.Context(), data, fileName)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, loadDocumentResponse{
		FileName:  result.FileName,
		PageCount: result.PageCount,
	})
}

func (s *Server) handleRenderPage(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query parameter index must be an integer"))
		return
	}

	if err := s.heavy.Acquire(r.Context(), 1); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer s.heavy.Release(1)

	render, err := s.svc.RenderPage(r.Context(), index)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("X-Page-Index", strconv.Itoa(render.PageIndex))
	w.Header().Set("X-Page-Width-Pts", strconv.FormatFloat(render.WidthPts, 'f', 2, 64))
	w.Header().Set("X-Page-Height-Pts", strconv.FormatFloat(render.HeightPts, 'f', 2, 64))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(render.PDF); err != nil {
		log.Printf("failed to write page render: %v", err)
	}
}

// handlePageText returns the best-effort plain-text preview of a page,
// shown next to the rendered page so the user can confirm they are
// signing the right document. An empty preview is not an error.
func (s *Server) handlePageText(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("query parameter index must be an integer"))
		return
	}

	if err := s.heavy.Acquire(r.Context(), 1); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer s.heavy.Release(1)

	render, err := s.svc.RenderPage(r.Context(), index)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, pageTextResponse{
		PageIndex: render.PageIndex,
		Text:      render.Text,
	})
}

func (s *Server) handleSelectionBegin(w http.ResponseWriter, r *http.Request) {
	var req beginSelectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.BeginSelection(sign.ScreenPoint{X: req.X, Y: req.Y}, req.PageIndex); err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"state": "dragging"})
}

func (s *Server) handleSelectionUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSelectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	rect := s.svc.UpdateSelection(sign.ScreenPoint{X: req.X, Y: req.Y})
	s.writeJSON(w, http.StatusOK, rect)
}

func (s *Server) handleSelectionEnd(w http.ResponseWriter, r *http.Request) {
	var req endSelectionRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	selection, err := s.svc.EndSelection(req.RenderedWidth, req.RenderedHeight)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	// A sub-minimum drag is discarded without an error
	s.writeJSON(w, http.StatusOK, endSelectionResponse{
		Committed: selection != nil,
		Selection: selection,
	})
}

func (s *Server) handleSelectionInvalidate(w http.ResponseWriter, r *http.Request) {
	s.svc.InvalidateSelection()
	s.writeJSON(w, http.StatusOK, map[string]string{"state": "idle"})
}

func (s *Server) handleLoadAsset(w http.ResponseWriter, r *http.Request) {
	data, fileName, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	asset, err := s.svc.LoadAsset(r.Context(), data, fileName)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, loadAssetResponse{
		Kind:     asset.Kind.String(),
		FileName: asset.FileName,
	})
}

func (s *Server) handleInspectAsset(w http.ResponseWriter, r *http.Request) {
	var req inspectAssetRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	result, err := s.svc.InspectAsset(req.Password)
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	if err := s.heavy.Acquire(r.Context(), 1); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	defer s.heavy.Release(1)

	result, err := s.svc.Apply(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, statusCode(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Bytes); err != nil {
		log.Printf("failed to write signed document: %v", err)
	}
}

// readUpload reads the "file" part of a multipart upload, bounded by
// the configured file size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	limit := s.svc.MaxFileSize()
	if limit <= 0 {
		limit = multipartMemoryLimit
	}
	// Multipart framing adds overhead beyond the file bytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, "", fmt.Errorf("invalid multipart upload: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing file field: %w", err)
	}
	defer func(file multipart.File) {
		_ = file.Close()
	}(file)

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}

	return data, header.Filename, nil
}

// decodeJSON decodes and validates a JSON request body, writing the
// error response itself when the body is rejected.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, jsonBodyLimit)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, errorResponse{Error: sign.StatusMessage(err)})
}

// statusCode maps domain errors onto HTTP statuses. Missing session
// state is a conflict with the session, not a malformed request.
func statusCode(err error) int {
	switch {
	case errors.Is(err, sign.ErrNoDocument),
		errors.Is(err, sign.ErrNoSelection),
		errors.Is(err, sign.ErrNoImageAsset),
		errors.Is(err, sign.ErrNoCertificateContainer),
		errors.Is(err, sign.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, sign.ErrPageIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, sign.ErrUnreadableDocument),
		errors.Is(err, sign.ErrUndecodableImage),
		errors.Is(err, sign.ErrUnsupportedAssetType),
		errors.Is(err, sign.ErrWrongPasswordOrMalformed),
		errors.Is(err, sign.ErrEmbeddingFailed):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
