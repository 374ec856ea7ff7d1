package web

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"

	"github.com/minatonamikaze1763/DGSIGNER/internal/config"
	"github.com/minatonamikaze1763/DGSIGNER/internal/sign"
)

func newTestHandler(t *testing.T) (http.Handler, *Server) {
	t.Helper()

	cfg := &config.Config{
		Mode:          "server",
		Host:          "127.0.0.1",
		Port:          0,
		WorkDirectory: t.TempDir(),
		Version:       "1.0.0",
		ServerName:    "test-signer",
		LogLevel:      "info",
		MaxFileSize:   10 * 1024 * 1024,
	}

	server, err := NewServer(cfg, sign.NewService(cfg.MaxFileSize))
	require.NoError(t, err)

	return server.routes(), server
}

// testPDF builds a minimal but well-formed PDF with the given number of
// 612x792 pt pages, with xref offsets computed while writing.
func testPDF(t *testing.T, pages int) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 0, pages+2)

	buf.WriteString("%PDF-1.4\n")

	offsets = append(offsets, buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets = append(offsets, buf.Len())
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 3+2*i)
	}
	fmt.Fprintf(&buf, "2 0 obj\n<< /Type /Pages /Kids [%s] /Count %d >>\nendobj\n", kids, pages)

	for i := 0; i < pages; i++ {
		pageNum := 3 + 2*i
		contentNum := pageNum + 1

		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] "+
			"/Resources << >> /Contents %d 0 R >>\nendobj\n", pageNum, contentNum)

		offsets = append(offsets, buf.Len())
		content := "0 0 m"
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			contentNum, len(content), content)
	}

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

// testPDFWithText builds a single-page PDF whose content stream draws
// the given string with a standard Helvetica font, so text extraction
// has something to find.
func testPDFWithText(t *testing.T, text string) []byte {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 0, 5)

	buf.WriteString("%PDF-1.4\n")

	offsets = append(offsets, buf.Len())
	buf.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets = append(offsets, buf.Len())
	buf.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets = append(offsets, buf.Len())
	buf.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] " +
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>\nendobj\n")

	offsets = append(offsets, buf.Len())
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	fmt.Fprintf(&buf, "4 0 obj\n<< /Length %d >>\nstream\n%s\nendstream\nendobj\n",
		len(content), content)

	offsets = append(offsets, buf.Len())
	buf.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	xrefOffset := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(offsets)+1, xrefOffset)

	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 80, B: 160, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testP12(t *testing.T, password string) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName:   "Test Signer",
			Organization: []string{"Test Org"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	container, err := pkcs12.LegacyDES.Encode(key, cert, nil, password)
	require.NoError(t, err)
	return container
}

// uploadRequest builds a multipart POST with a single "file" part.
func uploadRequest(t *testing.T, target, fileName string, data []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHandleInfo(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	info := decodeBody[infoResponse](t, rec)
	assert.Equal(t, "test-signer", info.Name)
	assert.Equal(t, "1.0.0", info.Version)
	assert.Equal(t, int64(10*1024*1024), info.MaxFileSize)
}

func TestSigningFlow(t *testing.T) {
	handler, _ := newTestHandler(t)

	// Load the document
	rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loaded := decodeBody[loadDocumentResponse](t, rec)
	assert.Equal(t, 1, loaded.PageCount)
	assert.Equal(t, "contract.pdf", loaded.FileName)

	// Render page 0
	rec = do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page?index=0", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, "0", rec.Header().Get("X-Page-Index"))
	assert.Equal(t, "612.00", rec.Header().Get("X-Page-Width-Pts"))
	assert.Equal(t, "792.00", rec.Header().Get("X-Page-Height-Pts"))

	// Drag a selection rendered at native scale
	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/begin",
		beginSelectionRequest{X: 100, Y: 100, PageIndex: 0}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/update",
		updateSelectionRequest{X: 300, Y: 150}))
	require.Equal(t, http.StatusOK, rec.Code)
	rect := decodeBody[sign.ScreenRect](t, rec)
	assert.InDelta(t, 200.0, rect.Width, 1e-9)
	assert.InDelta(t, 50.0, rect.Height, 1e-9)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/end",
		endSelectionRequest{RenderedWidth: 612, RenderedHeight: 792}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	end := decodeBody[endSelectionResponse](t, rec)
	require.True(t, end.Committed)
	require.NotNil(t, end.Selection)
	assert.InDelta(t, 100.0, end.Selection.Document.X, 1e-9)
	assert.InDelta(t, 642.0, end.Selection.Document.Y, 1e-9)
	assert.InDelta(t, 200.0, end.Selection.Document.Width, 1e-9)
	assert.InDelta(t, 50.0, end.Selection.Document.Height, 1e-9)

	// Load the signature image
	rec = do(handler, uploadRequest(t, "/api/asset", "signature.png", testPNG(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	asset := decodeBody[loadAssetResponse](t, rec)
	assert.Equal(t, "image", asset.Kind)

	// Apply
	rec = do(handler, httptest.NewRequest(http.MethodPost, "/api/apply", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "contract_signed.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestSelectionEnd_TinyDragDiscarded(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/begin",
		beginSelectionRequest{X: 100, Y: 100, PageIndex: 0}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/update",
		updateSelectionRequest{X: 102, Y: 102}))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/end",
		endSelectionRequest{RenderedWidth: 612, RenderedHeight: 792}))
	require.Equal(t, http.StatusOK, rec.Code)

	end := decodeBody[endSelectionResponse](t, rec)
	assert.False(t, end.Committed)
	assert.Nil(t, end.Selection)
}

func TestHandleLoadDocument_Unreadable(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, uploadRequest(t, "/api/document", "garbage.pdf", []byte("not a pdf")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Equal(t, "Could not read the file as a PDF document.", resp.Error)
}

func TestHandleRenderPage_Errors(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("no document", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page?index=0", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("bad index parameter", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page?index=abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("index out of range", func(t *testing.T) {
		rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page?index=5", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlePageText(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("no document", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page/text?index=0", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	rec := do(handler, uploadRequest(t, "/api/document", "agreement.pdf",
		testPDFWithText(t, "Confidential agreement of sale")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	t.Run("preview text", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page/text?index=0", nil))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		preview := decodeBody[pageTextResponse](t, rec)
		assert.Equal(t, 0, preview.PageIndex)
		assert.Contains(t, preview.Text, "Confidential agreement")
	})

	t.Run("index out of range", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodGet, "/api/document/page/text?index=9", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleSelectionBegin_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/begin",
		map[string]any{"x": -5, "y": 10, "pageIndex": 0}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSelectionEnd_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, jsonRequest(t, http.MethodPost, "/api/selection/end",
		map[string]any{"renderedWidth": 0, "renderedHeight": 792}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleLoadAsset_Unsupported(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, uploadRequest(t, "/api/asset", "notes.txt", []byte("hello")))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decodeBody[errorResponse](t, rec)
	assert.Contains(t, resp.Error, "Unsupported file type")
}

func TestHandleInspectAsset(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("no container loaded", func(t *testing.T) {
		rec := do(handler, jsonRequest(t, http.MethodPost, "/api/asset/inspect",
			inspectAssetRequest{Password: "secret"}))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	container := testP12(t, "secret")
	rec := do(handler, uploadRequest(t, "/api/asset", "signer.p12", container))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	asset := decodeBody[loadAssetResponse](t, rec)
	assert.Equal(t, "certificate-container", asset.Kind)

	t.Run("correct password", func(t *testing.T) {
		rec := do(handler, jsonRequest(t, http.MethodPost, "/api/asset/inspect",
			inspectAssetRequest{Password: "secret"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		result := decodeBody[sign.InspectionResult](t, rec)
		assert.Equal(t, 1, result.CertificateCount)
		assert.Equal(t, 1, result.PrivateKeyCount)
		require.Len(t, result.Certificates, 1)
		assert.True(t, strings.Contains(result.Certificates[0].Subject, "CN=Test Signer"))
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := do(handler, jsonRequest(t, http.MethodPost, "/api/asset/inspect",
			inspectAssetRequest{Password: "wrong"}))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		resp := decodeBody[errorResponse](t, rec)
		assert.Equal(t, "Wrong password or unsupported format.", resp.Error)
	})
}

func TestHandleApply_MissingState(t *testing.T) {
	handler, _ := newTestHandler(t)

	t.Run("no document", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodPost, "/api/apply", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
	require.Equal(t, http.StatusOK, rec.Code)

	t.Run("no selection", func(t *testing.T) {
		rec := do(handler, httptest.NewRequest(http.MethodPost, "/api/apply", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)

		resp := decodeBody[errorResponse](t, rec)
		assert.Equal(t, "Select a signature area on the page first.", resp.Error)
	})
}

func TestHandleSelectionInvalidate(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := do(handler, uploadRequest(t, "/api/document", "contract.pdf", testPDF(t, 1)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/begin",
		beginSelectionRequest{X: 100, Y: 100, PageIndex: 0}))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/update",
		updateSelectionRequest{X: 300, Y: 150}))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(handler, jsonRequest(t, http.MethodPost, "/api/selection/end",
		endSelectionRequest{RenderedWidth: 612, RenderedHeight: 792}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeBody[endSelectionResponse](t, rec).Committed)

	rec = do(handler, httptest.NewRequest(http.MethodPost, "/api/selection/invalidate", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Apply must now fail for want of a selection
	rec = do(handler, httptest.NewRequest(http.MethodPost, "/api/apply", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleLoadDocument_MissingFileField(t *testing.T) {
	handler, _ := newTestHandler(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/document", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := do(handler, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
