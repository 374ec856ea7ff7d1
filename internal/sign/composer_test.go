package sign

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImageAsset(t *testing.T, fileName string) *Asset {
	t.Helper()
	img := makeTestImage(16, 16)

	var data []byte
	if fileName == "" || fileName == "sig.png" {
		data = encodeTestPNG(t, img)
		fileName = "sig.png"
	} else {
		data = encodeTestJPEG(t, img)
	}

	asset, err := LoadAsset(context.Background(), data, fileName)
	require.NoError(t, err)
	return asset
}

func TestCompose(t *testing.T) {
	doc := makeTestPDF(t, 2)
	rect := &DocumentRect{X: 100, Y: 642, Width: 200, Height: 50}
	ts := time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		asset *Asset
	}{
		{"png asset", testImageAsset(t, "sig.png")},
		{"jpeg asset", testImageAsset(t, "sig.jpg")},
		{"misnamed asset falls back", testImageAsset(t, "sig.gif")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compose(context.Background(), doc, 1, rect, tt.asset, ts)
			require.NoError(t, err)
			require.NotEmpty(t, out)
			assert.False(t, bytes.Equal(doc, out), "output must be new bytes")

			// Output stays a readable document with the same page count.
			session, err := NewSession(out, "out.pdf", 0)
			require.NoError(t, err)
			assert.Equal(t, 2, session.PageCount())
		})
	}
}

func TestCompose_OriginalUntouched(t *testing.T) {
	doc := makeTestPDF(t, 1)
	before := make([]byte, len(doc))
	copy(before, doc)

	rect := &DocumentRect{X: 10, Y: 700, Width: 100, Height: 40}
	_, err := Compose(context.Background(), doc, 0, rect, testImageAsset(t, "sig.png"), time.Now())
	require.NoError(t, err)

	assert.Equal(t, before, doc, "input bytes must never be mutated")
}

func TestCompose_CaptionClampNearPageBottom(t *testing.T) {
	// A selection close to the page bottom must still compose; the
	// caption offset clamps instead of leaving the page.
	doc := makeTestPDF(t, 1)
	rect := &DocumentRect{X: 10, Y: 2, Width: 100, Height: 40}

	out, err := Compose(context.Background(), doc, 0, rect, testImageAsset(t, "sig.png"), time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestCompose_Errors(t *testing.T) {
	doc := makeTestPDF(t, 1)
	rect := &DocumentRect{X: 10, Y: 700, Width: 100, Height: 40}
	image := testImageAsset(t, "sig.png")
	container := &Asset{Kind: AssetCertificateContainer, Container: []byte{1, 2, 3}}

	tests := []struct {
		name    string
		doc     []byte
		rect    *DocumentRect
		asset   *Asset
		wantErr error
	}{
		{"no document", nil, rect, image, ErrNoDocument},
		{"no selection", doc, nil, image, ErrNoSelection},
		{"zero-area selection", doc, &DocumentRect{X: 1, Y: 1}, image, ErrNoSelection},
		{"no asset", doc, rect, nil, ErrNoImageAsset},
		{"container asset", doc, rect, container, ErrNoImageAsset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compose(context.Background(), tt.doc, 0, tt.rect, tt.asset, time.Now())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompose_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rect := &DocumentRect{X: 10, Y: 700, Width: 100, Height: 40}
	_, err := Compose(ctx, makeTestPDF(t, 1), 0, rect, testImageAsset(t, "sig.png"), time.Now())
	assert.ErrorIs(t, err, context.Canceled)
}
