package sign

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	xdraw "golang.org/x/image/draw"
)

const (
	// captionPoints is the fixed caption font size.
	captionPoints = 8

	// captionGapPts separates the caption baseline from the bottom edge
	// of the signature rectangle.
	captionGapPts = 12.0

	// captionMinYPts is the minimum vertical offset of the caption from
	// the page bottom.
	captionMinYPts = 6.0

	captionTimeLayout = "2006-01-02 15:04:05 MST"
)

// Compose draws the image asset and a timestamp caption onto one page
// of the document and returns fully new document bytes. The original
// bytes are never mutated; any failure aborts the whole operation and
// leaves them re-usable for a retry.
//
// The image is stretched to the exact document-space rectangle; no
// aspect-ratio correction is applied. Embedding format follows the
// asset file name: a .png suffix embeds PNG directly, anything else
// attempts JPEG first and falls back to PNG.
func Compose(ctx context.Context, doc []byte, pageIndex int, rect *DocumentRect, asset *Asset, ts time.Time) ([]byte, error) {
	if len(doc) == 0 {
		return nil, ErrNoDocument
	}
	if rect == nil || rect.IsZero() {
		return nil, ErrNoSelection
	}
	if asset == nil || asset.Kind != AssetImage || asset.Image == nil {
		return nil, ErrNoImageAsset
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	encoded, err := encodeForEmbedding(asset, rect)
	if err != nil {
		return nil, err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pages := []string{strconv.Itoa(pageIndex + 1)}

	imgDesc := fmt.Sprintf("pos:bl, off:%.2f %.2f, scale:1 abs, rot:0, op:1", rect.X, rect.Y)
	imgWM, err := api.ImageWatermarkForReader(bytes.NewReader(encoded), imgDesc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var stamped bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(doc), &stamped, pages, imgWM, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	captionY := rect.Y - captionGapPts
	if captionY < captionMinYPts {
		captionY = captionMinYPts
	}
	caption := fmt.Sprintf("Signed (visual) — %s", ts.Format(captionTimeLayout))
	txtDesc := fmt.Sprintf("font:Helvetica, points:%d, pos:bl, off:%.2f %.2f, scale:1 abs, rot:0, op:1, fillcolor:#000000",
		captionPoints, rect.X, captionY)
	txtWM, err := api.TextWatermark(caption, txtDesc, true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(stamped.Bytes()), &out, pages, txtWM, conf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	return out.Bytes(), nil
}

// encodeForEmbedding resamples the asset pixels to the exact rectangle
// dimensions (1 px = 1 pt at absolute watermark scale) and encodes them
// per the two-step format policy.
func encodeForEmbedding(asset *Asset, rect *DocumentRect) ([]byte, error) {
	resampled := resample(asset.Image, rect.Width, rect.Height)

	if strings.HasSuffix(strings.ToLower(asset.FileName), ".png") {
		return encodePNG(resampled)
	}

	// Content misnamed by the user is already caught at decode time in
	// LoadAsset, so this branch only sees valid in-memory pixels; the
	// PNG fallback remains for an encoder failure.
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resampled, &jpeg.Options{Quality: 90}); err != nil {
		return encodePNG(resampled)
	}
	return buf.Bytes(), nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	return buf.Bytes(), nil
}

// resample stretches src to w x h pixels. Degenerate targets collapse
// to a single pixel; callers reject zero-area rectangles beforehand.
func resample(src image.Image, w, h float64) image.Image {
	dw, dh := int(w+0.5), int(h+0.5)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
