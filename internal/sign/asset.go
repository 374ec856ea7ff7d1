package sign

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// image.Decode dispatches on magic bytes, so a misnamed file still
	// decodes when its content is one of the supported formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// AssetKind tags the signature asset variant.
type AssetKind int

const (
	AssetUnsupported AssetKind = iota
	AssetImage
	AssetCertificateContainer
)

func (k AssetKind) String() string {
	switch k {
	case AssetImage:
		return "image"
	case AssetCertificateContainer:
		return "certificate-container"
	default:
		return "unsupported"
	}
}

// ImageFormatHint records what the file-name suffix claimed the image
// format to be. The composer uses it to pick the first embedding
// attempt; the actual bytes may disagree with the suffix.
type ImageFormatHint int

const (
	FormatOther ImageFormatHint = iota
	FormatPNG
	FormatJPEG
)

// Asset is the loaded signature asset. Exactly one is held at a time;
// loading a new one replaces the previous.
type Asset struct {
	Kind       AssetKind
	FileName   string
	FormatHint ImageFormatHint

	// Image holds decoded pixel data when Kind is AssetImage.
	Image image.Image

	// Container holds the raw bytes when Kind is AssetCertificateContainer.
	Container []byte
}

// LoadAsset classifies fileBytes purely by the case-insensitive
// file-name suffix and decodes image variants. Unsupported suffixes
// produce an AssetUnsupported asset together with
// ErrUnsupportedAssetType so callers can show a status message without
// treating it as a hard failure. Image decode is the suspension point
// justifying the context.
func LoadAsset(ctx context.Context, fileBytes []byte, fileNameHint string) (*Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(fileNameHint))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif":
		img, _, err := image.Decode(bytes.NewReader(fileBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUndecodableImage, err)
		}
		return &Asset{
			Kind:       AssetImage,
			FileName:   fileNameHint,
			FormatHint: formatHint(ext),
			Image:      img,
		}, nil
	case ".p12", ".pfx":
		return &Asset{
			Kind:      AssetCertificateContainer,
			FileName:  fileNameHint,
			Container: fileBytes,
		}, nil
	default:
		return &Asset{Kind: AssetUnsupported, FileName: fileNameHint}, ErrUnsupportedAssetType
	}
}

func formatHint(ext string) ImageFormatHint {
	switch ext {
	case ".png":
		return FormatPNG
	case ".jpg", ".jpeg":
		return FormatJPEG
	default:
		return FormatOther
	}
}
