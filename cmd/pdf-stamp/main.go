// pdf-stamp is a one-shot command-line stamper: it embeds a signature
// image into a rectangle of a PDF page and writes "{name}_signed.pdf".
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/minatonamikaze1763/DGSIGNER/internal/sign"
)

var (
	imagePath      = flag.String("image", "", "Path to the signature image (PNG, JPG, JPEG or GIF)")
	page           = flag.Int("page", 0, "Zero-based page index to stamp")
	x              = flag.Float64("x", 0, "Left edge of the placement rectangle")
	y              = flag.Float64("y", 0, "Bottom edge (points) or top edge (screen pixels) of the rectangle")
	width          = flag.Float64("width", 0, "Width of the placement rectangle")
	height         = flag.Float64("height", 0, "Height of the placement rectangle")
	renderedWidth  = flag.Float64("rendered-width", 0, "Rendered page width in pixels; with -rendered-height, coordinates are screen pixels (top-left origin)")
	renderedHeight = flag.Float64("rendered-height", 0, "Rendered page height in pixels")
	timestamp      = flag.String("timestamp", "", "Caption timestamp override in RFC 3339 format (defaults to now)")
	output         = flag.String("output", "", "Output path (defaults to {name}_signed.pdf next to the input)")
	infoOnly       = flag.Bool("info", false, "Print page count and dimensions as JSON instead of stamping")
	help           = flag.Bool("help", false, "Show help message")
)

func main() {
	flag.Parse()

	if *help {
		printHelp()
		return
	}

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)
	doc, err := os.ReadFile(pdfPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", pdfPath, err)
		os.Exit(1)
	}

	session, err := sign.NewSession(doc, filepath.Base(pdfPath), 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", sign.StatusMessage(err))
		os.Exit(1)
	}

	if *infoOnly {
		if err := printPageInfo(session, pdfPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *imagePath == "" {
		fmt.Fprintf(os.Stderr, "Error: -image is required\n\n")
		printUsage()
		os.Exit(1)
	}
	if *width <= 0 || *height <= 0 {
		fmt.Fprintf(os.Stderr, "Error: -width and -height must be positive\n\n")
		printUsage()
		os.Exit(1)
	}

	imageData, err := os.ReadFile(*imagePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot read %s: %v\n", *imagePath, err)
		os.Exit(1)
	}

	ctx := context.Background()

	asset, err := sign.LoadAsset(ctx, imageData, filepath.Base(*imagePath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", sign.StatusMessage(err))
		os.Exit(1)
	}
	if asset.Kind != sign.AssetImage {
		fmt.Fprintf(os.Stderr, "Error: %s\n", sign.StatusMessage(sign.ErrNoImageAsset))
		os.Exit(1)
	}

	rect := sign.DocumentRect{X: *x, Y: *y, Width: *width, Height: *height}
	if *renderedWidth > 0 || *renderedHeight > 0 {
		if *renderedWidth <= 0 || *renderedHeight <= 0 {
			fmt.Fprintf(os.Stderr, "Error: -rendered-width and -rendered-height must both be positive\n")
			os.Exit(1)
		}
		pageW, pageH, err := session.PageSize(*page)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", sign.StatusMessage(err))
			os.Exit(1)
		}
		screen := sign.ScreenRect{X: *x, Y: *y, Width: *width, Height: *height}
		rect = sign.ToDocumentRect(screen, *renderedWidth, *renderedHeight, pageW, pageH)
	}

	ts := time.Now()
	if *timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, *timestamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid -timestamp: %v\n", err)
			os.Exit(1)
		}
		ts = parsed
	}

	signed, err := sign.Compose(ctx, doc, *page, &rect, asset, ts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", sign.StatusMessage(err))
		os.Exit(1)
	}

	outputPath := *output
	if outputPath == "" {
		outputPath = filepath.Join(filepath.Dir(pdfPath), session.SignedFileName())
	}
	if err := os.WriteFile(outputPath, signed, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot write %s: %v\n", outputPath, err)
		os.Exit(1)
	}

	fmt.Printf("Signed copy written to %s (%d bytes)\n", outputPath, len(signed))
}

func printPageInfo(session *sign.Session, pdfPath string) error {
	type pageDims struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	info := struct {
		Path  string     `json:"path"`
		Pages int        `json:"pages"`
		Sizes []pageDims `json:"sizes"`
	}{
		Path:  pdfPath,
		Pages: session.PageCount(),
	}

	for i := 0; i < session.PageCount(); i++ {
		w, h, err := session.PageSize(i)
		if err != nil {
			return err
		}
		info.Sizes = append(info.Sizes, pageDims{Width: w, Height: h})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func printHelp() {
	fmt.Println("pdf-stamp - Stamp a signature image onto a PDF page")
	fmt.Println()
	fmt.Println("Embeds the image into the given rectangle, adds a timestamp caption below")
	fmt.Println("it, and writes {name}_signed.pdf next to the input. The input document is")
	fmt.Println("never modified; on any failure no output file is written.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -image           Path to the signature image (required unless -info)")
	fmt.Println("  -page            Zero-based page index (default 0)")
	fmt.Println("  -x, -y           Rectangle position")
	fmt.Println("  -width, -height  Rectangle size (required)")
	fmt.Println("  -rendered-width, -rendered-height")
	fmt.Println("                   When given, coordinates are screen pixels of a page")
	fmt.Println("                   rendered at that size (top-left origin); otherwise")
	fmt.Println("                   they are PDF points (bottom-left origin)")
	fmt.Println("  -timestamp       Caption timestamp override, RFC 3339")
	fmt.Println("  -output          Output path override")
	fmt.Println("  -info            Print page count and dimensions as JSON and exit")
	fmt.Println("  -help            Show this help message")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf-stamp -info contract.pdf")
	fmt.Println("  pdf-stamp -image signature.png -x 100 -y 642 -width 200 -height 50 contract.pdf")
	fmt.Println("  pdf-stamp -image initials.jpg -page 2 -x 80 -y 120 -width 120 -height 30 \\")
	fmt.Println("      -rendered-width 918 -rendered-height 1188 contract.pdf")
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf-stamp [OPTIONS] <pdf_file>")
}
