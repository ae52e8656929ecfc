// Package raster renders documents into page images for OCR.
package raster

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/image/draw"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

const (
	// DefaultScale renders at twice the 72 DPI base resolution.
	DefaultScale = 2.0
	baseDPI      = 72.0
)

// Rasterizer implements page rendering using go-fitz
type Rasterizer struct {
	tempDir string
	logger  *observability.Logger
}

// NewRasterizer creates a new rasterizer. SVG inputs are staged in tempDir
// (empty means the OS default).
func NewRasterizer(tempDir string, logger *observability.Logger) *Rasterizer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Rasterizer{
		tempDir: tempDir,
		logger:  logger.WithComponent("raster"),
	}
}

// Rasterize renders every page of a PDF buffer, in page order
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, opts domain.RasterOptions) ([]domain.PageImage, error) {
	opts = normalize(opts)

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.RasterizationError("open document", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.RasterizationError("document has no pages", nil)
	}

	pages := make([]domain.PageImage, 0, pageCount)
	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, baseDPI*opts.Scale)
		if err != nil {
			return nil, domain.RasterizationError(fmt.Sprintf("render page %d", pageNum+1), err)
		}

		pages = append(pages, domain.NewPageImage(pageNum, resize(img, opts.Width)))
	}

	r.logger.Debug().
		Int("pages", pageCount).
		Float64("scale", opts.Scale).
		Int("width", opts.Width).
		Msg("Rasterized document")

	return pages, nil
}

// LoadImage turns an image document into a single page. JPEG and PNG are
// decoded directly; SVG is rendered at the requested scale.
func (r *Rasterizer) LoadImage(ctx context.Context, doc domain.SourceDocument, opts domain.RasterOptions) (domain.PageImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.PageImage{}, err
	}
	opts = normalize(opts)

	var img image.Image
	switch doc.MediaType {
	case domain.MediaTypeJPEG, domain.MediaTypePNG:
		decoded, _, err := image.Decode(bytes.NewReader(doc.Bytes()))
		if err != nil {
			return domain.PageImage{}, domain.RasterizationError(fmt.Sprintf("decode %s", doc.MediaType), err)
		}
		img = decoded
	case domain.MediaTypeSVG:
		rendered, err := r.renderSVG(doc.Bytes(), opts.Scale)
		if err != nil {
			return domain.PageImage{}, err
		}
		img = rendered
	default:
		return domain.PageImage{}, domain.RasterizationError(fmt.Sprintf("%s is not an image type", doc.MediaType), nil)
	}

	return domain.NewPageImage(0, resize(img, opts.Width)), nil
}

// renderSVG stages the markup in a file so MuPDF picks its SVG handler from
// the extension.
func (r *Rasterizer) renderSVG(data []byte, scale float64) (image.Image, error) {
	f, err := os.CreateTemp(r.tempDir, "cvx-*.svg")
	if err != nil {
		return nil, domain.IOError("create temp file", err)
	}
	path := f.Name()
	defer os.Remove(path)

	_, err = f.Write(data)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, domain.IOError("write temp file", err)
	}

	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.RasterizationError("open svg", err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, domain.RasterizationError("svg has no drawable content", nil)
	}

	img, err := doc.ImageDPI(0, baseDPI*scale)
	if err != nil {
		return nil, domain.RasterizationError("render svg", err)
	}
	return img, nil
}

func normalize(opts domain.RasterOptions) domain.RasterOptions {
	if opts.Scale <= 0 {
		opts.Scale = DefaultScale
	}
	if opts.Width < 0 {
		opts.Width = 0
	}
	return opts
}

// resize scales img to width pixels, keeping the aspect ratio. A zero width
// or an image already at that width is returned unchanged.
func resize(img image.Image, width int) image.Image {
	b := img.Bounds()
	if width == 0 || b.Dx() == 0 || b.Dx() == width {
		return img
	}

	height := b.Dy() * width / b.Dx()
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
