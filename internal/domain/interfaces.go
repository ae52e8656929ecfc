package domain

import "context"

// RasterOptions controls page rendering
type RasterOptions struct {
	// Scale multiplies the 72 DPI base resolution. Zero means 2.
	Scale float64
	// Width resamples every page to a fixed pixel width. Zero keeps the
	// rendered width.
	Width int
}

// Rasterizer turns documents into page images
type Rasterizer interface {
	// Rasterize renders every page of a PDF, in page order
	Rasterize(ctx context.Context, data []byte, opts RasterOptions) ([]PageImage, error)

	// LoadImage turns an image document into a single page
	LoadImage(ctx context.Context, doc SourceDocument, opts RasterOptions) (PageImage, error)
}

// TextExtractor pulls embedded text out of a document without OCR
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Pipeline is the single entry point used by the CLI and HTTP layers
type Pipeline interface {
	Extract(ctx context.Context, doc SourceDocument) (*Result, error)
}
