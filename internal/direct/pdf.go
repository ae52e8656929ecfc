package direct

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/spherical/cv-extractor/internal/domain"
)

var disableConfigDir sync.Once

// PDFExtractor reads the text layer of a PDF using pdfcpu.
type PDFExtractor struct {
	tempDir string
}

// NewPDFExtractor creates a PDF text layer extractor.
func NewPDFExtractor(opts Options) *PDFExtractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFExtractor{tempDir: opts.TempDir}
}

// Extract returns the text of every page joined with a newline. A document
// whose pages carry no text objects fails with NoTextLayer; a buffer pdfcpu
// cannot read as a PDF fails with CorruptDocument.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	var text string
	err := withTempFile(ctx, e.tempDir, "cvx-*.pdf", data, func(path string) error {
		var err error
		text, err = e.extractFile(ctx, path)
		return err
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

func (e *PDFExtractor) extractFile(ctx context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.CorruptDocumentError("pdf parser panicked", fmt.Errorf("%v", r))
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return "", domain.IOError("open staged pdf", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return "", domain.CorruptDocumentError("read pdf", err)
	}

	pages := make([]string, 0, pdfCtx.PageCount)
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pages = append(pages, pageText(pdfCtx, pageNr))
	}

	joined := strings.Join(pages, "\n")
	if strings.TrimSpace(joined) == "" {
		return "", domain.NoTextLayerError(fmt.Sprintf("no text objects in %d pages", pdfCtx.PageCount), nil)
	}
	return joined, nil
}

// pageText returns the decoded text of one page. Pages without a content
// stream yield "".
func pageText(pdfCtx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromContent(data)
}
