package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/cv-extractor/cmd/cv-extractor/ui"
	"github.com/spherical/cv-extractor/internal/config"
	"github.com/spherical/cv-extractor/internal/domain"
)

var (
	extractMediaType  string
	extractWorkers    int
	extractTimeout    time.Duration
	extractLanguages  string
	extractScale      float64
	extractWidth      int
	extractOutputPath string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract the text of a document",
	Long: `Extract the text of a PDF, DOCX, text or image document and write it to
stdout or to --output. The media type is inferred from the file extension
unless --type is given.`,
	Example: `  cv-extractor extract cv.pdf
  cv-extractor extract --workers 4 --lang eng+deu -o cv.txt scan.png
  cv-extractor extract --type application/pdf upload.bin`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractMediaType, "type", "", "media type of the input (default: from extension)")
	extractCmd.Flags().IntVar(&extractWorkers, "workers", 0, "OCR workers (default from config)")
	extractCmd.Flags().DurationVar(&extractTimeout, "timeout", 0, "OCR timeout for the whole document (default from config)")
	extractCmd.Flags().StringVar(&extractLanguages, "lang", "", "OCR languages, e.g. eng,osd (default from config)")
	extractCmd.Flags().Float64Var(&extractScale, "scale", 0, "rasterization scale over 72 DPI (default from config)")
	extractCmd.Flags().IntVar(&extractWidth, "width", 0, "resample pages to this pixel width, 0 keeps the rendered width")
	extractCmd.Flags().StringVarP(&extractOutputPath, "output", "o", "", "output file (default: stdout)")
	rootCmd.AddCommand(extractCmd)
}

func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.OCR.Workers = extractWorkers
	}
	if flags.Changed("timeout") {
		cfg.OCR.Timeout = extractTimeout
	}
	if flags.Changed("lang") {
		cfg.OCR.Languages = config.SplitList(extractLanguages)
	}
	if flags.Changed("scale") {
		cfg.Extraction.RasterScale = extractScale
	}
	if flags.Changed("width") {
		cfg.Extraction.RasterWidth = extractWidth
	}
}

func resolveMediaType(path, declared string) (domain.MediaType, error) {
	if declared != "" {
		return domain.ParseMediaType(declared), nil
	}
	if mt, ok := domain.MediaTypeFromFilename(path); ok {
		return mt, nil
	}
	return "", fmt.Errorf("cannot infer media type of %s, use --type", path)
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]

	applyExtractFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	mediaType, err := resolveMediaType(path, extractMediaType)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	doc := domain.NewSourceDocument(path, mediaType, data)

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.Info("Extracting %s (%s)", path, mediaType)

	eventCh := make(chan domain.StreamEvent, 100)
	type outcome struct {
		res *domain.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := a.service.Process(ctx, doc, eventCh)
		close(eventCh)
		done <- outcome{res, err}
	}()

	spin := ui.NewSpinner("Reading document...")
	spin.Start()
	var pages *ui.PageCounter
	for event := range eventCh {
		switch event.Type {
		case domain.EventStrategy:
			if event.Payload == domain.StrategyOCROnly.String() {
				spin.Stop()
				pages = ui.NewPageCounter("OCR")
				continue
			}
			spin.UpdateMessage(fmt.Sprintf("Reading document (%v)...", event.Payload))
		case domain.EventFallback:
			spin.Stop()
			ui.Warning("Falling back to OCR: %v", event.Payload)
			pages = ui.NewPageCounter("OCR")
		case domain.EventPageComplete:
			if pages != nil {
				pages.Add()
			}
		}
	}
	spin.Stop()
	if pages != nil {
		pages.Finish()
	}

	result := <-done
	if result.err != nil {
		ui.Error("Extraction failed: %v", result.err)
		return result.err
	}
	res := result.res

	if err := writeOutput(extractOutputPath, res.Text); err != nil {
		return err
	}

	ui.Success("Extraction complete")
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Strategy", res.Strategy},
		{"OCR", strconv.FormatBool(res.UsedOCR)},
		{"Pages", strconv.Itoa(res.Pages)},
		{"Characters", strconv.Itoa(len([]rune(res.Text)))},
		{"Duration", ui.FormatDuration(res.Duration)},
	})
	if extractOutputPath != "" {
		ui.Success("Text saved to: %s", extractOutputPath)
	}
	return nil
}

func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
