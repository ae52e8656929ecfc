package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
)

const (
	versionCheckTimeout = 10 * time.Second

	// how long Run waits for output pipes after the process is killed
	killWaitDelay = 2 * time.Second
)

var errWorkerTerminated = errors.New("worker terminated")

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, stdin io.Reader, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger    *observability.Logger
	waitDelay time.Duration
}

func (r execRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = r.waitDelay
	var out, errb bytes.Buffer
	cmd.Stdin = stdin
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	if err != nil {
		r.logger.Debug().
			Str("cmd", name).
			Str("args", strings.Join(args, " ")).
			Dur("elapsed", time.Since(start)).
			Str("stderr", truncate(errb.String(), 8<<10)).
			Err(err).
			Msg("Exec failed")
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}

// TesseractEngine drives the tesseract command line tool. Every
// recognition is a separate process, so a terminated worker can kill its
// in-flight job outright.
type TesseractEngine struct {
	path   string
	runner Runner
	logger *observability.Logger
}

// NewTesseractEngine creates an engine using the binary at path (looked up
// on PATH when it has no separator). A nil runner executes real processes.
func NewTesseractEngine(path string, runner Runner, logger *observability.Logger) *TesseractEngine {
	if path == "" {
		path = "tesseract"
	}
	if logger == nil {
		logger = observability.Nop()
	}
	logger = logger.WithComponent("tesseract")
	if runner == nil {
		runner = execRunner{logger: logger, waitDelay: killWaitDelay}
	}
	return &TesseractEngine{path: path, runner: runner, logger: logger}
}

// NewWorker checks that the binary runs and returns a worker bound to cfg.
func (e *TesseractEngine) NewWorker(ctx context.Context, cfg WorkerConfig) (Worker, error) {
	checkCtx, cancel := context.WithTimeout(ctx, versionCheckTimeout)
	defer cancel()

	stdout, stderr, err := e.runner.Run(checkCtx, nil, e.path, "--version")
	if err != nil {
		return nil, fmt.Errorf("%s --version: %w: %s", e.path, err, truncate(strings.TrimSpace(string(stderr)), 512))
	}

	// tesseract 4 printed its version on stderr
	version := firstLine(stdout)
	if version == "" {
		version = firstLine(stderr)
	}
	e.logger.Debug().Int("worker", cfg.ID).Str("version", version).Msg("Tesseract worker started")

	wctx, wcancel := context.WithCancel(context.Background())
	return &tesseractWorker{
		engine: e,
		cfg:    cfg,
		ctx:    wctx,
		cancel: wcancel,
	}, nil
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

type tesseractWorker struct {
	engine *TesseractEngine
	cfg    WorkerConfig

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	terminated bool
	inflight   sync.WaitGroup
}

// args builds the command line; the image arrives on stdin and the text
// leaves on stdout.
func (w *tesseractWorker) args() []string {
	args := []string{"stdin", "stdout"}
	if len(w.cfg.Languages) > 0 {
		args = append(args, "-l", strings.Join(w.cfg.Languages, "+"))
	}
	args = append(args,
		"--psm", strconv.Itoa(w.cfg.PageSegMode),
		"--oem", strconv.Itoa(w.cfg.EngineMode),
	)
	return args
}

func (w *tesseractWorker) Recognize(ctx context.Context, page domain.PageImage) (string, error) {
	w.mu.Lock()
	if w.terminated {
		w.mu.Unlock()
		return "", errWorkerTerminated
	}
	w.inflight.Add(1)
	w.mu.Unlock()
	defer w.inflight.Done()

	if page.Image == nil {
		return "", fmt.Errorf("page %d has no image", page.Index+1)
	}

	var img bytes.Buffer
	if err := png.Encode(&img, page.Image); err != nil {
		return "", fmt.Errorf("encode page %d: %w", page.Index+1, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(w.ctx, cancel)
	defer stop()

	stdout, stderr, err := w.engine.runner.Run(runCtx, &img, w.engine.path, w.args()...)
	if err != nil {
		if w.ctx.Err() != nil {
			return "", errWorkerTerminated
		}
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(stderr)), 512))
	}

	return strings.TrimSpace(string(stdout)), nil
}

// Terminate kills any running recognition and waits for it to exit.
func (w *tesseractWorker) Terminate() error {
	w.mu.Lock()
	if w.terminated {
		w.mu.Unlock()
		return nil
	}
	w.terminated = true
	w.mu.Unlock()

	w.cancel()
	w.inflight.Wait()
	return nil
}
