package ocr

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/observability"
	"github.com/spherical/cv-extractor/internal/testutil"
)

type runCall struct {
	name  string
	args  []string
	stdin []byte
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []runCall

	versionErr error
	run      func(ctx context.Context) ([]byte, []byte, error)
}

func (r *fakeRunner) Run(ctx context.Context, stdin io.Reader, name string, args ...string) ([]byte, []byte, error) {
	var in []byte
	if stdin != nil {
		in, _ = io.ReadAll(stdin)
	}
	r.mu.Lock()
	r.calls = append(r.calls, runCall{name: name, args: args, stdin: in})
	r.mu.Unlock()

	if len(args) == 1 && args[0] == "--version" {
		if r.versionErr != nil {
			return nil, []byte("not found"), r.versionErr
		}
		return []byte("tesseract 5.3.4\n leptonica-1.84.1\n"), nil, nil
	}
	if r.run != nil {
		return r.run(ctx)
	}
	return []byte("  Jane Doe\nGo Engineer\n\f"), nil, nil
}

func (r *fakeRunner) last() runCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[len(r.calls)-1]
}

func newTestWorker(t *testing.T, runner *fakeRunner) Worker {
	t.Helper()
	engine := NewTesseractEngine("/usr/bin/tesseract", runner, nil)
	w, err := engine.NewWorker(context.Background(), WorkerConfig{
		ID:          0,
		Languages:   []string{"eng", "osd"},
		PageSegMode: 1,
		EngineMode:  3,
	})
	require.NoError(t, err)
	return w
}

func TestTesseractRecognize(t *testing.T) {
	runner := &fakeRunner{}
	w := newTestWorker(t, runner)
	defer w.Terminate()

	text, err := w.Recognize(context.Background(), domain.NewPageImage(0, testutil.Image(16, 16)))
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nGo Engineer", text)

	call := runner.last()
	assert.Equal(t, "/usr/bin/tesseract", call.name)
	assert.Equal(t, []string{"stdin", "stdout", "-l", "eng+osd", "--psm", "1", "--oem", "3"}, call.args)
	assert.True(t, bytes.HasPrefix(call.stdin, []byte("\x89PNG")), "image is streamed as PNG")
}

func TestTesseractVersionCheckFailure(t *testing.T) {
	runner := &fakeRunner{versionErr: errors.New("exec: not found")}
	engine := NewTesseractEngine("", runner, nil)

	_, err := engine.NewWorker(context.Background(), WorkerConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tesseract --version")
}

func TestTesseractRecognizeFailure(t *testing.T) {
	runner := &fakeRunner{run: func(context.Context) ([]byte, []byte, error) {
		return nil, []byte("Error in pixReadStream"), errors.New("exit status 1")
	}}
	w := newTestWorker(t, runner)
	defer w.Terminate()

	_, err := w.Recognize(context.Background(), domain.NewPageImage(0, testutil.Image(4, 4)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pixReadStream")
}

func TestTesseractTerminateKillsInflight(t *testing.T) {
	started := make(chan struct{})
	runner := &fakeRunner{run: func(ctx context.Context) ([]byte, []byte, error) {
		close(started)
		<-ctx.Done()
		return nil, nil, ctx.Err()
	}}
	w := newTestWorker(t, runner)

	errCh := make(chan error, 1)
	go func() {
		_, err := w.Recognize(context.Background(), domain.NewPageImage(0, testutil.Image(4, 4)))
		errCh <- err
	}()

	<-started
	require.NoError(t, w.Terminate())

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, errWorkerTerminated)
	case <-time.After(time.Second):
		t.Fatal("recognition was not stopped by terminate")
	}

	_, err := w.Recognize(context.Background(), domain.NewPageImage(0, testutil.Image(4, 4)))
	assert.ErrorIs(t, err, errWorkerTerminated)
	assert.NoError(t, w.Terminate())
}

func TestTesseractWorkersInPool(t *testing.T) {
	runner := &fakeRunner{}
	engine := NewTesseractEngine("tesseract", runner, nil)
	p := NewPool(engine, PoolConfig{Workers: 2}, nil)
	require.NoError(t, p.Initialize(context.Background()))

	texts, err := p.Recognize(context.Background(), makePages(3))
	require.NoError(t, err)
	assert.Len(t, texts, 3)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Len(t, runner.calls, 5, "two version checks and three recognitions")
}

func TestNewEngine(t *testing.T) {
	e, err := NewEngine(EngineOptions{Name: "tesseract", TesseractPath: "/opt/tesseract"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &TesseractEngine{}, e)

	_, err = NewEngine(EngineOptions{Name: "abbyy"}, nil)
	require.Error(t, err)
	assert.Equal(t, domain.ErrorTypeConfig, domain.KindOf(err))
}

func TestExecRunnerStopsWaitingForOrphanedOutput(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}

	// the background sleep inherits stdout and outlives the killed shell
	r := execRunner{logger: observability.Nop(), waitDelay: 200 * time.Millisecond}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, _, err = r.Run(ctx, nil, sh, "-c", "sleep 10 & sleep 10")
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
