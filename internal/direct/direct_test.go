package direct

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/cv-extractor/internal/domain"
	"github.com/spherical/cv-extractor/internal/testutil"
)

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp files left behind")
}

func TestPDFExtractorTextLayer(t *testing.T) {
	dir := t.TempDir()
	data := testutil.BuildPDF(t,
		testutil.TextPage("Jane Doe", "Senior Go Engineer"),
		testutil.TextPage("Experience 2015-2024"),
	)

	text, err := NewPDFExtractor(Options{TempDir: dir}).Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe\nSenior Go Engineer\nExperience 2015-2024", text)
	assertDirEmpty(t, dir)
}

func TestPDFExtractorNoTextLayer(t *testing.T) {
	dir := t.TempDir()
	data := testutil.BuildPDF(t, testutil.GraphicsOnlyPage, testutil.GraphicsOnlyPage)

	_, err := NewPDFExtractor(Options{TempDir: dir}).Extract(context.Background(), data)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNoTextLayer))
	assertDirEmpty(t, dir)
}

func TestPDFExtractorWhitespaceOnlyText(t *testing.T) {
	data := testutil.BuildPDF(t, "BT /F1 12 Tf 72 720 Td (   ) Tj ET")

	_, err := NewPDFExtractor(Options{TempDir: t.TempDir()}).Extract(context.Background(), data)
	assert.True(t, errors.Is(err, domain.ErrNoTextLayer))
}

func TestPDFExtractorCorrupt(t *testing.T) {
	dir := t.TempDir()

	_, err := NewPDFExtractor(Options{TempDir: dir}).Extract(context.Background(), []byte("this is not a pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrCorruptDocument))
	assertDirEmpty(t, dir)
}

func TestPDFExtractorCancelled(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPDFExtractor(Options{TempDir: dir}).Extract(ctx, testutil.BuildPDF(t, testutil.TextPage("x")))
	assert.ErrorIs(t, err, context.Canceled)
	assertDirEmpty(t, dir)
}

func TestDOCXExtractor(t *testing.T) {
	dir := t.TempDir()
	data := testutil.BuildDOCX(t, []string{"Jane Doe", "Kubernetes, Go, PostgreSQL"})

	text, err := NewDOCXExtractor(Options{TempDir: dir}).Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Contains(t, text, "Jane Doe")
	assert.Contains(t, text, "Kubernetes, Go, PostgreSQL")
	assert.NotContains(t, text, "w:")
	assertDirEmpty(t, dir)
}

func TestDOCXExtractorCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{"not a zip", func(*testing.T) []byte { return []byte("PK garbage") }},
		{"missing document body", func(t *testing.T) []byte { return testutil.BuildDOCX(t, nil) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			_, err := NewDOCXExtractor(Options{TempDir: dir}).Extract(context.Background(), tt.data(t))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrCorruptDocument))
			assertDirEmpty(t, dir)
		})
	}
}

func TestTextExtractor(t *testing.T) {
	e := NewTextExtractor()

	in := "Résumé\n\tSkills: Go, Rust\n"
	got, err := e.Extract(context.Background(), []byte(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)

	got, err = e.Extract(context.Background(), append([]byte{0xEF, 0xBB, 0xBF}, "hi"...))
	require.NoError(t, err)
	assert.Equal(t, "hi", got)

	_, err = e.Extract(context.Background(), []byte{0xff, 0xfe, 0x00})
	assert.True(t, errors.Is(err, domain.ErrCorruptDocument))
}

func TestForStrategy(t *testing.T) {
	for _, s := range []domain.Strategy{domain.StrategyDirectPDF, domain.StrategyDirectDOCX, domain.StrategyDirectText} {
		e, err := ForStrategy(s, Options{})
		require.NoError(t, err)
		assert.NotNil(t, e)
	}

	_, err := ForStrategy(domain.StrategyOCROnly, Options{})
	assert.Error(t, err)
}

func TestWithTempFileRemovesOnError(t *testing.T) {
	dir := t.TempDir()
	var seen string

	err := withTempFile(context.Background(), dir, "x-*", []byte("data"), func(path string) error {
		seen = path
		b, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "data", string(b))
		return errors.New("parse failed")
	})

	assert.EqualError(t, err, "parse failed")
	assert.NotEmpty(t, seen)
	assertDirEmpty(t, dir)
}

func TestWithTempFileRemovesOnPanic(t *testing.T) {
	dir := t.TempDir()

	assert.Panics(t, func() {
		_ = withTempFile(context.Background(), dir, "x-*", []byte("data"), func(string) error {
			panic("boom")
		})
	})
	assertDirEmpty(t, dir)
}

func TestPDFExtractorDeeplyNestedContent(t *testing.T) {
	content := strings.Repeat("[", 200_000) + strings.Repeat("]", 200_000) + " 0 d BT /F1 12 Tf 72 712 Td (Jane Doe) Tj ET"
	data := testutil.BuildPDF(t, content)

	text, err := NewPDFExtractor(Options{}).Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", text)
}
