package direct

import (
	"context"
	"fmt"
	"os"

	"github.com/spherical/cv-extractor/internal/domain"
)

// withTempFile writes data to a new file in dir, runs fn with its path and
// removes the file on every exit path, including a panic inside fn.
func withTempFile(ctx context.Context, dir, pattern string, data []byte, fn func(path string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return domain.IOError("create temp file", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return domain.IOError(fmt.Sprintf("write temp file %s", path), err)
	}
	if err := f.Close(); err != nil {
		return domain.IOError(fmt.Sprintf("close temp file %s", path), err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(path)
}
