package export

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
)

// Saver hands finished files to whatever stores or downloads them.
type Saver interface {
	Save(ctx context.Context, filename string, data []byte, mime string) error
}

type SaverFunc func(ctx context.Context, filename string, data []byte, mime string) error

func (f SaverFunc) Save(ctx context.Context, filename string, data []byte, mime string) error {
	return f(ctx, filename, data, mime)
}

// DirSaver writes files into a directory, replacing any file of the same
// name.
type DirSaver struct {
	Dir string
}

func (s DirSaver) Save(ctx context.Context, filename string, data []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	name := filepath.Base(filename)
	tmp, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return os.Rename(tmp.Name(), filepath.Join(s.Dir, name))
}

// ResponseSaver streams the file to an HTTP client as an attachment.
type ResponseSaver struct {
	W http.ResponseWriter
}

func (s ResponseSaver) Save(_ context.Context, filename string, data []byte, mime string) error {
	s.W.Header().Set("Content-Type", mime)
	s.W.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	s.W.Header().Set("Content-Length", strconv.Itoa(len(data)))
	s.W.WriteHeader(http.StatusOK)
	_, err := s.W.Write(data)
	return err
}
