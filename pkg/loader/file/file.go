// Package file implements pkg/loader's Loader over a local directory, where
// each subdirectory of the root plays the role of a bucket.
package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/danielpid/dynamic-rag/pkg/fault"
	"github.com/danielpid/dynamic-rag/pkg/loader"
)

// Loader reads documents from the local filesystem.
type Loader struct {
	fsys   fs.FS
	logger *slog.Logger
}

// NewLoader creates a loader rooted at dir.
func NewLoader(dir string, logger *slog.Logger) (*Loader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fault.New(fault.Configuration, "file.open", fmt.Errorf("document root %s: %w", dir, err))
	}
	if !info.IsDir() {
		return nil, fault.Newf(fault.Configuration, "file.open", fmt.Sprintf("document root %s is not a directory", dir))
	}
	return New(os.DirFS(dir), logger), nil
}

// New creates a loader over an arbitrary filesystem.
func New(fsys fs.FS, logger *slog.Logger) *Loader {
	return &Loader{fsys: fsys, logger: logger}
}

// Load yields the file named by ref or every regular file under a prefix ref.
func (l *Loader) Load(ctx context.Context, ref loader.Ref) iter.Seq2[loader.Document, error] {
	return func(yield func(loader.Document, error) bool) {
		name := path.Join(ref.Bucket, ref.Key)
		if !fs.ValidPath(name) || ref.Bucket == "" {
			yield(loader.Document{}, fault.Newf(fault.SourceNotFound, "file.load", fmt.Sprintf("invalid document reference %q", ref)))
			return
		}

		if !ref.IsPrefix() {
			doc, err := l.get(ref, name)
			yield(doc, err)
			return
		}

		err := fs.WalkDir(l.fsys, name, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}

			key := strings.TrimPrefix(p, ref.Bucket+"/")
			doc, err := l.get(loader.Ref{Bucket: ref.Bucket, Key: key}, p)
			if !yield(doc, err) || err != nil {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(loader.Document{}, classify("file.list", ref, err))
		}
	}
}

func (l *Loader) get(ref loader.Ref, name string) (loader.Document, error) {
	body, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return loader.Document{}, classify("file.get", ref, err)
	}

	doc, err := loader.Decode(ref, body)
	if err != nil {
		return loader.Document{}, fault.New(fault.Internal, "file.get", err)
	}

	l.logger.Debug("loaded document from disk",
		"path", name,
		"bytes", len(body),
	)
	return doc, nil
}

func classify(op string, ref loader.Ref, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fault.New(fault.SourceNotFound, op, fmt.Errorf("%s: %w", ref, err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, ref, err)
	case errors.Is(err, fs.ErrPermission):
		return fault.New(fault.Configuration, op, fmt.Errorf("%s: %w", ref, err))
	default:
		return fault.New(fault.SourceUnavailable, op, fmt.Errorf("%s: %w", ref, err))
	}
}

var _ loader.Loader = (*Loader)(nil)
