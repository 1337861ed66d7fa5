package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/marmos91/filewallet/pkg/store/content"
)

const tempPrefix = ".tmp-"

// FSBackend implements content.Backend on the local filesystem.
//
// Keys map directly onto nested paths below basePath ("<domain>/<id>/<name>");
// intermediate directories are created on write and pruned on delete once
// empty. Writes go to a temporary file in the target directory and are
// renamed into place, so readers never observe a partially written object.
//
// There is no network failure mode: every error is a disk I/O error and is
// reported as content.ErrTransferFailed.
type FSBackend struct {
	basePath string
}

// Config configures an FSBackend.
type Config struct {
	Path string `mapstructure:"path"`
}

// NewFSBackend creates the base directory if needed and returns a backend
// rooted at it.
func NewFSBackend(ctx context.Context, cfg Config) (*FSBackend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("filesystem backend: path is required")
	}

	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("filesystem backend: resolve path: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSBackend{basePath: abs}, nil
}

func (b *FSBackend) Type() string { return "filesystem" }

func (b *FSBackend) Layout() content.Layout { return content.PathLayout{} }

// BasePath returns the storage root.
func (b *FSBackend) BasePath() string { return b.basePath }

// resolve maps a key onto a path below basePath.
func (b *FSBackend) resolve(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%q: %w", key, content.ErrInvalidKey)
	}
	clean := path.Clean(key)
	if clean != key || clean == "." || strings.HasPrefix(clean, "../") || clean == ".." {
		return "", fmt.Errorf("%q: %w", key, content.ErrInvalidKey)
	}
	for _, seg := range strings.Split(clean, "/") {
		if strings.HasPrefix(seg, tempPrefix) {
			return "", fmt.Errorf("%q: %w", key, content.ErrInvalidKey)
		}
	}
	return filepath.Join(b.basePath, filepath.FromSlash(clean)), nil
}

func (b *FSBackend) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	target, err := b.resolve(key)
	if err != nil {
		return "", err
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", content.TransferError("write", key, err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", content.TransferError("write", key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", content.TransferError("write", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", content.TransferError("write", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return "", content.TransferError("write", key, err)
	}

	return key, nil
}

func (b *FSBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	target, err := b.resolve(key)
	if err != nil {
		return nil, fmt.Errorf("read: %w", content.ErrNotFound)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", key, content.ErrNotFound)
		}
		return nil, content.TransferError("read", key, err)
	}
	return data, nil
}

func (b *FSBackend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	target, err := b.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return content.TransferError("delete", key, err)
	}

	b.pruneEmptyParents(filepath.Dir(target))
	return nil
}

func (b *FSBackend) DeleteMany(ctx context.Context, keys []string) error {
	return content.DeleteEach(ctx, b, keys)
}

// pruneEmptyParents removes empty directories from dir up to (not including)
// the base path. Removal stops at the first non-empty directory.
func (b *FSBackend) pruneEmptyParents(dir string) {
	for dir != b.basePath && strings.HasPrefix(dir, b.basePath+string(filepath.Separator)) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

// List walks the directory tree and returns every key starting with prefix.
func (b *FSBackend) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Walk from the deepest directory fully contained in prefix.
	root := b.basePath
	if i := strings.LastIndex(prefix, "/"); i > 0 {
		root = filepath.Join(b.basePath, filepath.FromSlash(path.Clean(prefix[:i])))
	}

	keys := make([]string, 0)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}

		rel, err := filepath.Rel(b.basePath, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, content.TransferError("list", prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}
