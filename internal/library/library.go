package library

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Entry describes one PDF found under the library root.
type Entry struct {
	Path     string    `json:"path"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// Library discovers and validates PDF documents under a single root
// directory. Paths outside the root, including through symlinks, are never
// returned or resolved.
type Library struct {
	root        string
	maxFileSize int64
	logger      *slog.Logger
}

// New creates a library rooted at dir. The directory must exist.
func New(dir string, maxFileSize int64, logger *slog.Logger) (*Library, error) {
	if dir == "" {
		return nil, fmt.Errorf("library directory cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve library directory: %w", err)
	}
	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("library directory does not exist: %s", abs)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access library directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("library path is not a directory: %s", abs)
	}

	return &Library{root: abs, maxFileSize: maxFileSize, logger: logger}, nil
}

// Root returns the absolute library root.
func (l *Library) Root() string {
	return l.root
}

// List walks the root and returns the PDFs whose file name contains query
// (case-insensitive; empty matches all), up to limit entries (0 for
// unlimited). Hidden directories are skipped; unreadable or invalid files
// are skipped, not fatal.
func (l *Library) List(query string, limit int) ([]Entry, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	var entries []Entry
	err := filepath.WalkDir(l.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // keep walking past unreadable entries
		}

		within, err := l.contains(path)
		if err != nil || !within {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != l.root {
				return filepath.SkipDir
			}
			return nil
		}

		if limit > 0 && len(entries) >= limit {
			return filepath.SkipAll
		}
		if !isPDFName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // file vanished mid-walk
		}
		if err := l.checkInfo(path, info); err != nil {
			l.logger.Debug("skipping library entry", "path", path, "reason", err)
			return nil
		}
		if query != "" && !strings.Contains(strings.ToLower(d.Name()), query) {
			return nil
		}

		entries = append(entries, Entry{
			Path:     path,
			Name:     info.Name(),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking library: %w", err)
	}
	return entries, nil
}

// Count returns the number of valid PDFs under the root.
func (l *Library) Count() (int, error) {
	entries, err := l.List("", 0)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Resolve turns a caller-supplied path, absolute or relative to the root,
// into an absolute path confirmed to lie inside the library.
func (l *Library) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	within, err := l.contains(abs)
	if err != nil {
		return "", err
	}
	if !within {
		return "", fmt.Errorf("path is outside the library: %s", abs)
	}
	return abs, nil
}

// Validate checks that path names a readable, well-formed PDF within the
// size limit. The structural check runs pdfcpu's relaxed validation.
func (l *Library) Validate(path string) error {
	abs, err := l.Resolve(path)
	if err != nil {
		return err
	}

	info, err := os.Stat(abs)
	if os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s", abs)
	}
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if err := l.checkInfo(abs, info); err != nil {
		return err
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(abs, conf); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	return nil
}

// IsValidPDF reports whether path passes Validate.
func (l *Library) IsValidPDF(path string) bool {
	return l.Validate(path) == nil
}

// checkInfo enforces the cheap constraints that need no file open.
func (l *Library) checkInfo(path string, info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !isPDFName(path) {
		return fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return fmt.Errorf("file is empty: %s", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), l.maxFileSize)
	}
	return nil
}

// contains reports whether path, after resolving symlinks, stays under the
// library root.
func (l *Library) contains(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}

	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
		}
		real = abs
	}

	realRoot, err := filepath.EvalSymlinks(l.root)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate library root: %w", err)
	}

	real = filepath.Clean(real)
	realRoot = filepath.Clean(realRoot)
	if real == realRoot {
		return true, nil
	}
	return strings.HasPrefix(real, realRoot+string(filepath.Separator)), nil
}

func isPDFName(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".pdf")
}
