package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/docsight/mcp-pdf-highlighter/internal/document"
)

const runKeyPrefix = "runs:"

// RunCache persists extracted text runs keyed by document fingerprint, so
// reopening a document skips content-stream parsing. It implements
// document.RunCache.
type RunCache struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ document.RunCache = (*RunCache)(nil)

// badgerLoggerAdapter adapts slog.Logger to the badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens a run cache at dirPath, creating the directory if needed. An
// empty dirPath opens an in-memory cache that lives until Close.
func Open(dirPath string, logger *slog.Logger) (*RunCache, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var opts badger.Options
	if dirPath == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(dirPath)
		if os.IsNotExist(err) {
			if err := os.MkdirAll(dirPath, 0755); err != nil {
				return nil, fmt.Errorf("failed to create cache directory: %w", err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("cannot access cache directory: %w", err)
		} else if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", dirPath)
		}
		opts = badger.DefaultOptions(dirPath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open run cache: %w", err)
	}
	return &RunCache{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (c *RunCache) Close() error {
	return c.db.Close()
}

// Get returns the cached pages for a fingerprint. Decode failures and
// schema mismatches count as misses; the stale entry is left for Put to
// overwrite.
func (c *RunCache) Get(fingerprint string) ([]document.Page, bool) {
	var pages []document.Page
	err := c.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(runKey(fingerprint))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			pages, err = unmarshalPages(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("run cache read failed", "fingerprint", fingerprint, "error", err)
		return nil, false
	}
	return pages, true
}

// Put stores the extracted pages for a fingerprint.
func (c *RunCache) Put(fingerprint string, pages []document.Page) error {
	value := marshalPages(pages)
	err := c.db.Update(func(tx *badger.Txn) error {
		return tx.Set(runKey(fingerprint), value)
	})
	if err != nil {
		return fmt.Errorf("failed to store runs for %s: %w", fingerprint, err)
	}
	return nil
}

// Delete removes a cached entry. Missing keys are not an error.
func (c *RunCache) Delete(fingerprint string) error {
	err := c.db.Update(func(tx *badger.Txn) error {
		return tx.Delete(runKey(fingerprint))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete runs for %s: %w", fingerprint, err)
	}
	return nil
}

func runKey(fingerprint string) []byte {
	return []byte(runKeyPrefix + fingerprint)
}
