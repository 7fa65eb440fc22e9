package assetstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"packrat/internal/catalog"
	"packrat/internal/config"
	"packrat/internal/faults"
	"packrat/internal/fileutil"
	"packrat/internal/logging"
	"packrat/internal/mapping"
	"packrat/internal/resolver"
	"packrat/internal/textutil"
)

// HTTPDoer is the subset of *http.Client the store needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// AssetFile describes one downloaded binary.
type AssetFile struct {
	Slug       string `json:"slug"`
	Identifier string `json:"identifier"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
}

// Store writes assets under the output root.
type Store struct {
	root      string
	extension string
	timeout   time.Duration
	client    HTTPDoer
	index     *mapping.Index
	logger    *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(s *Store) {
		if client != nil {
			s.client = client
		}
	}
}

// New builds a Store from the [paths], [download] and [timeouts] settings.
func New(cfg *config.Config, index *mapping.Index, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		root:      cfg.Paths.OutputDir,
		extension: cfg.Download.Extension,
		timeout:   cfg.DownloadTimeout(),
		client:    &http.Client{},
		index:     index,
		logger:    logging.NewComponentLogger(logger, "assetstore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CollectionDir returns the directory holding a collection's assets.
func (s *Store) CollectionDir(collection catalog.CollectionRef) string {
	return filepath.Join(s.root, collection.Dir())
}

// FileName returns the final name for an asset.
func (s *Store) FileName(slug, identifier string) string {
	return slug + textutil.IdentifierSeparator + textutil.SanitizeIdentifier(identifier) + "." + s.extension
}

// AlreadyHas reports whether any completed download for slug exists in the
// collection directory. Matching is by "<slug>__" prefix; valid slugs and
// sanitized identifiers never contain "__", so the prefix is unambiguous.
func (s *Store) AlreadyHas(collection catalog.CollectionRef, slug string) (bool, error) {
	entries, err := os.ReadDir(s.CollectionDir(collection))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("list collection dir: %w", err)
	}
	prefix := slug + textutil.IdentifierSeparator
	suffix := "." + s.extension
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if fileutil.IsTempName(name) {
			continue
		}
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, suffix) {
			return true, nil
		}
	}
	return false, nil
}

// Store downloads res.SignedURL into the collection directory and records the
// identifier in the mapping index. Nothing is left on disk when the download
// fails.
func (s *Store) Store(ctx context.Context, item catalog.ItemRef, res resolver.Result) (AssetFile, error) {
	logger := logging.WithContext(ctx, s.logger)
	dir := s.CollectionDir(item.Collection)
	target := filepath.Join(dir, s.FileName(item.Slug, res.Identifier))

	size, err := s.download(ctx, res.SignedURL, target)
	if err != nil {
		return AssetFile{}, err
	}
	logger.Info("asset downloaded",
		logging.String("identifier", res.Identifier),
		logging.String("path", target),
		logging.Int64("bytes", size),
	)

	if err := s.index.Set(item.Slug, res.Identifier); err != nil {
		return AssetFile{}, faults.Wrap(faults.ErrPersistence, "store", "update mapping", item.Slug, err)
	}

	return AssetFile{Slug: item.Slug, Identifier: res.Identifier, Path: target, Size: size}, nil
}

func (s *Store) download(ctx context.Context, signedURL, target string) (int64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, signedURL, nil)
	if err != nil {
		return 0, faults.Wrap(faults.ErrDownload, "store", "build request", "", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, faults.Wrap(faults.ErrDownload, "store", "fetch", "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return 0, faults.Wrap(faults.ErrDownload, "store", "fetch", fmt.Sprintf("status %d", resp.StatusCode), nil)
	}

	size, err := fileutil.WriteReaderAtomic(target, resp.Body, 0o644)
	if err != nil {
		return 0, faults.Wrap(faults.ErrDownload, "store", "write", filepath.Base(target), err)
	}
	return size, nil
}
