package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"packrat/internal/fileutil"
	"packrat/internal/logging"
)

// Entry is one slug to identifier pair.
type Entry struct {
	Slug       string `json:"slug"`
	Identifier string `json:"identifier"`
}

// Index provides thread-safe access to the mapping file.
type Index struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	entries map[string]string
}

// Open loads the index at path. Load problems are logged and leave the index
// empty.
func Open(path string, logger *slog.Logger) *Index {
	logger = logging.NewComponentLogger(logger, "mapping")
	idx := &Index{
		path:    path,
		logger:  logger,
		entries: make(map[string]string),
	}
	idx.entries = idx.readOrReset()
	return idx
}

// Path returns the backing file location.
func (i *Index) Path() string {
	return i.path
}

// Lookup returns the identifier recorded for slug.
func (i *Index) Lookup(slug string) (string, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	id, ok := i.entries[strings.TrimSpace(slug)]
	return id, ok
}

// Set records slug → identifier. The file is re-read first so entries written
// by an earlier run or another tool are preserved, then saved atomically.
func (i *Index) Set(slug, identifier string) error {
	slug = strings.TrimSpace(slug)
	identifier = strings.TrimSpace(identifier)
	if slug == "" || identifier == "" {
		return errors.New("mapping: slug and identifier are required")
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	entries := i.readOrReset()
	for k, v := range i.entries {
		if _, ok := entries[k]; !ok {
			entries[k] = v
		}
	}
	entries[slug] = identifier
	i.entries = entries

	if err := i.save(); err != nil {
		return fmt.Errorf("persist mapping: %w", err)
	}
	i.logger.Debug("mapping updated", logging.String("slug", slug), logging.String("identifier", identifier))
	return nil
}

// List returns all entries sorted by slug.
func (i *Index) List() []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entries := make([]Entry, 0, len(i.entries))
	for slug, id := range i.entries {
		entries = append(entries, Entry{Slug: slug, Identifier: id})
	}
	sort.Slice(entries, func(a, b int) bool {
		return entries[a].Slug < entries[b].Slug
	})
	return entries
}

// Count returns the number of entries.
func (i *Index) Count() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.entries)
}

func (i *Index) readOrReset() map[string]string {
	entries, err := i.load()
	if err != nil {
		logging.WarnWithContext(i.logger, "mapping file unreadable; starting empty", "mapping_load_failed",
			logging.String("path", i.path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix or delete the mapping file"),
			logging.String(logging.FieldImpact, "existing entries are rewritten as assets download"),
		)
		return make(map[string]string)
	}
	return entries
}

func (i *Index) load() (map[string]string, error) {
	entries := make(map[string]string)
	data, err := os.ReadFile(i.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entries, nil
		}
		return nil, fmt.Errorf("read mapping file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode mapping file: %w", err)
	}
	return entries, nil
}

func (i *Index) save() error {
	data, err := json.MarshalIndent(i.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode mapping: %w", err)
	}
	data = append(data, '\n')
	return fileutil.WriteFileAtomic(i.path, data, 0o644)
}
