package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/hyperjump/shohin/internal/metrics"
	"github.com/hyperjump/shohin/internal/storage"
	"github.com/hyperjump/shohin/internal/watcher"
)

// Syncer upserts catalog files into the store and mirrors their titles into a Matcher.
type Syncer struct {
	store   storage.Storage
	matcher *Matcher
	logger  *zap.Logger

	mu      sync.Mutex
	sources map[string][]sourceEntry // absolute file path -> entries loaded from it
}

// sourceEntry is a title a catalog file defines for an id. Several files may define one id.
type sourceEntry struct {
	id, title string
}

// SyncerOption configures a Syncer.
type SyncerOption func(*Syncer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = l }
}

// NewSyncer creates a syncer writing to store and matcher.
func NewSyncer(store storage.Storage, matcher *Matcher, opts ...SyncerOption) *Syncer {
	s := &Syncer{store: store, matcher: matcher, logger: zap.NewNop(), sources: make(map[string][]sourceEntry)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SyncFile loads path and upserts its videos, listings, and analytics. Titles of entries that
// disappeared from the file since the last sync leave the matcher. Returns the number of videos.
func (s *Syncer) SyncFile(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, err
	}
	entries, err := Load(abs)
	if err != nil {
		return 0, err
	}

	loaded := make([]sourceEntry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if err := s.store.UpsertVideo(ctx, &e.Video); err != nil {
			return 0, fmt.Errorf("failed to store catalog video %q: %w", e.Title, err)
		}
		for j := range e.Listings {
			if err := s.store.UpsertListing(ctx, &e.Listings[j]); err != nil {
				return 0, fmt.Errorf("failed to store listing of %q: %w", e.Title, err)
			}
		}
		if e.Analytics != nil {
			if err := s.store.UpsertAnalytics(ctx, e.Analytics); err != nil {
				return 0, fmt.Errorf("failed to store analytics of %q: %w", e.Title, err)
			}
		}
		if err := s.matcher.Add(e.ID, e.Title); err != nil {
			return 0, err
		}
		loaded = append(loaded, sourceEntry{id: e.ID, title: e.Title})
	}

	s.mu.Lock()
	previous := s.sources[abs]
	s.sources[abs] = loaded
	remove, restore := s.released(previous, loaded)
	s.mu.Unlock()
	s.apply(remove, restore)
	metrics.CatalogVideos.Set(float64(s.matcher.Len()))

	s.logger.Info("Catalog file synced", zap.String("path", abs), zap.Int("videos", len(loaded)))
	return len(loaded), nil
}

// RemoveFile drops the titles loaded from path from the matcher, unless another catalog file
// still defines the same id. Stored records are kept, since listings and analytics may still
// be addressed by id.
func (s *Syncer) RemoveFile(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	s.mu.Lock()
	previous := s.sources[abs]
	delete(s.sources, abs)
	remove, restore := s.released(previous, nil)
	s.mu.Unlock()
	s.apply(remove, restore)
	metrics.CatalogVideos.Set(float64(s.matcher.Len()))
	s.logger.Info("Catalog file removed", zap.String("path", abs), zap.Int("videos", len(previous)))
}

// released compares a file's previous entries with its current ones after s.sources has been
// updated. Ids no file defines any more are returned in remove; ids still defined elsewhere
// come back in restore with the title of a remaining definition. Must hold s.mu.
func (s *Syncer) released(previous, current []sourceEntry) (remove []string, restore []sourceEntry) {
	keep := make(map[string]struct{}, len(current))
	for _, e := range current {
		keep[e.id] = struct{}{}
	}
	for _, e := range previous {
		if _, ok := keep[e.id]; ok {
			continue
		}
		if other, ok := s.definition(e.id); ok {
			restore = append(restore, other)
			continue
		}
		remove = append(remove, e.id)
	}
	return remove, restore
}

// definition finds an entry for id in any tracked file. Must hold s.mu.
func (s *Syncer) definition(id string) (sourceEntry, bool) {
	for _, entries := range s.sources {
		for _, e := range entries {
			if e.id == id {
				return e, true
			}
		}
	}
	return sourceEntry{}, false
}

func (s *Syncer) apply(remove []string, restore []sourceEntry) {
	for _, id := range remove {
		if err := s.matcher.Remove(id); err != nil {
			s.logger.Warn("Failed to remove catalog title", zap.String("id", id), zap.Error(err))
		}
	}
	for _, e := range restore {
		if err := s.matcher.Add(e.id, e.title); err != nil {
			s.logger.Warn("Failed to restore catalog title", zap.String("id", e.id), zap.Error(err))
		}
	}
}

// Watch syncs every catalog file under dirs and keeps syncing as files change until ctx ends.
// The returned watcher is already started.
func (s *Syncer) Watch(ctx context.Context, dirs, extensions []string) (*watcher.Watcher, error) {
	onChange := func(path string) {
		if _, err := s.SyncFile(ctx, path); err != nil {
			s.logger.Warn("Failed to sync catalog file", zap.String("path", path), zap.Error(err))
		}
	}
	w := watcher.New(dirs, extensions, onChange, s.RemoveFile, watcher.WithLogger(s.logger))
	if err := w.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to watch catalog: %w", err)
	}
	w.SyncAll()
	return w, nil
}
