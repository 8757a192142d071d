// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package sources

import (
	"context"
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/model"
)

// Store is the persistence surface the registry needs from internal/store.
type Store interface {
	UpsertSource(ctx context.Context, src model.Source) error
	ListEnabledSources(ctx context.Context) ([]model.Source, error)
}

// Registry holds the current set of Source Profiles and keeps the store in
// sync with the on-disk profile directory.
type Registry struct {
	mu          sync.RWMutex
	dir         string
	userAgent   string
	store       Store
	hashes      map[string]string
	sources     map[string]model.Source
	watcher     *fsnotify.Watcher
}

// NewRegistry loads every profile in dir and persists it to store.
func NewRegistry(dir, userAgent string, store Store) (*Registry, error) {
	r := &Registry{
		dir:       dir,
		userAgent: userAgent,
		store:     store,
		hashes:    make(map[string]string),
		sources:   make(map[string]model.Source),
	}
	if err := r.reload(context.Background()); err != nil {
		return nil, err
	}
	return r, nil
}

// Get returns a source by ID.
func (r *Registry) Get(id string) (model.Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[id]
	return s, ok
}

// All returns every currently loaded source, enabled or not.
func (r *Registry) All() []model.Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

func (r *Registry) reload(ctx context.Context) error {
	profiles, hashes, err := LoadDir(r.dir)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range profiles {
		if r.hashes[p.ID] == hashes[p.ID] {
			continue // unchanged, skip the write
		}
		src := p.ToSource(hashes[p.ID], r.userAgent)
		if err := r.store.UpsertSource(ctx, src); err != nil {
			return fmt.Errorf("persist source %s: %w", p.ID, err)
		}
		r.sources[p.ID] = src
		logging.Info().Str("source_id", p.ID).Str("profile_hash", hashes[p.ID]).Msg("source profile loaded")
	}
	r.hashes = hashes
	return nil
}

// Serve starts a filesystem watch on the profile directory, reloading
// whenever a file in it is written, created, removed or renamed. A source
// whose profile file is removed stays loaded. Blocks until ctx is canceled.
// Serve implements suture.Service.
func (r *Registry) Serve(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create profile directory watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(r.dir); err != nil {
		return fmt.Errorf("watch profile directory %s: %w", r.dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(ctx); err != nil {
				logging.Warn().Err(err).Msg("source profile reload failed")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Msg("source profile watcher error")
		}
	}
}

func (r *Registry) String() string { return "source-registry" }
