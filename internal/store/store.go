// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

// Package store is the DuckDB-backed persistence layer for every entity in
// the data model: Source, FetchAttempt, Snapshot, Document, Anchor,
// EvidenceFeatures, EntityMention, Event, EventDoc, EventScore,
// EventStateHistory, EventAlertState, MergeAudit and FeedbackEvent.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomfr/radar/internal/config"
	"github.com/tomfr/radar/internal/logging"
)

// Store wraps the DuckDB connection used by every domain component that
// needs durable state.
type Store struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig

	icuAvailable  bool
	jsonAvailable bool

	stmtCache   map[string]*sql.Stmt
	stmtCacheMu sync.RWMutex

	// rowLocks serializes concurrent writes against the same Event row
	// (attach, state transition, merge) so read-modify-write sequences
	// don't race.
	rowLocks sync.Map
}

// New opens (creating if absent) the DuckDB database at cfg.Path and
// prepares its schema.
func New(cfg *config.DatabaseConfig) (*Store, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	dbDir := filepath.Dir(cfg.Path)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dbDir, err)
		}
	}

	// Extensions must be loaded into a throwaway in-memory database before
	// the main file is opened. DuckDB replays its WAL as soon as a file is
	// opened, and a WAL entry produced by a TIMESTAMPTZ DEFAULT
	// CURRENT_TIMESTAMP column (an ICU function) fails replay with
	// "GetDefaultDatabase with no default database set" unless the
	// extension is already cached for the process.
	icuOK, jsonOK := preloadExtensions()

	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "2GB"
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	s := &Store{
		conn:          conn,
		cfg:           cfg,
		icuAvailable:  icuOK,
		jsonAvailable: jsonOK,
		stmtCache:     make(map[string]*sql.Stmt),
	}

	if err := s.initialize(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func preloadExtensions() (icuOK, jsonOK bool) {
	if os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != "" {
		logging.Debug().Msg("skipping extension preload in CI environment")
		return false, false
	}

	conn, err := sql.Open("duckdb", ":memory:?autoinstall_known_extensions=false&autoload_known_extensions=false")
	if err != nil {
		logging.Warn().Err(err).Msg("failed to open in-memory database for extension preload")
		return false, false
	}
	defer func() {
		conn.SetMaxOpenConns(0)
		_ = conn.Close()
	}()

	loaded := make(map[string]bool, 2)
	for _, ext := range []string{"icu", "json"} {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		_, err := conn.ExecContext(ctx, fmt.Sprintf("INSTALL %s; LOAD %s;", ext, ext))
		cancel()
		if err != nil {
			logging.Debug().Str("extension", ext).Err(err).Msg("extension preload failed")
			continue
		}
		loaded[ext] = true
	}
	return loaded["icu"], loaded["json"]
}

func (s *Store) initialize() error {
	if err := s.createTables(); err != nil {
		return err
	}
	if err := s.createIndexes(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("checkpoint after schema initialization failed")
	}
	return nil
}

// Checkpoint flushes the WAL into the main database file, avoiding
// WAL-replay failures on the next startup. Close runs it before closing.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, "CHECKPOINT;")
	return err
}

// Close flushes prepared statements, checkpoints, and closes the connection.
func (s *Store) Close() error {
	s.stmtCacheMu.Lock()
	for _, stmt := range s.stmtCache {
		_ = stmt.Close()
	}
	s.stmtCache = make(map[string]*sql.Stmt)
	s.stmtCacheMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("checkpoint before close failed")
	}
	return s.conn.Close()
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Conn exposes the underlying *sql.DB for components that need raw access
// (e.g. transactions spanning multiple accessor calls).
func (s *Store) Conn() *sql.DB {
	return s.conn
}

func (s *Store) prepared(ctx context.Context, query string) (*sql.Stmt, error) {
	s.stmtCacheMu.RLock()
	stmt, ok := s.stmtCache[query]
	s.stmtCacheMu.RUnlock()
	if ok {
		return stmt, nil
	}

	s.stmtCacheMu.Lock()
	defer s.stmtCacheMu.Unlock()
	if stmt, ok := s.stmtCache[query]; ok {
		return stmt, nil
	}
	stmt, err := s.conn.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("prepare statement: %w", err)
	}
	s.stmtCache[query] = stmt
	return stmt, nil
}

// lockRow returns a mutex scoped to a logical row key (table:id), letting
// callers serialize read-then-write sequences without a database-level lock.
func (s *Store) lockRow(key string) func() {
	v, _ := s.rowLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
