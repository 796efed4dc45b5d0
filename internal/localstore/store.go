package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// Store loads and saves the local document atomically
type Store interface {
	Load() (*Document, error)
	Save(doc *Document) error
}

// Open picks a store by path extension: .db/.sqlite use SQLite, anything else JSON
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewFileStore(path), nil
	}
}

// FileStore keeps the document in a JSON file replaced by rename
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns an empty document when the file does not exist yet
func (s *FileStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(), nil
		}
		return nil, fmt.Errorf("failed to read local store: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode local store: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

func (s *FileStore) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode local store: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write local store: %w", err)
	}
	return os.Rename(tmpPath, s.path)
}

// SQLiteStore keeps the document as a single row of a local SQLite file
type SQLiteStore struct {
	db *sqlx.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS local_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create local_state table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load() (*Document, error) {
	var raw string
	err := s.db.Get(&raw, "SELECT document FROM local_state WHERE id = 1")
	if errors.Is(err, sql.ErrNoRows) {
		return NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local store: %w", err)
	}
	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode local store: %w", err)
	}
	doc.normalize()
	return &doc, nil
}

// Save replaces the stored document inside one transaction
func (s *SQLiteStore) Save(doc *Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode local store: %w", err)
	}
	tx, err := s.db.BeginTxx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("INSERT OR REPLACE INTO local_state (id, document) VALUES (1, ?)", string(data)); err != nil {
		return fmt.Errorf("failed to write local store: %w", err)
	}
	return tx.Commit()
}

// MemoryStore keeps a deep copy of the last saved document
type MemoryStore struct {
	mu    sync.Mutex
	doc   *Document
	saves int
	// Err, when set, is returned by Save
	Err error
}

func NewMemoryStore(doc *Document) *MemoryStore {
	s := &MemoryStore{}
	if doc != nil {
		s.doc = doc.Clone()
	}
	return s
}

func (s *MemoryStore) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return NewDocument(), nil
	}
	return s.doc.Clone(), nil
}

func (s *MemoryStore) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.doc = doc.Clone()
	s.saves++
	return nil
}

// Saves counts successful saves
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
