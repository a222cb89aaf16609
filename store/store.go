// Package store persists conversation histories as JSON files in a single
// directory, one file per conversation, rewritten in full after every turn.
package store

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"confab/message"
)

// Store reads and writes conversation files under a single directory.
type Store struct {
	dir string
	log *zap.SugaredLogger
}

// New creates the persistence directory if needed and returns a Store over it.
func New(dir string, log *zap.SugaredLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create conversation directory %q: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the persistence directory.
func (s *Store) Dir() string { return s.dir }

// PathFor returns the full path for a conversation with the given id and title.
func (s *Store) PathFor(id, title string) string {
	return filepath.Join(s.dir, FileName(id, title))
}

// Save rewrites the conversation file at path with the full history.
func (s *Store) Save(path string, msgs []message.Message) error {
	data, err := message.Encode(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode conversation: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write conversation file %q: %w", path, err)
	}
	return nil
}

// Load parses the conversation file at path.
func (s *Store) Load(path string) ([]message.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation file %q: %w", path, err)
	}
	msgs, err := message.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse conversation file %q: %w", path, err)
	}
	return msgs, nil
}
