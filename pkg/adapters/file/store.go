// Package file provides a StateStore persisting each conversation as a
// JSON file on the local filesystem.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chatloop/chatloop/pkg/domain"
)

// Store implements ports.StateStore with one <chatID>.json file per
// conversation under a base directory.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath.
// If basePath is empty, it defaults to "chat_states".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = "chat_states"
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(chatID string) string {
	return filepath.Join(s.BasePath, chatID+".json")
}

// Set persists the conversation atomically: write to a temp file in the
// same directory, fsync, then rename over the destination.
func (s *Store) Set(ctx context.Context, chatID string, stateID string, convCtx domain.Context) error {
	if chatID == "" {
		return fmt.Errorf("chatID cannot be empty")
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure state directory: %w", err)
	}

	data, err := json.Marshal(domain.Conversation{StateID: stateID, Context: convCtx})
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+chatID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op if the rename already happened
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(chatID)); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// Get retrieves the conversation from disk.
func (s *Store) Get(ctx context.Context, chatID string) (*domain.Conversation, error) {
	if chatID == "" {
		return nil, fmt.Errorf("chatID cannot be empty")
	}

	data, err := os.ReadFile(s.path(chatID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var conv domain.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state file: %w", err)
	}
	if conv.Context == nil {
		conv.Context = domain.Context{}
	}
	return &conv, nil
}

// Delete removes the conversation file.
func (s *Store) Delete(ctx context.Context, chatID string) error {
	err := os.Remove(s.path(chatID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}
