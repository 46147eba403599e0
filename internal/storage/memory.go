package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkfinite/internal/domain"
)

// Memory is a map-backed repository for tests and ephemeral sessions.
// Documents are deep-copied on the way in and out so callers can never
// alias stored state.
type Memory struct {
	mu     sync.RWMutex
	boards map[string]domain.Board
	docs   map[string]domain.Document
}

func NewMemory() *Memory {
	return &Memory{
		boards: map[string]domain.Board{},
		docs:   map[string]domain.Document{},
	}
}

func (m *Memory) ListBoards(_ context.Context) ([]domain.Board, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var boards []domain.Board
	for _, b := range m.boards {
		boards = append(boards, b)
	}
	return boards, nil
}

func (m *Memory) CreateBoard(_ context.Context, name string) (domain.Board, error) {
	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	doc := domain.NewDocument(uuid.NewString(), DefaultPageName)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = board
	m.docs[board.ID] = doc
	return board, nil
}

func (m *Memory) LoadDoc(_ context.Context, boardID string) (domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[boardID]
	if !ok {
		return domain.Document{}, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	return doc.Clone(), nil
}

func (m *Memory) ApplyDocPatch(_ context.Context, boardID string, patch domain.Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[boardID]
	if !ok {
		return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	m.docs[boardID] = domain.ApplyPatch(doc, patch)

	b := m.boards[boardID]
	b.UpdatedAt = time.Now().UTC()
	m.boards[boardID] = b
	return nil
}

func (m *Memory) ExportBoard(_ context.Context, boardID string) (domain.BoardFile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	board, ok := m.boards[boardID]
	if !ok {
		return domain.BoardFile{}, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	return domain.NewBoardFile(board, m.docs[boardID]), nil
}

func (m *Memory) ImportBoard(_ context.Context, file domain.BoardFile) (domain.Board, error) {
	doc := file.Document()
	if err := domain.ValidateDoc(doc); err != nil {
		return domain.Board{}, fmt.Errorf("import board: %w", err)
	}
	name := file.Board.Name
	if name == "" {
		name = "Imported board"
	}
	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[board.ID] = board
	m.docs[board.ID] = doc
	return board, nil
}

func (m *Memory) RenameBoard(_ context.Context, boardID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[boardID]
	if !ok {
		return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	b.Name = name
	b.UpdatedAt = time.Now().UTC()
	m.boards[boardID] = b
	return nil
}

func (m *Memory) DeleteBoard(_ context.Context, boardID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[boardID]; !ok {
		return fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
	}
	delete(m.boards, boardID)
	delete(m.docs, boardID)
	return nil
}
