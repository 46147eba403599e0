package service

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/text/unicode/norm"

	"inkfinite/internal/domain"
)

// ─────────────────────────────────────────────────────────────
// Board Service — business logic for board records
// ─────────────────────────────────────────────────────────────

// BoardService manages the board catalogue on top of a repository. Names
// are NFC-normalized on every path that accepts one, so a board created
// from decomposed input is findable under its composed form.
type BoardService struct {
	repo     domain.Repository
	settings *SettingsService
	emitter  EventEmitter
}

// NewBoardService creates a BoardService.
func NewBoardService(repo domain.Repository, settings *SettingsService, emitter EventEmitter) *BoardService {
	return &BoardService{repo: repo, settings: settings, emitter: emitter}
}

// ListBoards returns all boards, most recently updated first.
func (s *BoardService) ListBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := s.repo.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(boards, func(i, j int) bool {
		if !boards[i].UpdatedAt.Equal(boards[j].UpdatedAt) {
			return boards[i].UpdatedAt.After(boards[j].UpdatedAt)
		}
		return boards[i].Name < boards[j].Name
	})
	return boards, nil
}

// CreateBoard creates a board and records it as recently opened.
func (s *BoardService) CreateBoard(ctx context.Context, name string) (domain.Board, error) {
	name = normalizeName(name)
	if name == "" {
		name = "Untitled"
	}
	b, err := s.repo.CreateBoard(ctx, name)
	if err != nil {
		return domain.Board{}, fmt.Errorf("create board: %w", err)
	}
	s.settings.TouchRecent(b.ID)
	s.emitter.Emit(ctx, EventBoardCreated, b)
	return b, nil
}

// RenameBoard renames a board.
func (s *BoardService) RenameBoard(ctx context.Context, boardID, name string) error {
	name = normalizeName(name)
	if err := s.repo.RenameBoard(ctx, boardID, name); err != nil {
		return err
	}
	s.emitter.Emit(ctx, EventBoardRenamed, map[string]string{"id": boardID, "name": name})
	return nil
}

// DeleteBoard removes a board and scrubs it from the recent list.
func (s *BoardService) DeleteBoard(ctx context.Context, boardID string) error {
	if err := s.repo.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.settings.RemoveRecent(boardID)
	s.emitter.Emit(ctx, EventBoardDeleted, map[string]string{"id": boardID})
	return nil
}

// RecentBoards resolves the recent list against the current catalogue,
// silently dropping ids that no longer exist.
func (s *BoardService) RecentBoards(ctx context.Context) ([]domain.Board, error) {
	boards, err := s.repo.ListBoards(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Board, len(boards))
	for _, b := range boards {
		byID[b.ID] = b
	}
	var out []domain.Board
	for _, id := range s.settings.RecentBoards() {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// ExportBoard snapshots a board into the exchange format.
func (s *BoardService) ExportBoard(ctx context.Context, boardID string) (domain.BoardFile, error) {
	return s.repo.ExportBoard(ctx, boardID)
}

// ExportToFile writes a board snapshot to path in the on-disk format.
func (s *BoardService) ExportToFile(ctx context.Context, boardID, path string) error {
	file, err := s.repo.ExportBoard(ctx, boardID)
	if err != nil {
		return err
	}
	data, err := EncodeBoardFile(file)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write board export: %w", err)
	}
	return nil
}

// ImportBoard stores a snapshot as a new board and records it as recent.
func (s *BoardService) ImportBoard(ctx context.Context, file domain.BoardFile) (domain.Board, error) {
	file.Board.Name = normalizeName(file.Board.Name)
	b, err := s.repo.ImportBoard(ctx, file)
	if err != nil {
		return domain.Board{}, fmt.Errorf("import board: %w", err)
	}
	s.settings.TouchRecent(b.ID)
	s.emitter.Emit(ctx, EventBoardCreated, b)
	return b, nil
}

// ImportFromFile reads a board snapshot from path and imports it.
func (s *BoardService) ImportFromFile(ctx context.Context, path string) (domain.Board, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.Board{}, fmt.Errorf("read board file: %w", err)
	}
	file, err := DecodeBoardFile(raw)
	if err != nil {
		return domain.Board{}, err
	}
	return s.ImportBoard(ctx, file)
}

// EncodeBoardFile renders a board snapshot in the on-disk export format.
// Output is deterministic: struct fields in declaration order, map keys
// sorted, trailing newline.
func EncodeBoardFile(file domain.BoardFile) ([]byte, error) {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode board file: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeBoardFile parses the on-disk export format.
func DecodeBoardFile(data []byte) (domain.BoardFile, error) {
	var file domain.BoardFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.BoardFile{}, fmt.Errorf("decode board file: %w", err)
	}
	return file, nil
}

func normalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
