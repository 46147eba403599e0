// Package workspace is the file-per-board repository: every board lives in
// a <name>.inkfinite.json file inside a user-chosen directory, so boards can
// be synced, copied and inspected like ordinary documents.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"inkfinite/internal/domain"
	"inkfinite/internal/logger"
)

// FileSuffix marks board files inside a workspace directory.
const FileSuffix = ".inkfinite.json"

const watchDebounce = 200 * time.Millisecond

// DefaultPageName is the page every fresh board starts with.
const DefaultPageName = "Page 1"

// Entry is one row of a directory listing: board files plus subdirectories,
// directories first.
type Entry struct {
	Path  string `json:"path"`
	Name  string `json:"name"`
	IsDir bool   `json:"isDir"`
}

// Store implements domain.Repository over a directory of board files.
// Writes go through a temp file and rename so a crash never leaves a
// half-written board on disk.
type Store struct {
	dir string
	log *zap.SugaredLogger
	mu  sync.RWMutex
}

func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	return &Store{dir: dir, log: logger.For(logger.ComponentWorkspace)}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) ListBoards(_ context.Context) ([]domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	paths, err := s.boardPaths()
	if err != nil {
		return nil, err
	}
	var boards []domain.Board
	for _, path := range paths {
		file, err := readBoardFile(path)
		if err != nil {
			s.log.Warnf("skipping unreadable board file %s: %v", filepath.Base(path), err)
			continue
		}
		boards = append(boards, file.Board)
	}
	return boards, nil
}

func (s *Store) CreateBoard(_ context.Context, name string) (domain.Board, error) {
	if name == "" {
		name = "Untitled"
	}
	if err := checkName(name); err != nil {
		return domain.Board{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+FileSuffix)
	if _, err := os.Stat(path); err == nil {
		return domain.Board{}, fmt.Errorf("board file %s: %w", name+FileSuffix, domain.ErrExists)
	}

	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	doc := domain.NewDocument(uuid.NewString(), DefaultPageName)
	if err := s.writeFile(path, domain.NewBoardFile(board, doc)); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

func (s *Store) LoadDoc(_ context.Context, boardID string) (domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, file, err := s.findBoard(boardID)
	if err != nil {
		return domain.Document{}, err
	}
	return file.Document(), nil
}

// ApplyDocPatch loads the board file, replays the patch onto its document
// and writes the result back atomically.
func (s *Store) ApplyDocPatch(_ context.Context, boardID string, patch domain.Patch) error {
	if patch.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	path, file, err := s.findBoard(boardID)
	if err != nil {
		return err
	}
	next := domain.ApplyPatch(file.Document(), patch)
	board := file.Board
	board.UpdatedAt = time.Now().UTC()
	return s.writeFile(path, domain.NewBoardFile(board, next))
}

func (s *Store) ExportBoard(_ context.Context, boardID string) (domain.BoardFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, file, err := s.findBoard(boardID)
	if err != nil {
		return domain.BoardFile{}, err
	}
	return domain.NewBoardFile(file.Board, file.Document()), nil
}

// ImportBoard writes the snapshot as a new board file named after the
// snapshot's board. An existing file with that name is never overwritten.
func (s *Store) ImportBoard(_ context.Context, file domain.BoardFile) (domain.Board, error) {
	doc := file.Document()
	if err := domain.ValidateDoc(doc); err != nil {
		return domain.Board{}, fmt.Errorf("import board: %w", err)
	}
	name := file.Board.Name
	if name == "" {
		name = "Imported board"
	}
	if err := checkName(name); err != nil {
		return domain.Board{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name+FileSuffix)
	if _, err := os.Stat(path); err == nil {
		return domain.Board{}, fmt.Errorf("board file %s: %w", name+FileSuffix, domain.ErrExists)
	}

	now := time.Now().UTC()
	board := domain.Board{ID: uuid.NewString(), Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.writeFile(path, domain.NewBoardFile(board, doc)); err != nil {
		return domain.Board{}, err
	}
	return board, nil
}

// RenameBoard renames both the embedded board and its file.
func (s *Store) RenameBoard(_ context.Context, boardID, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if name == "" {
		return fmt.Errorf("board name must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldPath, file, err := s.findBoard(boardID)
	if err != nil {
		return err
	}
	newPath := filepath.Join(s.dir, name+FileSuffix)
	if newPath != oldPath {
		if _, err := os.Stat(newPath); err == nil {
			return fmt.Errorf("board file %s: %w", name+FileSuffix, domain.ErrExists)
		}
	}

	board := file.Board
	board.Name = name
	board.UpdatedAt = time.Now().UTC()
	if err := s.writeFile(newPath, domain.NewBoardFile(board, file.Document())); err != nil {
		return err
	}
	if newPath != oldPath {
		if err := os.Remove(oldPath); err != nil {
			return fmt.Errorf("remove old board file: %w", err)
		}
	}
	return nil
}

func (s *Store) DeleteBoard(_ context.Context, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, _, err := s.findBoard(boardID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete board file: %w", err)
	}
	return nil
}

// ListEntries lists the workspace directory the way the board picker shows
// it: subdirectories plus board files, directories first, then
// case-insensitive alphabetical.
func (s *Store) ListEntries() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read workspace directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		name := de.Name()
		if !de.IsDir() && !strings.HasSuffix(name, FileSuffix) {
			continue
		}
		entries = append(entries, Entry{
			Path:  filepath.Join(s.dir, name),
			Name:  name,
			IsDir: de.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	return entries, nil
}

// Watch reports changed board files until ctx is done. Bursts of events for
// the same file collapse into one callback.
func (s *Store) Watch(ctx context.Context, fn func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		timers := make(map[string]*time.Timer)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				if !strings.HasSuffix(name, FileSuffix) {
					continue
				}
				if t, exists := timers[name]; exists {
					t.Stop()
				}
				path := event.Name
				timers[name] = time.AfterFunc(watchDebounce, func() { fn(path) })
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.log.Warnf("watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (s *Store) boardPaths() ([]string, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read workspace directory: %w", err)
	}
	var paths []string
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), FileSuffix) {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, de.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *Store) findBoard(boardID string) (string, domain.BoardFile, error) {
	paths, err := s.boardPaths()
	if err != nil {
		return "", domain.BoardFile{}, err
	}
	for _, path := range paths {
		file, err := readBoardFile(path)
		if err != nil {
			s.log.Warnf("skipping unreadable board file %s: %v", filepath.Base(path), err)
			continue
		}
		if file.Board.ID == boardID {
			return path, file, nil
		}
	}
	return "", domain.BoardFile{}, fmt.Errorf("board %s: %w", boardID, domain.ErrNotFound)
}

func (s *Store) writeFile(path string, file domain.BoardFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode board file: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".inkfinite-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp board file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write board file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close board file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace board file: %w", err)
	}
	return nil
}

func readBoardFile(path string) (domain.BoardFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.BoardFile{}, fmt.Errorf("board file %s: %w", filepath.Base(path), domain.ErrNotFound)
		}
		return domain.BoardFile{}, fmt.Errorf("read board file: %w", err)
	}
	var file domain.BoardFile
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.BoardFile{}, fmt.Errorf("decode board file %s: %w", filepath.Base(path), err)
	}
	return file, nil
}

func checkName(name string) error {
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("board name %q must not contain path separators", name)
	}
	return nil
}
