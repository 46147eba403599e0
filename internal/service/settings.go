package service

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-json"
)

// ─────────────────────────────────────────────────────────────
// Settings — small per-user state persisted between sessions
// ─────────────────────────────────────────────────────────────
//
// Stored as a JSON file in the data dir. Currently holds the
// recently-opened board list, newest first.

// DefaultRecentLimit caps the recent-boards list.
const DefaultRecentLimit = 10

type settingsFile struct {
	RecentBoardIDs []string `json:"recentBoardIds"`
}

// SettingsService persists the recent-boards list between sessions.
type SettingsService struct {
	path  string
	limit int

	mu   sync.Mutex
	data settingsFile
}

// NewSettingsService loads the settings file at path, starting fresh when
// the file is missing or unreadable.
func NewSettingsService(path string) *SettingsService {
	s := &SettingsService{
		path:  path,
		limit: DefaultRecentLimit,
		data:  settingsFile{RecentBoardIDs: []string{}},
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var data settingsFile
	if err := json.Unmarshal(raw, &data); err != nil {
		return s
	}
	if data.RecentBoardIDs != nil {
		s.data.RecentBoardIDs = data.RecentBoardIDs
	}
	return s
}

// RecentBoards returns the recently-opened board ids, newest first.
func (s *SettingsService) RecentBoards() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.data.RecentBoardIDs)
}

// TouchRecent moves boardID to the front of the recent list and persists it.
func (s *SettingsService) TouchRecent(boardID string) error {
	if boardID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := slices.DeleteFunc(s.data.RecentBoardIDs, func(id string) bool { return id == boardID })
	ids = slices.Insert(ids, 0, boardID)
	if len(ids) > s.limit {
		ids = ids[:s.limit]
	}
	s.data.RecentBoardIDs = ids
	return s.save()
}

// RemoveRecent drops boardID from the recent list and persists the change.
func (s *SettingsService) RemoveRecent(boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.data.RecentBoardIDs)
	s.data.RecentBoardIDs = slices.DeleteFunc(s.data.RecentBoardIDs,
		func(id string) bool { return id == boardID })
	if len(s.data.RecentBoardIDs) == before {
		return nil
	}
	return s.save()
}

func (s *SettingsService) save() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}
