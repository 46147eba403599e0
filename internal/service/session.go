package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"inkfinite/internal/diff"
	"inkfinite/internal/domain"
	"inkfinite/internal/editor"
	"inkfinite/internal/logger"
	"inkfinite/internal/sink"
)

// ErrNoBoard is returned by editing operations before a board is opened.
var ErrNoBoard = errors.New("no active board")

// HistoryStatus is the history:changed payload.
type HistoryStatus struct {
	CanUndo   bool   `json:"canUndo"`
	CanRedo   bool   `json:"canRedo"`
	UndoDepth int    `json:"undoDepth"`
	RedoDepth int    `json:"redoDepth"`
	NextUndo  string `json:"nextUndo,omitempty"`
	NextRedo  string `json:"nextRedo,omitempty"`
}

// Session drives the editor for the one active board. Commands flow through
// the store; committed doc transitions are diffed and handed to the sink,
// camera and ui transitions stay in memory. Like the store it wraps, a
// Session is driven by the host goroutine and is not safe for concurrent
// use; the sink does its own locking.
type Session struct {
	repo     domain.Repository
	sink     *sink.Sink
	settings *SettingsService
	emitter  EventEmitter
	log      *zap.SugaredLogger

	historyDepth int

	boardID string
	store   *editor.Store
	unsub   func()
}

type SessionOption func(*Session)

// WithHistoryDepth caps the undo stack of boards opened by this session.
func WithHistoryDepth(n int) SessionOption {
	return func(s *Session) {
		if n > 0 {
			s.historyDepth = n
		}
	}
}

// NewSession creates a Session. No board is active until SetActiveBoard.
func NewSession(repo domain.Repository, snk *sink.Sink, settings *SettingsService, emitter EventEmitter, opts ...SessionOption) *Session {
	s := &Session{
		repo:         repo,
		sink:         snk,
		settings:     settings,
		emitter:      emitter,
		log:          logger.For(logger.ComponentSession),
		historyDepth: editor.DefaultHistoryDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActiveBoardID returns the open board's id, or "" when none is open.
func (s *Session) ActiveBoardID() string {
	return s.boardID
}

// SetActiveBoard loads boardID and makes it the editing target. Pending
// patches for the previous board are flushed before the switch; a flush
// failure keeps them buffered for the autosaver and does not block the
// switch. History does not carry across boards.
func (s *Session) SetActiveBoard(ctx context.Context, boardID string) error {
	if s.store != nil {
		if err := s.sink.Flush(ctx); err != nil {
			s.log.Warnf("flush before board switch: %v", err)
		}
	}

	doc, err := s.repo.LoadDoc(ctx, boardID)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}

	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}

	s.boardID = boardID
	s.store = editor.New(domain.NewState(doc),
		editor.WithHistoryDepth(s.historyDepth),
		editor.WithHistoryHook(s.enqueueDocChange),
	)
	s.unsub = s.store.Subscribe(func(st domain.State) {
		s.emitter.Emit(ctx, EventStateChanged, st)
		s.emitter.Emit(ctx, EventHistoryChanged, s.historyStatus())
	})

	s.settings.TouchRecent(boardID)
	s.log.Debugf("opened board %s", boardID)

	s.emitter.Emit(ctx, EventStateChanged, s.store.State())
	s.emitter.Emit(ctx, EventHistoryChanged, s.historyStatus())
	return nil
}

// State returns the current editor snapshot.
func (s *Session) State() (domain.State, error) {
	if s.store == nil {
		return domain.State{}, ErrNoBoard
	}
	return s.store.State(), nil
}

// Execute runs a command against the active board. Events for the committed
// transition go out on the context the board was opened with.
func (s *Session) Execute(cmd editor.Command) error {
	if s.store == nil {
		return ErrNoBoard
	}
	s.store.Execute(cmd)
	return nil
}

// Undo reverts the latest command. It reports false when there is nothing
// to undo or no board is open.
func (s *Session) Undo() bool {
	if s.store == nil {
		return false
	}
	return s.store.Undo()
}

// Redo re-applies the latest undone command.
func (s *Session) Redo() bool {
	if s.store == nil {
		return false
	}
	return s.store.Redo()
}

// History reports the undo and redo stacks of the active board.
func (s *Session) History() (editor.HistoryInfo, error) {
	if s.store == nil {
		return editor.HistoryInfo{}, ErrNoBoard
	}
	return s.store.History(), nil
}

// SaveNow flushes all buffered patches synchronously.
func (s *Session) SaveNow(ctx context.Context) error {
	return s.sink.Flush(ctx)
}

// SaveStatus reports the sink's current state.
func (s *Session) SaveStatus() sink.Status {
	return s.sink.Status()
}

// Close flushes pending work and detaches the active board.
func (s *Session) Close(ctx context.Context) error {
	err := s.sink.Flush(ctx)
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.store = nil
	s.boardID = ""
	return err
}

// enqueueDocChange is the store's history hook. Only doc transitions are
// persisted; camera and ui commands never reach the repository.
func (s *Session) enqueueDocChange(ev editor.HistoryEvent) {
	if ev.Kind != editor.KindDoc {
		return
	}
	s.sink.EnqueueDocPatch(s.boardID, diff.Docs(ev.Before.Doc, ev.After.Doc))
}

func (s *Session) historyStatus() HistoryStatus {
	info := s.store.History()
	st := HistoryStatus{
		CanUndo:   info.UndoDepth > 0,
		CanRedo:   info.RedoDepth > 0,
		UndoDepth: info.UndoDepth,
		RedoDepth: info.RedoDepth,
	}
	if n := len(info.UndoLabels); n > 0 {
		st.NextUndo = info.UndoLabels[n-1]
	}
	if n := len(info.RedoLabels); n > 0 {
		st.NextRedo = info.RedoLabels[n-1]
	}
	return st
}
