// Package editor holds the live application state and transitions it through
// reversible commands with full undo/redo history. The store is owned by a
// single goroutine; every committed transition replaces the state snapshot
// wholesale and notifies subscribers synchronously.
package editor

import (
	"slices"
	"time"

	"inkfinite/internal/domain"
)

// DefaultHistoryDepth bounds the undo stack; the oldest entry is dropped
// once the cap is reached.
const DefaultHistoryDepth = 100

type Op string

const (
	OpDo   Op = "do"
	OpUndo Op = "undo"
	OpRedo Op = "redo"
)

// HistoryEvent describes one committed transition. The history hook receives
// it before subscribers are notified, in execution order.
type HistoryEvent struct {
	Op     Op
	Kind   Kind
	Label  string
	Before domain.State
	After  domain.State
	At     time.Time
}

// HistoryInfo is a read-only view of the undo and redo stacks.
type HistoryInfo struct {
	UndoDepth  int
	RedoDepth  int
	UndoLabels []string
	RedoLabels []string
}

type entry struct {
	cmd Command
	at  time.Time
}

type subscriber struct {
	id int
	fn func(domain.State)
}

// Store executes commands against the current state and keeps the undo and
// redo stacks consistent with it. It is not safe for concurrent use; the
// owning goroutine drives it and subscribers run on that goroutine.
type Store struct {
	state     domain.State
	undo      []entry
	redo      []entry
	subs      []subscriber
	subSeq    int
	onHistory func(HistoryEvent)
	maxDepth  int
	notifying bool
}

type Option func(*Store)

// WithHistoryDepth caps the undo stack.
func WithHistoryDepth(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxDepth = n
		}
	}
}

// WithHistoryHook installs the callback that receives every committed
// transition. The host wires persistence through it.
func WithHistoryHook(fn func(HistoryEvent)) Option {
	return func(s *Store) { s.onHistory = fn }
}

func New(initial domain.State, opts ...Option) *Store {
	s := &Store{
		state:    initial,
		maxDepth: DefaultHistoryDepth,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current snapshot. Callers treat it as immutable.
func (s *Store) State() domain.State {
	return s.state
}

// Execute applies a command, pushes it onto the undo stack and clears the
// redo stack. Calling Execute from a subscriber or the history hook panics.
func (s *Store) Execute(cmd Command) {
	s.guard("Execute")

	before := s.state
	after := cmd.Do(before)
	at := time.Now()

	s.state = after
	s.undo = append(s.undo, entry{cmd: cmd, at: at})
	if len(s.undo) > s.maxDepth {
		s.undo = slices.Delete(s.undo, 0, 1)
	}
	s.redo = s.redo[:0]

	s.commit(HistoryEvent{Op: OpDo, Kind: cmd.Kind(), Label: cmd.Label(), Before: before, After: after, At: at})
}

// Undo reverts the most recent command. It reports false when the undo
// stack is empty.
func (s *Store) Undo() bool {
	s.guard("Undo")

	if len(s.undo) == 0 {
		return false
	}
	e := s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]

	before := s.state
	after := e.cmd.Undo(before)
	s.state = after
	s.redo = append(s.redo, e)

	s.commit(HistoryEvent{Op: OpUndo, Kind: e.cmd.Kind(), Label: e.cmd.Label(), Before: before, After: after, At: time.Now()})
	return true
}

// Redo re-applies the most recently undone command. It reports false when
// the redo stack is empty.
func (s *Store) Redo() bool {
	s.guard("Redo")

	if len(s.redo) == 0 {
		return false
	}
	e := s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]

	before := s.state
	after := e.cmd.Do(before)
	s.state = after
	s.undo = append(s.undo, e)

	s.commit(HistoryEvent{Op: OpRedo, Kind: e.cmd.Kind(), Label: e.cmd.Label(), Before: before, After: after, At: time.Now()})
	return true
}

// Subscribe registers a listener invoked synchronously, in registration
// order, on every committed transition. The returned function unsubscribes.
func (s *Store) Subscribe(fn func(domain.State)) func() {
	s.subSeq++
	id := s.subSeq
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	return func() {
		for i := range s.subs {
			if s.subs[i].id == id {
				s.subs = slices.Delete(s.subs, i, i+1)
				return
			}
		}
	}
}

// History reports the current stack depths and labels, oldest first.
func (s *Store) History() HistoryInfo {
	info := HistoryInfo{
		UndoDepth:  len(s.undo),
		RedoDepth:  len(s.redo),
		UndoLabels: make([]string, len(s.undo)),
		RedoLabels: make([]string, len(s.redo)),
	}
	for i, e := range s.undo {
		info.UndoLabels[i] = e.cmd.Label()
	}
	for i, e := range s.redo {
		info.RedoLabels[i] = e.cmd.Label()
	}
	return info
}

func (s *Store) CanUndo() bool { return len(s.undo) > 0 }

func (s *Store) CanRedo() bool { return len(s.redo) > 0 }

func (s *Store) guard(op string) {
	if s.notifying {
		panic("editor: re-entrant " + op + " from a subscriber or history hook")
	}
}

func (s *Store) commit(ev HistoryEvent) {
	s.notifying = true
	defer func() { s.notifying = false }()

	if s.onHistory != nil {
		s.onHistory(ev)
	}
	for _, sub := range slices.Clone(s.subs) {
		sub.fn(ev.After)
	}
}
