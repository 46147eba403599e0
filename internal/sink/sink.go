// Package sink buffers document patches produced by the editor and writes
// them to a repository in the background. Patches enqueued for the same
// board are merged, a short debounce window coalesces bursts of edits into
// a single write, and a small state machine tracks the save status shown
// to the UI.
package sink

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/cenkalti/backoff/v4"
	"github.com/looplab/fsm"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"inkfinite/internal/domain"
	"inkfinite/internal/logger"
)

// DefaultDebounce is the coalescing window for background flushes.
const DefaultDebounce = 75 * time.Millisecond

// SaveState mirrors the states of the save status machine.
type SaveState string

const (
	StateSaved  SaveState = "saved"
	StateSaving SaveState = "saving"
	StateError  SaveState = "error"
)

const (
	eventFlush   = "flush"
	eventConfirm = "confirm"
	eventFail    = "fail"
)

// Status is the payload handed to status listeners and returned by Status.
// Pending counts enqueues since the last confirmed flush, not boards.
type Status struct {
	State   SaveState `json:"state"`
	Pending int       `json:"pending"`
	Error   string    `json:"error,omitempty"`
}

// Patcher is the slice of the repository the sink writes through.
type Patcher interface {
	ApplyDocPatch(ctx context.Context, boardID string, patch domain.Patch) error
}

// Sink coalesces patches per board and flushes them in the background.
type Sink struct {
	repo Patcher
	log  *zap.SugaredLogger

	machine   *fsm.FSM
	onStatus  func(Status)
	window    time.Duration
	debounced func(func())

	flushMu sync.Mutex

	mu      sync.Mutex
	buffer  map[string]domain.Patch
	pending int
	state   SaveState
	lastErr string
}

type Option func(*Sink)

// WithDebounce overrides the background flush window.
func WithDebounce(d time.Duration) Option {
	return func(s *Sink) { s.window = d }
}

// WithStatusFunc registers a listener for save status changes.
func WithStatusFunc(fn func(Status)) Option {
	return func(s *Sink) { s.onStatus = fn }
}

func New(repo Patcher, opts ...Option) *Sink {
	s := &Sink{
		repo:   repo,
		log:    logger.For(logger.ComponentSink),
		window: DefaultDebounce,
		buffer: map[string]domain.Patch{},
		state:  StateSaved,
	}
	s.machine = fsm.NewFSM(
		string(StateSaved),
		fsm.Events{
			{Name: eventFlush, Src: []string{string(StateSaved), string(StateError)}, Dst: string(StateSaving)},
			{Name: eventConfirm, Src: []string{string(StateSaving)}, Dst: string(StateSaved)},
			{Name: eventFail, Src: []string{string(StateSaving)}, Dst: string(StateError)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				s.mu.Lock()
				s.state = SaveState(e.Dst)
				s.mu.Unlock()
				s.notify()
			},
		},
	)
	for _, opt := range opts {
		opt(s)
	}
	s.debounced = debounce.New(s.window)
	return s
}

// EnqueueDocPatch buffers patch for the given board and arms the debounced
// background flush. Empty patches are dropped. A patch already buffered for
// the board is merged with the new one, later changes winning.
func (s *Sink) EnqueueDocPatch(boardID string, patch domain.Patch) {
	if patch.IsEmpty() {
		return
	}
	s.mu.Lock()
	if prev, ok := s.buffer[boardID]; ok {
		s.buffer[boardID] = prev.Merge(patch)
	} else {
		s.buffer[boardID] = patch
	}
	s.pending++
	s.mu.Unlock()

	s.notify()
	s.debounced(s.flushInBackground)
}

// Flush writes every buffered patch, one repository call per board.
// Concurrent calls serialize; a second caller picks up whatever the first
// left behind. On failure the unwritten patches stay buffered, merged ahead
// of anything enqueued meanwhile, and the first error is returned.
func (s *Sink) Flush(ctx context.Context) error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	batch, taken := s.take()
	if len(batch) == 0 {
		return nil
	}
	if err := s.machine.Event(ctx, eventFlush); err != nil {
		return fmt.Errorf("enter saving state: %w", err)
	}
	s.log.Debugf("flushing %d board(s)", len(batch))

	boardIDs := lo.Keys(batch)
	sort.Strings(boardIDs)

	var firstErr error
	for _, boardID := range boardIDs {
		patch := batch[boardID]
		if err := s.repo.ApplyDocPatch(ctx, boardID, patch); err != nil {
			s.requeue(boardID, patch)
			if firstErr == nil {
				firstErr = fmt.Errorf("apply patch for board %s: %w", boardID, err)
			}
		}
	}

	if firstErr != nil {
		s.mu.Lock()
		s.lastErr = firstErr.Error()
		s.mu.Unlock()
		_ = s.machine.Event(ctx, eventFail)
		return firstErr
	}

	s.mu.Lock()
	s.pending -= taken
	if s.pending < 0 {
		s.pending = 0
	}
	s.lastErr = ""
	s.mu.Unlock()
	_ = s.machine.Event(ctx, eventConfirm)
	return nil
}

// FlushRetry flushes with exponential backoff until the write sticks, the
// backoff gives up, or ctx is done. Autosave uses this; interactive callers
// call Flush and decide their own retry.
func (s *Sink) FlushRetry(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = 10 * time.Second
	return backoff.Retry(func() error {
		return s.Flush(ctx)
	}, backoff.WithContext(bo, ctx))
}

// Status reports the current save state and pending-write count.
func (s *Sink) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{State: s.state, Pending: s.pending, Error: s.lastErr}
}

func (s *Sink) take() (map[string]domain.Patch, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := s.buffer
	taken := s.pending
	s.buffer = map[string]domain.Patch{}
	return batch, taken
}

// requeue puts a patch that failed to apply back in front of anything
// enqueued while the flush ran.
func (s *Sink) requeue(boardID string, failed domain.Patch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newer, ok := s.buffer[boardID]; ok {
		s.buffer[boardID] = failed.Merge(newer)
	} else {
		s.buffer[boardID] = failed
	}
}

func (s *Sink) flushInBackground() {
	if err := s.Flush(context.Background()); err != nil {
		s.log.Warnf("background flush failed: %v", err)
	}
}

func (s *Sink) notify() {
	if s.onStatus == nil {
		return
	}
	s.mu.Lock()
	st := Status{State: s.state, Pending: s.pending, Error: s.lastErr}
	s.mu.Unlock()
	s.onStatus(st)
}
