package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"inkfinite/internal/config"
	"inkfinite/internal/domain"
	"inkfinite/internal/logger"
	"inkfinite/internal/service"
	"inkfinite/internal/sink"
	"inkfinite/internal/storage"
	"inkfinite/internal/workspace"
)

// EmitFunc forwards an event to the host shell's event bridge.
type EmitFunc func(ctx context.Context, event string, data any)

// App wires the engine together and is the surface a host shell binds to.
// All exported methods are host bindings; they run on the host's calling
// goroutine, the sink does its own background work.
type App struct {
	cfg  config.Config
	emit EmitFunc
	log  *zap.SugaredLogger

	ctx context.Context

	db   *storage.DB      // sqlite mode
	ws   *workspace.Store // workspace mode
	repo domain.Repository

	settings *service.SettingsService
	sink     *sink.Sink
	boards   *service.BoardService
	session  *service.Session
	autosave *service.Autosave

	watchCancel context.CancelFunc
}

type Option func(*App)

// WithEmitFunc installs the host's event bridge. Without one, events are
// logged at debug level and dropped.
func WithEmitFunc(fn EmitFunc) Option {
	return func(a *App) { a.emit = fn }
}

// New creates an App. Nothing is opened until Startup.
func New(cfg config.Config, opts ...Option) *App {
	a := &App{
		cfg: cfg,
		log: logger.For(logger.ComponentApp),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Emit implements service.EventEmitter by delegating to the host bridge.
func (a *App) Emit(ctx context.Context, event string, data any) {
	if a.emit != nil {
		a.emit(ctx, event, data)
		return
	}
	a.log.Debugf("event %s dropped, no host bridge", event)
}

// Startup opens storage and starts the background services. A configured
// workspace dir selects the file-per-board adapter, otherwise boards live
// in the SQLite database under the data dir.
func (a *App) Startup(ctx context.Context) error {
	a.ctx = ctx

	if a.cfg.WorkspaceDir != "" {
		ws, err := workspace.New(a.cfg.WorkspaceDir)
		if err != nil {
			return fmt.Errorf("open workspace: %w", err)
		}
		a.ws = ws
		a.repo = ws
	} else {
		db, err := storage.Open(a.cfg.DBPath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		a.db = db
		a.repo = db
	}

	a.settings = service.NewSettingsService(a.cfg.SettingsPath())
	a.sink = sink.New(a.repo,
		sink.WithDebounce(a.cfg.Debounce()),
		sink.WithStatusFunc(func(st sink.Status) {
			a.Emit(a.ctx, service.EventSaveStatus, st)
		}),
	)
	a.boards = service.NewBoardService(a.repo, a.settings, a)
	a.session = service.NewSession(a.repo, a.sink, a.settings, a,
		service.WithHistoryDepth(a.cfg.HistoryDepth))

	if a.cfg.AutosaveEvery != "" {
		a.autosave = service.NewAutosave(a.sink, a.cfg.AutosaveEvery)
		if err := a.autosave.Start(); err != nil {
			return err
		}
	}

	if a.ws != nil {
		if err := a.startWorkspaceWatcher(ctx); err != nil {
			a.log.Warnf("workspace watcher unavailable: %v", err)
		}
		a.log.Infof("started, workspace %s", a.ws.Dir())
	} else {
		a.log.Infof("started, database %s", a.cfg.DBPath())
	}
	return nil
}

// Shutdown stops the autosaver, flushes pending edits and closes storage.
func (a *App) Shutdown(ctx context.Context) {
	if a.autosave != nil {
		a.autosave.Stop()
		a.autosave.WaitRunning(ctx)
	}
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
	}
	if a.session != nil {
		if err := a.session.Close(ctx); err != nil {
			a.log.Errorf("final flush failed: %v", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warnf("closing database: %v", err)
		}
	}
}
