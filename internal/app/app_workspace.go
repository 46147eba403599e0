package app

import (
	"context"
	"errors"

	"inkfinite/internal/service"
	"inkfinite/internal/workspace"
)

// ─────────────────────────────────────────────────────────────
// Workspace bindings
// ─────────────────────────────────────────────────────────────

// ErrNoWorkspace is returned by workspace bindings when boards live in the
// database instead of a directory.
var ErrNoWorkspace = errors.New("no workspace directory configured")

// startWorkspaceWatcher forwards board file changes on disk to the host, so
// the board picker can refresh when files are synced or edited externally.
func (a *App) startWorkspaceWatcher(ctx context.Context) error {
	wctx, cancel := context.WithCancel(ctx)
	err := a.ws.Watch(wctx, func(path string) {
		a.Emit(a.ctx, service.EventWorkspaceChanged, map[string]string{"path": path})
	})
	if err != nil {
		cancel()
		return err
	}
	a.watchCancel = cancel
	return nil
}

// WorkspaceDir reports the configured workspace directory, or "" in
// database mode.
func (a *App) WorkspaceDir() string {
	if a.ws == nil {
		return ""
	}
	return a.ws.Dir()
}

// WorkspaceEntries lists the workspace directory for the board picker.
func (a *App) WorkspaceEntries() ([]workspace.Entry, error) {
	if a.ws == nil {
		return nil, ErrNoWorkspace
	}
	return a.ws.ListEntries()
}
