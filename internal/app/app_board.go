package app

import (
	"inkfinite/internal/domain"
	"inkfinite/internal/sink"
)

// ─────────────────────────────────────────────────────────────
// Board bindings
// ─────────────────────────────────────────────────────────────

func (a *App) ListBoards() ([]domain.Board, error) {
	return a.boards.ListBoards(a.ctx)
}

func (a *App) CreateBoard(name string) (domain.Board, error) {
	return a.boards.CreateBoard(a.ctx, name)
}

// OpenBoard makes the board the active editing target. Pending edits on the
// previously open board are flushed first.
func (a *App) OpenBoard(boardID string) error {
	return a.session.SetActiveBoard(a.ctx, boardID)
}

func (a *App) ActiveBoardID() string {
	return a.session.ActiveBoardID()
}

func (a *App) RenameBoard(boardID, name string) error {
	return a.boards.RenameBoard(a.ctx, boardID, name)
}

// DeleteBoard removes a board. Deleting the active board closes the session
// first so no buffered patch resurrects the record.
func (a *App) DeleteBoard(boardID string) error {
	if a.session.ActiveBoardID() == boardID {
		if err := a.session.Close(a.ctx); err != nil {
			a.log.Warnf("closing session before delete: %v", err)
		}
	}
	return a.boards.DeleteBoard(a.ctx, boardID)
}

func (a *App) RecentBoards() ([]domain.Board, error) {
	return a.boards.RecentBoards(a.ctx)
}

func (a *App) ExportBoard(boardID string) (domain.BoardFile, error) {
	a.saveBeforeExport(boardID)
	return a.boards.ExportBoard(a.ctx, boardID)
}

func (a *App) ExportBoardToFile(boardID, path string) error {
	a.saveBeforeExport(boardID)
	return a.boards.ExportToFile(a.ctx, boardID, path)
}

// saveBeforeExport flushes the sink when exporting the active board so the
// export reflects edits still sitting in the debounce window.
func (a *App) saveBeforeExport(boardID string) {
	if a.session.ActiveBoardID() != boardID {
		return
	}
	if err := a.session.SaveNow(a.ctx); err != nil {
		a.log.Warnf("flush before export: %v", err)
	}
}

func (a *App) ImportBoard(file domain.BoardFile) (domain.Board, error) {
	return a.boards.ImportBoard(a.ctx, file)
}

func (a *App) ImportBoardFromFile(path string) (domain.Board, error) {
	return a.boards.ImportFromFile(a.ctx, path)
}

func (a *App) SaveNow() error {
	return a.session.SaveNow(a.ctx)
}

func (a *App) SaveStatus() sink.Status {
	return a.session.SaveStatus()
}
