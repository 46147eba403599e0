package app

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"inkfinite/internal/domain"
	"inkfinite/internal/editor"
)

// ─────────────────────────────────────────────────────────────
// Editing bindings
//
// Commands are total and no-op when a referent is missing, but a no-op
// still lands on the undo stack. The bindings validate against the live
// state first so the history only ever holds real transitions.
// ─────────────────────────────────────────────────────────────

func (a *App) State() (domain.State, error) {
	return a.session.State()
}

// AddShape places a shape on the board and returns it with its minted id.
// An empty PageID targets the current page.
func (a *App) AddShape(shape domain.Shape) (domain.Shape, error) {
	st, err := a.session.State()
	if err != nil {
		return nil, err
	}
	base := shape.Common()
	id := base.ID
	if id == "" {
		id = uuid.NewString()
	}
	pageID := base.PageID
	if pageID == "" {
		pageID = st.UI.CurrentPageID
	}
	if _, ok := st.Doc.Pages[pageID]; !ok {
		return nil, fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	shape = shapeOnPage(shape, id, pageID)
	return shape, a.session.Execute(editor.CreateShape(shape))
}

func (a *App) UpdateShape(after domain.Shape) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	id := after.Common().ID
	before, ok := st.Doc.Shapes[id]
	if !ok {
		return fmt.Errorf("shape %s: %w", id, domain.ErrNotFound)
	}
	return a.session.Execute(editor.UpdateShape(before, after))
}

// DeleteShapes removes the named shapes along with any bindings that touch
// them. Ids that do not resolve are ignored; deleting nothing is an error.
func (a *App) DeleteShapes(ids ...string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	present := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := st.Doc.Shapes[id]
		return ok
	})
	if len(present) == 0 {
		return fmt.Errorf("shapes %v: %w", ids, domain.ErrNotFound)
	}
	return a.session.Execute(editor.DeleteShapes(st, present))
}

// AddPage appends a page. An empty name gets a positional default.
func (a *App) AddPage(name string) (domain.Page, error) {
	st, err := a.session.State()
	if err != nil {
		return domain.Page{}, err
	}
	if name == "" {
		name = fmt.Sprintf("Page %d", len(st.Doc.Pages)+1)
	}
	id := uuid.NewString()
	pg := domain.Page{ID: id, Name: name, ShapeIDs: []string{}}
	return pg, a.session.Execute(editor.CreatePage(id, name))
}

func (a *App) RenamePage(pageID, name string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	pg, ok := st.Doc.Pages[pageID]
	if !ok {
		return fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	return a.session.Execute(editor.RenamePage(pageID, pg.Name, name))
}

// DeletePage removes a page and everything on it. The last page cannot be
// deleted. Deleting the current page first switches to a neighbor so the
// page pointer never dangles, on undo the page is restored before the
// switch back.
func (a *App) DeletePage(pageID string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	if _, ok := st.Doc.Pages[pageID]; !ok {
		return fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	if len(st.Doc.Pages) == 1 {
		return fmt.Errorf("page %s is the last page", pageID)
	}
	if st.UI.CurrentPageID == pageID {
		if err := a.session.Execute(editor.SetCurrentPage(pageID, neighborPage(st.Doc.PageOrder, pageID))); err != nil {
			return err
		}
		st, _ = a.session.State()
	}
	return a.session.Execute(editor.DeletePage(st, pageID))
}

// neighborPage picks the page after id in the sequence, or the one before
// when id is last.
func neighborPage(order []string, id string) string {
	i := slices.Index(order, id)
	if i < 0 {
		return ""
	}
	if i+1 < len(order) {
		return order[i+1]
	}
	if i > 0 {
		return order[i-1]
	}
	return ""
}

// ReorderShapes replaces a page's z-order. The new order must hold exactly
// the shapes already on the page.
func (a *App) ReorderShapes(pageID string, order []string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	pg, ok := st.Doc.Pages[pageID]
	if !ok {
		return fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	if !samePermutation(pg.ShapeIDs, order) {
		return fmt.Errorf("reorder of page %s must keep the same shapes", pageID)
	}
	return a.session.Execute(editor.ReorderShapes(pageID, pg.ShapeIDs, order))
}

// ReorderPages replaces the page sequence, which must be a permutation of
// the current one.
func (a *App) ReorderPages(order []string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	if !samePermutation(st.Doc.PageOrder, order) {
		return fmt.Errorf("reorder must keep the same pages")
	}
	return a.session.Execute(editor.ReorderPages(st.Doc.PageOrder, order))
}

func samePermutation(a, b []string) bool {
	return slices.Equal(slices.Sorted(slices.Values(a)), slices.Sorted(slices.Values(b)))
}

// AddBinding attaches an arrow endpoint to a target shape and returns the
// binding with its minted id.
func (a *App) AddBinding(b domain.Binding) (domain.Binding, error) {
	st, err := a.session.State()
	if err != nil {
		return domain.Binding{}, err
	}
	from, ok := st.Doc.Shapes[b.FromShapeID]
	if !ok {
		return domain.Binding{}, fmt.Errorf("shape %s: %w", b.FromShapeID, domain.ErrNotFound)
	}
	if from.Type() != domain.ShapeArrow {
		return domain.Binding{}, fmt.Errorf("shape %s is not an arrow", b.FromShapeID)
	}
	if _, ok := st.Doc.Shapes[b.ToShapeID]; !ok {
		return domain.Binding{}, fmt.Errorf("shape %s: %w", b.ToShapeID, domain.ErrNotFound)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return b, a.session.Execute(editor.CreateBinding(b))
}

func (a *App) DeleteBinding(id string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	if _, ok := st.Doc.Bindings[id]; !ok {
		return fmt.Errorf("binding %s: %w", id, domain.ErrNotFound)
	}
	return a.session.Execute(editor.DeleteBinding(st, id))
}

func (a *App) Undo() bool { return a.session.Undo() }

func (a *App) Redo() bool { return a.session.Redo() }

func (a *App) History() (editor.HistoryInfo, error) {
	return a.session.History()
}

// ─────────────────────────────────────────────────────────────
// Camera and UI bindings
// ─────────────────────────────────────────────────────────────

func (a *App) SetCamera(c domain.Camera) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	return a.session.Execute(editor.SetCamera(st.Camera, c))
}

// Select replaces the selection. Ids that do not resolve to shapes are
// dropped so stale selections cannot linger.
func (a *App) Select(ids ...string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	present := lo.Filter(ids, func(id string, _ int) bool {
		_, ok := st.Doc.Shapes[id]
		return ok
	})
	return a.session.Execute(editor.SetSelection(st.UI.SelectionIDs, present))
}

func (a *App) SwitchTool(toolID string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	return a.session.Execute(editor.SetTool(st.UI.ToolID, toolID))
}

func (a *App) SwitchPage(pageID string) error {
	st, err := a.session.State()
	if err != nil {
		return err
	}
	if _, ok := st.Doc.Pages[pageID]; !ok {
		return fmt.Errorf("page %s: %w", pageID, domain.ErrNotFound)
	}
	return a.session.Execute(editor.SetCurrentPage(st.UI.CurrentPageID, pageID))
}

// shapeOnPage pins a shape's identity before it enters the document.
func shapeOnPage(s domain.Shape, id, pageID string) domain.Shape {
	switch v := s.(type) {
	case domain.Rect:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Ellipse:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Line:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Arrow:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Text:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Markdown:
		v.ID, v.PageID = id, pageID
		return v
	case domain.Stroke:
		v.ID, v.PageID = id, pageID
		return v
	}
	return s
}
