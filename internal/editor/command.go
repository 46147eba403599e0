package editor

import (
	"fmt"
	"maps"
	"slices"

	"github.com/samber/lo"

	"inkfinite/internal/domain"
)

// Kind classifies a command so the persistence wiring can ignore camera and
// UI transitions. Only doc commands ever reach the diff engine.
type Kind string

const (
	KindDoc    Kind = "doc"
	KindCamera Kind = "camera"
	KindUI     Kind = "ui"
)

// Command is a reversible state transition. Do and Undo are total over valid
// states: when a command cannot apply (a referenced record is gone), it
// returns the state unchanged instead of panicking, so the history stacks
// never drift from the live state.
type Command interface {
	Kind() Kind
	Label() string
	Do(domain.State) domain.State
	Undo(domain.State) domain.State
}

type funcCmd struct {
	kind  Kind
	label string
	do    func(domain.State) domain.State
	undo  func(domain.State) domain.State
}

func (c funcCmd) Kind() Kind { return c.kind }

func (c funcCmd) Label() string { return c.label }

func (c funcCmd) Do(s domain.State) domain.State { return c.do(s) }

func (c funcCmd) Undo(s domain.State) domain.State { return c.undo(s) }

// CreateShape adds a shape to its page and appends it to the z-order.
func CreateShape(shape domain.Shape) Command {
	base := shape.Common()
	return funcCmd{
		kind:  KindDoc,
		label: fmt.Sprintf("Create %s", shape.Type()),
		do: func(s domain.State) domain.State {
			if _, ok := s.Doc.Pages[base.PageID]; !ok {
				return s
			}
			out := s.Clone()
			out.Doc.Shapes[base.ID] = shape
			pg := out.Doc.Pages[base.PageID]
			if !lo.Contains(pg.ShapeIDs, base.ID) {
				pg.ShapeIDs = append(pg.ShapeIDs, base.ID)
				out.Doc.Pages[base.PageID] = pg
			}
			return out
		},
		undo: func(s domain.State) domain.State {
			if _, ok := s.Doc.Shapes[base.ID]; !ok {
				return s
			}
			out := s.Clone()
			delete(out.Doc.Shapes, base.ID)
			if pg, ok := out.Doc.Pages[base.PageID]; ok {
				pg.ShapeIDs = lo.Without(pg.ShapeIDs, base.ID)
				out.Doc.Pages[base.PageID] = pg
			}
			return out
		},
	}
}

// UpdateShape swaps one shape record for another with the same id.
func UpdateShape(before, after domain.Shape) Command {
	id := after.Common().ID
	return funcCmd{
		kind:  KindDoc,
		label: fmt.Sprintf("Update %s", after.Type()),
		do:    swapShape(id, after),
		undo:  swapShape(id, before),
	}
}

func swapShape(id string, next domain.Shape) func(domain.State) domain.State {
	return func(s domain.State) domain.State {
		if _, ok := s.Doc.Shapes[id]; !ok {
			return s
		}
		out := s.Clone()
		out.Doc.Shapes[id] = next
		return out
	}
}

// DeleteShapes removes the named shapes, any bindings touching them, and
// their z-order entries. The doomed records are captured at construction so
// undo can restore them exactly.
func DeleteShapes(st domain.State, ids []string) Command {
	var shapes []domain.Shape
	affected := map[string][]string{}
	for _, id := range ids {
		s, ok := st.Doc.Shapes[id]
		if !ok {
			continue
		}
		shapes = append(shapes, s)
		pageID := s.Common().PageID
		if _, seen := affected[pageID]; !seen {
			if pg, ok := st.Doc.Pages[pageID]; ok {
				affected[pageID] = slices.Clone(pg.ShapeIDs)
			}
		}
	}
	var bindings []domain.Binding
	for _, bid := range slices.Sorted(maps.Keys(st.Doc.Bindings)) {
		b := st.Doc.Bindings[bid]
		if lo.Contains(ids, b.FromShapeID) || lo.Contains(ids, b.ToShapeID) {
			bindings = append(bindings, b)
		}
	}

	return funcCmd{
		kind:  KindDoc,
		label: fmt.Sprintf("Delete %d shapes", len(shapes)),
		do: func(s domain.State) domain.State {
			out := s.Clone()
			for _, sh := range shapes {
				id := sh.Common().ID
				delete(out.Doc.Shapes, id)
				if pg, ok := out.Doc.Pages[sh.Common().PageID]; ok {
					pg.ShapeIDs = lo.Without(pg.ShapeIDs, id)
					out.Doc.Pages[sh.Common().PageID] = pg
				}
			}
			for _, b := range bindings {
				delete(out.Doc.Bindings, b.ID)
			}
			return out
		},
		undo: func(s domain.State) domain.State {
			out := s.Clone()
			for _, sh := range shapes {
				out.Doc.Shapes[sh.Common().ID] = sh
			}
			for pageID, seq := range affected {
				if pg, ok := out.Doc.Pages[pageID]; ok {
					pg.ShapeIDs = slices.Clone(seq)
					out.Doc.Pages[pageID] = pg
				}
			}
			for _, b := range bindings {
				out.Doc.Bindings[b.ID] = b
			}
			return out
		},
	}
}

// CreatePage appends an empty page to the document.
func CreatePage(id, name string) Command {
	return funcCmd{
		kind:  KindDoc,
		label: "Create page",
		do: func(s domain.State) domain.State {
			if _, ok := s.Doc.Pages[id]; ok {
				return s
			}
			out := s.Clone()
			out.Doc.Pages[id] = domain.Page{ID: id, Name: name, ShapeIDs: []string{}}
			out.Doc.PageOrder = append(out.Doc.PageOrder, id)
			return out
		},
		undo: func(s domain.State) domain.State {
			if _, ok := s.Doc.Pages[id]; !ok {
				return s
			}
			out := s.Clone()
			delete(out.Doc.Pages, id)
			out.Doc.PageOrder = lo.Without(out.Doc.PageOrder, id)
			return out
		},
	}
}

// RenamePage flips a page name between two values.
func RenamePage(id, from, to string) Command {
	set := func(name string) func(domain.State) domain.State {
		return func(s domain.State) domain.State {
			if _, ok := s.Doc.Pages[id]; !ok {
				return s
			}
			out := s.Clone()
			pg := out.Doc.Pages[id]
			pg.Name = name
			out.Doc.Pages[id] = pg
			return out
		}
	}
	return funcCmd{kind: KindDoc, label: "Rename page", do: set(to), undo: set(from)}
}

// DeletePage removes a page with everything on it. Captured records and the
// prior page order make undo an exact restore.
func DeletePage(st domain.State, id string) Command {
	pg, exists := st.Doc.Pages[id]
	var shapes []domain.Shape
	var bindings []domain.Binding
	if exists {
		pg = domain.Page{ID: pg.ID, Name: pg.Name, ShapeIDs: slices.Clone(pg.ShapeIDs)}
		for _, sid := range pg.ShapeIDs {
			if sh, ok := st.Doc.Shapes[sid]; ok {
				shapes = append(shapes, sh)
			}
		}
		doomed := lo.Map(shapes, func(sh domain.Shape, _ int) string { return sh.Common().ID })
		for _, bid := range slices.Sorted(maps.Keys(st.Doc.Bindings)) {
			b := st.Doc.Bindings[bid]
			if lo.Contains(doomed, b.FromShapeID) || lo.Contains(doomed, b.ToShapeID) {
				bindings = append(bindings, b)
			}
		}
	}
	order := slices.Clone(st.Doc.PageOrder)

	return funcCmd{
		kind:  KindDoc,
		label: "Delete page",
		do: func(s domain.State) domain.State {
			if !exists {
				return s
			}
			if _, ok := s.Doc.Pages[id]; !ok {
				return s
			}
			out := s.Clone()
			delete(out.Doc.Pages, id)
			out.Doc.PageOrder = lo.Without(out.Doc.PageOrder, id)
			for _, sh := range shapes {
				delete(out.Doc.Shapes, sh.Common().ID)
			}
			for _, b := range bindings {
				delete(out.Doc.Bindings, b.ID)
			}
			return out
		},
		undo: func(s domain.State) domain.State {
			if !exists {
				return s
			}
			out := s.Clone()
			out.Doc.Pages[id] = domain.Page{ID: pg.ID, Name: pg.Name, ShapeIDs: slices.Clone(pg.ShapeIDs)}
			out.Doc.PageOrder = slices.Clone(order)
			for _, sh := range shapes {
				out.Doc.Shapes[sh.Common().ID] = sh
			}
			for _, b := range bindings {
				out.Doc.Bindings[b.ID] = b
			}
			return out
		},
	}
}

// ReorderShapes replaces a page's z-order.
func ReorderShapes(pageID string, before, after []string) Command {
	set := func(seq []string) func(domain.State) domain.State {
		seq = slices.Clone(seq)
		return func(s domain.State) domain.State {
			if _, ok := s.Doc.Pages[pageID]; !ok {
				return s
			}
			out := s.Clone()
			pg := out.Doc.Pages[pageID]
			pg.ShapeIDs = slices.Clone(seq)
			out.Doc.Pages[pageID] = pg
			return out
		}
	}
	return funcCmd{kind: KindDoc, label: "Reorder shapes", do: set(after), undo: set(before)}
}

// ReorderPages replaces the page sequence.
func ReorderPages(before, after []string) Command {
	set := func(seq []string) func(domain.State) domain.State {
		seq = slices.Clone(seq)
		return func(s domain.State) domain.State {
			out := s.Clone()
			out.Doc.PageOrder = slices.Clone(seq)
			return out
		}
	}
	return funcCmd{kind: KindDoc, label: "Reorder pages", do: set(after), undo: set(before)}
}

// CreateBinding attaches an arrow endpoint to a target shape.
func CreateBinding(b domain.Binding) Command {
	return funcCmd{
		kind:  KindDoc,
		label: "Create binding",
		do: func(s domain.State) domain.State {
			from, ok := s.Doc.Shapes[b.FromShapeID]
			if !ok || from.Type() != domain.ShapeArrow {
				return s
			}
			if _, ok := s.Doc.Shapes[b.ToShapeID]; !ok {
				return s
			}
			out := s.Clone()
			out.Doc.Bindings[b.ID] = b
			return out
		},
		undo: func(s domain.State) domain.State {
			if _, ok := s.Doc.Bindings[b.ID]; !ok {
				return s
			}
			out := s.Clone()
			delete(out.Doc.Bindings, b.ID)
			return out
		},
	}
}

// DeleteBinding detaches a binding, restoring it on undo.
func DeleteBinding(st domain.State, id string) Command {
	b, exists := st.Doc.Bindings[id]
	return funcCmd{
		kind:  KindDoc,
		label: "Delete binding",
		do: func(s domain.State) domain.State {
			if !exists {
				return s
			}
			if _, ok := s.Doc.Bindings[id]; !ok {
				return s
			}
			out := s.Clone()
			delete(out.Doc.Bindings, id)
			return out
		},
		undo: func(s domain.State) domain.State {
			if !exists {
				return s
			}
			out := s.Clone()
			out.Doc.Bindings[id] = b
			return out
		},
	}
}

// SetCamera pans or zooms the viewport. Camera state shares the document
// maps of the state it transitions, which is safe because doc commands clone
// before mutating.
func SetCamera(before, after domain.Camera) Command {
	return funcCmd{
		kind:  KindCamera,
		label: "Move camera",
		do: func(s domain.State) domain.State {
			s.Camera = after
			return s
		},
		undo: func(s domain.State) domain.State {
			s.Camera = before
			return s
		},
	}
}

// SetSelection replaces the selected shape ids.
func SetSelection(before, after []string) Command {
	set := func(ids []string) func(domain.State) domain.State {
		ids = slices.Clone(ids)
		return func(s domain.State) domain.State {
			s.UI.SelectionIDs = slices.Clone(ids)
			if s.UI.SelectionIDs == nil {
				s.UI.SelectionIDs = []string{}
			}
			return s
		}
	}
	return funcCmd{kind: KindUI, label: "Select", do: set(after), undo: set(before)}
}

// SetTool switches the active drawing tool.
func SetTool(before, after string) Command {
	return funcCmd{
		kind:  KindUI,
		label: "Switch tool",
		do: func(s domain.State) domain.State {
			s.UI.ToolID = after
			return s
		},
		undo: func(s domain.State) domain.State {
			s.UI.ToolID = before
			return s
		},
	}
}

// SetCurrentPage switches the page being edited. The empty id means no page
// and is always restorable.
func SetCurrentPage(before, after string) Command {
	set := func(id string) func(domain.State) domain.State {
		return func(s domain.State) domain.State {
			if id != "" {
				if _, ok := s.Doc.Pages[id]; !ok {
					return s
				}
			}
			s.UI.CurrentPageID = id
			return s
		}
	}
	return funcCmd{kind: KindUI, label: "Switch page", do: set(after), undo: set(before)}
}
