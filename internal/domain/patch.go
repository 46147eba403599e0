package domain

import (
	"slices"

	"github.com/samber/lo"
)

// Patch is the minimal difference between two document snapshots. Patches
// are value objects: Merge and ApplyPatch return new values and mutate
// neither input.
type Patch struct {
	Upserts Upserts
	Deletes Deletes
	Order   *OrderPatch
}

type Upserts struct {
	Pages    []Page
	Shapes   []Shape
	Bindings []Binding
}

type Deletes struct {
	PageIDs    []string
	ShapeIDs   []string
	BindingIDs []string
}

// OrderPatch carries sequence changes. PageIDs, when non-nil, replaces the
// page order; each ShapeOrder entry replaces the named page's z-order.
type OrderPatch struct {
	PageIDs    []string
	ShapeOrder map[string][]string
}

func (p Patch) IsEmpty() bool {
	if len(p.Upserts.Pages)+len(p.Upserts.Shapes)+len(p.Upserts.Bindings) > 0 {
		return false
	}
	if len(p.Deletes.PageIDs)+len(p.Deletes.ShapeIDs)+len(p.Deletes.BindingIDs) > 0 {
		return false
	}
	if p.Order != nil && (p.Order.PageIDs != nil || len(p.Order.ShapeOrder) > 0) {
		return false
	}
	return true
}

// Merge folds a later patch over p. Later upserts win per record id, a
// delete issued after an upsert keeps only the delete, and an upsert issued
// after a delete cancels the delete.
func (p Patch) Merge(later Patch) Patch {
	out := p.clone()

	for _, pg := range later.Upserts.Pages {
		out.Upserts.Pages = putRecord(out.Upserts.Pages, pg, pageID)
		out.Deletes.PageIDs = lo.Without(out.Deletes.PageIDs, pg.ID)
	}
	for _, s := range later.Upserts.Shapes {
		out.Upserts.Shapes = putRecord(out.Upserts.Shapes, s, shapeID)
		out.Deletes.ShapeIDs = lo.Without(out.Deletes.ShapeIDs, s.Common().ID)
	}
	for _, b := range later.Upserts.Bindings {
		out.Upserts.Bindings = putRecord(out.Upserts.Bindings, b, bindingID)
		out.Deletes.BindingIDs = lo.Without(out.Deletes.BindingIDs, b.ID)
	}

	for _, id := range later.Deletes.PageIDs {
		out.Upserts.Pages = dropRecord(out.Upserts.Pages, id, pageID)
		out.Deletes.PageIDs = putID(out.Deletes.PageIDs, id)
		if out.Order != nil {
			delete(out.Order.ShapeOrder, id)
		}
	}
	for _, id := range later.Deletes.ShapeIDs {
		out.Upserts.Shapes = dropRecord(out.Upserts.Shapes, id, shapeID)
		out.Deletes.ShapeIDs = putID(out.Deletes.ShapeIDs, id)
	}
	for _, id := range later.Deletes.BindingIDs {
		out.Upserts.Bindings = dropRecord(out.Upserts.Bindings, id, bindingID)
		out.Deletes.BindingIDs = putID(out.Deletes.BindingIDs, id)
	}

	if later.Order != nil {
		if out.Order == nil {
			out.Order = &OrderPatch{}
		}
		if later.Order.PageIDs != nil {
			out.Order.PageIDs = slices.Clone(later.Order.PageIDs)
		}
		for pid, seq := range later.Order.ShapeOrder {
			if out.Order.ShapeOrder == nil {
				out.Order.ShapeOrder = map[string][]string{}
			}
			out.Order.ShapeOrder[pid] = slices.Clone(seq)
		}
	}

	return out
}

func (p Patch) clone() Patch {
	out := Patch{
		Upserts: Upserts{
			Pages:    slices.Clone(p.Upserts.Pages),
			Shapes:   slices.Clone(p.Upserts.Shapes),
			Bindings: slices.Clone(p.Upserts.Bindings),
		},
		Deletes: Deletes{
			PageIDs:    slices.Clone(p.Deletes.PageIDs),
			ShapeIDs:   slices.Clone(p.Deletes.ShapeIDs),
			BindingIDs: slices.Clone(p.Deletes.BindingIDs),
		},
	}
	if p.Order != nil {
		out.Order = &OrderPatch{PageIDs: slices.Clone(p.Order.PageIDs)}
		if p.Order.ShapeOrder != nil {
			out.Order.ShapeOrder = make(map[string][]string, len(p.Order.ShapeOrder))
			for pid, seq := range p.Order.ShapeOrder {
				out.Order.ShapeOrder[pid] = slices.Clone(seq)
			}
		}
	}
	return out
}

// ApplyPatch replays a patch onto a document and returns the result. Patches
// produced by the diff engine carry everything needed to keep the result
// well formed; hand-built patches are applied literally.
func ApplyPatch(doc Document, p Patch) Document {
	out := doc.Clone()

	for _, pg := range p.Upserts.Pages {
		next := Page{ID: pg.ID, Name: pg.Name, ShapeIDs: []string{}}
		if prev, ok := out.Pages[pg.ID]; ok {
			next.ShapeIDs = prev.ShapeIDs
		}
		out.Pages[pg.ID] = next
	}
	for _, s := range p.Upserts.Shapes {
		out.Shapes[s.Common().ID] = s
	}
	for _, b := range p.Upserts.Bindings {
		out.Bindings[b.ID] = b
	}

	for _, id := range p.Deletes.PageIDs {
		delete(out.Pages, id)
		out.PageOrder = lo.Without(out.PageOrder, id)
	}
	for _, id := range p.Deletes.ShapeIDs {
		delete(out.Shapes, id)
	}
	for _, id := range p.Deletes.BindingIDs {
		delete(out.Bindings, id)
	}

	if p.Order != nil {
		if p.Order.PageIDs != nil {
			out.PageOrder = slices.Clone(p.Order.PageIDs)
		}
		for pid, seq := range p.Order.ShapeOrder {
			pg, ok := out.Pages[pid]
			if !ok {
				continue
			}
			pg.ShapeIDs = slices.Clone(seq)
			out.Pages[pid] = pg
		}
	}

	return out
}

func pageID(p Page) string { return p.ID }

func shapeID(s Shape) string { return s.Common().ID }

func bindingID(b Binding) string { return b.ID }

func putRecord[T any](rs []T, r T, id func(T) string) []T {
	for i := range rs {
		if id(rs[i]) == id(r) {
			rs[i] = r
			return rs
		}
	}
	return append(rs, r)
}

func dropRecord[T any](rs []T, target string, id func(T) string) []T {
	return lo.Reject(rs, func(r T, _ int) bool { return id(r) == target })
}

func putID(ids []string, id string) []string {
	if lo.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}
