// Package diff computes minimal patches between document snapshots. Applying
// the result of Docs(before, after) onto before reproduces after exactly;
// identical inputs produce an empty patch.
package diff

import (
	"reflect"
	"slices"
	"sort"

	"github.com/samber/lo"

	"inkfinite/internal/domain"
)

// Docs compares two document snapshots record by record and returns the
// patch that turns before into after. Record ids are visited in sorted order
// so patch contents are deterministic.
func Docs(before, after domain.Document) domain.Patch {
	var p domain.Patch

	for _, id := range unionKeys(before.Pages, after.Pages) {
		b, inBefore := before.Pages[id]
		a, inAfter := after.Pages[id]
		switch {
		case !inAfter:
			p.Deletes.PageIDs = append(p.Deletes.PageIDs, id)
		case !inBefore || !reflect.DeepEqual(b.Record(), a.Record()):
			p.Upserts.Pages = append(p.Upserts.Pages, a.Record())
		}
	}

	for _, id := range unionKeys(before.Shapes, after.Shapes) {
		b, inBefore := before.Shapes[id]
		a, inAfter := after.Shapes[id]
		switch {
		case !inAfter:
			p.Deletes.ShapeIDs = append(p.Deletes.ShapeIDs, id)
		case !inBefore || !reflect.DeepEqual(b, a):
			p.Upserts.Shapes = append(p.Upserts.Shapes, a)
		}
	}

	for _, id := range unionKeys(before.Bindings, after.Bindings) {
		b, inBefore := before.Bindings[id]
		a, inAfter := after.Bindings[id]
		switch {
		case !inAfter:
			p.Deletes.BindingIDs = append(p.Deletes.BindingIDs, id)
		case !inBefore || !reflect.DeepEqual(b, a):
			p.Upserts.Bindings = append(p.Upserts.Bindings, a)
		}
	}

	order := orderChanges(before, after)
	if order != nil {
		p.Order = order
	}

	return p
}

func orderChanges(before, after domain.Document) *domain.OrderPatch {
	var o domain.OrderPatch

	if !slices.Equal(before.PageOrder, after.PageOrder) {
		o.PageIDs = slices.Clone(after.PageOrder)
	}

	for _, id := range unionKeys(before.Pages, after.Pages) {
		a, inAfter := after.Pages[id]
		if !inAfter {
			continue
		}
		b := before.Pages[id]
		if slices.Equal(b.ShapeIDs, a.ShapeIDs) {
			continue
		}
		if o.ShapeOrder == nil {
			o.ShapeOrder = map[string][]string{}
		}
		o.ShapeOrder[id] = slices.Clone(a.ShapeIDs)
	}

	if o.PageIDs == nil && o.ShapeOrder == nil {
		return nil
	}
	return &o
}

func unionKeys[M ~map[string]V, V any](a, b M) []string {
	keys := lo.Union(lo.Keys(a), lo.Keys(b))
	sort.Strings(keys)
	return keys
}
