package domain

import (
	"reflect"
	"testing"
)

func rectShape(id, pageID string, x float64) Shape {
	return Rect{
		ShapeBase: ShapeBase{ID: id, PageID: pageID, X: x},
		W:         50,
		H:         50,
		Style:     Style{Opacity: 1},
	}
}

func TestPatchIsEmpty(t *testing.T) {
	if !(Patch{}).IsEmpty() {
		t.Fatal("zero patch should be empty")
	}
	if !(Patch{Order: &OrderPatch{}}).IsEmpty() {
		t.Fatal("patch with blank order section should be empty")
	}
	p := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 0)}}}
	if p.IsEmpty() {
		t.Fatal("patch with an upsert should not be empty")
	}
	p = Patch{Order: &OrderPatch{PageIDs: []string{"p1"}}}
	if p.IsEmpty() {
		t.Fatal("patch with a page order should not be empty")
	}
}

func TestPatchMergeLaterUpsertWins(t *testing.T) {
	a := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 0)}}}
	b := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 99)}}}

	merged := a.Merge(b)
	if len(merged.Upserts.Shapes) != 1 {
		t.Fatalf("expected 1 shape upsert, got %d", len(merged.Upserts.Shapes))
	}
	if got := merged.Upserts.Shapes[0].Common().X; got != 99 {
		t.Fatalf("expected later upsert to win, got x=%g", got)
	}
}

func TestPatchMergeDeleteAfterUpsert(t *testing.T) {
	a := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 0)}}}
	b := Patch{Deletes: Deletes{ShapeIDs: []string{"s1"}}}

	merged := a.Merge(b)
	if len(merged.Upserts.Shapes) != 0 {
		t.Fatalf("delete should cancel the upsert, still have %d", len(merged.Upserts.Shapes))
	}
	if !reflect.DeepEqual(merged.Deletes.ShapeIDs, []string{"s1"}) {
		t.Fatalf("expected delete of s1, got %v", merged.Deletes.ShapeIDs)
	}
}

func TestPatchMergeUpsertAfterDelete(t *testing.T) {
	a := Patch{Deletes: Deletes{ShapeIDs: []string{"s1"}}}
	b := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 7)}}}

	merged := a.Merge(b)
	if len(merged.Deletes.ShapeIDs) != 0 {
		t.Fatalf("upsert should cancel the delete, still have %v", merged.Deletes.ShapeIDs)
	}
	if len(merged.Upserts.Shapes) != 1 || merged.Upserts.Shapes[0].Common().X != 7 {
		t.Fatalf("expected upsert of s1 at x=7, got %v", merged.Upserts.Shapes)
	}
}

func TestPatchMergeOrder(t *testing.T) {
	a := Patch{Order: &OrderPatch{
		PageIDs:    []string{"p1", "p2"},
		ShapeOrder: map[string][]string{"p1": {"s1"}},
	}}
	b := Patch{Order: &OrderPatch{
		PageIDs:    []string{"p2", "p1"},
		ShapeOrder: map[string][]string{"p2": {"s2"}},
	}}

	merged := a.Merge(b)
	if !reflect.DeepEqual(merged.Order.PageIDs, []string{"p2", "p1"}) {
		t.Fatalf("later page order should replace, got %v", merged.Order.PageIDs)
	}
	want := map[string][]string{"p1": {"s1"}, "p2": {"s2"}}
	if !reflect.DeepEqual(merged.Order.ShapeOrder, want) {
		t.Fatalf("shape orders should merge per page, got %v", merged.Order.ShapeOrder)
	}
}

func TestPatchMergePageDeleteDropsItsOrder(t *testing.T) {
	a := Patch{Order: &OrderPatch{ShapeOrder: map[string][]string{"p1": {"s1"}, "p2": {"s2"}}}}
	b := Patch{Deletes: Deletes{PageIDs: []string{"p1"}}}

	merged := a.Merge(b)
	if _, ok := merged.Order.ShapeOrder["p1"]; ok {
		t.Fatal("deleted page should not keep a shape order entry")
	}
	if _, ok := merged.Order.ShapeOrder["p2"]; !ok {
		t.Fatal("surviving page lost its shape order entry")
	}
}

func TestPatchMergeDoesNotMutateInputs(t *testing.T) {
	a := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 0)}}}
	b := Patch{Upserts: Upserts{Shapes: []Shape{rectShape("s1", "p1", 5)}}}

	_ = a.Merge(b)
	if a.Upserts.Shapes[0].Common().X != 0 {
		t.Fatal("merge mutated the receiver")
	}
}

func TestApplyPatchUpserts(t *testing.T) {
	doc := testDoc()
	p := Patch{
		Upserts: Upserts{
			Pages:  []Page{{ID: "p2", Name: "Page 2"}},
			Shapes: []Shape{rectShape("s9", "p2", 3)},
		},
		Order: &OrderPatch{
			PageIDs:    []string{"p1", "p2"},
			ShapeOrder: map[string][]string{"p2": {"s9"}},
		},
	}

	out := ApplyPatch(doc, p)
	if _, ok := out.Pages["p2"]; !ok {
		t.Fatal("page p2 not applied")
	}
	if !reflect.DeepEqual(out.Pages["p2"].ShapeIDs, []string{"s9"}) {
		t.Fatalf("p2 z-order not applied, got %v", out.Pages["p2"].ShapeIDs)
	}
	if !reflect.DeepEqual(out.PageOrder, []string{"p1", "p2"}) {
		t.Fatalf("page order not applied, got %v", out.PageOrder)
	}
	if _, ok := doc.Pages["p2"]; ok {
		t.Fatal("ApplyPatch mutated its input")
	}
}

func TestApplyPatchRenamePreservesZOrder(t *testing.T) {
	doc := testDoc()
	p := Patch{Upserts: Upserts{Pages: []Page{{ID: "p1", Name: "Renamed"}}}}

	out := ApplyPatch(doc, p)
	if out.Pages["p1"].Name != "Renamed" {
		t.Fatalf("rename not applied, got %q", out.Pages["p1"].Name)
	}
	if !reflect.DeepEqual(out.Pages["p1"].ShapeIDs, []string{"r1"}) {
		t.Fatalf("rename lost the z-order, got %v", out.Pages["p1"].ShapeIDs)
	}
}

func TestApplyPatchDeletes(t *testing.T) {
	doc := addArrow(testDoc(), "a1", 2)
	doc.Bindings["b1"] = Binding{ID: "b1", FromShapeID: "a1", ToShapeID: "r1", Handle: HandleStart, Anchor: Anchor{Kind: AnchorCenter}}

	p := Patch{
		Deletes: Deletes{ShapeIDs: []string{"a1"}, BindingIDs: []string{"b1"}},
		Order:   &OrderPatch{ShapeOrder: map[string][]string{"p1": {"r1"}}},
	}
	out := ApplyPatch(doc, p)
	if _, ok := out.Shapes["a1"]; ok {
		t.Fatal("shape a1 not deleted")
	}
	if _, ok := out.Bindings["b1"]; ok {
		t.Fatal("binding b1 not deleted")
	}
	if err := ValidateDoc(out); err != nil {
		t.Fatalf("patched document invalid: %v", err)
	}
}
