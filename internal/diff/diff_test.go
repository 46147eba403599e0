package diff

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkfinite/internal/domain"
)

func baseDoc() domain.Document {
	doc := domain.NewDocument("p1", "Page 1")
	doc.Shapes["r1"] = domain.Rect{
		ShapeBase: domain.ShapeBase{ID: "r1", PageID: "p1", X: 10, Y: 10},
		W:         120,
		H:         60,
		Style:     domain.Style{Color: "#333", Opacity: 1},
	}
	doc.Shapes["a1"] = domain.Arrow{
		ShapeBase:  domain.ShapeBase{ID: "a1", PageID: "p1"},
		Points:     []domain.Point{{X: 0, Y: 0}, {X: 50, Y: 50}},
		LabelAlign: domain.AlignCenter,
		Style:      domain.Style{Opacity: 1},
	}
	pg := doc.Pages["p1"]
	pg.ShapeIDs = []string{"r1", "a1"}
	doc.Pages["p1"] = pg
	doc.Bindings["b1"] = domain.Binding{
		ID:          "b1",
		FromShapeID: "a1",
		ToShapeID:   "r1",
		Handle:      domain.HandleEnd,
		Anchor:      domain.Anchor{Kind: domain.AnchorCenter},
	}
	return doc
}

func TestDocsIdentical(t *testing.T) {
	doc := baseDoc()
	assert.True(t, Docs(doc, doc).IsEmpty())
	assert.True(t, Docs(doc, doc.Clone()).IsEmpty())
}

func TestDocsShapeMove(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	r := after.Shapes["r1"].(domain.Rect)
	r.X = 300
	after.Shapes["r1"] = r

	p := Docs(before, after)
	require.Len(t, p.Upserts.Shapes, 1)
	assert.Equal(t, "r1", p.Upserts.Shapes[0].Common().ID)
	assert.Empty(t, p.Upserts.Pages)
	assert.Empty(t, p.Deletes.ShapeIDs)
	assert.Nil(t, p.Order)
}

func TestDocsShapeDelete(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	delete(after.Shapes, "a1")
	delete(after.Bindings, "b1")
	pg := after.Pages["p1"]
	pg.ShapeIDs = []string{"r1"}
	after.Pages["p1"] = pg

	p := Docs(before, after)
	assert.Equal(t, []string{"a1"}, p.Deletes.ShapeIDs)
	assert.Equal(t, []string{"b1"}, p.Deletes.BindingIDs)
	require.NotNil(t, p.Order)
	assert.Equal(t, []string{"r1"}, p.Order.ShapeOrder["p1"])
	assert.Nil(t, p.Order.PageIDs)
}

func TestDocsPageRename(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	pg := after.Pages["p1"]
	pg.Name = "Renamed"
	after.Pages["p1"] = pg

	p := Docs(before, after)
	require.Len(t, p.Upserts.Pages, 1)
	assert.Equal(t, "Renamed", p.Upserts.Pages[0].Name)
	assert.Nil(t, p.Order, "rename must not emit order changes")
}

func TestDocsReorderOnly(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	pg := after.Pages["p1"]
	pg.ShapeIDs = []string{"a1", "r1"}
	after.Pages["p1"] = pg

	p := Docs(before, after)
	assert.Empty(t, p.Upserts.Pages, "reorder must not rewrite page records")
	assert.Empty(t, p.Upserts.Shapes)
	require.NotNil(t, p.Order)
	assert.Equal(t, []string{"a1", "r1"}, p.Order.ShapeOrder["p1"])
}

func TestDocsPageAdded(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	after.Pages["p2"] = domain.Page{ID: "p2", Name: "Page 2", ShapeIDs: []string{}}
	after.PageOrder = []string{"p1", "p2"}

	p := Docs(before, after)
	require.Len(t, p.Upserts.Pages, 1)
	assert.Equal(t, "p2", p.Upserts.Pages[0].ID)
	require.NotNil(t, p.Order)
	assert.Equal(t, []string{"p1", "p2"}, p.Order.PageIDs)
}

func TestDocsBindingChange(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	b := after.Bindings["b1"]
	b.Anchor = domain.Anchor{Kind: domain.AnchorEdge, DX: 0.5, DY: -0.5}
	after.Bindings["b1"] = b

	p := Docs(before, after)
	require.Len(t, p.Upserts.Bindings, 1)
	assert.Equal(t, domain.AnchorEdge, p.Upserts.Bindings[0].Anchor.Kind)
}

func TestDocsDeterministic(t *testing.T) {
	before := baseDoc()
	after := before.Clone()
	delete(after.Shapes, "r1")
	delete(after.Bindings, "b1")
	after.Shapes["t1"] = domain.Text{
		ShapeBase: domain.ShapeBase{ID: "t1", PageID: "p1"},
		Text:      "note",
		Style:     domain.Style{Opacity: 1},
	}
	pg := after.Pages["p1"]
	pg.ShapeIDs = []string{"a1", "t1"}
	after.Pages["p1"] = pg

	first := Docs(before, after)
	for i := 0; i < 20; i++ {
		assert.True(t, reflect.DeepEqual(first, Docs(before, after)), "patch contents must be deterministic")
	}
}

// The defining guarantee: replaying the patch onto the before snapshot
// reproduces the after snapshot exactly, whichever direction is diffed.
func TestDocsRoundTrip(t *testing.T) {
	steps := []struct {
		name   string
		mutate func(domain.Document) domain.Document
	}{
		{"move shape", func(d domain.Document) domain.Document {
			r := d.Shapes["r1"].(domain.Rect)
			r.X, r.Y = 500, -20
			d.Shapes["r1"] = r
			return d
		}},
		{"add stroke", func(d domain.Document) domain.Document {
			d.Shapes["k1"] = domain.Stroke{
				ShapeBase: domain.ShapeBase{ID: "k1", PageID: "p1"},
				Points:    []domain.Point{{X: 1, Y: 1}, {X: 2, Y: 3}},
				Size:      4,
				Style:     domain.Style{Opacity: 0.5},
			}
			pg := d.Pages["p1"]
			pg.ShapeIDs = append(pg.ShapeIDs, "k1")
			d.Pages["p1"] = pg
			return d
		}},
		{"add page and move shape onto it", func(d domain.Document) domain.Document {
			d.Pages["p2"] = domain.Page{ID: "p2", Name: "Page 2", ShapeIDs: []string{"k1"}}
			d.PageOrder = append(d.PageOrder, "p2")
			k := d.Shapes["k1"].(domain.Stroke)
			k.PageID = "p2"
			d.Shapes["k1"] = k
			pg := d.Pages["p1"]
			pg.ShapeIDs = []string{"r1", "a1"}
			d.Pages["p1"] = pg
			return d
		}},
		{"reorder pages", func(d domain.Document) domain.Document {
			d.PageOrder = []string{"p2", "p1"}
			return d
		}},
		{"delete binding and arrow", func(d domain.Document) domain.Document {
			delete(d.Bindings, "b1")
			delete(d.Shapes, "a1")
			pg := d.Pages["p1"]
			pg.ShapeIDs = []string{"r1"}
			d.Pages["p1"] = pg
			return d
		}},
		{"delete page two", func(d domain.Document) domain.Document {
			delete(d.Shapes, "k1")
			delete(d.Pages, "p2")
			d.PageOrder = []string{"p1"}
			return d
		}},
	}

	before := baseDoc()
	for _, step := range steps {
		after := step.mutate(before.Clone())
		require.NoError(t, domain.ValidateDoc(after), step.name)

		applied := domain.ApplyPatch(before, Docs(before, after))
		require.True(t, reflect.DeepEqual(applied, after),
			"%s: forward round trip mismatch\n got %#v\nwant %#v", step.name, applied, after)

		reverted := domain.ApplyPatch(after, Docs(after, before))
		require.True(t, reflect.DeepEqual(reverted, before),
			"%s: reverse round trip mismatch", step.name)

		before = after
	}
}
