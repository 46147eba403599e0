package editor

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkfinite/internal/domain"
)

func rect(id, pageID string, x float64) domain.Shape {
	return domain.Rect{
		ShapeBase: domain.ShapeBase{ID: id, PageID: pageID, X: x},
		W:         100,
		H:         50,
		Style:     domain.Style{Opacity: 1},
	}
}

func arrow(id, pageID string) domain.Shape {
	return domain.Arrow{
		ShapeBase:  domain.ShapeBase{ID: id, PageID: pageID},
		Points:     []domain.Point{{X: 0, Y: 0}, {X: 10, Y: 10}},
		LabelAlign: domain.AlignCenter,
		Style:      domain.Style{Opacity: 1},
	}
}

func emptyState() domain.State {
	return domain.NewState(domain.NewDocument("p1", "Page 1"))
}

// richState has two pages, two shapes, a binding and a selection, so every
// command type has something to operate on.
func richState() domain.State {
	st := emptyState()
	st = CreateShape(rect("r1", "p1", 10)).Do(st)
	st = CreateShape(arrow("a1", "p1")).Do(st)
	st = CreateBinding(domain.Binding{
		ID:          "b1",
		FromShapeID: "a1",
		ToShapeID:   "r1",
		Handle:      domain.HandleEnd,
		Anchor:      domain.Anchor{Kind: domain.AnchorCenter},
	}).Do(st)
	st = CreatePage("p2", "Page 2").Do(st)
	st = SetSelection(nil, []string{"r1"}).Do(st)
	return st
}

func TestStoreCreateRectScenario(t *testing.T) {
	store := New(emptyState())
	require.Empty(t, store.State().Doc.Shapes)

	store.Execute(CreateShape(rect("r1", "p1", 0)))

	info := store.History()
	assert.Equal(t, 1, info.UndoDepth)
	assert.Len(t, store.State().Doc.Shapes, 1)

	require.True(t, store.Undo())
	assert.Empty(t, store.State().Doc.Shapes)

	require.True(t, store.Redo())
	require.Len(t, store.State().Doc.Shapes, 1)
	_, ok := store.State().Doc.Shapes["r1"]
	assert.True(t, ok, "redo must restore the shape under its original id")
}

func TestUndoRedoInverseLaw(t *testing.T) {
	st := richState()
	require.NoError(t, domain.ValidateDoc(st.Doc))

	moved := rect("r1", "p1", 250)
	cmds := []Command{
		CreateShape(rect("r9", "p2", 5)),
		UpdateShape(st.Doc.Shapes["r1"], moved),
		DeleteShapes(st, []string{"a1"}),
		CreatePage("p3", "Page 3"),
		RenamePage("p1", "Page 1", "Cover"),
		DeletePage(st, "p2"),
		ReorderShapes("p1", []string{"r1", "a1"}, []string{"a1", "r1"}),
		ReorderPages([]string{"p1", "p2"}, []string{"p2", "p1"}),
		CreateBinding(domain.Binding{ID: "b2", FromShapeID: "a1", ToShapeID: "r1", Handle: domain.HandleStart, Anchor: domain.Anchor{Kind: domain.AnchorCenter}}),
		DeleteBinding(st, "b1"),
		SetCamera(st.Camera, domain.Camera{X: 40, Y: -10, Zoom: 2}),
		SetSelection([]string{"r1"}, []string{"r1", "a1"}),
		SetTool("select", "pen"),
		SetCurrentPage("p1", "p2"),
	}

	for _, cmd := range cmds {
		after := cmd.Do(st)
		back := cmd.Undo(after)
		require.True(t, reflect.DeepEqual(back, st),
			"%s: undo(do(s)) != s\n got %#v\nwant %#v", cmd.Label(), back, st)
	}
}

func TestCommandsAreDefensive(t *testing.T) {
	st := emptyState()

	// Shape aimed at a page that does not exist.
	out := CreateShape(rect("r1", "p-gone", 0)).Do(st)
	assert.True(t, reflect.DeepEqual(out, st), "create onto missing page must be a no-op")

	// Update of a shape that was deleted meanwhile.
	out = UpdateShape(rect("rx", "p1", 0), rect("rx", "p1", 9)).Do(st)
	assert.True(t, reflect.DeepEqual(out, st))

	// Binding whose source is not an arrow.
	withRect := CreateShape(rect("r1", "p1", 0)).Do(st)
	out = CreateBinding(domain.Binding{ID: "b1", FromShapeID: "r1", ToShapeID: "r1"}).Do(withRect)
	assert.True(t, reflect.DeepEqual(out, withRect))

	// Executing a no-op command still records history without corrupting it.
	store := New(st)
	store.Execute(CreateShape(rect("r1", "p-gone", 0)))
	assert.Equal(t, 1, store.History().UndoDepth)
	assert.True(t, reflect.DeepEqual(store.State(), st))
	assert.True(t, store.Undo())
	assert.True(t, reflect.DeepEqual(store.State(), st))
}

func TestExecuteClearsRedo(t *testing.T) {
	store := New(emptyState())
	store.Execute(CreateShape(rect("r1", "p1", 0)))
	store.Execute(CreateShape(rect("r2", "p1", 10)))
	require.True(t, store.Undo())
	require.True(t, store.CanRedo())

	store.Execute(CreateShape(rect("r3", "p1", 20)))
	assert.False(t, store.CanRedo(), "a new command must clear the redo stack")
	assert.Equal(t, 2, store.History().UndoDepth)
}

func TestUndoRedoOnEmptyStacks(t *testing.T) {
	store := New(emptyState())
	assert.False(t, store.Undo())
	assert.False(t, store.Redo())
}

func TestHistoryEvents(t *testing.T) {
	var events []HistoryEvent
	store := New(emptyState(), WithHistoryHook(func(ev HistoryEvent) {
		events = append(events, ev)
	}))

	store.Execute(CreateShape(rect("r1", "p1", 0)))
	store.Execute(SetCamera(domain.Camera{Zoom: 1}, domain.Camera{Zoom: 2}))
	store.Execute(SetTool("select", "pen"))
	store.Undo()
	store.Redo()

	require.Len(t, events, 5)
	assert.Equal(t, OpDo, events[0].Op)
	assert.Equal(t, KindDoc, events[0].Kind)
	assert.Equal(t, KindCamera, events[1].Kind)
	assert.Equal(t, KindUI, events[2].Kind)
	assert.Equal(t, OpUndo, events[3].Op)
	assert.Equal(t, KindUI, events[3].Kind)
	assert.Equal(t, OpRedo, events[4].Op)

	assert.Empty(t, events[0].Before.Doc.Shapes)
	assert.Len(t, events[0].After.Doc.Shapes, 1)
}

func TestSubscribersRunInRegistrationOrder(t *testing.T) {
	store := New(emptyState())
	var order []string
	store.Subscribe(func(domain.State) { order = append(order, "first") })
	store.Subscribe(func(domain.State) { order = append(order, "second") })

	store.Execute(SetTool("select", "pen"))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestUnsubscribeStopsNotifications(t *testing.T) {
	store := New(emptyState())
	calls := 0
	unsub := store.Subscribe(func(domain.State) { calls++ })

	store.Execute(SetTool("select", "pen"))
	unsub()
	store.Execute(SetTool("pen", "select"))

	assert.Equal(t, 1, calls)
}

func TestReentrantExecutePanics(t *testing.T) {
	store := New(emptyState())
	store.Subscribe(func(domain.State) {
		store.Execute(SetTool("select", "pen"))
	})

	assert.Panics(t, func() {
		store.Execute(CreateShape(rect("r1", "p1", 0)))
	})
}

func TestReentrantExecuteFromHookPanics(t *testing.T) {
	var store *Store
	store = New(emptyState(), WithHistoryHook(func(HistoryEvent) {
		store.Undo()
	}))

	assert.Panics(t, func() {
		store.Execute(SetTool("select", "pen"))
	})
}

func TestHistoryDepthPrunesOldest(t *testing.T) {
	store := New(emptyState(), WithHistoryDepth(3))
	for i := 0; i < 5; i++ {
		store.Execute(SetCamera(domain.Camera{Zoom: float64(i + 1)}, domain.Camera{Zoom: float64(i + 2)}))
	}

	assert.Equal(t, 3, store.History().UndoDepth)
	assert.True(t, store.Undo())
	assert.True(t, store.Undo())
	assert.True(t, store.Undo())
	assert.False(t, store.Undo(), "pruned entries must not be undoable")
	assert.InDelta(t, 3.0, store.State().Camera.Zoom, 1e-9)
}
