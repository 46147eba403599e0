package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkfinite/internal/domain"
	"inkfinite/internal/service"
	"inkfinite/internal/storage"
)

type boardFixture struct {
	repo     *storage.Memory
	settings *service.SettingsService
	emitter  *service.MockEmitter
	boards   *service.BoardService
}

func newBoardFixture(t *testing.T) *boardFixture {
	t.Helper()
	repo := storage.NewMemory()
	settings := service.NewSettingsService(filepath.Join(t.TempDir(), "settings.json"))
	emitter := &service.MockEmitter{}
	return &boardFixture{
		repo:     repo,
		settings: settings,
		emitter:  emitter,
		boards:   service.NewBoardService(repo, settings, emitter),
	}
}

func TestCreateBoardNormalizesName(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	// Decomposed input: 'e' followed by a combining acute accent.
	b, err := f.boards.CreateBoard(ctx, "Café plan")
	require.NoError(t, err)
	assert.Equal(t, "Café plan", b.Name)

	created := f.emitter.Named(service.EventBoardCreated)
	require.Len(t, created, 1)
	got, ok := created[0].Data.(domain.Board)
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, []string{b.ID}, f.settings.RecentBoards())
}

func TestCreateBoardDefaultsEmptyName(t *testing.T) {
	f := newBoardFixture(t)

	b, err := f.boards.CreateBoard(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", b.Name)
}

func TestListBoardsNewestFirst(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	first, err := f.boards.CreateBoard(ctx, "First")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := f.boards.CreateBoard(ctx, "Second")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	third, err := f.boards.CreateBoard(ctx, "Third")
	require.NoError(t, err)

	boards, err := f.boards.ListBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID},
		[]string{boards[0].ID, boards[1].ID, boards[2].ID})

	// Touching a board moves it to the front.
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, f.boards.RenameBoard(ctx, first.ID, "First again"))
	boards, err = f.boards.ListBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID, boards[0].ID)
}

func TestRenameBoardNormalizesAndEmits(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	b, err := f.boards.CreateBoard(ctx, "Plain")
	require.NoError(t, err)
	require.NoError(t, f.boards.RenameBoard(ctx, b.ID, "Résumé"))

	boards, err := f.boards.ListBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Résumé", boards[0].Name)

	renamed := f.emitter.Named(service.EventBoardRenamed)
	require.Len(t, renamed, 1)
	payload, ok := renamed[0].Data.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, b.ID, payload["id"])
	assert.Equal(t, "Résumé", payload["name"])
}

func TestDeleteBoardScrubsRecents(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	b, err := f.boards.CreateBoard(ctx, "Doomed")
	require.NoError(t, err)
	require.Equal(t, []string{b.ID}, f.settings.RecentBoards())

	require.NoError(t, f.boards.DeleteBoard(ctx, b.ID))
	assert.Empty(t, f.settings.RecentBoards())
	require.Len(t, f.emitter.Named(service.EventBoardDeleted), 1)

	err = f.boards.DeleteBoard(ctx, b.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecentBoardsDropStaleIDs(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	a, err := f.boards.CreateBoard(ctx, "Keep")
	require.NoError(t, err)
	gone, err := f.boards.CreateBoard(ctx, "Gone")
	require.NoError(t, err)

	// Delete behind the service's back so the recent list goes stale.
	require.NoError(t, f.repo.DeleteBoard(ctx, gone.ID))

	recents, err := f.boards.RecentBoards(ctx)
	require.NoError(t, err)
	require.Len(t, recents, 1)
	assert.Equal(t, a.ID, recents[0].ID)
}

func TestExportImportFileRoundTrip(t *testing.T) {
	f := newBoardFixture(t)
	ctx := context.Background()

	b, err := f.boards.CreateBoard(ctx, "Source")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "source.inkfinite.json")
	require.NoError(t, f.boards.ExportToFile(ctx, b.ID, path))

	imported, err := f.boards.ImportFromFile(ctx, path)
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, imported.ID)
	assert.Equal(t, "Source", imported.Name)

	want, err := f.repo.LoadDoc(ctx, b.ID)
	require.NoError(t, err)
	got, err := f.repo.LoadDoc(ctx, imported.ID)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// goldenBoardFile is a fixed snapshot exercising every record kind, used to
// pin the on-disk export format.
func goldenBoardFile() domain.BoardFile {
	doc := domain.EmptyDocument()
	doc.Pages["p-1"] = domain.Page{ID: "p-1", Name: "Sketch", ShapeIDs: []string{"s-rect", "s-arrow"}}
	doc.PageOrder = []string{"p-1"}
	doc.Shapes["s-rect"] = domain.Rect{
		ShapeBase: domain.ShapeBase{ID: "s-rect", PageID: "p-1", X: 10, Y: 20},
		W:         200,
		H:         100,
		Style:     domain.Style{Color: "#1d1d1d", Fill: "#ffd43b", Width: 2, Opacity: 1},
	}
	doc.Shapes["s-arrow"] = domain.Arrow{
		ShapeBase:  domain.ShapeBase{ID: "s-arrow", PageID: "p-1", X: 40, Y: 60},
		Points:     []domain.Point{{X: 0, Y: 0}, {X: 120, Y: 80}},
		Label:      "flow",
		LabelAlign: domain.AlignCenter,
		Style:      domain.Style{Color: "#1d1d1d", Fill: "none", Width: 2, Opacity: 1},
	}
	doc.Bindings["b-1"] = domain.Binding{
		ID:          "b-1",
		FromShapeID: "s-arrow",
		ToShapeID:   "s-rect",
		Handle:      domain.HandleEnd,
		Anchor:      domain.Anchor{Kind: domain.AnchorCenter},
	}
	board := domain.Board{
		ID:        "board-golden",
		Name:      "Golden board",
		CreatedAt: time.Date(2024, 5, 20, 9, 30, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC),
	}
	return domain.NewBoardFile(board, doc)
}

func TestEncodeBoardFileGolden(t *testing.T) {
	data, err := service.EncodeBoardFile(goldenBoardFile())
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "board_export", data)
}

func TestDecodeBoardFileRoundTrip(t *testing.T) {
	file := goldenBoardFile()
	data, err := service.EncodeBoardFile(file)
	require.NoError(t, err)

	decoded, err := service.DecodeBoardFile(data)
	require.NoError(t, err)
	assert.Equal(t, file.Board, decoded.Board)
	assert.Equal(t, file.Order, decoded.Order)

	// Reassembling the order section restores the live document.
	want := file.Document()
	assert.Equal(t, want, decoded.Document())
}
