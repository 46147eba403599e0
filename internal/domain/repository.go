package domain

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// Repository is the storage contract the engine depends on. ApplyDocPatch
// must be atomic per call; a board's UpdatedAt is touched by every write.
// Callers wanting a sorted board list sort by UpdatedAt themselves.
type Repository interface {
	ListBoards(ctx context.Context) ([]Board, error)
	CreateBoard(ctx context.Context, name string) (Board, error)
	LoadDoc(ctx context.Context, boardID string) (Document, error)
	ApplyDocPatch(ctx context.Context, boardID string, patch Patch) error
	ExportBoard(ctx context.Context, boardID string) (BoardFile, error)
	ImportBoard(ctx context.Context, file BoardFile) (Board, error)
	RenameBoard(ctx context.Context, boardID, name string) error
	DeleteBoard(ctx context.Context, boardID string) error
}

// DocOrder is the order section of an exported board: the page sequence plus
// each page's z-order.
type DocOrder struct {
	PageIDs    []string            `json:"pageIds"`
	ShapeOrder map[string][]string `json:"shapeOrder"`
}

// BoardFile is the whole-board exchange format used by export, import and
// the workspace adapter's on-disk files.
type BoardFile struct {
	Board Board    `json:"board"`
	Doc   Document `json:"doc"`
	Order DocOrder `json:"order"`
}

// NewBoardFile snapshots a board and its document into the exchange format.
func NewBoardFile(b Board, doc Document) BoardFile {
	order := DocOrder{
		PageIDs:    slices.Clone(doc.PageOrder),
		ShapeOrder: make(map[string][]string, len(doc.Pages)),
	}
	for id, pg := range doc.Pages {
		order.ShapeOrder[id] = slices.Clone(pg.ShapeIDs)
	}
	return BoardFile{Board: b, Doc: doc.Clone(), Order: order}
}

// Document reassembles the file's order section into the document's live
// sequence fields, which the JSON form does not carry.
func (f BoardFile) Document() Document {
	doc := f.Doc.Clone()
	doc.PageOrder = slices.Clone(f.Order.PageIDs)
	if doc.PageOrder == nil {
		doc.PageOrder = []string{}
	}
	for id, seq := range f.Order.ShapeOrder {
		pg, ok := doc.Pages[id]
		if !ok {
			continue
		}
		pg.ShapeIDs = slices.Clone(seq)
		doc.Pages[id] = pg
	}
	for id, pg := range doc.Pages {
		if pg.ShapeIDs == nil {
			pg.ShapeIDs = []string{}
			doc.Pages[id] = pg
		}
	}
	return doc
}
