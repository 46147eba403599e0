package domain

import "github.com/brunoga/deep"

// Document is one board's full content, keyed by record id. PageOrder is the
// page sequence; like each page's z-order it is persisted through the order
// table, not on a record, so it stays out of the document's JSON form.
type Document struct {
	Pages     map[string]Page    `json:"pages"`
	Shapes    ShapeMap           `json:"shapes"`
	Bindings  map[string]Binding `json:"bindings"`
	PageOrder []string           `json:"-"`
}

// EmptyDocument returns a document with every collection allocated. Keeping
// collections non-nil is an invariant the rest of the engine relies on.
func EmptyDocument() Document {
	return Document{
		Pages:     map[string]Page{},
		Shapes:    ShapeMap{},
		Bindings:  map[string]Binding{},
		PageOrder: []string{},
	}
}

// NewDocument returns an empty document seeded with a single page.
func NewDocument(pageID, pageName string) Document {
	doc := EmptyDocument()
	doc.Pages[pageID] = Page{ID: pageID, Name: pageName, ShapeIDs: []string{}}
	doc.PageOrder = []string{pageID}
	return doc
}

func (d Document) Clone() Document {
	return deep.MustCopy(d)
}
