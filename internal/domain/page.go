package domain

// Page is a single canvas surface. ShapeIDs is the z-order, back to front.
// The sequence is persisted in the order table rather than on the page
// record, so it stays out of the record's JSON form.
type Page struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ShapeIDs []string `json:"-"`
}

// Record returns the page stripped to its persisted fields.
func (p Page) Record() Page {
	return Page{ID: p.ID, Name: p.Name}
}
