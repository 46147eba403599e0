package domain

type BindingHandle string

const (
	HandleStart BindingHandle = "start"
	HandleEnd   BindingHandle = "end"
)

type AnchorKind string

const (
	AnchorCenter AnchorKind = "center"
	AnchorEdge   AnchorKind = "edge"
)

// Anchor positions a bound arrow endpoint on its target shape. Edge anchors
// use offsets normalized to [-1, 1] from the target's center.
type Anchor struct {
	Kind AnchorKind `json:"kind"`
	DX   float64    `json:"dx"`
	DY   float64    `json:"dy"`
}

// Binding ties one endpoint of an arrow to a target shape so the arrow
// follows the target when it moves.
type Binding struct {
	ID          string        `json:"id"`
	FromShapeID string        `json:"fromShapeId"`
	ToShapeID   string        `json:"toShapeId"`
	Handle      BindingHandle `json:"handle"`
	Anchor      Anchor        `json:"anchor"`
}
