package domain

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ValidationError aggregates every integrity violation found in a document.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("document validation failed: %s", strings.Join(e.Violations, "; "))
}

// ValidateDoc checks referential integrity and per-variant field ranges. It
// collects every violation instead of stopping at the first one and never
// repairs anything. Violations are reported in a stable order. A nil return
// means the document is well formed.
func ValidateDoc(doc Document) error {
	var v []string

	pageIDs := slices.Sorted(maps.Keys(doc.Pages))
	for _, pid := range pageIDs {
		pg := doc.Pages[pid]
		seen := map[string]bool{}
		for _, sid := range pg.ShapeIDs {
			if seen[sid] {
				v = append(v, fmt.Sprintf("page %s lists shape %s more than once", pid, sid))
				continue
			}
			seen[sid] = true
			s, ok := doc.Shapes[sid]
			if !ok {
				v = append(v, fmt.Sprintf("page %s references missing shape %s", pid, sid))
				continue
			}
			if owner := s.Common().PageID; owner != pid {
				v = append(v, fmt.Sprintf("page %s lists shape %s owned by page %s", pid, sid, owner))
			}
		}
	}

	shapeIDs := slices.Sorted(maps.Keys(doc.Shapes))
	for _, sid := range shapeIDs {
		s := doc.Shapes[sid]
		base := s.Common()
		if base.ID != sid {
			v = append(v, fmt.Sprintf("shape %s stored under key %s", base.ID, sid))
		}
		if pg, ok := doc.Pages[base.PageID]; !ok {
			v = append(v, fmt.Sprintf("shape %s references missing page %s", sid, base.PageID))
		} else if !slices.Contains(pg.ShapeIDs, sid) {
			v = append(v, fmt.Sprintf("shape %s not listed on page %s", sid, base.PageID))
		}
		v = append(v, validateShapeFields(s)...)
	}

	counts := map[string]int{}
	for _, pid := range doc.PageOrder {
		counts[pid]++
		if _, ok := doc.Pages[pid]; !ok {
			v = append(v, fmt.Sprintf("page order references missing page %s", pid))
		}
	}
	for _, pid := range pageIDs {
		switch counts[pid] {
		case 0:
			v = append(v, fmt.Sprintf("page order missing page %s", pid))
		case 1:
		default:
			v = append(v, fmt.Sprintf("page order lists page %s more than once", pid))
		}
	}

	bindingIDs := slices.Sorted(maps.Keys(doc.Bindings))
	for _, bid := range bindingIDs {
		b := doc.Bindings[bid]
		if from, ok := doc.Shapes[b.FromShapeID]; !ok {
			v = append(v, fmt.Sprintf("binding %s references missing shape %s", bid, b.FromShapeID))
		} else if from.Type() != ShapeArrow {
			v = append(v, fmt.Sprintf("binding %s source %s is a %s, not an arrow", bid, b.FromShapeID, from.Type()))
		}
		if _, ok := doc.Shapes[b.ToShapeID]; !ok {
			v = append(v, fmt.Sprintf("binding %s references missing shape %s", bid, b.ToShapeID))
		}
		if b.Handle != HandleStart && b.Handle != HandleEnd {
			v = append(v, fmt.Sprintf("binding %s handle %q invalid", bid, b.Handle))
		}
		switch b.Anchor.Kind {
		case AnchorCenter:
		case AnchorEdge:
			if b.Anchor.DX < -1 || b.Anchor.DX > 1 || b.Anchor.DY < -1 || b.Anchor.DY > 1 {
				v = append(v, fmt.Sprintf("binding %s edge anchor offset (%g, %g) outside [-1,1]", bid, b.Anchor.DX, b.Anchor.DY))
			}
		default:
			v = append(v, fmt.Sprintf("binding %s anchor kind %q invalid", bid, b.Anchor.Kind))
		}
	}

	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}

func validateShapeFields(s Shape) []string {
	id := s.Common().ID
	var v []string
	style := func(st Style) {
		if st.Width < 0 {
			v = append(v, fmt.Sprintf("shape %s stroke width %g negative", id, st.Width))
		}
		if st.Opacity < 0 || st.Opacity > 1 {
			v = append(v, fmt.Sprintf("shape %s opacity %g outside [0,1]", id, st.Opacity))
		}
	}
	switch t := s.(type) {
	case Rect:
		if t.W < 0 || t.H < 0 {
			v = append(v, fmt.Sprintf("shape %s size %gx%g negative", id, t.W, t.H))
		}
		style(t.Style)
	case Ellipse:
		if t.W < 0 || t.H < 0 {
			v = append(v, fmt.Sprintf("shape %s size %gx%g negative", id, t.W, t.H))
		}
		style(t.Style)
	case Line:
		if len(t.Points) < 2 {
			v = append(v, fmt.Sprintf("shape %s has %d points, needs at least 2", id, len(t.Points)))
		}
		style(t.Style)
	case Arrow:
		if len(t.Points) < 2 {
			v = append(v, fmt.Sprintf("shape %s has %d points, needs at least 2", id, len(t.Points)))
		}
		if t.LabelAlign != AlignCenter && t.LabelAlign != AlignStart && t.LabelAlign != AlignEnd {
			v = append(v, fmt.Sprintf("shape %s label alignment %q invalid", id, t.LabelAlign))
		}
		style(t.Style)
	case Text:
		if t.W < 0 {
			v = append(v, fmt.Sprintf("shape %s wrap width %g negative", id, t.W))
		}
		if t.Size < 0 {
			v = append(v, fmt.Sprintf("shape %s font size %g negative", id, t.Size))
		}
		style(t.Style)
	case Markdown:
		if t.W < 0 || t.H < 0 {
			v = append(v, fmt.Sprintf("shape %s size %gx%g negative", id, t.W, t.H))
		}
		style(t.Style)
	case Stroke:
		if len(t.Points) == 0 {
			v = append(v, fmt.Sprintf("shape %s stroke has no points", id))
		}
		if t.Size < 0 {
			v = append(v, fmt.Sprintf("shape %s pen size %g negative", id, t.Size))
		}
		style(t.Style)
	default:
		v = append(v, fmt.Sprintf("shape %s has unknown type %q", id, s.Type()))
	}
	return v
}
