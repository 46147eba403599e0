package domain

import "github.com/brunoga/deep"

// Camera is the viewport transform for the active page.
type Camera struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// UIState is in-session editor state. It is undoable but never persisted.
type UIState struct {
	CurrentPageID string   `json:"currentPageId"`
	SelectionIDs  []string `json:"selectionIds"`
	ToolID        string   `json:"toolId"`
}

// State is the complete editor snapshot handed to the frontend for
// rendering. Transitions replace it wholesale; nothing mutates it in place.
type State struct {
	Doc    Document `json:"doc"`
	Camera Camera   `json:"camera"`
	UI     UIState  `json:"ui"`
}

// NewState builds the initial state for a loaded document. The current page
// defaults to the first page in order.
func NewState(doc Document) State {
	current := ""
	if len(doc.PageOrder) > 0 {
		current = doc.PageOrder[0]
	}
	return State{
		Doc:    doc,
		Camera: Camera{Zoom: 1},
		UI: UIState{
			CurrentPageID: current,
			SelectionIDs:  []string{},
			ToolID:        "select",
		},
	}
}

func (s State) Clone() State {
	return deep.MustCopy(s)
}
