package domain

import (
	"fmt"

	"github.com/goccy/go-json"
)

type ShapeType string

const (
	ShapeRect     ShapeType = "rect"
	ShapeEllipse  ShapeType = "ellipse"
	ShapeLine     ShapeType = "line"
	ShapeArrow    ShapeType = "arrow"
	ShapeText     ShapeType = "text"
	ShapeMarkdown ShapeType = "markdown"
	ShapeStroke   ShapeType = "stroke"
)

type Align string

const (
	AlignCenter Align = "center"
	AlignStart  Align = "start"
	AlignEnd    Align = "end"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Style struct {
	Color   string  `json:"color"`
	Fill    string  `json:"fill"`
	Width   float64 `json:"width"`
	Opacity float64 `json:"opacity"`
}

// ShapeBase carries the fields every variant shares.
type ShapeBase struct {
	ID     string  `json:"id"`
	PageID string  `json:"pageId"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Rot    float64 `json:"rot"`
}

func (b ShapeBase) Common() ShapeBase { return b }

func (ShapeBase) shape() {}

// Shape is the closed set of canvas record variants. Each variant embeds
// ShapeBase and serializes through MarshalShape/UnmarshalShape, which fold a
// "type" discriminator into the JSON object.
type Shape interface {
	Type() ShapeType
	Common() ShapeBase
	shape()
}

type Rect struct {
	ShapeBase
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Style Style   `json:"style"`
}

func (Rect) Type() ShapeType { return ShapeRect }

type Ellipse struct {
	ShapeBase
	W     float64 `json:"w"`
	H     float64 `json:"h"`
	Style Style   `json:"style"`
}

func (Ellipse) Type() ShapeType { return ShapeEllipse }

type Line struct {
	ShapeBase
	Points []Point `json:"points"`
	Style  Style   `json:"style"`
}

func (Line) Type() ShapeType { return ShapeLine }

type Arrow struct {
	ShapeBase
	Points     []Point `json:"points"`
	Label      string  `json:"label"`
	LabelAlign Align   `json:"labelAlign"`
	Style      Style   `json:"style"`
}

func (Arrow) Type() ShapeType { return ShapeArrow }

type Text struct {
	ShapeBase
	Text  string  `json:"text"`
	W     float64 `json:"w"`
	Size  float64 `json:"size"`
	Style Style   `json:"style"`
}

func (Text) Type() ShapeType { return ShapeText }

type Markdown struct {
	ShapeBase
	Source string  `json:"source"`
	W      float64 `json:"w"`
	H      float64 `json:"h"`
	Style  Style   `json:"style"`
}

func (Markdown) Type() ShapeType { return ShapeMarkdown }

type Stroke struct {
	ShapeBase
	Points []Point `json:"points"`
	Size   float64 `json:"size"`
	Style  Style   `json:"style"`
}

func (Stroke) Type() ShapeType { return ShapeStroke }

// MarshalShape serializes a shape with its type discriminator folded in.
func MarshalShape(s Shape) ([]byte, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal %s shape: %w", s.Type(), err)
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("reshape %s shape: %w", s.Type(), err)
	}
	fields["type"] = string(s.Type())
	return json.Marshal(fields)
}

// UnmarshalShape decodes a shape envelope back into its concrete variant.
func UnmarshalShape(data []byte) (Shape, error) {
	var head struct {
		Type ShapeType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("read shape type: %w", err)
	}
	switch head.Type {
	case ShapeRect:
		return decodeShape[Rect](data)
	case ShapeEllipse:
		return decodeShape[Ellipse](data)
	case ShapeLine:
		return decodeShape[Line](data)
	case ShapeArrow:
		return decodeShape[Arrow](data)
	case ShapeText:
		return decodeShape[Text](data)
	case ShapeMarkdown:
		return decodeShape[Markdown](data)
	case ShapeStroke:
		return decodeShape[Stroke](data)
	default:
		return nil, fmt.Errorf("unknown shape type %q", head.Type)
	}
}

func decodeShape[T Shape](data []byte) (Shape, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s shape: %w", v.Type(), err)
	}
	return v, nil
}

// ShapeMap keys shapes by id and carries the type discriminator through JSON.
type ShapeMap map[string]Shape

func (m ShapeMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(m))
	for id, s := range m {
		raw, err := MarshalShape(s)
		if err != nil {
			return nil, err
		}
		out[id] = raw
	}
	return json.Marshal(out)
}

func (m *ShapeMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ShapeMap, len(raw))
	for id, msg := range raw {
		s, err := UnmarshalShape(msg)
		if err != nil {
			return fmt.Errorf("shape %s: %w", id, err)
		}
		out[id] = s
	}
	*m = out
	return nil
}
