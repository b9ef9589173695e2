package render

import (
	"cropmap_service/internal/domain/model"
)

type LayerKind string

const (
	LayerHeat     LayerKind = "heat"
	LayerTimeHeat LayerKind = "time_heat"
	LayerCircles  LayerKind = "circles"
	LayerPins     LayerKind = "pins"
)

// HeatOptions mirrors the leaflet.heat options the views use. Zero values are
// omitted so the plugin defaults apply.
type HeatOptions struct {
	MinOpacity float64           `json:"minOpacity,omitempty"`
	MaxOpacity float64           `json:"maxOpacity,omitempty"`
	Radius     int               `json:"radius,omitempty"`
	Blur       int               `json:"blur,omitempty"`
	Gradient   map[string]string `json:"gradient,omitempty"`
}

// Marker is a circle or pin. Tooltip and Popup are HTML and must already be
// escaped by the caller.
type Marker struct {
	Location    model.Coordinate `json:"location"`
	Radius      int              `json:"radius,omitempty"`
	Color       string           `json:"color,omitempty"`
	FillOpacity float64          `json:"fillOpacity,omitempty"`
	Tooltip     string           `json:"tooltip,omitempty"`
	Popup       string           `json:"popup,omitempty"`
	Icon        string           `json:"icon,omitempty"`
	IconColor   string           `json:"iconColor,omitempty"`
}

type Layer struct {
	Kind     LayerKind     `json:"kind"`
	Name     string        `json:"name,omitempty"`
	Group    string        `json:"group,omitempty"`
	Heat     HeatOptions   `json:"heat"`
	Points   [][]float64   `json:"points,omitempty"`
	Frames   [][][]float64 `json:"frames,omitempty"`
	Labels   []string      `json:"labels,omitempty"`
	AutoPlay bool          `json:"autoPlay,omitempty"`
	Markers  []Marker      `json:"markers,omitempty"`
}

// Map is the object graph handed to the browser. It only ever holds finite
// coordinates; everything else is dropped while layers are added.
type Map struct {
	Center        model.Coordinate `json:"center"`
	Zoom          int              `json:"zoom"`
	Layers        []Layer          `json:"layers"`
	LayerControl  bool             `json:"layerControl"`
	ControlExpand bool             `json:"controlExpanded"`
}

func NewMap(center model.Coordinate, zoom int) *Map {
	return &Map{Center: center, Zoom: zoom, Layers: []Layer{}}
}

// AddHeat adds an unweighted heat layer. A non-empty group puts the layer
// in the layer control under that group.
func (m *Map) AddHeat(name, group string, points []model.Coordinate, opts HeatOptions) *Map {
	m.Layers = append(m.Layers, Layer{
		Kind:   LayerHeat,
		Name:   name,
		Group:  group,
		Heat:   opts,
		Points: pairs(points),
	})
	return m
}

func (m *Map) AddWeightedHeat(name string, points []model.WeightedPoint, opts HeatOptions) *Map {
	triples := make([][]float64, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			triples = append(triples, []float64{p.Lat, p.Lon, p.Weight})
		}
	}
	m.Layers = append(m.Layers, Layer{
		Kind:   LayerHeat,
		Name:   name,
		Heat:   opts,
		Points: triples,
	})
	return m
}

// AddTimeHeat adds a heat layer stepped through frames, one per label.
// Frames stay aligned with labels even when a frame ends up empty.
func (m *Map) AddTimeHeat(frames [][]model.Coordinate, labels []string, autoPlay bool, opts HeatOptions) *Map {
	steps := make([][][]float64, len(frames))
	for i, f := range frames {
		steps[i] = pairs(f)
	}
	m.Layers = append(m.Layers, Layer{
		Kind:     LayerTimeHeat,
		Heat:     opts,
		Frames:   steps,
		Labels:   labels,
		AutoPlay: autoPlay,
	})
	return m
}

func (m *Map) AddCircles(name string, markers []Marker) *Map {
	m.Layers = append(m.Layers, Layer{Kind: LayerCircles, Name: name, Markers: validMarkers(markers)})
	return m
}

func (m *Map) AddPins(name string, markers []Marker) *Map {
	m.Layers = append(m.Layers, Layer{Kind: LayerPins, Name: name, Markers: validMarkers(markers)})
	return m
}

func (m *Map) WithLayerControl(expanded bool) *Map {
	m.LayerControl = true
	m.ControlExpand = expanded
	return m
}

func pairs(points []model.Coordinate) [][]float64 {
	out := make([][]float64, 0, len(points))
	for _, p := range points {
		if p.Valid() {
			out = append(out, []float64{p.Lat, p.Lon})
		}
	}
	return out
}

func validMarkers(markers []Marker) []Marker {
	out := make([]Marker, 0, len(markers))
	for _, mk := range markers {
		if mk.Location.Valid() {
			out = append(out, mk)
		}
	}
	return out
}
