package render

import (
	"html"
	"math"
	"strconv"
	"strings"

	"cropmap_service/internal/domain/model"
)

const (
	DefaultCenterLat = 20.5937
	DefaultCenterLon = 78.9629
	DefaultZoom      = 5

	// CropsGroup is the layer control group holding one heat layer per crop.
	CropsGroup = "Crops"
)

// Viewport is where every map opens.
type Viewport struct {
	Center model.Coordinate
	Zoom   int
}

func DefaultViewport() Viewport {
	return Viewport{
		Center: model.Coordinate{Lat: DefaultCenterLat, Lon: DefaultCenterLon},
		Zoom:   DefaultZoom,
	}
}

var (
	areaGradient = map[string]string{
		"0.0": "blue",
		"0.5": "lightblue",
		"1.0": "red",
	}
	productionGradient = map[string]string{
		"0.0": "green",
		"0.5": "yellow",
		"1.0": "red",
	}
)

// ProductionMap steps through the crop years of a populated production view.
func ProductionMap(vp Viewport, view model.ProductionView) *Map {
	m := NewMap(vp.Center, vp.Zoom)
	frames := make([][]model.Coordinate, len(view.Frames))
	labels := make([]string, len(view.Frames))
	for i, f := range view.Frames {
		frames[i] = f.Points
		labels[i] = strconv.Itoa(f.Year)
	}
	return m.AddTimeHeat(frames, labels, true, HeatOptions{MaxOpacity: 0.6})
}

func CropHeatmapMap(vp Viewport, layers []model.CropLayer) *Map {
	m := NewMap(vp.Center, vp.Zoom)
	for _, l := range layers {
		m.AddHeat(l.Crop, CropsGroup, l.Points, HeatOptions{})
	}
	return m.WithLayerControl(true)
}

func SeasonMap(vp Viewport, locations []model.LocationSummary, palette model.SeasonPalette) *Map {
	markers := make([]Marker, 0, len(locations))
	for _, loc := range locations {
		markers = append(markers, Marker{
			Location:    loc.Location,
			Radius:      7,
			Color:       palette.Color(loc.Season),
			FillOpacity: 0.7,
			Tooltip:     seasonTooltip(loc),
		})
	}
	return NewMap(vp.Center, vp.Zoom).AddCircles("Seasons", markers)
}

func DistrictMap(vp Viewport, districts []model.DistrictSummary) *Map {
	markers := make([]Marker, 0, len(districts))
	for _, d := range districts {
		markers = append(markers, Marker{
			Location:  d.Location,
			Popup:     districtPopup(d),
			Icon:      "arrow-up",
			IconColor: "green",
		})
	}
	return NewMap(vp.Center, vp.Zoom).AddPins("Districts", markers)
}

func CombinedMap(vp Viewport, view model.CombinedView) *Map {
	m := NewMap(vp.Center, vp.Zoom)
	m.AddWeightedHeat("Area", view.AreaHeat, HeatOptions{
		MinOpacity: 0.3,
		MaxOpacity: 0.8,
		Radius:     15,
		Blur:       10,
		Gradient:   areaGradient,
	})
	m.AddWeightedHeat("Production", view.ProductionHeat, HeatOptions{
		MinOpacity: 0.3,
		MaxOpacity: 0.8,
		Radius:     15,
		Blur:       10,
		Gradient:   productionGradient,
	})

	markers := make([]Marker, 0, len(view.Points))
	for _, p := range view.Points {
		markers = append(markers, Marker{
			Location:    p.Location,
			Radius:      5,
			Color:       p.Color,
			FillOpacity: 0.7,
			Tooltip:     combinedTooltip(p),
		})
	}
	return m.AddCircles("Seasons", markers)
}

func seasonTooltip(loc model.LocationSummary) string {
	crops := make([]string, len(loc.TopCrops))
	for i, c := range loc.TopCrops {
		crops[i] = html.EscapeString(c.Crop) + ": " + formatNumber(c.Production)
	}
	return "Latitude: " + formatNumber(loc.Location.Lat) + "<br>" +
		"Longitude: " + formatNumber(loc.Location.Lon) + "<br>" +
		"Season: " + html.EscapeString(loc.Season) + "<br>" +
		"Area: " + formatNumber(loc.Area) + "<br>" +
		"Top 5 Crops:<br>" + strings.Join(crops, "<br>")
}

func districtPopup(d model.DistrictSummary) string {
	crops := make([]string, len(d.TopCrops))
	for i, c := range d.TopCrops {
		crops[i] = html.EscapeString(c)
	}
	return "<b>District:</b> " + html.EscapeString(d.District) +
		"<br><b>Top 5 Crops:</b> " + strings.Join(crops, ", ")
}

func combinedTooltip(p model.SeasonPoint) string {
	return "District: " + html.EscapeString(p.District) + "<br>" +
		"Season: " + html.EscapeString(p.Season) + "<br>" +
		"Area: " + formatNumber(p.Area) + "<br>" +
		"Production: " + formatNumber(p.Production)
}

// formatNumber prints the shortest exact form; missing values read "nan".
func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "nan"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
