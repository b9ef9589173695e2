package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
)

//go:embed templates/*.html
var content embed.FS

// MapElementID is the id of the map container; a page holds one map.
const MapElementID = "cropmap"

type NavLink struct {
	Path  string
	Label string
}

// Navigation lists every view in menu order.
var Navigation = []NavLink{
	{Path: "/", Label: "Home"},
	{Path: "/prodction_analysis", Label: "Production Analysis"},
	{Path: "/heatmap_analysis", Label: "Crop Heatmap"},
	{Path: "/season_analysis", Label: "Season Analysis"},
	{Path: "/crop_analysis", Label: "District Crops"},
	{Path: "/combined_analysis", Label: "Combined Heatmaps"},
}

// Page is everything the shell template needs.
type Page struct {
	Title        string
	Active       string
	ShowCropForm bool
	CropOptions  []string
	SelectedCrop string
	Notice       string
	Map          template.HTML
	Chart        *Chart
	Nav          []NavLink
}

type Renderer struct {
	page *template.Template
	mapT *template.Template
}

func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"toJSON": toJSON,
	}

	page, err := template.New("index.html").Funcs(funcs).ParseFS(content, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	mapT, err := template.New("map.html").Funcs(funcs).ParseFS(content, "templates/map.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse map template: %w", err)
	}
	return &Renderer{page: page, mapT: mapT}, nil
}

// MapFragment turns a map into the HTML embedded in a page.
func (r *Renderer) MapFragment(m *Map) (template.HTML, error) {
	var buf bytes.Buffer
	data := struct {
		ID  string
		Map *Map
	}{
		ID:  MapElementID,
		Map: m,
	}
	if err := r.mapT.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render map: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Page renders the shell into a buffer first so a template error never
// leaves a half-written response behind.
func (r *Renderer) Page(w io.Writer, p Page) error {
	if p.Nav == nil {
		p.Nav = Navigation
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, p); err != nil {
		return fmt.Errorf("failed to render page %q: %w", p.Title, err)
	}
	_, err := buf.WriteTo(w)
	return err
}

func toJSON(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
