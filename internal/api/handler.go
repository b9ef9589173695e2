package api

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"cropmap_service/internal/core"
	"cropmap_service/internal/domain/model"
	"cropmap_service/internal/render"

	"github.com/patrickmn/go-cache"
)

// CropField is the form field the production page posts.
const CropField = "crop_type"

type Handler struct {
	service  *core.AnalysisService
	renderer *render.Renderer
	viewport render.Viewport
	pages    *cache.Cache
}

// NewHandler wires the views to the service. Pages that take no input are
// cached for pageTTL; a non-positive TTL disables the cache.
func NewHandler(service *core.AnalysisService, renderer *render.Renderer, viewport render.Viewport, pageTTL time.Duration) *Handler {
	h := &Handler{
		service:  service,
		renderer: renderer,
		viewport: viewport,
	}
	if pageTTL > 0 {
		h.pages = cache.New(pageTTL, 2*pageTTL)
	}
	return h
}

func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r.URL.Path, func() (render.Page, bool, error) {
		return render.Page{Title: core.TitleHome, Active: "/"}, true, nil
	})
}

func (h *Handler) ProductionAnalysis(w http.ResponseWriter, r *http.Request) {
	var crop string
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form", http.StatusBadRequest)
			return
		}
		crop = r.PostForm.Get(CropField)
	}

	view := h.service.ProductionAnalysis(crop)
	page := render.Page{
		Title:        view.Title,
		Active:       "/prodction_analysis",
		ShowCropForm: true,
		CropOptions:  view.CropOptions,
		SelectedCrop: view.SelectedCrop,
	}

	switch view.State {
	case model.ProductionNoData:
		page.Notice = "No records found for " + crop + "."
	case model.ProductionPopulated:
		fragment, err := h.renderer.MapFragment(render.ProductionMap(h.viewport, view))
		if err != nil {
			h.fail(w, err)
			return
		}
		page.Map = fragment
		page.Chart = render.ProductionChart(crop, view.Totals)
	}

	h.write(w, page)
}

func (h *Handler) CropHeatmap(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r.URL.Path, func() (render.Page, bool, error) {
		return h.mapPage(core.TitleCropHeatmap, "/heatmap_analysis",
			render.CropHeatmapMap(h.viewport, h.service.CropHeatmaps()))
	})
}

func (h *Handler) SeasonAnalysis(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r.URL.Path, func() (render.Page, bool, error) {
		return h.mapPage(core.TitleSeason, "/season_analysis",
			render.SeasonMap(h.viewport, h.service.SeasonAnalysis(), model.SeasonAnalysisPalette))
	})
}

func (h *Handler) CropAnalysis(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r.URL.Path, func() (render.Page, bool, error) {
		districts, complete := h.service.CropAnalysis(r.Context())
		if !complete {
			log.Printf("[api] district lookups incomplete, page not cached")
		}
		page, _, err := h.mapPage(core.TitleDistrictCrop, "/crop_analysis",
			render.DistrictMap(h.viewport, districts))
		return page, complete, err
	})
}

func (h *Handler) CombinedAnalysis(w http.ResponseWriter, r *http.Request) {
	h.cached(w, r.URL.Path, func() (render.Page, bool, error) {
		return h.mapPage(core.TitleCombined, "/combined_analysis",
			render.CombinedMap(h.viewport, h.service.CombinedAnalysis()))
	})
}

type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Crops   int    `json:"crops"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	data := h.service.Dataset()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(HealthResponse{
		Status:  "ok",
		Records: data.Len(),
		Crops:   len(data.Crops()),
	})
}

func (h *Handler) mapPage(title, active string, m *render.Map) (render.Page, bool, error) {
	fragment, err := h.renderer.MapFragment(m)
	if err != nil {
		return render.Page{}, false, err
	}
	return render.Page{Title: title, Active: active, Map: fragment}, true, nil
}

// cached serves a parameterless page from the page cache, building it on a
// miss. A build that reports itself incomplete is served but not stored.
func (h *Handler) cached(w http.ResponseWriter, key string, build func() (render.Page, bool, error)) {
	if h.pages != nil {
		if body, ok := h.pages.Get(key); ok {
			writeHTML(w, body.([]byte))
			return
		}
	}

	page, complete, err := build()
	if err != nil {
		h.fail(w, err)
		return
	}
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, page); err != nil {
		h.fail(w, err)
		return
	}
	if h.pages != nil && complete {
		h.pages.SetDefault(key, buf.Bytes())
	}
	writeHTML(w, buf.Bytes())
}

func (h *Handler) write(w http.ResponseWriter, page render.Page) {
	var buf bytes.Buffer
	if err := h.renderer.Page(&buf, page); err != nil {
		h.fail(w, err)
		return
	}
	writeHTML(w, buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	log.Printf("[api] render failed: %v", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(body); err != nil {
		log.Printf("[api] error writing response: %v", err)
	}
}
