package api

import (
	"log"
	"math"
	"net/http"

	"cropmap_service/internal/domain/model"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ExportSample serves the shared sample as a GeoJSON FeatureCollection.
// Records without a usable position are left out.
func (h *Handler) ExportSample(w http.ResponseWriter, r *http.Request) {
	fc := sampleFeatures(h.service.Sample())

	body, err := fc.MarshalJSON()
	if err != nil {
		log.Printf("[api] geojson export failed: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if _, err := w.Write(body); err != nil {
		log.Printf("[api] error writing response: %v", err)
	}
}

func sampleFeatures(records []model.Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		if !rec.Coordinate().Valid() {
			continue
		}
		f := geojson.NewFeature(orb.Point{rec.Longitude, rec.Latitude})
		f.Properties["state"] = rec.State
		f.Properties["district"] = rec.District
		f.Properties["crop_year"] = rec.CropYear
		f.Properties["season"] = rec.Season
		f.Properties["crop"] = rec.Crop
		f.Properties["area"] = number(rec.Area)
		f.Properties["production"] = number(rec.Production)
		fc.Append(f)
	}
	return fc
}

// number maps values JSON cannot carry to null.
func number(f float64) interface{} {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return f
}
