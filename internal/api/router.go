package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter registers every view and wraps the router with compression and
// CORS for the given origins.
func NewRouter(h *Handler, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.HandleFunc("/", h.Home).Methods(http.MethodGet)
	r.HandleFunc("/prodction_analysis", h.ProductionAnalysis).Methods(http.MethodGet, http.MethodPost)
	r.HandleFunc("/heatmap_analysis", h.CropHeatmap).Methods(http.MethodGet)
	r.HandleFunc("/season_analysis", h.SeasonAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/crop_analysis", h.CropAnalysis).Methods(http.MethodGet)
	r.HandleFunc("/combined_analysis", h.CombinedAnalysis).Methods(http.MethodGet)

	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	r.HandleFunc("/export/sample.geojson", h.ExportSample).Methods(http.MethodGet)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Origin", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         86400,
	})

	return corsHandler.Handler(handlers.CompressHandler(r))
}
