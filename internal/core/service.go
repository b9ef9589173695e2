package core

import (
	"context"
	"sync"
	"time"

	"cropmap_service/internal/dataset"
	"cropmap_service/internal/domain/model"
)

// Page titles shown above each view.
const (
	TitleHome              = "Home"
	TitleProduction        = "Production Analysis"
	TitleNoData            = "No Data Available"
	TitleProductionHeatmap = "Production Heatmap Analysis"
	TitleCropHeatmap       = "Crop Heatmap Analysis"
	TitleSeason            = "Season Analysis"
	TitleDistrictCrop      = "District Crop Analysis"
	TitleCombined          = "Combined Area & Production Heatmaps"
)

// DistrictLookupBudget bounds the locator work of one district build. It stays
// under the server write timeout.
const DistrictLookupBudget = 45 * time.Second

// AnalysisService answers every map view from one immutable dataset.
type AnalysisService struct {
	data    *dataset.Dataset
	sampler Sampler
	locator DistrictLocator

	sampleOnce sync.Once
	sample     []model.Record
}

func NewAnalysisService(data *dataset.Dataset, sampler Sampler, locator DistrictLocator) *AnalysisService {
	return &AnalysisService{
		data:    data,
		sampler: sampler,
		locator: locator,
	}
}

// Dataset returns the dataset the service was built with.
func (s *AnalysisService) Dataset() *dataset.Dataset {
	return s.data
}

// Sample returns the seeded sample shared by the sampled views. It is drawn
// on first use; the dataset never changes, so neither does the sample.
func (s *AnalysisService) Sample() []model.Record {
	s.sampleOnce.Do(func() {
		s.sample = s.sampler.Sample(s.data.Records())
	})
	return s.sample
}

// ProductionAnalysis builds the time-indexed heatmap payload for one crop.
func (s *AnalysisService) ProductionAnalysis(crop string) model.ProductionView {
	view := model.ProductionView{
		State:        model.ProductionEmpty,
		Title:        TitleProduction,
		CropOptions:  s.data.Crops(),
		SelectedCrop: crop,
	}
	if crop == "" {
		return view
	}

	records := s.data.ByCrop(crop)
	if len(records) == 0 {
		view.State = model.ProductionNoData
		view.Title = TitleNoData
		return view
	}

	temporal := TemporalAnalyzer{}
	view.State = model.ProductionPopulated
	view.Title = TitleProductionHeatmap
	view.Frames = temporal.Frames(records)
	view.Totals = temporal.Totals(records)
	return view
}

// CropHeatmaps returns one coordinate layer per crop of the sample.
func (s *AnalysisService) CropHeatmaps() []model.CropLayer {
	byCrop := GroupBy(s.Sample(), func(r model.Record) string { return r.Crop })

	layers := make([]model.CropLayer, 0, len(byCrop.Keys))
	for _, crop := range byCrop.Keys {
		layers = append(layers, model.CropLayer{
			Crop:   crop,
			Points: coordinates(byCrop.Items[crop]),
		})
	}
	return layers
}

func (s *AnalysisService) SeasonAnalysis() []model.LocationSummary {
	spatial := SpatialAnalyzer{}
	return spatial.Locations(s.Sample())
}

// CropAnalysis ranks crops per district of the sample. The flag is false when
// a locator lookup failed or outlived DistrictLookupBudget, leaving some
// districts at their fallback position.
func (s *AnalysisService) CropAnalysis(ctx context.Context) ([]model.DistrictSummary, bool) {
	if s.locator != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DistrictLookupBudget)
		defer cancel()
	}
	spatial := SpatialAnalyzer{}
	return spatial.Districts(ctx, s.Sample(), s.locator)
}

func (s *AnalysisService) CombinedAnalysis() model.CombinedView {
	spatial := SpatialAnalyzer{}
	return spatial.Combined(s.Sample(), model.CombinedAnalysisPalette)
}
