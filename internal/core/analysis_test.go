package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cropmap_service/internal/dataset"
	"cropmap_service/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(district, crop, season string, year int, prod, lat, lon float64) model.Record {
	return model.Record{
		State:      "Karnataka",
		District:   district,
		CropYear:   year,
		Season:     season,
		Crop:       crop,
		Area:       prod / 2,
		Production: prod,
		Latitude:   lat,
		Longitude:  lon,
	}
}

func TestGroupByKeepsFirstSeenOrder(t *testing.T) {
	records := []model.Record{
		rec("B", "Rice", "Kharif", 2001, 1, 1, 1),
		rec("A", "Rice", "Kharif", 2001, 2, 1, 1),
		rec("B", "Ragi", "Kharif", 2001, 3, 1, 1),
	}
	g := GroupBy(records, func(r model.Record) string { return r.District })
	assert.Equal(t, []string{"B", "A"}, g.Keys)
	require.Len(t, g.Items["B"], 2)
	assert.Equal(t, "Ragi", g.Items["B"][1].Crop)
}

func TestTotalsTopOrdersByValue(t *testing.T) {
	totals := NewTotals[string]()
	totals.Add("A", 10)
	totals.Add("B", 30)
	totals.Add("C", 5)

	top := totals.Top(5)
	require.Len(t, top, 3)
	assert.Equal(t, "B", top[0].Key)
	assert.Equal(t, "A", top[1].Key)
	assert.Equal(t, "C", top[2].Key)
}

func TestTotalsTopTiesKeepInsertionOrder(t *testing.T) {
	totals := NewTotals[string]()
	for _, k := range []string{"x", "y", "z"} {
		totals.Add(k, 7)
	}
	totals.Add("w", math.NaN())
	totals.Add("v", 8)

	top := totals.Top(-1)
	keys := make([]string, len(top))
	for i, r := range top {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"v", "x", "y", "z", "w"}, keys)
	assert.Len(t, totals.Top(2), 2)
	assert.Empty(t, NewTotals[int]().Top(5))
}

func TestSamplerIsDeterministic(t *testing.T) {
	records := make([]model.Record, 1000)
	for i := range records {
		records[i] = rec(fmt.Sprintf("D%d", i), "Rice", "Kharif", 2000, float64(i), float64(i), 0)
	}
	s := Sampler{Fraction: 0.005, Seed: 42}

	first := s.Sample(records)
	second := s.Sample(records)
	require.Len(t, first, 5)
	assert.Equal(t, first, second)

	other := Sampler{Fraction: 0.005, Seed: 7}.Sample(records)
	assert.NotEqual(t, first, other)
}

func TestSamplerSize(t *testing.T) {
	s := Sampler{Fraction: 0.005}
	assert.Equal(t, 0, s.Size(0))
	assert.Equal(t, 0, s.Size(99))
	assert.Equal(t, 1, s.Size(100))
	assert.Equal(t, 246, s.Size(49200))
	assert.Equal(t, 10, Sampler{Fraction: 1}.Size(10))
	assert.Empty(t, s.Sample(nil))
}

func TestSamplerDrawsWithoutReplacement(t *testing.T) {
	records := make([]model.Record, 50)
	for i := range records {
		records[i] = rec(fmt.Sprintf("D%d", i), "Rice", "Kharif", 2000, 1, 0, 0)
	}
	sample := Sampler{Fraction: 1, Seed: 42}.Sample(records)
	seen := make(map[string]bool)
	for _, r := range sample {
		assert.False(t, seen[r.District], "duplicate %s", r.District)
		seen[r.District] = true
	}
	assert.Len(t, seen, 50)
}

func TestTemporalFrames(t *testing.T) {
	records := []model.Record{
		rec("A", "Rice", "Kharif", 2002, 10, 1, 1),
		rec("B", "Rice", "Kharif", 2001, 20, 2, 2),
		rec("C", "Rice", "Kharif", 2002, 30, 3, 3),
	}
	a := TemporalAnalyzer{}
	frames := a.Frames(records)
	require.Len(t, frames, 2)
	assert.Equal(t, 2002, frames[0].Year)
	assert.Equal(t, []model.Coordinate{{Lat: 1, Lon: 1}, {Lat: 3, Lon: 3}}, frames[0].Points)
	assert.Equal(t, 2001, frames[1].Year)

	totals := a.Totals(records)
	assert.Equal(t, []model.YearTotal{{Year: 2002, Production: 40}, {Year: 2001, Production: 20}}, totals)
}

func TestLocationsRankAndFirstSeason(t *testing.T) {
	records := []model.Record{
		rec("X", "A", "Kharif", 2001, 10, 12.5, 76.5),
		rec("X", "B", "Rabi", 2001, 30, 12.5, 76.5),
		rec("X", "C", "Summer", 2001, 5, 12.5, 76.5),
		rec("Y", "A", "Rabi", 2001, 1, 13, 77),
	}
	a := SpatialAnalyzer{}
	locs := a.Locations(records)
	require.Len(t, locs, 2)

	first := locs[0]
	assert.Equal(t, model.Coordinate{Lat: 12.5, Lon: 76.5}, first.Location)
	assert.Equal(t, "Kharif", first.Season)
	assert.Equal(t, 5.0, first.Area)
	require.Len(t, first.TopCrops, 3)
	assert.Equal(t, "B", first.TopCrops[0].Crop)
	assert.Equal(t, "A", first.TopCrops[1].Crop)
	assert.Equal(t, "C", first.TopCrops[2].Crop)
	assert.Equal(t, 30.0, first.TopCrops[0].Production)
}

func TestLocationsAccumulateAndCapAtFive(t *testing.T) {
	var records []model.Record
	for i := 0; i < 7; i++ {
		records = append(records, rec("X", fmt.Sprintf("crop%d", i), "Kharif", 2001, float64(i), 1, 1))
	}
	records = append(records, rec("X", "crop0", "Kharif", 2002, 100, 1, 1))

	locs := SpatialAnalyzer{}.Locations(records)
	require.Len(t, locs, 1)
	require.Len(t, locs[0].TopCrops, TopCropCount)
	assert.Equal(t, model.CropTotal{Crop: "crop0", Production: 100}, locs[0].TopCrops[0])
	assert.Equal(t, "crop6", locs[0].TopCrops[1].Crop)
}

func TestLocationsKeepNaNCoordinatesSeparate(t *testing.T) {
	nan := math.NaN()
	records := []model.Record{
		rec("X", "A", "Kharif", 2001, 1, nan, 1),
		rec("X", "B", "Kharif", 2001, 2, nan, 1),
	}
	locs := SpatialAnalyzer{}.Locations(records)
	assert.Len(t, locs, 2)
}

type stubLocator struct {
	mu       sync.Mutex
	calls    []string
	err      error
	inFlight int32
	peak     int32
	delay    time.Duration
}

func (s *stubLocator) LocateDistrict(ctx context.Context, state, district string) (model.Coordinate, error) {
	n := atomic.AddInt32(&s.inFlight, 1)
	defer atomic.AddInt32(&s.inFlight, -1)

	s.mu.Lock()
	s.calls = append(s.calls, district)
	if n > s.peak {
		s.peak = n
	}
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return model.Coordinate{}, s.err
	}
	return model.Coordinate{Lat: 99, Lon: 99}, nil
}

func TestDistrictsTopCropsLength(t *testing.T) {
	var records []model.Record
	for i := 0; i < 8; i++ {
		records = append(records, rec("BIG", fmt.Sprintf("c%d", i), "Kharif", 2001, float64(i+1), 10, 20))
	}
	records = append(records,
		rec("SMALL", "Rice", "Kharif", 2001, 3, 30, 40),
		rec("SMALL", "Ragi", "Kharif", 2001, 9, 31, 41),
		rec("SMALL", "Rice", "Rabi", 2002, 1, 32, 42),
	)

	districts, complete := SpatialAnalyzer{}.Districts(context.Background(), records, nil)
	require.Len(t, districts, 2)
	assert.True(t, complete)

	big := districts[0]
	assert.Equal(t, "BIG", big.District)
	assert.Len(t, big.TopCrops, 5)
	assert.Equal(t, []string{"c7", "c6", "c5", "c4", "c3"}, big.TopCrops)

	small := districts[1]
	assert.Equal(t, []string{"Ragi", "Rice"}, small.TopCrops)
	assert.Equal(t, model.Coordinate{Lat: 30, Lon: 40}, small.Location)
}

func TestDistrictsUseLocatorAndFallBack(t *testing.T) {
	records := []model.Record{rec("MYSORE", "Rice", "Kharif", 2001, 1, 12, 76)}

	ok := &stubLocator{}
	districts, complete := SpatialAnalyzer{}.Districts(context.Background(), records, ok)
	assert.Equal(t, model.Coordinate{Lat: 99, Lon: 99}, districts[0].Location)
	assert.Equal(t, []string{"MYSORE"}, ok.calls)
	assert.True(t, complete)

	failing := &stubLocator{err: errors.New("boom")}
	districts, complete = SpatialAnalyzer{}.Districts(context.Background(), records, failing)
	assert.Equal(t, model.Coordinate{Lat: 12, Lon: 76}, districts[0].Location)
	assert.False(t, complete)

	unknown := &stubLocator{err: fmt.Errorf("%w: MYSORE", model.ErrDistrictNotFound)}
	districts, complete = SpatialAnalyzer{}.Districts(context.Background(), records, unknown)
	assert.Equal(t, model.Coordinate{Lat: 12, Lon: 76}, districts[0].Location)
	assert.True(t, complete)
}

func TestDistrictsCancelledContextIsIncomplete(t *testing.T) {
	records := []model.Record{
		rec("MYSORE", "Rice", "Kharif", 2001, 1, 12, 76),
		rec("MANDYA", "Rice", "Kharif", 2001, 1, 13, 77),
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	locator := &stubLocator{}
	districts, complete := SpatialAnalyzer{}.Districts(ctx, records, locator)
	require.Len(t, districts, 2)
	assert.False(t, complete)
	assert.Empty(t, locator.calls)
	assert.Equal(t, model.Coordinate{Lat: 12, Lon: 76}, districts[0].Location)
}

func TestDistrictsBoundLookupsInFlight(t *testing.T) {
	var records []model.Record
	for i := 0; i < 3*DistrictLookupLimit; i++ {
		records = append(records, rec(fmt.Sprintf("D%d", i), "Rice", "Kharif", 2001, 1, float64(i), 1))
	}

	locator := &stubLocator{delay: 10 * time.Millisecond}
	districts, complete := SpatialAnalyzer{}.Districts(context.Background(), records, locator)
	require.Len(t, districts, len(records))
	assert.True(t, complete)
	assert.Len(t, locator.calls, len(records))
	assert.LessOrEqual(t, locator.peak, int32(DistrictLookupLimit))
	for i, d := range districts {
		assert.Equal(t, fmt.Sprintf("D%d", i), d.District)
		assert.Equal(t, model.Coordinate{Lat: 99, Lon: 99}, d.Location)
	}
}

func TestCombinedPayloads(t *testing.T) {
	records := []model.Record{
		rec("A", "Rice", "Kharif", 2001, 10, 1, 2),
		rec("B", "Wheat", "Rabi", 2001, 20, 3, 4),
		rec("C", "Wheat", "Autumn", 2001, 30, 5, 6),
	}
	view := SpatialAnalyzer{}.Combined(records, model.CombinedAnalysisPalette)

	require.Len(t, view.AreaHeat, 3)
	require.Len(t, view.ProductionHeat, 3)
	assert.Equal(t, 5.0, view.AreaHeat[0].Weight)
	assert.Equal(t, 10.0, view.ProductionHeat[0].Weight)
	assert.Equal(t, model.Coordinate{Lat: 3, Lon: 4}, view.ProductionHeat[1].Coordinate)
	assert.Equal(t, "purple", view.Points[0].Color)
	assert.Equal(t, "cyan", view.Points[1].Color)
	assert.Equal(t, model.DefaultSeasonColor, view.Points[2].Color)
}

func riceScenario() *dataset.Dataset {
	return dataset.FromRecords([]model.Record{
		rec("MYSORE", "Rice", "Kharif", 2001, 100, 12.29, 76.63),
		rec("MANDYA", "Rice", "Kharif", 2001, 90, 12.52, 76.89),
		rec("MYSORE", "Ragi", "Rabi", 2001, 50, 12.29, 76.63),
		rec("MYSORE", "Rice", "Kharif", 2002, 110, 12.29, 76.63),
		rec("MANDYA", "Rice", "Kharif", 2002, 95, 12.52, 76.89),
	})
}

func TestProductionAnalysisStates(t *testing.T) {
	svc := NewAnalysisService(riceScenario(), Sampler{Fraction: 1, Seed: 42}, nil)

	empty := svc.ProductionAnalysis("")
	assert.Equal(t, model.ProductionEmpty, empty.State)
	assert.Equal(t, TitleProduction, empty.Title)
	assert.Equal(t, []string{"Rice", "Ragi"}, empty.CropOptions)
	assert.Empty(t, empty.Frames)

	missing := svc.ProductionAnalysis("Cotton")
	assert.Equal(t, model.ProductionNoData, missing.State)
	assert.Equal(t, TitleNoData, missing.Title)
	assert.Equal(t, "Cotton", missing.SelectedCrop)
	assert.Empty(t, missing.Frames)

	rice := svc.ProductionAnalysis("Rice")
	assert.Equal(t, model.ProductionPopulated, rice.State)
	assert.Equal(t, TitleProductionHeatmap, rice.Title)
	require.Len(t, rice.Frames, 2)
	for _, f := range rice.Frames {
		assert.Len(t, f.Points, 2)
	}
	assert.Equal(t, 2001, rice.Frames[0].Year)
	assert.Equal(t, 2002, rice.Frames[1].Year)
	assert.Equal(t, []model.YearTotal{{Year: 2001, Production: 190}, {Year: 2002, Production: 205}}, rice.Totals)
}

func TestProductionFramesMatchDistinctYears(t *testing.T) {
	ds := riceScenario()
	svc := NewAnalysisService(ds, Sampler{Fraction: 1, Seed: 42}, nil)

	for _, crop := range ds.Crops() {
		years := make(map[int]int)
		for _, r := range ds.Records() {
			if r.Crop == crop {
				years[r.CropYear]++
			}
		}
		view := svc.ProductionAnalysis(crop)
		require.Len(t, view.Frames, len(years), crop)
		for _, f := range view.Frames {
			assert.Len(t, f.Points, years[f.Year], "%s %d", crop, f.Year)
		}
	}
}

func TestSampledViewsShareOneSample(t *testing.T) {
	svc := NewAnalysisService(riceScenario(), Sampler{Fraction: 1, Seed: 42}, nil)

	assert.Equal(t, svc.Sample(), svc.Sample())
	assert.Len(t, svc.Sample(), 5)

	layers := svc.CropHeatmaps()
	total := 0
	for _, l := range layers {
		total += len(l.Points)
	}
	assert.Equal(t, 5, total)
	assert.Len(t, layers, 2)

	assert.Len(t, svc.SeasonAnalysis(), 2)
	districts, complete := svc.CropAnalysis(context.Background())
	assert.Len(t, districts, 2)
	assert.True(t, complete)
	assert.Len(t, svc.CombinedAnalysis().Points, 5)
}
