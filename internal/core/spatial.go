package core

import (
	"context"
	"errors"
	"sync/atomic"

	"cropmap_service/internal/domain/model"

	"golang.org/x/sync/errgroup"
)

const (
	// TopCropCount is how many crops the location and district views list.
	TopCropCount = 5

	// DistrictLookupLimit caps locator calls in flight for one build.
	DistrictLookupLimit = 4
)

type SpatialAnalyzer struct{}

// Locations folds records by exact coordinate. Production accumulates per crop
// while season and area are taken from the first record at each coordinate
// and never replaced by later ones, even when those carry another season.
func (a SpatialAnalyzer) Locations(records []model.Record) []model.LocationSummary {
	type acc struct {
		location model.Coordinate
		season   string
		area     float64
		crops    *Totals[string]
	}

	// NaN coordinates never compare equal, so each such record is its own
	// location; the slice keeps them reachable.
	var order []*acc
	byLocation := make(map[model.Coordinate]*acc)
	for _, r := range records {
		loc := r.Coordinate()
		cur, ok := byLocation[loc]
		if !ok {
			cur = &acc{location: loc, season: r.Season, area: r.Area, crops: NewTotals[string]()}
			byLocation[loc] = cur
			order = append(order, cur)
		}
		cur.crops.Add(r.Crop, r.Production)
	}

	summaries := make([]model.LocationSummary, 0, len(order))
	for _, cur := range order {
		top := cur.crops.Top(TopCropCount)
		crops := make([]model.CropTotal, len(top))
		for i, t := range top {
			crops[i] = model.CropTotal{Crop: t.Key, Production: t.Value}
		}
		summaries = append(summaries, model.LocationSummary{
			Location: cur.location,
			Season:   cur.season,
			Area:     cur.area,
			TopCrops: crops,
		})
	}
	return summaries
}

// Districts ranks crops by total production inside each district. A district
// is placed at its first record; locate, when non-nil, may move it. Lookups run
// at most DistrictLookupLimit at a time. The returned flag is false when any
// lookup failed and its district kept the fallback position.
func (a SpatialAnalyzer) Districts(
	ctx context.Context,
	records []model.Record,
	locate DistrictLocator,
) ([]model.DistrictSummary, bool) {
	byDistrict := GroupBy(records, func(r model.Record) string { return r.District })

	summaries := make([]model.DistrictSummary, 0, len(byDistrict.Keys))
	for _, district := range byDistrict.Keys {
		rows := byDistrict.Items[district]
		totals := NewTotals[string]()
		for _, r := range rows {
			totals.AddSkipNaN(r.Crop, r.Production)
		}
		top := totals.Top(TopCropCount)
		names := make([]string, len(top))
		for i, t := range top {
			names[i] = t.Key
		}

		first := rows[0]
		summaries = append(summaries, model.DistrictSummary{
			District: district,
			State:    first.State,
			Location: first.Coordinate(),
			TopCrops: names,
		})
	}

	if locate == nil {
		return summaries, true
	}

	var failed atomic.Bool
	var g errgroup.Group
	g.SetLimit(DistrictLookupLimit)
	for i := range summaries {
		g.Go(func() error {
			if ctx.Err() != nil {
				failed.Store(true)
				return nil
			}
			d := &summaries[i]
			resolved, err := locate.LocateDistrict(ctx, d.State, d.District)
			if err != nil {
				if !errors.Is(err, model.ErrDistrictNotFound) {
					failed.Store(true)
				}
				return nil
			}
			d.Location = resolved
			return nil
		})
	}
	g.Wait()

	return summaries, !failed.Load()
}

// Combined builds the two weighted heat payloads and the per-record season
// scatter of the combined view.
func (a SpatialAnalyzer) Combined(records []model.Record, palette model.SeasonPalette) model.CombinedView {
	view := model.CombinedView{
		AreaHeat:       make([]model.WeightedPoint, len(records)),
		ProductionHeat: make([]model.WeightedPoint, len(records)),
		Points:         make([]model.SeasonPoint, len(records)),
	}
	for i, r := range records {
		loc := r.Coordinate()
		view.AreaHeat[i] = model.WeightedPoint{Coordinate: loc, Weight: r.Area}
		view.ProductionHeat[i] = model.WeightedPoint{Coordinate: loc, Weight: r.Production}
		view.Points[i] = model.SeasonPoint{
			Location:   loc,
			District:   r.District,
			Season:     r.Season,
			Area:       r.Area,
			Production: r.Production,
			Color:      palette.Color(r.Season),
		}
	}
	return view
}
