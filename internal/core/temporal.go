package core

import (
	"cropmap_service/internal/domain/model"
)

type TemporalAnalyzer struct{}

// Frames groups the records of one crop by crop year. Years appear in the
// order they are first met in the data; each frame lists the coordinates of
// that year's records in dataset order.
func (a TemporalAnalyzer) Frames(records []model.Record) []model.YearFrame {
	byYear := GroupBy(records, func(r model.Record) int { return r.CropYear })

	frames := make([]model.YearFrame, 0, len(byYear.Keys))
	for _, year := range byYear.Keys {
		frames = append(frames, model.YearFrame{
			Year:   year,
			Points: coordinates(byYear.Items[year]),
		})
	}
	return frames
}

// Totals sums production per year, in the same year order as Frames.
func (a TemporalAnalyzer) Totals(records []model.Record) []model.YearTotal {
	sums := NewTotals[int]()
	for _, r := range records {
		sums.AddSkipNaN(r.CropYear, r.Production)
	}
	totals := make([]model.YearTotal, 0, sums.Len())
	for _, year := range sums.order {
		totals = append(totals, model.YearTotal{Year: year, Production: sums.Get(year)})
	}
	return totals
}
