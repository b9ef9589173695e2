// Package dataset holds the crop production table loaded once at start-up.
//
// A Dataset is never mutated after construction, so one pointer can be shared
// by every request handler without locking.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"cropmap_service/internal/domain/model"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Canonical column names, applied positionally to whatever header the CSV has.
const (
	ColState      = "State"
	ColDistrict   = "District"
	ColCropYear   = "Crop_Year"
	ColSeason     = "Season"
	ColCrop       = "Crop"
	ColArea       = "Area"
	ColProduction = "Production"
	ColLatitude   = "Latitude"
	ColLongitude  = "Longitude"
)

var Columns = []string{
	ColState, ColDistrict, ColCropYear, ColSeason, ColCrop,
	ColArea, ColProduction, ColLatitude, ColLongitude,
}

var columnTypes = map[string]series.Type{
	ColState:      series.String,
	ColDistrict:   series.String,
	ColCropYear:   series.Float,
	ColSeason:     series.String,
	ColCrop:       series.String,
	ColArea:       series.Float,
	ColProduction: series.Float,
	ColLatitude:   series.Float,
	ColLongitude:  series.Float,
}

var (
	ErrEmptyDataset = errors.New("dataset has no rows")
	ErrColumnCount  = errors.New("dataset must have 9 columns")
)

type Dataset struct {
	frame   dataframe.DataFrame
	records []model.Record
	crops   []string
}

// ReadCSV parses a production CSV. The first row is a header and is replaced
// by the canonical column names; values that do not parse as numbers become
// NaN (year 0).
func ReadCSV(r io.Reader) (*Dataset, error) {
	raw := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithLazyQuotes(true),
	)
	if err := raw.Error(); err != nil {
		if raw.Nrow() == 0 && raw.Ncol() == 0 {
			return nil, fmt.Errorf("%w: %v", ErrEmptyDataset, err)
		}
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if raw.Ncol() != len(Columns) {
		return nil, fmt.Errorf("%w, got %d", ErrColumnCount, raw.Ncol())
	}
	if err := raw.SetNames(Columns...); err != nil {
		return nil, fmt.Errorf("failed to rename columns: %w", err)
	}

	cols := make([]series.Series, len(Columns))
	for i, name := range Columns {
		col := raw.Col(name)
		if columnTypes[name] == series.Float {
			col = series.New(col.Float(), series.Float, name)
		}
		cols[i] = col
	}
	frame := dataframe.New(cols...)
	if err := frame.Error(); err != nil {
		return nil, fmt.Errorf("failed to build frame: %w", err)
	}
	return fromFrame(frame), nil
}

// ReadFile parses a CSV file from disk.
func ReadFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// FromRecords builds a dataset from already typed rows.
func FromRecords(records []model.Record) *Dataset {
	n := len(records)
	var (
		states    = make([]string, n)
		districts = make([]string, n)
		years     = make([]float64, n)
		seasons   = make([]string, n)
		crops     = make([]string, n)
		areas     = make([]float64, n)
		prods     = make([]float64, n)
		lats      = make([]float64, n)
		lons      = make([]float64, n)
	)
	for i, r := range records {
		states[i] = r.State
		districts[i] = r.District
		years[i] = float64(r.CropYear)
		seasons[i] = r.Season
		crops[i] = r.Crop
		areas[i] = r.Area
		prods[i] = r.Production
		lats[i] = r.Latitude
		lons[i] = r.Longitude
	}
	frame := dataframe.New(
		series.New(states, series.String, ColState),
		series.New(districts, series.String, ColDistrict),
		series.New(years, series.Float, ColCropYear),
		series.New(seasons, series.String, ColSeason),
		series.New(crops, series.String, ColCrop),
		series.New(areas, series.Float, ColArea),
		series.New(prods, series.Float, ColProduction),
		series.New(lats, series.Float, ColLatitude),
		series.New(lons, series.Float, ColLongitude),
	)

	rows := make([]model.Record, n)
	copy(rows, records)
	return &Dataset{frame: frame, records: rows, crops: distinctCrops(rows)}
}

func fromFrame(frame dataframe.DataFrame) *Dataset {
	records := recordsFromFrame(frame)
	return &Dataset{frame: frame, records: records, crops: distinctCrops(records)}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Records returns the rows in file order. The slice is shared and must be
// treated as read-only.
func (d *Dataset) Records() []model.Record {
	return d.records
}

// Crops returns the distinct crop names in order of first appearance.
func (d *Dataset) Crops() []string {
	out := make([]string, len(d.crops))
	copy(out, d.crops)
	return out
}

// ByCrop returns the records of one crop in dataset order.
func (d *Dataset) ByCrop(crop string) []model.Record {
	if d.Len() == 0 {
		return nil
	}
	filtered := d.frame.Filter(dataframe.F{
		Colname:    ColCrop,
		Comparator: series.Eq,
		Comparando: crop,
	})
	if filtered.Error() != nil || filtered.Nrow() == 0 {
		return nil
	}
	return recordsFromFrame(filtered)
}

func recordsFromFrame(frame dataframe.DataFrame) []model.Record {
	n := frame.Nrow()
	states := frame.Col(ColState).Records()
	districts := frame.Col(ColDistrict).Records()
	years := frame.Col(ColCropYear).Float()
	seasons := frame.Col(ColSeason).Records()
	crops := frame.Col(ColCrop).Records()
	areas := frame.Col(ColArea).Float()
	prods := frame.Col(ColProduction).Float()
	lats := frame.Col(ColLatitude).Float()
	lons := frame.Col(ColLongitude).Float()

	records := make([]model.Record, n)
	for i := 0; i < n; i++ {
		records[i] = model.Record{
			State:      states[i],
			District:   districts[i],
			CropYear:   toYear(years[i]),
			Season:     seasons[i],
			Crop:       crops[i],
			Area:       areas[i],
			Production: prods[i],
			Latitude:   lats[i],
			Longitude:  lons[i],
		}
	}
	return records
}

func toYear(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

func distinctCrops(records []model.Record) []string {
	seen := make(map[string]struct{})
	var crops []string
	for _, r := range records {
		if _, ok := seen[r.Crop]; ok {
			continue
		}
		seen[r.Crop] = struct{}{}
		crops = append(crops, r.Crop)
	}
	return crops
}

// FileSource loads the dataset from a local CSV file.
type FileSource struct {
	Path string
}

func (s FileSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(s.Path)
}
