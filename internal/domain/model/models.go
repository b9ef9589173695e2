package model

import (
	"encoding/json"
	"errors"
	"math"
)

// ErrDistrictNotFound reports a district the locator has no position for.
var ErrDistrictNotFound = errors.New("district not found")

// Record is one row of the crop production dataset.
type Record struct {
	State      string  `db:"state" json:"state"`
	District   string  `db:"district" json:"district"`
	CropYear   int     `db:"crop_year" json:"crop_year"`
	Season     string  `db:"season" json:"season"`
	Crop       string  `db:"crop" json:"crop"`
	Area       float64 `db:"area" json:"area"`
	Production float64 `db:"production" json:"production"`
	Latitude   float64 `db:"latitude" json:"latitude"`
	Longitude  float64 `db:"longitude" json:"longitude"`
}

// Coordinate returns the record position.
func (r Record) Coordinate() Coordinate {
	return Coordinate{Lat: r.Latitude, Lon: r.Longitude}
}

type Coordinate struct {
	Lat float64
	Lon float64
}

// Valid reports whether both components are finite numbers.
func (c Coordinate) Valid() bool {
	return isFinite(c.Lat) && isFinite(c.Lon)
}

// MarshalJSON encodes the coordinate as a [lat, lon] pair, the shape the
// browser heat layers consume.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{c.Lat, c.Lon})
}

type WeightedPoint struct {
	Coordinate
	Weight float64
}

func (p WeightedPoint) Valid() bool {
	return p.Coordinate.Valid() && isFinite(p.Weight)
}

func (p WeightedPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.Lat, p.Lon, p.Weight})
}

// ProductionState tells the production page which of its three displays to show.
type ProductionState int

const (
	ProductionEmpty ProductionState = iota
	ProductionNoData
	ProductionPopulated
)

func (s ProductionState) String() string {
	switch s {
	case ProductionNoData:
		return "no_data"
	case ProductionPopulated:
		return "populated"
	default:
		return "empty"
	}
}

// YearFrame holds every coordinate of one crop year, one step of the
// time-indexed heatmap.
type YearFrame struct {
	Year   int
	Points []Coordinate
}

type YearTotal struct {
	Year       int
	Production float64
}

type ProductionView struct {
	State        ProductionState
	Title        string
	CropOptions  []string
	SelectedCrop string
	Frames       []YearFrame
	Totals       []YearTotal
}

type CropLayer struct {
	Crop   string
	Points []Coordinate
}

type CropTotal struct {
	Crop       string
	Production float64
}

// LocationSummary aggregates the sampled records sharing one exact coordinate.
// Season and Area come from the first record seen at the location.
type LocationSummary struct {
	Location Coordinate
	Season   string
	Area     float64
	TopCrops []CropTotal
}

// DistrictSummary is one marker of the district crop view. Location is the
// first sampled record of the district unless a locator resolved it.
type DistrictSummary struct {
	District string
	State    string
	Location Coordinate
	TopCrops []string
}

type SeasonPoint struct {
	Location   Coordinate
	District   string
	Season     string
	Area       float64
	Production float64
	Color      string
}

type CombinedView struct {
	AreaHeat       []WeightedPoint
	ProductionHeat []WeightedPoint
	Points         []SeasonPoint
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
