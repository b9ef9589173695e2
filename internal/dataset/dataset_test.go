package dataset

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cropmap_service/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productionCSV = `State_Name,District_Name,Crop_Year,Season,Crop,Area,Production,lat,lon
Karnataka,MYSORE,2001,Kharif,Rice,100,250,12.29,76.63
Karnataka,MANDYA,2001,Kharif,Rice,50,90,12.52,76.89
Karnataka,MYSORE,2002,Rabi,Ragi,80,120,12.29,76.63
Karnataka,MANDYA,2002,Kharif,Rice,40,,12.52,76.89
Punjab,LUDHIANA,2002,Rabi,Wheat,300,900,,75.85
`

func TestReadCSVRenamesColumnsPositionally(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(productionCSV))
	require.NoError(t, err)

	assert.Equal(t, 5, ds.Len())
	assert.Equal(t, Columns, ds.frame.Names())

	first := ds.Records()[0]
	assert.Equal(t, model.Record{
		State: "Karnataka", District: "MYSORE", CropYear: 2001, Season: "Kharif",
		Crop: "Rice", Area: 100, Production: 250, Latitude: 12.29, Longitude: 76.63,
	}, first)
}

func TestReadCSVKeepsUnparsableNumbersAsNaN(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(productionCSV))
	require.NoError(t, err)

	recs := ds.Records()
	assert.True(t, math.IsNaN(recs[3].Production))
	assert.True(t, math.IsNaN(recs[4].Latitude))
	assert.Equal(t, 75.85, recs[4].Longitude)
}

func TestReadCSVErrors(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("a,b,c\n1,2,3\n"))
	assert.ErrorIs(t, err, ErrColumnCount)

	_, err = ReadCSV(strings.NewReader("State,District,Crop_Year,Season,Crop,Area,Production,Latitude,Longitude\n"))
	assert.ErrorIs(t, err, ErrEmptyDataset)
}

func TestCropsInFirstAppearanceOrder(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(productionCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"Rice", "Ragi", "Wheat"}, ds.Crops())
}

func TestByCrop(t *testing.T) {
	ds, err := ReadCSV(strings.NewReader(productionCSV))
	require.NoError(t, err)

	rice := ds.ByCrop("Rice")
	require.Len(t, rice, 3)
	assert.Equal(t, "MYSORE", rice[0].District)
	assert.Equal(t, "MANDYA", rice[1].District)
	assert.Equal(t, 2002, rice[2].CropYear)

	assert.Empty(t, ds.ByCrop("Cotton"))
	assert.Empty(t, ds.ByCrop(""))
}

func TestFromRecordsMatchesCSV(t *testing.T) {
	parsed, err := ReadCSV(strings.NewReader(productionCSV))
	require.NoError(t, err)

	rebuilt := FromRecords(parsed.Records()[:3])
	assert.Equal(t, 3, rebuilt.Len())
	assert.Equal(t, []string{"Rice", "Ragi"}, rebuilt.Crops())
	assert.Len(t, rebuilt.ByCrop("Rice"), 2)
	assert.Empty(t, FromRecords(nil).ByCrop("Rice"))
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crops.csv")
	require.NoError(t, os.WriteFile(path, []byte(productionCSV), 0o644))

	ds, err := FileSource{Path: path}.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, ds.Len())

	_, err = FileSource{Path: filepath.Join(t.TempDir(), "missing.csv")}.Load(context.Background())
	assert.Error(t, err)
}
