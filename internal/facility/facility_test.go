package facility

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turbolytics/locator/internal"
	"github.com/turbolytics/locator/internal/dsr"
)

func strptr(s string) *string { return &s }

func loadRecords(t *testing.T) []*internal.Record {
	t.Helper()
	bs, err := os.ReadFile(filepath.Join("testdata", "dm0.json"))
	require.NoError(t, err)

	var rows []any
	require.NoError(t, json.Unmarshal(bs, &rows))

	records, err := dsr.Decode(rows)
	require.NoError(t, err)
	return records
}

func TestLoadCoordinates(t *testing.T) {
	t.Run("fixture", func(t *testing.T) {
		coords, err := LoadCoordinatesFromFile(filepath.Join("testdata", "addresses.csv"))
		require.NoError(t, err)
		assert.Len(t, coords, 3)

		latlon, err := coords.Lookup("1 Main St", "Lansing", "48933")
		require.NoError(t, err)
		assert.Equal(t, [2]float64{42.7325, -84.5555}, latlon)
	})

	t.Run("column order does not matter", func(t *testing.T) {
		coords, err := LoadCoordinates(strings.NewReader(
			"latitude,longitude,zipcode,city,address\n1.5,-2.5,1,B,A\n",
		))
		require.NoError(t, err)
		assert.Equal(t, Coordinates{"AB1": {1.5, -2.5}}, coords)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := LoadCoordinates(strings.NewReader("address,city,zipcode,latitude\n"))
		assert.ErrorContains(t, err, `"longitude"`)
	})

	t.Run("bad latitude", func(t *testing.T) {
		_, err := LoadCoordinates(strings.NewReader(
			"address,city,zipcode,latitude,longitude\nA,B,1,north,2\n",
		))
		assert.ErrorContains(t, err, "line 2: latitude")
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := LoadCoordinates(strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestCoordinates_Lookup_Unknown(t *testing.T) {
	coords := Coordinates{"AB1": {1, 2}}
	_, err := coords.Lookup("A", "B", "2")
	assert.ErrorIs(t, err, ErrUnknownAddress)
	assert.Contains(t, err.Error(), `"AB2"`)
}

func TestCleaner_CleanAll(t *testing.T) {
	coords, err := LoadCoordinatesFromFile(filepath.Join("testdata", "addresses.csv"))
	require.NoError(t, err)

	c := NewCleaner(coords, WithState("MI"))
	facilities, err := c.CleanAll(loadRecords(t))
	require.NoError(t, err)
	require.Len(t, facilities, 3)

	assert.Equal(t, Facility{
		Name:            strptr("Acme Recovery"),
		Services:        []string{"Outpatient", "Detox"},
		LaraID:          strptr("LARA-1"),
		Address:         strptr("1 Main St"),
		City:            strptr("Lansing"),
		Zipcode:         strptr("48933"),
		AcceptsMedicaid: true,
		Coordinates:     [2]float64{42.7325, -84.5555},
		State:           "MI",
	}, facilities[0])

	assert.Equal(t, strptr("Beta Health"), facilities[1].Name)
	assert.Equal(t, []string{}, facilities[1].Services)
	assert.False(t, facilities[1].AcceptsMedicaid)

	assert.Nil(t, facilities[2].LaraID)
	assert.Equal(t, [2]float64{42.9634, -85.6681}, facilities[2].Coordinates)
}

func TestCleaner_Clean(t *testing.T) {
	coords := Coordinates{AddressKey("1 Main St", "Lansing", "48933"): {1, 2}}
	fields := []string{"G0", "M0", "M10", "M11", "M12", "M13"}

	t.Run("unknown address fails loudly", func(t *testing.T) {
		r := internal.NewRecord(fields, []any{"X", nil, "48933", "Lansing", "9 Elm St", "Y"})
		_, err := NewCleaner(coords).Clean(r)
		assert.ErrorIs(t, err, ErrUnknownAddress)
	})

	t.Run("missing name column", func(t *testing.T) {
		r := internal.NewRecord([]string{"M12"}, []any{"1 Main St"})
		_, err := NewCleaner(coords).Clean(r)
		assert.ErrorContains(t, err, "name column")
	})

	t.Run("non string values are stringified", func(t *testing.T) {
		r := internal.NewRecord(fields, []any{"X", 3, json.Number("48933"), "Lansing", "1 Main St", nil})
		f, err := NewCleaner(coords).Clean(r)
		require.NoError(t, err)
		assert.Equal(t, strptr("48933"), f.Zipcode)
		assert.Equal(t, []string{}, f.Services)
		assert.False(t, f.AcceptsMedicaid)
	})

	t.Run("null name stays null", func(t *testing.T) {
		r := internal.NewRecord(fields, []any{nil, nil, "48933", "Lansing", "1 Main St", "Y"})
		f, err := NewCleaner(coords).Clean(r)
		require.NoError(t, err)
		assert.Nil(t, f.Name)

		bs, err := json.Marshal(f)
		require.NoError(t, err)
		assert.Contains(t, string(bs), `"name":null`)
	})

	t.Run("custom columns", func(t *testing.T) {
		cols := DefaultColumns()
		cols.Name = "title"
		r := internal.NewRecord(
			[]string{"title", "M10", "M11", "M12"},
			[]any{"Renamed", "48933", "Lansing", "1 Main St"},
		)
		f, err := NewCleaner(coords, WithColumns(cols)).Clean(r)
		require.NoError(t, err)
		assert.Equal(t, strptr("Renamed"), f.Name)
	})

	t.Run("failure stops clean all", func(t *testing.T) {
		records := []*internal.Record{
			internal.NewRecord(fields, []any{"A", nil, "48933", "Lansing", "1 Main St", "Y"}),
			internal.NewRecord(fields, []any{"B", nil, "00000", "Nowhere", "0 Road", "Y"}),
		}
		_, err := NewCleaner(coords).CleanAll(records)
		assert.ErrorIs(t, err, ErrUnknownAddress)
		assert.Contains(t, err.Error(), "record 1")
	})
}

func TestFacility_MarshalJSON(t *testing.T) {
	f := Facility{
		Name:        strptr("Acme"),
		Services:    []string{"Detox"},
		City:        strptr("Lansing"),
		Coordinates: [2]float64{1.5, -2},
		State:       "MI",
	}
	bs, err := json.Marshal(f)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"name": "Acme",
		"services": ["Detox"],
		"lara_id": null,
		"website": null,
		"phone": null,
		"address": null,
		"city": "Lansing",
		"zipcode": null,
		"accepts_medicaid": false,
		"coordinates": [1.5, -2],
		"state": "MI"
	}`, string(bs))

	row := f.Row()
	assert.Equal(t, "Detox", row["services"])
	assert.Equal(t, 1.5, row["latitude"])
	assert.Equal(t, -2.0, row["longitude"])
}
