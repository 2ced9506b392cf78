package facility

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

var ErrUnknownAddress = errors.New("facility: unknown address")

// Coordinates maps an address key to a latitude/longitude pair.
type Coordinates map[string][2]float64

// AddressKey builds the lookup key for an address.
func AddressKey(address, city, zipcode string) string {
	return address + city + zipcode
}

// Lookup returns the coordinates of an address. Unknown addresses are an
// error so that new addresses in the upstream data get noticed and geocoded.
func (c Coordinates) Lookup(address, city, zipcode string) ([2]float64, error) {
	key := AddressKey(address, city, zipcode)
	latlon, ok := c[key]
	if !ok {
		return [2]float64{}, fmt.Errorf("%w: %q", ErrUnknownAddress, key)
	}
	return latlon, nil
}

// LoadCoordinates reads a CSV with an address,city,zipcode,latitude,longitude
// header. Column order does not matter.
func LoadCoordinates(r io.Reader) (Coordinates, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading coordinates header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, col := range []string{"address", "city", "zipcode", "latitude", "longitude"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("coordinates: missing column %q", col)
		}
	}

	coords := make(Coordinates)
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		lat, err := strconv.ParseFloat(row[idx["latitude"]], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinates line %d: latitude: %w", line, err)
		}
		lon, err := strconv.ParseFloat(row[idx["longitude"]], 64)
		if err != nil {
			return nil, fmt.Errorf("coordinates line %d: longitude: %w", line, err)
		}

		key := AddressKey(row[idx["address"]], row[idx["city"]], row[idx["zipcode"]])
		coords[key] = [2]float64{lat, lon}
	}

	return coords, nil
}

func LoadCoordinatesFromFile(fpath string) (Coordinates, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return LoadCoordinates(f)
}
