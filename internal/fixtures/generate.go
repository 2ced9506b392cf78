package fixtures

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"strings"

	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
)

var (
	cities = []struct {
		name    string
		zipcode string
		lat     float64
		lon     float64
	}{
		{"Lansing", "48933", 42.7325, -84.5555},
		{"Grand Rapids", "49503", 42.9634, -85.6681},
		{"Detroit", "48226", 42.3314, -83.0458},
		{"Ann Arbor", "48104", 42.2808, -83.7430},
	}

	services = []string{
		"Outpatient",
		"Residential",
		"Detox",
		"Medication Assisted Treatment",
		"Recovery Housing",
	}
)

// Fixture is a generated report payload with the coordinates needed to
// geocode every facility in it.
type Fixture struct {
	Schema  dsr.Schema
	Rows    [][]any
	Payload []any
	// Addresses holds address, city, zipcode, latitude, longitude rows.
	Addresses [][]string
}

// Generate builds n facility rows laid out with columns. Runs of rows share
// a city and medicaid flag so the payload exercises reuse bits, and some
// facilities have no website or phone so it exercises null bits.
func Generate(n int, rng *rand.Rand, columns facility.Columns) Fixture {
	schema := dsr.Schema{
		columns.Name,
		columns.Services,
		columns.LaraID,
		columns.Website,
		columns.Phone,
		columns.Zipcode,
		columns.City,
		columns.Address,
		columns.Medicaid,
	}

	f := Fixture{Schema: schema}
	city := cities[0]
	medicaid := "Y"

	for i := 0; i < n; i++ {
		if rng.Intn(3) == 0 {
			city = cities[rng.Intn(len(cities))]
		}
		if rng.Intn(4) == 0 {
			if medicaid == "Y" {
				medicaid = "N"
			} else {
				medicaid = "Y"
			}
		}

		address := fmt.Sprintf("%d %s St", 100+i, strings.Fields(city.name)[0])

		var website, phone any
		if rng.Intn(3) != 0 {
			website = fmt.Sprintf("https://facility%d.example.org", i+1)
		}
		if rng.Intn(4) != 0 {
			phone = fmt.Sprintf("517-555-%04d", i+1)
		}

		f.Rows = append(f.Rows, []any{
			fmt.Sprintf("Facility %d", i+1),
			pickServices(rng),
			fmt.Sprintf("SA%07d", 1000+i),
			website,
			phone,
			city.zipcode,
			city.name,
			address,
			medicaid,
		})

		f.Addresses = append(f.Addresses, []string{
			address,
			city.name,
			city.zipcode,
			strconv.FormatFloat(city.lat+float64(i)*0.0001, 'f', 4, 64),
			strconv.FormatFloat(city.lon-float64(i)*0.0001, 'f', 4, 64),
		})
	}

	f.Payload = Encode(dsr.DefaultWire(), schema, f.Rows)
	return f
}

func pickServices(rng *rand.Rand) string {
	n := 1 + rng.Intn(3)
	picked := make([]string, 0, n)
	for _, i := range rng.Perm(len(services))[:n] {
		picked = append(picked, services[i])
	}
	return strings.Join(picked, "; ")
}

// QueryData wraps the payload in a query response at result index.
// Earlier results carry no rows.
func (f Fixture) QueryData(index int) map[string]any {
	results := make([]any, index+1)
	for i := 0; i < index; i++ {
		results[i] = map[string]any{
			"jobId":  fmt.Sprintf("job-%d", i),
			"result": map[string]any{"data": map[string]any{}},
		}
	}
	results[index] = map[string]any{
		"jobId": fmt.Sprintf("job-%d", index),
		"result": map[string]any{
			"data": map[string]any{
				"dsr": map[string]any{
					"DS": []any{
						map[string]any{
							"PH": []any{
								map[string]any{"DM0": f.Payload},
							},
						},
					},
				},
			},
		},
	}
	return map[string]any{"results": results}
}

// WriteAddresses writes the coordinates CSV read by facility.LoadCoordinates.
func (f Fixture) WriteAddresses(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"address", "city", "zipcode", "latitude", "longitude"}); err != nil {
		return err
	}
	if err := cw.WriteAll(f.Addresses); err != nil {
		return err
	}
	return cw.Error()
}
