package fixtures

import (
	"reflect"

	"github.com/turbolytics/locator/internal/dsr"
)

// Encode compresses rows into DM0 row objects using w's key names and bit
// order. The schema is embedded in the first row object. A nil value is
// sent as a null bit, and a value equal to the last value sent for its
// column is sent as a reuse bit. Columns past the 64th are always sent as
// values.
func Encode(w dsr.Wire, schema dsr.Schema, rows [][]any) []any {
	out := make([]any, 0, len(rows))
	previous := make(map[int]any, len(schema))
	nullKey := "Ø"
	if len(w.NullKeys) > 0 {
		nullKey = w.NullKeys[0]
	}

	for r, row := range rows {
		obj := map[string]any{}
		if r == 0 {
			cols := make([]any, len(schema))
			for i, name := range schema {
				cols[i] = map[string]any{w.ColumnNameKey: name}
			}
			obj[w.SchemaKey] = cols
		}

		var nulls, reuse uint64
		values := []any{}

		for i := range schema {
			var v any
			if i < len(row) {
				v = row[i]
			}
			bit := w.Bit(i, len(schema))

			switch {
			case v == nil && bit != 0:
				nulls |= bit
			case bit != 0 && sameAsPrevious(previous, i, v):
				reuse |= bit
			default:
				values = append(values, v)
				if v != nil {
					previous[i] = v
				}
			}
		}

		if len(values) > 0 {
			obj[w.ValuesKey] = values
		}
		if reuse != 0 {
			obj[w.ReuseKey] = reuse
		}
		if nulls != 0 {
			obj[nullKey] = nulls
		}
		out = append(out, obj)
	}

	return out
}

func sameAsPrevious(previous map[int]any, i int, v any) bool {
	prev, ok := previous[i]
	return ok && reflect.DeepEqual(prev, v)
}
