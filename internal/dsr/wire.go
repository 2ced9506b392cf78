package dsr

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
)

/*
The DM0 wire format sends each row as an object carrying only the values
that changed since the previous row. Two bitmaps mark the columns that
are null and the columns that repeat the last value. The key names and
bit order were inferred from observed payloads, not a published format,
so they live here as configuration rather than in the decoder.
*/

// BitOrder maps a column index to its bit in a row bitmap.
type BitOrder int

const (
	// LSBFirst maps column 0 to bit 0.
	LSBFirst BitOrder = iota
	// MSBFirst maps the last column to bit 0.
	MSBFirst
)

// Wire holds the literal key names of the DM0 format.
type Wire struct {
	// SchemaKey holds the column array on the first row object.
	SchemaKey string
	// ColumnNameKey holds the name of each column inside the schema array.
	ColumnNameKey string
	// ValuesKey holds the array of new values for a row.
	ValuesKey string
	// ReuseKey holds the bitmap of columns repeating their last value.
	ReuseKey string
	// NullKeys are checked in order; the first present key holds the null bitmap.
	NullKeys []string

	BitOrder BitOrder
}

func DefaultWire() Wire {
	return Wire{
		SchemaKey:     "S",
		ColumnNameKey: "N",
		ValuesKey:     "C",
		ReuseKey:      "R",
		NullKeys:      []string{"Ø", "N"},
		BitOrder:      LSBFirst,
	}
}

// Bit returns the bitmap mask for column i of n, or 0 when the column
// has no representable bit.
func (w Wire) Bit(i, n int) uint64 {
	pos := i
	if w.BitOrder == MSBFirst {
		pos = n - 1 - i
	}
	if pos < 0 || pos >= 64 {
		return 0
	}
	return 1 << uint(pos)
}

// bitmap is an optional row bitmap.
type bitmap struct {
	value   uint64
	present bool
}

func (b bitmap) has(mask uint64) bool {
	return b.present && b.value&mask != 0
}

// reuseMask reads the reuse bitmap of a row.
func (w Wire) reuseMask(row map[string]any) (bitmap, error) {
	return lookupBitmap(row, w.ReuseKey)
}

// nullMask reads the null bitmap of a row from the first present null key.
func (w Wire) nullMask(row map[string]any) (bitmap, error) {
	for _, key := range w.NullKeys {
		b, err := lookupBitmap(row, key)
		if err != nil {
			return bitmap{}, err
		}
		if b.present {
			return b, nil
		}
	}
	return bitmap{}, nil
}

// values reads the new values of a row. A missing key means no values.
func (w Wire) values(row map[string]any) ([]any, error) {
	raw, ok := row[w.ValuesKey]
	if !ok || raw == nil {
		return nil, nil
	}
	vs, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not an array", ErrMalformedRow, w.ValuesKey, raw)
	}
	return vs, nil
}

// lookupBitmap reads an integer bitmap. A missing or null key is absent.
func lookupBitmap(row map[string]any, key string) (bitmap, error) {
	raw, ok := row[key]
	if !ok || raw == nil {
		return bitmap{}, nil
	}

	v, err := toUint64(raw)
	if err != nil {
		return bitmap{}, fmt.Errorf("%w: %q: %s", ErrMalformedBitmap, key, err)
	}
	return bitmap{value: v, present: true}, nil
}

// toUint64 reads a non-negative integral bitmap of any size. Bits past
// the 64th can never name a column and are dropped.
func toUint64(raw any) (uint64, error) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return lowBits(new(big.Rat).SetFloat64(v), raw)
	case json.Number:
		r, ok := new(big.Rat).SetString(v.String())
		if !ok {
			return 0, fmt.Errorf("%q is not a number", v.String())
		}
		return lowBits(r, raw)
	case int:
		return lowBits(new(big.Rat).SetInt64(int64(v)), raw)
	case int64:
		return lowBits(new(big.Rat).SetInt64(v), raw)
	case int32:
		return lowBits(new(big.Rat).SetInt64(int64(v)), raw)
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case uint:
		return uint64(v), nil
	default:
		return 0, fmt.Errorf("unsupported type %T", raw)
	}
}

var low64 = new(big.Int).SetUint64(math.MaxUint64)

func lowBits(r *big.Rat, raw any) (uint64, error) {
	if r.Sign() < 0 {
		return 0, fmt.Errorf("%v is negative", raw)
	}
	if !r.IsInt() {
		return 0, fmt.Errorf("%v is not an integer", raw)
	}
	return new(big.Int).And(r.Num(), low64).Uint64(), nil
}
