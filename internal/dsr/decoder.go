package dsr

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal"
)

var (
	ErrMissingSchema   = errors.New("dsr: missing schema")
	ErrMalformedSchema = errors.New("dsr: malformed schema")
	ErrMalformedRow    = errors.New("dsr: malformed row")
	ErrMalformedBitmap = errors.New("dsr: malformed bitmap")
)

// Schema is the ordered list of column names shared by every row of a
// payload. Column i corresponds to bit i of the row bitmaps.
type Schema []string

type Option func(*Decoder)

func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

func WithWire(w Wire) Option {
	return func(d *Decoder) {
		d.wire = w
	}
}

// Decoder resolves DM0 rows into records. It holds no per-payload state,
// so one Decoder can decode independent payloads concurrently.
type Decoder struct {
	logger *zap.Logger
	wire   Wire
}

func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{
		logger: zap.NewNop(),
		wire:   DefaultWire(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads the schema from the first row and decodes every row
// against it.
func (d *Decoder) Decode(rows []any) ([]*internal.Record, error) {
	if len(rows) == 0 {
		return []*internal.Record{}, nil
	}

	first, ok := rows[0].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: row 0 is %T, not an object", ErrMalformedRow, rows[0])
	}

	schema, err := d.ReadSchema(first)
	if err != nil {
		return nil, err
	}

	return d.DecodeRows(schema, rows)
}

// ReadSchema extracts the column names declared on a row object.
func (d *Decoder) ReadSchema(row map[string]any) (Schema, error) {
	raw, ok := row[d.wire.SchemaKey]
	if !ok || raw == nil {
		return nil, ErrMissingSchema
	}

	cols, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %q is %T, not an array", ErrMalformedSchema, d.wire.SchemaKey, raw)
	}
	if len(cols) == 0 {
		return nil, ErrMissingSchema
	}

	schema := make(Schema, len(cols))
	for i, c := range cols {
		col, ok := c.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: column %d is %T, not an object", ErrMalformedSchema, i, c)
		}
		name, ok := col[d.wire.ColumnNameKey].(string)
		if !ok {
			return nil, fmt.Errorf("%w: column %d has no %q name", ErrMalformedSchema, i, d.wire.ColumnNameKey)
		}
		schema[i] = name
	}
	return schema, nil
}

// DecodeRows decodes rows against schema. Rows are resolved strictly in
// order: a reused column takes the last value written for it by an
// earlier row of the same call.
func (d *Decoder) DecodeRows(schema Schema, rows []any) ([]*internal.Record, error) {
	if len(schema) == 0 {
		return nil, ErrMissingSchema
	}

	records := make([]*internal.Record, 0, len(rows))
	previous := make(map[string]any, len(schema))

	for i, r := range rows {
		row, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: row %d is %T, not an object", ErrMalformedRow, i, r)
		}

		record, err := d.decodeRow(schema, row, previous)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		records = append(records, record)
	}

	return records, nil
}

func (d *Decoder) decodeRow(schema Schema, row map[string]any, previous map[string]any) (*internal.Record, error) {
	values, err := d.wire.values(row)
	if err != nil {
		return nil, err
	}
	reuse, err := d.wire.reuseMask(row)
	if err != nil {
		return nil, err
	}
	nulls, err := d.wire.nullMask(row)
	if err != nil {
		return nil, err
	}

	resolved := make([]any, len(schema))
	cursor := 0

	for i, name := range schema {
		bit := d.wire.Bit(i, len(schema))

		switch {
		case nulls.has(bit):
			resolved[i] = nil
		case reuse.has(bit):
			resolved[i] = previous[name]
		case cursor < len(values):
			resolved[i] = values[cursor]
			previous[name] = values[cursor]
			cursor++
		default:
			// under-supplied row
			d.logger.Debug("row ran out of values",
				zap.String("column", name),
				zap.Int("column_index", i),
				zap.Int("values", len(values)),
			)
			resolved[i] = nil
		}
	}

	return internal.NewRecord(schema, resolved), nil
}

// Decode decodes rows with the default wire format.
func Decode(rows []any) ([]*internal.Record, error) {
	return NewDecoder().Decode(rows)
}
