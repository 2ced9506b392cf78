package internal

import (
	"bytes"
	"encoding/json"
)

// Record is a struct that contains a set of fields and their corresponding values.
// It represents one decoded row.
// Field order is critical for serializers, so we keep them in a separate slice.
type Record struct {
	fields []string
	values []any
}

func NewRecord(fields []string, values []any) *Record {
	return &Record{
		fields: fields,
		values: values,
	}
}

func (r *Record) Len() int {
	return len(r.fields)
}

func (r *Record) Fields() []string {
	return r.fields
}

func (r *Record) Values() []any {
	return r.values
}

// Get returns the value of field and whether the field exists.
// A field that exists with a null value returns (nil, true).
func (r *Record) Get(field string) (any, bool) {
	for i, f := range r.fields {
		if f == field {
			return r.values[i], true
		}
	}
	return nil, false
}

func (r *Record) Map() map[string]any {
	m := make(map[string]any)
	for i, field := range r.fields {
		m[field] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as a JSON object with keys in field order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(field)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')

		v, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
