// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type (
	// Field is one column of a Record.
	Field struct {
		Name  string
		Value any
	}

	// Record is a row as an ordered list of columns.
	// It marshals to a JSON object whose keys keep the column order of the query.
	Record []Field
)

// NewRecord pairs columns with values positionally and renders values JSON cannot
// represent faithfully as canonical text: times as RFC 3339, UUIDs in their 36 character form.
func NewRecord(columns []string, values []any) Record {
	record := make(Record, 0, len(columns))
	for i, column := range columns {
		var value any
		if i < len(values) {
			value = canonical(values[i])
		}
		record = append(record, Field{Name: column, Value: value})
	}

	return record
}

func canonical(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case [16]byte:
		return uuid.UUID(v).String()
	case []byte:
		return string(v)
	case []any:
		converted := make([]any, len(v))
		for i, elem := range v {
			converted[i] = canonical(elem)
		}

		return converted
	case map[string]any:
		converted := make(map[string]any, len(v))
		for key, elem := range v {
			converted[key] = canonical(elem)
		}

		return converted
	default:
		return value
	}
}

// Get returns the value of the named column.
func (r Record) Get(name string) (any, bool) {
	for _, field := range r {
		if field.Name == name {
			return field.Value, true
		}
	}

	return nil, false
}

func (r Record) MarshalJSON() ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.WriteByte('{')
	for i, field := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Name)
		if err != nil {
			return nil, fmt.Errorf("marshal column name: %w", err)
		}
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal column %s: %w", field.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}
