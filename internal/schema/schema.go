// Copyright (c) 2024 the authors
// Use of this source code is governed by a MIT license found in the LICENSE file.

// Package schema generates the JSON schema of function tool parameters.
package schema

import (
	"fmt"
	"reflect"

	"github.com/invopop/jsonschema"
)

// For generates the JSON schema for the given struct type using reflection.
//
// Fields are required unless their json tag has omitempty,
// and additionalProperties is always false as required by strict function calling.
// Field documentation comes from `jsonschema:"description=..."` tags.
func For[T any]() (*jsonschema.Schema, error) {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("unsupported parameter type %v: must be a struct", typ) //nolint:err113
	}

	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.ReflectFromType(typ)
	// The function API rejects the meta-schema keyword.
	schema.Version = ""

	return schema, nil
}
