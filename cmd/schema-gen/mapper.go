package main

import (
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
)

var decimalType = reflect.TypeOf(decimal.Decimal{})

// mapType describes decimals the way they are marshaled: as numeric strings
func mapType(t reflect.Type) *jsonschema.Schema {
	if t == decimalType {
		return &jsonschema.Schema{
			Type:    "string",
			Pattern: `^-?[0-9]+(\.[0-9]+)?$`,
		}
	}
	return nil
}
