// Schema Generator
//
// Generates JSON Schema files for the exchange entities, for authors of
// pipeline handlers and of the order files accepted by "cml-exchange export --orders".
//
// Usage:
//
//	go run ./cmd/schema-gen [-out ./schemas]
//
// Output:
//
//	schemas/classifier.json
//	schemas/catalog.json
//	schemas/offers.json
//	schemas/orders.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/kosarica/cml-exchange/internal/items"
)

// SchemaGroup represents a group of related schemas
type SchemaGroup struct {
	Name   string
	Types  []any
	Output string
}

var groups = []SchemaGroup{
	{
		Name: "classifier",
		Types: []any{
			items.Group{},
			items.Property{},
			items.PropertyVariant{},
			items.UnitOfMeasurement{},
		},
		Output: "classifier.json",
	},
	{
		Name: "catalog",
		Types: []any{
			items.Sku{},
			items.Tax{},
			items.Product{},
		},
		Output: "catalog.json",
	},
	{
		Name: "offers",
		Types: []any{
			items.PriceType{},
			items.Offer{},
		},
		Output: "offers.json",
	},
	{
		Name: "orders",
		Types: []any{
			items.Order{},
		},
		Output: "orders.json",
	},
}

func main() {
	outputDir := flag.String("out", "./schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, group := range groups {
		schema := generateGroupSchema(group)
		outputPath := filepath.Join(*outputDir, group.Output)

		if err := writeSchema(schema, outputPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", group.Output, err)
			os.Exit(1)
		}

		fmt.Printf("Generated %s\n", outputPath)
	}
}

// generateGroupSchema creates a combined schema with all types in a group
func generateGroupSchema(group SchemaGroup) map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: false,
		ExpandedStruct: false,
		Mapper:         mapType,
	}

	definitions := make(map[string]any)
	for _, t := range group.Types {
		schema := reflector.Reflect(t)
		for name, def := range schema.Definitions {
			definitions[name] = def
		}
	}

	return map[string]any{
		"$schema":     "https://json-schema.org/draft/2020-12/schema",
		"$id":         fmt.Sprintf("https://kosarica.hr/schemas/cml/%s.json", group.Name),
		"title":       fmt.Sprintf("%s Entities", capitalize(group.Name)),
		"description": fmt.Sprintf("JSON Schema for CommerceML %s entities generated from Go structs", group.Name),
		"$defs":       definitions,
	}
}

// writeSchema writes a schema to a JSON file
func writeSchema(schema map[string]any, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
