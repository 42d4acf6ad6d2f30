// Package report renders imported entities as an Excel workbook, one sheet per kind
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/cml-exchange/internal/items"
)

// SummarySheet is the first sheet of every workbook
const SummarySheet = "Summary"

// Write renders entities to w. Kinds are laid out in import order and
// kinds without entities get no sheet.
func Write(w io.Writer, entities map[items.Kind][]items.Entity) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("failed to rename summary sheet: %w", err)
	}
	if err := setRow(f, SummarySheet, 1, []any{"Kind", "Count"}); err != nil {
		return err
	}

	row := 2
	for _, kind := range items.Kinds {
		list := entities[kind]
		if len(list) == 0 {
			continue
		}
		if err := setRow(f, SummarySheet, row, []any{string(kind), len(list)}); err != nil {
			return err
		}
		row++

		if err := writeSheet(f, kind, list); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, kind items.Kind, list []items.Entity) error {
	sheet := string(kind)
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	if err := setRow(f, sheet, 1, headers[kind]); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header of %s: %w", sheet, err)
	}

	for i, entity := range list {
		if err := setRow(f, sheet, i+2, values(entity)); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

var headers = map[items.Kind][]any{
	items.KindGroup:             {"ID", "Name", "Subgroups"},
	items.KindProperty:          {"ID", "Name", "Value type", "For products"},
	items.KindPropertyVariant:   {"ID", "Value", "Property ID"},
	items.KindSku:               {"ID", "Name", "Full name", "International abbreviation"},
	items.KindTax:               {"Name", "Value"},
	items.KindProduct:           {"ID", "Name", "Item number", "Sku ID", "Groups", "Properties", "Tax", "Image"},
	items.KindPriceType:         {"ID", "Name", "Currency", "Tax", "Tax in sum"},
	items.KindOffer:             {"ID", "Name", "Sku ID", "Quantity", "Prices"},
	items.KindOrder:             {"ID", "Number", "Date", "Time", "Client", "Currency", "Sum", "Items"},
	items.KindUnitOfMeasurement: {"Code", "Full title", "International short title"},
}

func values(entity items.Entity) []any {
	switch e := entity.(type) {
	case *items.Group:
		return []any{e.ID, e.Name, e.Count() - 1}
	case *items.Property:
		return []any{e.ID, e.Name, e.ValueType, e.ForProducts}
	case *items.PropertyVariant:
		return []any{e.ID, e.Value, e.PropertyID}
	case *items.Sku:
		return []any{e.ID, e.Name, e.NameFull, e.InternationalAbbr}
	case *items.Tax:
		return []any{e.Name, number(e.Value)}
	case *items.Product:
		properties := make([]string, 0, len(e.Properties))
		for _, p := range e.Properties {
			properties = append(properties, p.PropertyID+"="+p.VariantID)
		}
		return []any{e.ID, e.Name, e.ItemNumber, e.SkuID, strings.Join(e.GroupIDs, ", "),
			strings.Join(properties, ", "), e.TaxName, e.ImageFilename}
	case *items.PriceType:
		return []any{e.ID, e.Name, e.Currency, e.TaxName, e.TaxInSum}
	case *items.Offer:
		prices := make([]string, 0, len(e.Prices))
		for _, p := range e.Prices {
			prices = append(prices, fmt.Sprintf("%s %s %s", p.PriceTypeID, p.PriceForSku, p.CurrencyName))
		}
		return []any{e.ID, e.Name, e.SkuID, e.Quantity, strings.Join(prices, "; ")}
	case *items.Order:
		date, clock := "", ""
		if !e.Date.IsZero() {
			date = e.Date.Format("2006-01-02")
		}
		if !e.Time.IsZero() {
			clock = e.Time.Format("15:04:05")
		}
		return []any{e.ID, e.Number, date, clock, e.Client.Name, e.CurrencyName, number(e.Sum), len(e.Items)}
	case *items.UnitOfMeasurement:
		return []any{e.Code, e.TitleFull, e.InternTitleShort}
	default:
		return []any{fmt.Sprintf("%v", entity)}
	}
}

func number(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}
