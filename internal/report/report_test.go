package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kosarica/cml-exchange/internal/items"
)

func openWorkbook(t *testing.T, entities map[items.Kind][]items.Entity) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, entities))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestWriteSheets(t *testing.T) {
	order := items.NewOrder()
	order.ID = "o1"
	order.Date = time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	order.Sum = decimal.RequireFromString("201.5")
	order.Client.Name = "Иван Петров"

	f := openWorkbook(t, map[items.Kind][]items.Entity{
		items.KindOrder: {order},
		items.KindGroup: {
			&items.Group{ID: "g1", Name: "Молочные продукты", Subgroups: []*items.Group{{ID: "g1.1"}}},
			&items.Group{ID: "g2", Name: "Хлеб"},
		},
		items.KindOffer: {},
	})

	assert.Equal(t, []string{SummarySheet, "Group", "Order"}, f.GetSheetList(),
		"kinds follow import order and empty kinds get no sheet")

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Kind", "Count"}, {"Group", "2"}, {"Order", "1"}}, summary)

	groups, err := f.GetRows("Group")
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"ID", "Name", "Subgroups"}, groups[0])
	assert.Equal(t, []string{"g1", "Молочные продукты", "1"}, groups[1])
	assert.Equal(t, []string{"g2", "Хлеб", "0"}, groups[2])

	orders, err := f.GetRows("Order")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o1", orders[1][0])
	assert.Equal(t, "2024-03-05", orders[1][2])
	assert.Equal(t, "Иван Петров", orders[1][4])
	assert.Equal(t, "201.5", orders[1][6])
}

func TestWriteEmpty(t *testing.T) {
	f := openWorkbook(t, nil)

	assert.Equal(t, []string{SummarySheet}, f.GetSheetList())
	rows, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Kind", "Count"}}, rows)
}

func TestValues(t *testing.T) {
	tests := []struct {
		name     string
		entity   items.Entity
		expected []any
	}{
		{
			"product",
			&items.Product{
				ID: "p1", Name: "Молоко", SkuID: "796",
				GroupIDs:      []string{"g1", "g2"},
				Properties:    []items.PropertyValue{{PropertyID: "p1", VariantID: "v1"}},
				TaxName:       "НДС",
				ImageFilename: "001.png",
			},
			[]any{"p1", "Молоко", "", "796", "g1, g2", "p1=v1", "НДС", "001.png"},
		},
		{
			"offer",
			&items.Offer{ID: "o1", Quantity: 3, Prices: []items.Price{
				{PriceTypeID: "pt1", PriceForSku: decimal.RequireFromString("100.5"), CurrencyName: "RUB"},
			}},
			[]any{"o1", "", "", 3, "pt1 100.5 RUB"},
		},
		{
			"tax",
			&items.Tax{Name: "НДС", Value: decimal.NewFromInt(18)},
			[]any{"НДС", float64(18)},
		},
		{
			"order without date",
			&items.Order{ID: "o2"},
			[]any{"o2", "", "", "", "", "", float64(0), 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, values(tt.entity))
		})
	}
}

func TestHeadersCoverEveryKind(t *testing.T) {
	for _, kind := range items.Kinds {
		assert.NotEmpty(t, headers[kind], "no headers for %s", kind)
	}
}
