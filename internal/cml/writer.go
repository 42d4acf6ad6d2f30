package cml

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kosarica/cml-exchange/internal/items"
	"github.com/kosarica/cml-exchange/internal/parsers/charset"
	"github.com/kosarica/cml-exchange/internal/parsers/xml"
	"github.com/kosarica/cml-exchange/internal/pipeline"
)

const indent = "  "

// WriterOption configures a Writer
type WriterOption func(*Writer)

// WithSchemaVersion sets the ВерсияСхемы attribute of the root element
func WithSchemaVersion(version string) WriterOption {
	return func(w *Writer) { w.schemaVersion = version }
}

// WithWriterNamespace overrides the document namespace
func WithWriterNamespace(namespace string) WriterOption {
	return func(w *Writer) { w.namespace = namespace }
}

// WithClock sets the source of the generation date
func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) { w.now = now }
}

// WithWriterLogger sets the writer logger
func WithWriterLogger(logger zerolog.Logger) WriterOption {
	return func(w *Writer) { w.logger = logger }
}

// WithEncoding sets the output encoding label
func WithEncoding(label string) WriterOption {
	return func(w *Writer) { w.encoding = label }
}

// Writer builds one export document from the entities the dispatcher drains.
// Like Reader it owns its tree and is meant for a single export.
type Writer struct {
	dispatcher    *pipeline.Dispatcher
	namespace     string
	schemaVersion string
	encoding      string
	now           func() time.Time
	logger        zerolog.Logger

	root *xml.Element
}

// NewWriter creates a writer with an empty root element
func NewWriter(dispatcher *pipeline.Dispatcher, opts ...WriterOption) *Writer {
	w := &Writer{
		dispatcher:    dispatcher,
		namespace:     DefaultNamespace,
		schemaVersion: DefaultSchemaVersion,
		encoding:      DefaultEncoding,
		now:           time.Now,
		logger:        log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}

	w.root = xml.NewElement(w.namespace, tagCommercialInformation).
		SetAttr(attrSchemaVersion, w.schemaVersion).
		SetAttr(attrGenerationDate, w.now().Format(dateLayout))
	return w
}

// Root returns the document tree built so far
func (w *Writer) Root() *xml.Element {
	return w.root
}

// ExportAll appends every exportable entity kind. Only orders are exported.
func (w *Writer) ExportAll(ctx context.Context) int {
	return w.ExportOrders(ctx)
}

// ExportOrders drains the pending orders and appends one Документ per order.
// It returns the number of documents appended.
func (w *Writer) ExportOrders(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "cml.export.orders")
	defer span.End()

	count := 0
	for entity := range w.dispatcher.Drain(ctx, items.KindOrder) {
		order, ok := entity.(*items.Order)
		if !ok || order == nil {
			w.logger.Warn().Str("type", fmt.Sprintf("%T", entity)).Msg("Non-order entity drained for export, skipped")
			continue
		}
		w.appendOrder(order)
		count++
	}

	exportedDocuments.Add(float64(count))
	span.SetAttributes(attribute.Int("cml.documents", count))
	w.logger.Info().Int("documents", count).Msg("Orders exported")
	return count
}

func (w *Writer) appendOrder(order *items.Order) {
	document := w.root.AddChild(tagDocument)
	document.AddText(tagID, order.ID)
	document.AddText(tagNumber, order.Number)
	document.AddText(tagDate, formatDate(order.Date))
	document.AddText(tagTime, formatClock(order.Time))
	document.AddText(tagOperation, string(order.Operation))
	document.AddText(tagRole, string(order.Role))
	document.AddText(tagCurrency, order.CurrencyName)
	document.AddText(tagExchangeRate, formatDecimal(order.CurrencyRate))
	document.AddText(tagAmount, formatDecimal(order.Sum))
	document.AddText(tagComment, order.Comment)

	client := document.AddChild(tagCounterparties).AddChild(tagCounterparty)
	client.AddText(tagID, order.Client.ID)
	client.AddText(tagTitle, order.Client.Name)
	client.AddText(tagRole, string(order.Client.Role))
	client.AddText(tagFullName, order.Client.FullName)
	client.AddText(tagLastName, order.Client.LastName)
	client.AddText(tagFirstName, order.Client.FirstName)
	client.AddChild(tagAddress).AddText(tagRepresentation, order.Client.Address)

	products := document.AddChild(tagProducts)
	for _, item := range order.Items {
		product := products.AddChild(tagProduct)
		product.AddText(tagID, item.ID)
		product.AddText(tagTitle, item.Name)
		product.AddText(tagBasicUnit, item.Sku.Name).
			SetAttr(tagCode, item.Sku.ID).
			SetAttr(tagTitleFull, item.Sku.NameFull).
			SetAttr(tagInternationalShort, item.Sku.InternationalAbbr)
		product.AddText(tagPricePerUnit, formatDecimal(item.Price))
		product.AddText(tagQuantity, formatDecimal(item.Quant))
		product.AddText(tagAmount, formatDecimal(item.Sum))
	}

	if len(order.AdditionalFields) > 0 {
		requisites := document.AddChild(tagRequisiteValues)
		for _, field := range order.AdditionalFields {
			requisite := requisites.AddChild(tagRequisiteValue)
			requisite.AddText(tagTitle, field.Name)
			requisite.AddText(tagValue, field.Value)
		}
	}
}

// WriteTo renders the document with an XML declaration in the writer's encoding
func (w *Writer) WriteTo(out io.Writer) (int64, error) {
	counter := &countingWriter{w: out}
	label := string(charset.Normalize(w.encoding))
	if label == "" {
		label = string(charset.EncodingUTF8)
	}

	if _, err := fmt.Fprintf(counter, "<?xml version=\"1.0\" encoding=\"%s\"?>\n", label); err != nil {
		return counter.n, fmt.Errorf("failed to write declaration: %w", err)
	}

	encoder, err := charset.NewWriter(label, counter)
	if err != nil {
		return counter.n, fmt.Errorf("failed to create %s encoder: %w", label, err)
	}
	if err := xml.Encode(encoder, w.root, indent); err != nil {
		return counter.n, fmt.Errorf("failed to encode document: %w", err)
	}
	if closer, ok := encoder.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return counter.n, fmt.Errorf("failed to flush %s encoder: %w", label, err)
		}
	}
	return counter.n, nil
}

// Bytes returns the serialized document
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Finalize acknowledges the exported orders to their handler. Call it only
// once the bytes have been delivered; the handler may discard the orders.
func (w *Writer) Finalize(ctx context.Context) {
	w.dispatcher.Finalize(ctx, items.KindOrder)
}

func formatDecimal(d decimal.Decimal) string {
	return d.String()
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
