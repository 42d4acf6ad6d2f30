package cml

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kosarica/cml-exchange/internal/items"
	"github.com/kosarica/cml-exchange/internal/parsers/charset"
	"github.com/kosarica/cml-exchange/internal/parsers/xml"
	"github.com/kosarica/cml-exchange/internal/pipeline"
)

var (
	// ErrSourceNotFound is returned when the source document does not exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrSourceMalformed is returned when the source document cannot be parsed
	ErrSourceMalformed = errors.New("source file is not well-formed XML")
)

var tracer = otel.Tracer("github.com/kosarica/cml-exchange/internal/cml")

// OrderFieldsMode selects where order additional fields are attached
type OrderFieldsMode string

const (
	// OrderFieldsPerOrder reads the order level ЗначенияРеквизитов once into Order.AdditionalFields
	OrderFieldsPerOrder OrderFieldsMode = "per-order"

	// OrderFieldsPerItem re-reads the order level container for every item and
	// takes names and values from the item element, attaching the result to
	// OrderItem.AdditionalFields. This reproduces the legacy exchange behaviour.
	OrderFieldsPerItem OrderFieldsMode = "per-item"
)

// ParseOrderFieldsMode maps a configuration value to a mode, defaulting to per-order
func ParseOrderFieldsMode(value string) OrderFieldsMode {
	if OrderFieldsMode(strings.ToLower(strings.TrimSpace(value))) == OrderFieldsPerItem {
		return OrderFieldsPerItem
	}
	return OrderFieldsPerOrder
}

// Summary counts the entities a reader submitted, by kind
type Summary map[items.Kind]int

// Total returns the number of submitted entities
func (s Summary) Total() int {
	total := 0
	for _, n := range s {
		total += n
	}
	return total
}

// ReaderOption configures a Reader
type ReaderOption func(*Reader)

// WithUploadRoot sets the directory product images are resolved against
func WithUploadRoot(dir string) ReaderOption {
	return func(r *Reader) { r.uploadRoot = dir }
}

// WithReaderNamespace overrides the document namespace
func WithReaderNamespace(namespace string) ReaderOption {
	return func(r *Reader) { r.resolver = xml.NewResolver(namespace) }
}

// WithReaderLogger sets the reader logger
func WithReaderLogger(logger zerolog.Logger) ReaderOption {
	return func(r *Reader) { r.logger = logger }
}

// WithUnitDispatch makes the reader submit units of measurement
func WithUnitDispatch(enabled bool) ReaderOption {
	return func(r *Reader) { r.dispatchUnits = enabled }
}

// WithOrderFieldsMode selects how order additional fields are read
func WithOrderFieldsMode(mode OrderFieldsMode) ReaderOption {
	return func(r *Reader) { r.orderFields = mode }
}

// Reader imports one source document. The document is parsed on first use
// and the outcome, tree or error, is kept for the reader's lifetime.
// A Reader is not safe for concurrent use; use one per import.
type Reader struct {
	path          string
	dispatcher    *pipeline.Dispatcher
	resolver      xml.Resolver
	uploadRoot    string
	dispatchUnits bool
	orderFields   OrderFieldsMode
	logger        zerolog.Logger

	opened  bool
	tree    *xml.Element
	err     error
	summary Summary
}

// NewReader creates a reader for the document at path
func NewReader(path string, dispatcher *pipeline.Dispatcher, opts ...ReaderOption) *Reader {
	r := &Reader{
		path:        path,
		dispatcher:  dispatcher,
		resolver:    xml.NewResolver(DefaultNamespace),
		orderFields: OrderFieldsPerOrder,
		logger:      log.Logger,
		summary:     make(Summary),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str("source", path).Logger()
	return r
}

// Summary returns the entities submitted so far
func (r *Reader) Summary() Summary {
	result := make(Summary, len(r.summary))
	for kind, n := range r.summary {
		result[kind] = n
	}
	return result
}

// Tree returns the parsed document, parsing it on the first call
func (r *Reader) Tree() (*xml.Element, error) {
	if !r.opened {
		r.opened = true
		r.tree, r.err = r.load()
	}
	return r.tree, r.err
}

func (r *Reader) load() (*xml.Element, error) {
	content, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSourceNotFound, r.path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}

	root, err := xml.Parse(charset.SourceReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceMalformed, r.path, err)
	}
	return root, nil
}

// ImportAll runs the classifier, catalog, offers and orders phases in order.
// Only a failure to load the document is returned; everything else is
// logged and recovered from.
func (r *Reader) ImportAll(ctx context.Context) (Summary, error) {
	ctx, span := tracer.Start(ctx, "cml.import")
	defer span.End()
	span.SetAttributes(attribute.String("cml.source", r.path))

	if _, err := r.Tree(); err != nil {
		r.logger.Error().Err(err).Msg("Import failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, "source unavailable")
		return r.Summary(), err
	}

	phases := []struct {
		name string
		run  func(context.Context) error
	}{
		{phaseClassifier, r.ImportClassifier},
		{phaseCatalog, r.ImportCatalog},
		{phaseOffers, r.ImportOffers},
		{phaseOrders, r.ImportOrders},
	}
	for _, phase := range phases {
		if err := phase.run(ctx); err != nil {
			r.logger.Error().Err(err).Str("phase", phase.name).Msg("Import phase skipped")
		}
	}

	summary := r.Summary()
	r.logger.Info().Int("entities", summary.Total()).Msg("Import complete")
	return summary, nil
}

// ImportClassifier submits top level groups, properties with their variants
// and, when enabled, units of measurement
func (r *Reader) ImportClassifier(ctx context.Context) error {
	return r.phase(ctx, phaseClassifier, tagClassifier, func(ctx context.Context, classifier *xml.Element) {
		// nested groups travel inside their parent
		for _, group := range r.parseGroups(classifier) {
			r.submit(ctx, group)
		}
		r.importProperties(ctx, classifier)
		r.importUnits(ctx, classifier)
	})
}

// ImportCatalog submits products together with their skus and taxes
func (r *Reader) ImportCatalog(ctx context.Context) error {
	return r.phase(ctx, phaseCatalog, tagCatalog, r.importProducts)
}

// ImportOffers submits price types, offer skus and offers
func (r *Reader) ImportOffers(ctx context.Context) error {
	return r.phase(ctx, phaseOffers, tagOffersPack, func(ctx context.Context, pack *xml.Element) {
		r.importPriceTypes(ctx, pack)
		r.importOffers(ctx, pack)
	})
}

// ImportOrders submits every order document of the source
func (r *Reader) ImportOrders(ctx context.Context) error {
	return r.phase(ctx, phaseOrders, "", r.importOrders)
}

// phase resolves the section element below the root and runs fn on it.
// An empty section name runs fn on the root itself. A missing section is a no-op.
func (r *Reader) phase(ctx context.Context, name, section string, fn func(context.Context, *xml.Element)) error {
	root, err := r.Tree()
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "cml.import."+name)
	defer span.End()
	started := time.Now()
	defer func() {
		phaseDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
	}()

	element := root
	if section != "" {
		element = r.resolver.FindOne(section, root)
		if element == nil {
			r.logger.Debug().Str("phase", name).Msg("Section absent, phase skipped")
			return nil
		}
	}

	fn(ctx, element)
	return nil
}

func (r *Reader) submit(ctx context.Context, entity items.Entity) {
	r.summary[entity.Kind()]++
	r.dispatcher.Submit(ctx, entity)
}

// parseGroups builds the group trees below element depth-first
func (r *Reader) parseGroups(element *xml.Element) []*items.Group {
	var groups []*items.Group
	for _, groupElement := range r.resolver.FindAll(xml.Join(tagGroups, tagGroup), element) {
		group := &items.Group{
			Origin: items.Origin{Source: groupElement},
			ID:     r.resolver.Text(tagID, groupElement),
			Name:   r.resolver.Text(tagTitle, groupElement),
		}
		group.Subgroups = r.parseGroups(groupElement)
		groups = append(groups, group)
	}
	return groups
}

// variantContainer is the tag of a property's variant list. It comes from
// the property's own ТипЗначений value.
type variantContainer string

// path returns the lookup path of the variants, false when the value type
// cannot name an element
func (c variantContainer) path() (string, bool) {
	name := strings.TrimSpace(string(c))
	if name == "" || strings.ContainsAny(name, "/ ") {
		return "", false
	}
	return xml.Join(tagVariants, name), true
}

func (r *Reader) importProperties(ctx context.Context, classifier *xml.Element) {
	for _, propertyElement := range r.resolver.FindAll(xml.Join(tagProperties, tagProperty), classifier) {
		property := &items.Property{
			Origin:      items.Origin{Source: propertyElement},
			ID:          r.resolver.Text(tagID, propertyElement),
			Name:        r.resolver.Text(tagTitle, propertyElement),
			ValueType:   r.resolver.Text(tagValueType, propertyElement),
			ForProducts: parseBool(r.resolver.Text(tagForProducts, propertyElement)),
		}
		r.submit(ctx, property)

		variantsPath, ok := variantContainer(property.ValueType).path()
		if !ok {
			continue
		}
		for _, variantElement := range r.resolver.FindAll(variantsPath, propertyElement) {
			r.submit(ctx, &items.PropertyVariant{
				Origin:     items.Origin{Source: variantElement},
				ID:         r.resolver.Text(tagValueID, variantElement),
				Value:      r.resolver.Text(tagValue, variantElement),
				PropertyID: property.ID,
			})
		}
	}
}

func (r *Reader) importUnits(ctx context.Context, classifier *xml.Element) {
	parsed := 0
	for _, unitElement := range r.resolver.FindAll(xml.Join(tagUnits, tagUnit), classifier) {
		unit := &items.UnitOfMeasurement{
			Origin:           items.Origin{Source: unitElement},
			Code:             r.resolver.Text(tagCode, unitElement),
			TitleFull:        r.resolver.Text(tagTitleFull, unitElement),
			InternTitleShort: r.resolver.Text(tagInternationalShort, unitElement),
		}
		parsed++
		if r.dispatchUnits {
			r.submit(ctx, unit)
		}
	}
	if parsed > 0 && !r.dispatchUnits {
		r.logger.Debug().Int("units", parsed).Msg("Units of measurement parsed, not dispatched")
	}
}

func (r *Reader) importProducts(ctx context.Context, catalog *xml.Element) {
	for _, productElement := range r.resolver.FindAll(xml.Join(tagProducts, tagProduct), catalog) {
		product := &items.Product{
			Origin:           items.Origin{Source: productElement},
			ID:               r.resolver.Text(tagID, productElement),
			Name:             r.resolver.Text(tagTitle, productElement),
			ItemNumber:       r.resolver.Text(tagItemNumber, productElement),
			GroupIDs:         []string{},
			Properties:       []items.PropertyValue{},
			AdditionalFields: []items.AdditionalField{},
		}

		if skuElement := r.resolver.FindOne(tagBasicUnit, productElement); skuElement != nil {
			sku := parseSku(skuElement)
			product.SkuID = sku.ID
			r.submit(ctx, sku)
		}

		if imageElement := r.resolver.FindOne(tagImage, productElement); imageElement != nil {
			if name, ok := imageBasename(imageElement.Text()); ok {
				product.ImageFilename = name
				product.ImagePath = filepath.Join(r.uploadRoot, name)
			} else if imageElement.Text() != "" {
				r.logger.Warn().Str("product", product.ID).Str("image", imageElement.Text()).Msg("Unusable image reference ignored")
			}
		}

		for _, groupID := range r.resolver.FindAll(xml.Join(tagGroups, tagID), productElement) {
			product.GroupIDs = append(product.GroupIDs, groupID.Text())
		}

		for _, valueElement := range r.resolver.FindAll(xml.Join(tagPropertyValues, tagPropertyValue), productElement) {
			variantID := r.resolver.Text(tagValue, valueElement)
			if variantID == "" {
				continue
			}
			product.Properties = append(product.Properties, items.PropertyValue{
				PropertyID: r.resolver.Text(tagID, valueElement),
				VariantID:  variantID,
			})
		}

		for _, taxElement := range r.resolver.FindAll(xml.Join(tagTaxRates, tagTaxRate), productElement) {
			tax := &items.Tax{
				Origin: items.Origin{Source: taxElement},
				Name:   r.resolver.Text(tagTitle, taxElement),
				Value:  r.decimal(tagRate, taxElement),
			}
			r.submit(ctx, tax)
			// the last rate wins
			product.TaxName = tax.Name
		}

		product.AdditionalFields = append(product.AdditionalFields, r.additionalFields(productElement)...)
		r.submit(ctx, product)
	}
}

func (r *Reader) importPriceTypes(ctx context.Context, pack *xml.Element) {
	for _, priceTypeElement := range r.resolver.FindAll(xml.Join(tagPriceTypes, tagPriceType), pack) {
		r.submit(ctx, &items.PriceType{
			Origin:   items.Origin{Source: priceTypeElement},
			ID:       r.resolver.Text(tagID, priceTypeElement),
			Name:     r.resolver.Text(tagTitle, priceTypeElement),
			Currency: r.resolver.Text(tagCurrency, priceTypeElement),
			TaxName:  r.resolver.Text(xml.Join(tagTax, tagTitle), priceTypeElement),
			TaxInSum: parseBool(r.resolver.Text(xml.Join(tagTax, tagTaxInSum), priceTypeElement)),
		})
	}
}

func (r *Reader) importOffers(ctx context.Context, pack *xml.Element) {
	for _, offerElement := range r.resolver.FindAll(xml.Join(tagOffers, tagOffer), pack) {
		offer := &items.Offer{
			Origin:   items.Origin{Source: offerElement},
			ID:       r.resolver.Text(tagID, offerElement),
			Name:     r.resolver.Text(tagTitle, offerElement),
			Prices:   []items.Price{},
			Quantity: r.integer(tagQuantity, offerElement),
		}

		if skuElement := r.resolver.FindOne(tagBasicUnit, offerElement); skuElement != nil {
			sku := parseSku(skuElement)
			offer.SkuID = sku.ID
			r.submit(ctx, sku)
		}

		for _, priceElement := range r.resolver.FindAll(xml.Join(tagPrices, tagPrice), offerElement) {
			offer.Prices = append(offer.Prices, items.Price{
				Origin:         items.Origin{Source: priceElement},
				Representation: r.resolver.Text(tagRepresentation, priceElement),
				PriceTypeID:    r.resolver.Text(tagPriceTypeID, priceElement),
				PriceForSku:    r.decimal(tagPricePerUnit, priceElement),
				CurrencyName:   r.resolver.Text(tagCurrency, priceElement),
				SkuName:        r.resolver.Text(tagUnitName, priceElement),
				SkuRatio:       r.decimal(tagRatio, priceElement),
			})
		}

		r.submit(ctx, offer)
	}
}

func (r *Reader) importOrders(ctx context.Context, root *xml.Element) {
	for _, orderElement := range r.resolver.FindAll(tagDocument, root) {
		order := items.NewOrder()
		order.Source = orderElement
		order.ID = r.resolver.Text(tagID, orderElement)
		order.Number = r.resolver.Text(tagNumber, orderElement)
		order.Date = r.date(tagDate, orderElement)
		order.Time = r.clock(tagTime, orderElement)
		order.CurrencyName = r.resolver.Text(tagCurrency, orderElement)
		order.CurrencyRate = r.decimal(tagExchangeRate, orderElement)
		order.Sum = r.decimal(tagAmount, orderElement)
		order.Comment = r.resolver.Text(tagComment, orderElement)
		order.Items = []items.OrderItem{}
		order.AdditionalFields = []items.AdditionalField{}
		if operation := r.resolver.Text(tagOperation, orderElement); operation != "" {
			order.Operation = items.Operation(operation)
		}
		if role := r.resolver.Text(tagRole, orderElement); role != "" {
			order.Role = items.Role(role)
		}

		if clientElement := r.resolver.FindOne(xml.Join(tagCounterparties, tagCounterparty), orderElement); clientElement != nil {
			order.Client = r.parseClient(clientElement)
		}

		containerPath := xml.Join(tagRequisiteValues, tagRequisiteValue)
		for _, itemElement := range r.resolver.FindAll(xml.Join(tagProducts, tagProduct), orderElement) {
			item := items.OrderItem{
				Origin: items.Origin{Source: itemElement},
				ID:     r.resolver.Text(tagID, itemElement),
				Name:   r.resolver.Text(tagTitle, itemElement),
				Price:  r.decimal(tagPricePerUnit, itemElement),
				Quant:  r.decimal(tagQuantity, itemElement),
				Sum:    r.decimal(tagAmount, itemElement),
			}
			if skuElement := r.resolver.FindOne(tagBasicUnit, itemElement); skuElement != nil {
				item.Sku = *parseSku(skuElement)
			}

			if r.orderFields == OrderFieldsPerItem {
				for _, fieldElement := range r.resolver.FindAll(containerPath, orderElement) {
					item.AdditionalFields = append(item.AdditionalFields, items.AdditionalField{
						Origin: items.Origin{Source: fieldElement},
						Name:   r.resolver.Text(tagTitle, itemElement),
						Value:  r.resolver.Text(tagValue, itemElement),
					})
				}
			}
			order.Items = append(order.Items, item)
		}

		if r.orderFields == OrderFieldsPerItem {
			r.logger.Debug().Str("order", order.ID).Msg("Order fields attached per item")
		} else {
			order.AdditionalFields = append(order.AdditionalFields, r.additionalFields(orderElement)...)
		}

		r.submit(ctx, order)
	}
}

func (r *Reader) parseClient(element *xml.Element) items.Client {
	client := items.NewClient()
	client.Source = element
	client.ID = r.resolver.Text(tagID, element)
	client.Name = r.resolver.Text(tagTitle, element)
	client.FullName = r.resolver.Text(tagFullName, element)
	client.LastName = r.resolver.Text(tagLastName, element)
	client.FirstName = r.resolver.Text(tagFirstName, element)
	client.Address = r.resolver.Text(xml.Join(tagAddress, tagRepresentation), element)
	if role := r.resolver.Text(tagRole, element); role != "" {
		client.Role = items.Role(role)
	}
	return client
}

func (r *Reader) additionalFields(element *xml.Element) []items.AdditionalField {
	var fields []items.AdditionalField
	for _, fieldElement := range r.resolver.FindAll(xml.Join(tagRequisiteValues, tagRequisiteValue), element) {
		fields = append(fields, items.AdditionalField{
			Origin: items.Origin{Source: fieldElement},
			Name:   r.resolver.Text(tagTitle, fieldElement),
			Value:  r.resolver.Text(tagValue, fieldElement),
		})
	}
	return fields
}

// parseSku reads a basic unit element; identifiers live in attributes
func parseSku(element *xml.Element) *items.Sku {
	return &items.Sku{
		Origin:            items.Origin{Source: element},
		ID:                strings.TrimSpace(element.AttrValue(tagCode)),
		Name:              element.Text(),
		NameFull:          strings.TrimSpace(element.AttrValue(tagTitleFull)),
		InternationalAbbr: strings.TrimSpace(element.AttrValue(tagInternationalShort)),
	}
}

func (r *Reader) decimal(path string, element *xml.Element) decimal.Decimal {
	text := r.resolver.Text(path, element)
	value, ok := parseDecimal(text)
	if !ok {
		r.invalid(path, text)
	}
	return value
}

func (r *Reader) integer(path string, element *xml.Element) int {
	text := r.resolver.Text(path, element)
	value, ok := parseInt(text)
	if !ok {
		r.invalid(path, text)
	}
	return value
}

func (r *Reader) date(path string, element *xml.Element) time.Time {
	text := r.resolver.Text(path, element)
	value, ok := parseDate(text)
	if !ok {
		r.invalid(path, text)
	}
	return value
}

func (r *Reader) clock(path string, element *xml.Element) time.Time {
	text := r.resolver.Text(path, element)
	value, ok := parseClock(text)
	if !ok {
		r.invalid(path, text)
	}
	return value
}

func (r *Reader) invalid(field, value string) {
	r.logger.Warn().Str("field", field).Str("value", value).Msg("Malformed value replaced with default")
}
