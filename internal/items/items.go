// Package items holds the business entities exchanged through CommerceML
// documents. Entities are plain records; behaviour lives in the cml and
// pipeline packages.
package items

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kosarica/cml-exchange/internal/parsers/xml"
)

// Kind names an entity type. Pipeline handlers are registered per Kind.
type Kind string

const (
	KindGroup             Kind = "Group"
	KindProperty          Kind = "Property"
	KindPropertyVariant   Kind = "PropertyVariant"
	KindSku               Kind = "Sku"
	KindTax               Kind = "Tax"
	KindProduct           Kind = "Product"
	KindPriceType         Kind = "PriceType"
	KindOffer             Kind = "Offer"
	KindOrder             Kind = "Order"
	KindUnitOfMeasurement Kind = "UnitOfMeasurement"
)

// Kinds lists every dispatchable kind in import order
var Kinds = []Kind{
	KindGroup,
	KindProperty,
	KindPropertyVariant,
	KindUnitOfMeasurement,
	KindSku,
	KindTax,
	KindProduct,
	KindPriceType,
	KindOffer,
	KindOrder,
}

// Entity is implemented by every dispatchable record
type Entity interface {
	Kind() Kind
}

// Role of a party in an order
type Role string

const (
	RoleBuyer  Role = "Покупатель"
	RoleSeller Role = "Продавец"
)

// Operation is the business operation of an order document
type Operation string

const (
	OperationProductOrder Operation = "Заказ товара"
)

// Origin links an entity back to the element it was built from.
// Only kept for diagnostics.
type Origin struct {
	Source *xml.Element `json:"-"`
}

// Group is a node of the classifier group tree. Each group owns its subgroups.
type Group struct {
	Origin
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Subgroups []*Group `json:"subgroups,omitempty"`
}

func (*Group) Kind() Kind { return KindGroup }

// Property describes a product property. ValueType names the variant
// container inside the property's ВариантыЗначений element.
type Property struct {
	Origin
	ID          string `json:"id"`
	Name        string `json:"name"`
	ValueType   string `json:"valueType"`
	ForProducts bool   `json:"forProducts"`
}

func (*Property) Kind() Kind { return KindProperty }

// PropertyVariant is one allowed value of a property
type PropertyVariant struct {
	Origin
	ID         string `json:"id"`
	Value      string `json:"value"`
	PropertyID string `json:"propertyId"`
}

func (*PropertyVariant) Kind() Kind { return KindPropertyVariant }

// Sku is a basic unit of measurement as embedded in products, offers and order items
type Sku struct {
	Origin
	ID                string `json:"id"`
	Name              string `json:"name"`
	NameFull          string `json:"nameFull"`
	InternationalAbbr string `json:"internationalAbbr"`
}

func (*Sku) Kind() Kind { return KindSku }

// Tax is a tax rate attached to a product
type Tax struct {
	Origin
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

func (*Tax) Kind() Kind { return KindTax }

// AdditionalField is a free-form name/value pair
type AdditionalField struct {
	Origin
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PropertyValue references a property variant chosen for a product
type PropertyValue struct {
	PropertyID string `json:"propertyId"`
	VariantID  string `json:"variantId"`
}

// Product is a catalog entry
type Product struct {
	Origin
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	ItemNumber       string            `json:"itemNumber"`
	SkuID            string            `json:"skuId"`
	GroupIDs         []string          `json:"groupIds"`
	Properties       []PropertyValue   `json:"properties"`
	TaxName          string            `json:"taxName"`
	ImagePath        string            `json:"imagePath"`
	ImageFilename    string            `json:"imageFilename"`
	AdditionalFields []AdditionalField `json:"additionalFields"`
}

func (*Product) Kind() Kind { return KindProduct }

// PriceType is a price list definition from the offers pack
type PriceType struct {
	Origin
	ID       string `json:"id"`
	Name     string `json:"name"`
	Currency string `json:"currency"`
	TaxName  string `json:"taxName"`
	TaxInSum bool   `json:"taxInSum"`
}

func (*PriceType) Kind() Kind { return KindPriceType }

// Price is one price of an offer. Prices are not dispatched on their own.
type Price struct {
	Origin
	Representation string          `json:"representation"`
	PriceTypeID    string          `json:"priceTypeId"`
	PriceForSku    decimal.Decimal `json:"priceForSku"`
	CurrencyName   string          `json:"currencyName"`
	SkuName        string          `json:"skuName"`
	SkuRatio       decimal.Decimal `json:"skuRatio"`
}

// Offer is a sellable sku with its price list
type Offer struct {
	Origin
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	SkuID    string  `json:"skuId"`
	Prices   []Price `json:"prices"`
	Quantity int     `json:"quantity"`
}

func (*Offer) Kind() Kind { return KindOffer }

// Client is the counterparty of an order
type Client struct {
	Origin
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      Role   `json:"role"`
	FullName  string `json:"fullName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Address   string `json:"address"`
}

// NewClient returns a client with the buyer role
func NewClient() Client {
	return Client{Role: RoleBuyer}
}

// OrderItem is an order line. Its Sku is owned by the line.
type OrderItem struct {
	Origin
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Sku   Sku             `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Quant decimal.Decimal `json:"quant"`
	Sum   decimal.Decimal `json:"sum"`

	// AdditionalFields is only filled in OrderFieldsPerItem mode.
	AdditionalFields []AdditionalField `json:"additionalFields,omitempty"`
}

// Order is an order document
type Order struct {
	Origin
	ID               string            `json:"id"`
	Number           string            `json:"number"`
	Date             time.Time         `json:"date"`
	Time             time.Time         `json:"time"`
	CurrencyName     string            `json:"currencyName"`
	CurrencyRate     decimal.Decimal   `json:"currencyRate"`
	Operation        Operation         `json:"operation"`
	Role             Role              `json:"role"`
	Sum              decimal.Decimal   `json:"sum"`
	Client           Client            `json:"client"`
	Comment          string            `json:"comment"`
	Items            []OrderItem       `json:"items"`
	AdditionalFields []AdditionalField `json:"additionalFields"`
}

func (*Order) Kind() Kind { return KindOrder }

// NewOrder returns an order stamped with the current date and time,
// the product order operation and the seller role
func NewOrder() *Order {
	now := time.Now()
	return &Order{
		Date:      time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Time:      time.Date(0, 1, 1, now.Hour(), now.Minute(), now.Second(), 0, time.UTC),
		Operation: OperationProductOrder,
		Role:      RoleSeller,
		Client:    NewClient(),
	}
}

// UnitOfMeasurement is a classifier unit. Not dispatched unless the reader opts in.
type UnitOfMeasurement struct {
	Origin
	Code             string `json:"code"`
	TitleFull        string `json:"titleFull"`
	InternTitleShort string `json:"internTitleShort"`
}

func (*UnitOfMeasurement) Kind() Kind { return KindUnitOfMeasurement }
