// Package xml provides a small element tree over encoding/xml with
// namespace-qualified path lookups.
package xml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kosarica/cml-exchange/internal/parsers/charset"
)

// ErrNoRoot is returned when a document has no root element
var ErrNoRoot = errors.New("document has no root element")

// Element is a node of a parsed or synthesized document
type Element struct {
	Name     xml.Name
	Attrs    []xml.Attr
	Content  string
	Children []*Element
}

// NewElement creates a detached element
func NewElement(space, local string) *Element {
	return &Element{Name: xml.Name{Space: space, Local: local}}
}

// Text returns the element's leading character data with surrounding whitespace removed.
// A nil element has empty text.
func (e *Element) Text() string {
	if e == nil {
		return ""
	}
	return strings.TrimSpace(e.Content)
}

// Attr returns the value of an unqualified attribute
func (e *Element) Attr(local string) (string, bool) {
	if e == nil {
		return "", false
	}
	for _, attr := range e.Attrs {
		if attr.Name.Space == "" && attr.Name.Local == local {
			return attr.Value, true
		}
	}
	return "", false
}

// AttrValue returns the value of an unqualified attribute or an empty string
func (e *Element) AttrValue(local string) string {
	value, _ := e.Attr(local)
	return value
}

// SetAttr sets an unqualified attribute, replacing an existing value
func (e *Element) SetAttr(local, value string) *Element {
	for i, attr := range e.Attrs {
		if attr.Name.Space == "" && attr.Name.Local == local {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, xml.Attr{Name: xml.Name{Local: local}, Value: value})
	return e
}

// AddChild appends a child in the same namespace as e
func (e *Element) AddChild(local string) *Element {
	child := NewElement(e.Name.Space, local)
	e.Children = append(e.Children, child)
	return child
}

// AddText appends a child holding text
func (e *Element) AddText(local, text string) *Element {
	child := e.AddChild(local)
	child.Content = text
	return child
}

// Parse reads a whole document and returns its root element.
// Documents declaring a non UTF-8 encoding are decoded through the charset package.
func Parse(r io.Reader) (*Element, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReader

	var root *Element
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		start, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		if root != nil {
			return nil, fmt.Errorf("unexpected element <%s> after root element", start.Name.Local)
		}
		root, err = decodeElement(decoder, start)
		if err != nil {
			return nil, err
		}
	}

	if root == nil {
		return nil, ErrNoRoot
	}
	return root, nil
}

// decodeElement recursively decodes one element and its subtree
func decodeElement(decoder *xml.Decoder, start xml.StartElement) (*Element, error) {
	element := &Element{
		Name:  start.Name,
		Attrs: make([]xml.Attr, 0, len(start.Attr)),
	}
	for _, attr := range start.Attr {
		// namespace declarations are resolved by the decoder already
		if attr.Name.Space == "xmlns" || (attr.Name.Space == "" && attr.Name.Local == "xmlns") {
			continue
		}
		element.Attrs = append(element.Attrs, attr)
	}

	var text strings.Builder
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			child, err := decodeElement(decoder, t)
			if err != nil {
				return nil, err
			}
			element.Children = append(element.Children, child)

		case xml.CharData:
			// only text ahead of the first child belongs to the element
			if len(element.Children) == 0 {
				text.Write(t)
			}

		case xml.EndElement:
			element.Content = text.String()
			return element, nil
		}
	}
}
