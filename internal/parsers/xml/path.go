package xml

import (
	"encoding/xml"
	"strings"
)

// Resolver looks up elements by slash-separated paths. Every segment is
// qualified with Namespace and matched against direct children only.
type Resolver struct {
	Namespace string
}

// NewResolver creates a resolver for a namespace URI
func NewResolver(namespace string) Resolver {
	return Resolver{Namespace: namespace}
}

// FindOne returns the first element matching path below tree, or nil
func (r Resolver) FindOne(path string, tree *Element) *Element {
	if tree == nil {
		return nil
	}
	return findFirst(tree, r.qualify(path))
}

// FindAll returns every element matching path below tree in document order
func (r Resolver) FindAll(path string, tree *Element) []*Element {
	if tree == nil {
		return nil
	}

	current := []*Element{tree}
	for _, name := range r.qualify(path) {
		var next []*Element
		for _, element := range current {
			for _, child := range element.Children {
				if child.Name == name {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// Text returns the trimmed text of the first match, or an empty string
func (r Resolver) Text(path string, tree *Element) string {
	return r.FindOne(path, tree).Text()
}

// Join composes path segments
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func (r Resolver) qualify(path string) []xml.Name {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	names := make([]xml.Name, 0, len(segments))
	for _, segment := range segments {
		if segment == "" {
			continue
		}
		names = append(names, xml.Name{Space: r.Namespace, Local: segment})
	}
	return names
}

func findFirst(element *Element, names []xml.Name) *Element {
	if len(names) == 0 {
		return element
	}
	for _, child := range element.Children {
		if child.Name != names[0] {
			continue
		}
		if found := findFirst(child, names[1:]); found != nil {
			return found
		}
	}
	return nil
}
