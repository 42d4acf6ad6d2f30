package xml

import (
	"bufio"
	"encoding/xml"
	"io"
	"strings"
)

// Encode writes the tree rooted at root with the given indent. The root
// declares its namespace as the default namespace; descendants sharing it
// are written unprefixed. Elements without text or children are self-closed.
func Encode(w io.Writer, root *Element, indent string) error {
	bw := bufio.NewWriter(w)
	writeElement(bw, root, indent, 0, "")
	bw.WriteString("\n")
	return bw.Flush()
}

func writeElement(w *bufio.Writer, element *Element, indent string, level int, parentSpace string) {
	w.WriteString(strings.Repeat(indent, level))
	w.WriteString("<")
	w.WriteString(element.Name.Local)

	if element.Name.Space != parentSpace {
		writeAttr(w, "xmlns", element.Name.Space)
	}
	for _, attr := range element.Attrs {
		writeAttr(w, attr.Name.Local, attr.Value)
	}

	if len(element.Children) == 0 && element.Content == "" {
		w.WriteString("/>")
		return
	}
	w.WriteString(">")

	xml.EscapeText(w, []byte(element.Content))

	if len(element.Children) > 0 {
		for _, child := range element.Children {
			w.WriteString("\n")
			writeElement(w, child, indent, level+1, element.Name.Space)
		}
		w.WriteString("\n")
		w.WriteString(strings.Repeat(indent, level))
	}

	w.WriteString("</")
	w.WriteString(element.Name.Local)
	w.WriteString(">")
}

func writeAttr(w *bufio.Writer, name, value string) {
	w.WriteString(" ")
	w.WriteString(name)
	w.WriteString(`="`)
	xml.EscapeText(w, []byte(value))
	w.WriteString(`"`)
}
