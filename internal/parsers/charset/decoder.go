package charset

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"
)

// Encoding represents a text encoding label
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingWindows1251 Encoding = "windows-1251"
	EncodingWindows1250 Encoding = "windows-1250"
	EncodingKOI8R       Encoding = "koi8-r"
)

// aliases seen in exchange files that the IANA index does not know
var aliases = map[string]Encoding{
	"cp1251":  EncodingWindows1251,
	"cp1250":  EncodingWindows1250,
	"win1251": EncodingWindows1251,
	"utf8":    EncodingUTF8,
}

var declarationPattern = regexp.MustCompile(`<\?xml[^?]*encoding=["']([^"']+)["'][^?]*\?>`)

// Normalize lower-cases a label and resolves known aliases
func Normalize(label string) Encoding {
	label = strings.ToLower(strings.TrimSpace(label))
	if enc, ok := aliases[label]; ok {
		return enc
	}
	return Encoding(label)
}

// Lookup returns the x/text encoding for a label
func Lookup(label string) (encoding.Encoding, error) {
	name := Normalize(label)
	switch name {
	case "", EncodingUTF8:
		return encoding.Nop, nil
	case EncodingWindows1251:
		return charmap.Windows1251, nil
	case EncodingWindows1250:
		return charmap.Windows1250, nil
	case EncodingKOI8R:
		return charmap.KOI8R, nil
	}

	enc, err := ianaindex.IANA.Encoding(string(name))
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", label, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("unsupported encoding %q", label)
	}
	return enc, nil
}

// NewReader wraps input with a decoder producing UTF-8.
// Its signature matches xml.Decoder.CharsetReader.
func NewReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	if enc == encoding.Nop {
		return input, nil
	}
	return transform.NewReader(input, enc.NewDecoder()), nil
}

// NewWriter wraps w with an encoder for label. Characters missing from the
// target code page are written as numeric character references.
func NewWriter(label string, w io.Writer) (io.Writer, error) {
	enc, err := Lookup(label)
	if err != nil {
		return nil, err
	}
	if enc == encoding.Nop {
		return w, nil
	}
	return transform.NewWriter(w, encoding.HTMLEscapeUnsupported(enc.NewEncoder())), nil
}

// DeclaredEncoding extracts the encoding from an XML declaration, if any
func DeclaredEncoding(content []byte) Encoding {
	head := content[:min(200, len(content))]
	if match := declarationPattern.FindSubmatch(head); len(match) > 1 {
		return Normalize(string(match[1]))
	}
	return ""
}

// DetectEncoding guesses the encoding of a document: BOM, then the XML
// declaration, then UTF-8 validity. Invalid UTF-8 is assumed to be windows-1251.
func DetectEncoding(content []byte) Encoding {
	if bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}) {
		return EncodingUTF8
	}
	if declared := DeclaredEncoding(content); declared != "" {
		return declared
	}
	if utf8.Valid(content) {
		return EncodingUTF8
	}
	return EncodingWindows1251
}

// SourceReader prepares raw document bytes for the XML decoder. Declared
// encodings are left to the decoder; undeclared non UTF-8 content is
// decoded as windows-1251 up front.
func SourceReader(content []byte) io.Reader {
	content = bytes.TrimPrefix(content, []byte{0xEF, 0xBB, 0xBF})
	if DeclaredEncoding(content) != "" || utf8.Valid(content) {
		return bytes.NewReader(content)
	}
	return transform.NewReader(bytes.NewReader(content), charmap.Windows1251.NewDecoder())
}
