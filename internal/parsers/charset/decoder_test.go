package charset

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func cp1251(t *testing.T, s string) []byte {
	t.Helper()
	encoded, err := charmap.Windows1251.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return encoded
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		label    string
		expected Encoding
	}{
		{"UTF-8", EncodingUTF8},
		{"utf8", EncodingUTF8},
		{" Windows-1251 ", EncodingWindows1251},
		{"cp1251", EncodingWindows1251},
		{"CP1250", EncodingWindows1250},
		{"koi8-r", EncodingKOI8R},
		{"iso-8859-5", Encoding("iso-8859-5")},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.label))
		})
	}
}

func TestLookup(t *testing.T) {
	enc, err := Lookup("cp1251")
	require.NoError(t, err)
	assert.Equal(t, charmap.Windows1251, enc)

	enc, err = Lookup("ISO-8859-5")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	_, err = Lookup("no-such-encoding")
	assert.Error(t, err)
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name     string
		content  []byte
		expected Encoding
	}{
		{
			name:     "UTF-8 BOM",
			content:  append([]byte{0xEF, 0xBB, 0xBF}, []byte("<a/>")...),
			expected: EncodingUTF8,
		},
		{
			name:     "Declared windows-1251",
			content:  []byte(`<?xml version="1.0" encoding="windows-1251"?><a/>`),
			expected: EncodingWindows1251,
		},
		{
			name:     "Declared with single quotes",
			content:  []byte(`<?xml version='1.0' encoding='UTF-8'?><a/>`),
			expected: EncodingUTF8,
		},
		{
			name:     "Undeclared valid UTF-8",
			content:  []byte("<a>Привет</a>"),
			expected: EncodingUTF8,
		},
		{
			name:     "Undeclared windows-1251",
			content:  cp1251(t, "<a>Привет</a>"),
			expected: EncodingWindows1251,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectEncoding(tt.content))
		})
	}
}

func TestSourceReader(t *testing.T) {
	t.Run("Strips BOM", func(t *testing.T) {
		out, err := io.ReadAll(SourceReader(append([]byte{0xEF, 0xBB, 0xBF}, "<a/>"...)))
		require.NoError(t, err)
		assert.Equal(t, "<a/>", string(out))
	})

	t.Run("Decodes undeclared windows-1251", func(t *testing.T) {
		out, err := io.ReadAll(SourceReader(cp1251(t, "<a>Привет</a>")))
		require.NoError(t, err)
		assert.Equal(t, "<a>Привет</a>", string(out))
	})

	t.Run("Leaves declared documents to the decoder", func(t *testing.T) {
		content := append([]byte(`<?xml version="1.0" encoding="windows-1251"?>`), cp1251(t, "<a>Привет</a>")...)
		out, err := io.ReadAll(SourceReader(content))
		require.NoError(t, err)
		assert.Equal(t, content, out)
	})
}

func TestNewWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter("windows-1251", &buf)
	require.NoError(t, err)

	_, err = io.WriteString(w, "Цена €5 ✓")
	require.NoError(t, err)
	require.NoError(t, w.(io.Closer).Close())

	decoded, err := charmap.Windows1251.NewDecoder().Bytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Цена €5 &#10003;", string(decoded), "characters outside the code page become references")

	var plain bytes.Buffer
	w, err = NewWriter("utf-8", &plain)
	require.NoError(t, err)
	assert.Same(t, &plain, w)
}

func TestNewReader(t *testing.T) {
	r, err := NewReader("windows-1251", bytes.NewReader(cp1251(t, "Молоко")))
	require.NoError(t, err)
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Молоко", string(out))

	_, err = NewReader("no-such-encoding", bytes.NewReader(nil))
	assert.Error(t, err)
}
