package runid

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSeconds(t *testing.T) {
	tests := []struct {
		name     string
		seconds  int64
		expected string
	}{
		{"Zero timestamp", 0, "000000"},
		{"One second", 1, "000001"},
		{"62 seconds", 62, "000010"},
		{"One minute", 60, "00000y"},
		{"One hour", 3600, "0000w4"},
		{"One day", 86400, "000MTY"},
		{"2024-01-01", 1704067200, "1rK5iq"},
		{"Negative clamps to zero", -5, "000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeSeconds(tt.seconds))
		})
	}
}

func TestNewAt(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	id := NewAt(PrefixExport, at)

	assert.True(t, strings.HasPrefix(id, "exp_1rK5iq"), id)
	assert.Len(t, id, len("exp_")+stampLength+randomLength)
	for _, c := range strings.TrimPrefix(id, "exp_") {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected character %q", c)
	}

	parsed, ok := Time(id)
	require.True(t, ok)
	assert.True(t, at.Equal(parsed))
}

func TestNewSortsByTime(t *testing.T) {
	earlier := NewAt(PrefixImport, time.Unix(1_700_000_000, 0))
	later := NewAt(PrefixImport, time.Unix(1_700_000_001, 0))
	assert.Less(t, earlier, later)
}

func TestNewIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id := New(PrefixImport)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestTimeRejectsMalformed(t *testing.T) {
	for _, id := range []string{"", "exp", "exp_12", "exp_!!!!!!abc"} {
		_, ok := Time(id)
		assert.False(t, ok, id)
	}
}
