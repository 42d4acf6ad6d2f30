package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) (*LocalStorage, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "exchange")
	s, err := NewLocalStorage(root)
	require.NoError(t, err)
	return s, root
}

func TestLocalStoragePutGet(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	content := []byte("<КоммерческаяИнформация/>")
	storedAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	key := "exports/2024-03-05/exp1.xml"
	require.NoError(t, s.Put(ctx, key, content, &Metadata{
		ContentType: "application/xml",
		RunID:       "exp1",
		StoredAt:    storedAt,
		Documents:   3,
	}))

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	info, err := s.GetInfo(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, info.Key)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, ComputeChecksum(content), info.Checksum)
	assert.Equal(t, "application/xml", info.ContentType)
	require.NotNil(t, info.Metadata)
	assert.Equal(t, "exp1", info.Metadata.RunID)
	assert.Equal(t, 3, info.Metadata.Documents)
	assert.True(t, storedAt.Equal(info.Metadata.StoredAt))
}

func TestLocalStoragePutOverwrites(t *testing.T) {
	ctx := context.Background()
	s, root := newTestStorage(t)

	require.NoError(t, s.Put(ctx, "a.xml", []byte("first"), nil))
	require.NoError(t, s.Put(ctx, "a.xml", []byte("second"), nil))

	got, err := s.Get(ctx, "a.xml")
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestLocalStorageNotFound(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	_, err := s.Get(ctx, "missing.xml")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.GetInfo(ctx, "missing.xml")
	assert.True(t, errors.Is(err, ErrNotFound))

	exists, err := s.Exists(ctx, "missing.xml")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, s.Delete(ctx, "missing.xml"))
}

func TestLocalStorageDelete(t *testing.T) {
	ctx := context.Background()
	s, root := newTestStorage(t)

	require.NoError(t, s.Put(ctx, "xml/a.xml", []byte("a"), &Metadata{RunID: "imp1"}))
	require.NoError(t, s.Delete(ctx, "xml/a.xml"))

	exists, err := s.Exists(ctx, "xml/a.xml")
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = os.Stat(filepath.Join(root, "xml", "a.xml"+metaSuffix))
	assert.True(t, os.IsNotExist(err), "metadata is removed with the file")
}

func TestLocalStorageList(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)

	for _, key := range []string{
		"exports/2024-03-05/exp1.xml",
		"exports/2024-03-06/exp2.xml",
		"xml/2024-03-05/imp1-import.xml",
	} {
		require.NoError(t, s.Put(ctx, key, []byte(key), &Metadata{RunID: "r"}))
	}

	tests := []struct {
		prefix   string
		expected []string
	}{
		{"exports", []string{"exports/2024-03-05/exp1.xml", "exports/2024-03-06/exp2.xml"}},
		{"exports/2024-03-05", []string{"exports/2024-03-05/exp1.xml"}},
		{"xml/2024-03-05/imp1", []string{"xml/2024-03-05/imp1-import.xml"}},
		{"zip", []string{}},
		{"exports/2024-04", []string{}},
		{"", []string{
			"exports/2024-03-05/exp1.xml",
			"exports/2024-03-06/exp2.xml",
			"xml/2024-03-05/imp1-import.xml",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			keys, err := s.List(ctx, tt.prefix)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, keys)
		})
	}
}

func TestLocalStorageKeysStayInsideBasePath(t *testing.T) {
	s, root := newTestStorage(t)

	tests := []struct {
		key      string
		expected string
	}{
		{"exports/a.xml", filepath.Join(root, "exports", "a.xml")},
		{"../outside.xml", filepath.Join(root, "outside.xml")},
		{"/etc/passwd", filepath.Join(root, "etc", "passwd")},
		{`xml\..\..\b.xml`, filepath.Join(root, "b.xml")},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, s.resolve(tt.key))
		})
	}
}

func TestNew(t *testing.T) {
	s, err := New("local", t.TempDir())
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = New("s3", t.TempDir())
	assert.Error(t, err)
}

func TestLocalStorageListSkipsLeftovers(t *testing.T) {
	ctx := context.Background()
	s, root := newTestStorage(t)

	require.NoError(t, s.Put(ctx, "exports/2024-03-05/exp1.xml", []byte("a"), &Metadata{RunID: "exp1"}))
	leftover := filepath.Join(root, "exports", "2024-03-05", "exp2.xml"+tempMarker+"123")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0644))

	keys, err := s.List(ctx, "exports/")
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/2024-03-05/exp1.xml"}, keys)
}

func TestLocalStorageDirectoryIsNotADocument(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStorage(t)
	require.NoError(t, s.Put(ctx, "exports/2024-03-05/exp1.xml", []byte("a"), nil))

	exists, err := s.Exists(ctx, "exports/2024-03-05")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.GetInfo(ctx, "exports/2024-03-05")
	assert.ErrorIs(t, err, ErrNotFound)

	info, err := s.GetInfo(ctx, "exports/2024-03-05/exp1.xml")
	require.NoError(t, err)
	assert.Nil(t, info.Metadata, "no sidecar without metadata")
	assert.Empty(t, info.ContentType)
}
