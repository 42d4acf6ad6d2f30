package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// metaSuffix names the JSON sidecar kept next to a stored document
const metaSuffix = ".meta"

// LocalStorage keeps exchange artifacts under a directory tree. Keys are
// slash separated and never resolve outside the root.
type LocalStorage struct {
	root string
}

// NewLocalStorage opens root, creating it when missing
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", root, err)
	}
	return &LocalStorage{root: root}, nil
}

// Put replaces the document at key. The sidecar is rewritten only when
// metadata is given.
func (s *LocalStorage) Put(_ context.Context, key string, content []byte, metadata *Metadata) error {
	target := s.resolve(key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to prepare %s: %w", key, err)
	}
	if err := writeFileAtomic(target, content); err != nil {
		return err
	}
	if metadata == nil {
		return nil
	}

	sidecar, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata for %s: %w", key, err)
	}
	return writeFileAtomic(target+metaSuffix, sidecar)
}

func (s *LocalStorage) Get(_ context.Context, key string) ([]byte, error) {
	content, err := os.ReadFile(s.resolve(key))
	if err != nil {
		return nil, notFound(key, err)
	}
	return content, nil
}

// GetInfo describes the stored document, hashing its current bytes so a
// caller can confirm what actually landed on disk
func (s *LocalStorage) GetInfo(_ context.Context, key string) (*FileInfo, error) {
	target := s.resolve(key)
	file, err := os.Open(target)
	if err != nil {
		return nil, notFound(key, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", key, err)
	}

	info := &FileInfo{
		Key:        key,
		Size:       stat.Size(),
		Checksum:   hex.EncodeToString(hash.Sum(nil)),
		ModifiedAt: stat.ModTime(),
	}
	// a missing or unreadable sidecar leaves Metadata nil
	if metadata, ok := readMetadata(target + metaSuffix); ok {
		info.Metadata = metadata
		info.ContentType = metadata.ContentType
	}
	return info, nil
}

func (s *LocalStorage) Exists(_ context.Context, key string) (bool, error) {
	stat, err := os.Stat(s.resolve(key))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return !stat.IsDir(), nil
}

// Delete removes the document and its sidecar. Deleting a missing key is not an error.
func (s *LocalStorage) Delete(_ context.Context, key string) error {
	target := s.resolve(key)
	for _, name := range []string{target, target + metaSuffix} {
		if err := os.Remove(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

// List returns the keys starting with prefix, sorted. Sidecars and
// leftover temporary files are skipped.
func (s *LocalStorage) List(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	err := filepath.WalkDir(s.walkStart(prefix), func(name string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipDir
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.Contains(entry.Name(), tempMarker) {
			return nil
		}
		if key := s.keyOf(name); strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	slices.Sort(keys)
	return keys, nil
}

// walkStart is the deepest existing directory every key with prefix lives under
func (s *LocalStorage) walkStart(prefix string) string {
	dir := s.resolve(prefix)
	if !strings.HasSuffix(prefix, "/") {
		dir = filepath.Dir(dir)
	}
	for dir != s.root && len(dir) > len(s.root) {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return dir
		}
		dir = filepath.Dir(dir)
	}
	return s.root
}

// resolve maps key to a path under root. Rooting the key before cleaning
// keeps ".." from climbing out.
func (s *LocalStorage) resolve(key string) string {
	clean := filepath.Clean("/" + strings.ReplaceAll(key, `\`, "/"))
	return filepath.Join(s.root, strings.TrimPrefix(clean, "/"))
}

func (s *LocalStorage) keyOf(name string) string {
	rel, err := filepath.Rel(s.root, name)
	if err != nil {
		return name
	}
	return filepath.ToSlash(rel)
}

func readMetadata(name string) (*Metadata, bool) {
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, false
	}
	var metadata Metadata
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil, false
	}
	return &metadata, true
}

func notFound(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("failed to read %s: %w", key, err)
}

// ComputeChecksum is the hex SHA-256 of content, matching FileInfo.Checksum
func ComputeChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

const tempMarker = ".tmp-"

// writeFileAtomic renames a fully written temporary file over name
func writeFileAtomic(name string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), filepath.Base(name)+tempMarker+"*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set permissions on %s: %w", name, err)
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), name); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", name, err)
	}
	return nil
}
