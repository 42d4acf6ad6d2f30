// Package runid generates prefixed, time-sortable identifiers for import and export runs
package runid

import (
	"crypto/rand"
	"strings"
	"time"
)

const (
	// PrefixImport marks import runs
	PrefixImport = "imp"

	// PrefixExport marks export runs
	PrefixExport = "exp"

	randomLength = 14
	stampLength  = 6
)

// base62 in ASCII order, so encoded values sort lexicographically
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// New returns an ID for a run starting now, e.g. "exp_1rK5iqX0b2Kd9QwZr7TmPa"
func New(prefix string) string {
	return NewAt(prefix, time.Now())
}

// NewAt returns an ID whose sortable part encodes t
func NewAt(prefix string, t time.Time) string {
	var b strings.Builder
	b.Grow(len(prefix) + 1 + stampLength + randomLength)
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(encodeSeconds(t.Unix()))
	b.WriteString(random(randomLength))
	return b.String()
}

// Time extracts the second the ID was generated at
func Time(id string) (time.Time, bool) {
	_, rest, ok := strings.Cut(id, "_")
	if !ok || len(rest) < stampLength {
		return time.Time{}, false
	}
	var seconds int64
	for _, c := range []byte(rest[:stampLength]) {
		i := strings.IndexByte(alphabet, c)
		if i < 0 {
			return time.Time{}, false
		}
		seconds = seconds*62 + int64(i)
	}
	return time.Unix(seconds, 0).UTC(), true
}

// encodeSeconds encodes a Unix timestamp as 6 base62 characters
func encodeSeconds(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	result := make([]byte, stampLength)
	for i := stampLength - 1; i >= 0; i-- {
		result[i] = alphabet[seconds%62]
		seconds /= 62
	}
	return string(result)
}

// random draws base62 characters, rejecting bytes that would bias the distribution
func random(length int) string {
	result := make([]byte, 0, length)
	buf := make([]byte, length+8)
	for len(result) < length {
		// crypto/rand.Read never returns an error
		rand.Read(buf)
		for _, b := range buf {
			// 248 is the largest multiple of 62 below 256
			if b >= 248 {
				continue
			}
			result = append(result, alphabet[b%62])
			if len(result) == length {
				break
			}
		}
	}
	return string(result)
}
