// Package geocoding turns company addresses into map coordinates while
// staying inside the provider's daily quota. It layers a bounded
// in-memory cache over the geocode_cache table, short-circuits records
// that already carry coordinates, and batches provider calls with
// pacing between sub-batches.
package geocoding

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

const countrySuffix = "argentina"

// Normalize canonicalizes a raw address so that case, punctuation,
// whitespace runs and a trailing country name never produce distinct
// cache identities. Pure; empty input yields an empty string.
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		switch r {
		case ',', '.', '-':
			r = ' '
		}
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			if !lastSpace {
				b.WriteByte(' ')
			}
			lastSpace = true
			continue
		}
		lastSpace = false
		b.WriteRune(r)
	}

	out := strings.TrimSpace(b.String())
	for strings.HasSuffix(out, " "+countrySuffix) {
		out = strings.TrimSpace(strings.TrimSuffix(out, countrySuffix))
	}
	if out == countrySuffix {
		out = ""
	}
	return out
}

// CacheKey derives the storage key for an address: the hex SHA1 of its
// normalized form. Both cache tiers key by this value.
func CacheKey(raw string) string {
	h := sha1.Sum([]byte(Normalize(raw)))
	return hex.EncodeToString(h[:])
}

// FullAddress joins an address with its optional locality and province
// qualifiers into the string handed to the provider and the cache.
func FullAddress(direccion, localidad, provincia string) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{direccion, localidad, provincia} {
		p = strings.TrimSpace(p)
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
