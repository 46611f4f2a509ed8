package pkey

import (
	"encoding/hex"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cosmosquery/crosspartition/internal/errors"
)

// Version selects which EPK algorithm computes the hex string.
type Version int

const (
	V1 Version = 1 // MurmurHash-based, legacy containers
	V2 Version = 2 // default for new containers
)

// componentPrefixBits is the per-component hex-truncation width used when
// concatenating a hierarchical key's per-component hashes: the first
// component contributes a full 128-bit hash, each subsequent component
// contributes 96 bits. This follows the published Cosmos DB EPK v2 contract
// (see DESIGN.md's Open Question entry for pkey).
var componentPrefixBits = []int{128, 96, 96}

const maxComponents = 3

// Key is a canonicalized partition key: 1-3 ordered Components. A
// single-value (non-hierarchical) key is a Key of length 1.
type Key []Component

// Validate checks that Key has between 1 and 3 scalar components.
func (k Key) Validate() error {
	if len(k) == 0 {
		return errors.New(errors.InvalidPartitionKey, "partition key must have at least one component")
	}
	if len(k) > maxComponents {
		return errors.New(errors.InvalidPartitionKey, fmt.Sprintf("partition key has %d components, max is %d", len(k), maxComponents))
	}
	return nil
}

// Computer computes and memoizes EPK hex strings for partition key values.
// Memoization matters because the same partition key is re-hashed every
// time a read-many call groups ids by owning range.
type Computer struct {
	cache *lru.Cache[string, string]
}

// NewComputer creates a Computer with an LRU cache of the given size. A
// size of 0 disables caching (every call recomputes).
func NewComputer(cacheSize int) *Computer {
	var cache *lru.Cache[string, string]
	if cacheSize > 0 {
		cache, _ = lru.New[string, string](cacheSize)
	}
	return &Computer{cache: cache}
}

// EPK returns the uppercase hex EPK string for key under version.
func (c *Computer) EPK(key Key, version Version) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	cacheKey := c.memoKey(key, version)
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			return v, nil
		}
	}

	epk := computeEPK(key, version)

	if c.cache != nil {
		c.cache.Add(cacheKey, epk)
	}
	return epk, nil
}

func (c *Computer) memoKey(key Key, version Version) string {
	var b []byte
	b = append(b, byte(version))
	for _, comp := range key {
		b = append(b, canonicalBytes(comp)...)
		b = append(b, 0xFE) // component separator, avoids ambiguity with payload bytes
	}
	return string(b)
}

// computeEPK hashes each component with MurmurHash3 x64 128-bit and
// concatenates the uppercase hex prefix of each component's hash (the v2
// algorithm). v1 (single-component, legacy containers) uses the same
// per-component hash but takes the full 128 bits of the one component with
// no hierarchical truncation.
func computeEPK(key Key, version Version) string {
	if version == V1 {
		h1, h2 := murmur3_128(canonicalBytes(key[0]), 0)
		return hashHex(h1, h2, 128)
	}

	var out []byte
	for i, comp := range key {
		bits := 128
		if i < len(componentPrefixBits) {
			bits = componentPrefixBits[i]
		}
		h1, h2 := murmur3_128(canonicalBytes(comp), 0)
		out = append(out, hashHex(h1, h2, bits)...)
	}
	return string(out)
}

// hashHex renders the top bits bits of the 128-bit (h1,h2) hash as
// uppercase hex, bits/4 characters long.
func hashHex(h1, h2 uint64, bits int) string {
	full := make([]byte, 16)
	for i := 0; i < 8; i++ {
		full[i] = byte(h1 >> (56 - 8*i))
	}
	for i := 0; i < 8; i++ {
		full[8+i] = byte(h2 >> (56 - 8*i))
	}

	nbytes := bits / 8
	if nbytes > len(full) {
		nbytes = len(full)
	}
	return strings.ToUpper(hex.EncodeToString(full[:nbytes]))
}
