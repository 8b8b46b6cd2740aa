package types

import (
	"sort"
	"strconv"
)

const (
	MaxMetadataEntries   = 32
	MaxMetadataKeyLength = 64
)

type metadataKind uint8

const (
	metadataString metadataKind = iota + 1
	metadataNumber
	metadataBool
)

// MetadataValue is a closed variant over string, number and bool.
type MetadataValue struct {
	kind metadataKind
	str  string
	num  float64
	b    bool
}

func StringValue(s string) MetadataValue  { return MetadataValue{kind: metadataString, str: s} }
func NumberValue(n float64) MetadataValue { return MetadataValue{kind: metadataNumber, num: n} }
func BoolValue(b bool) MetadataValue      { return MetadataValue{kind: metadataBool, b: b} }

func (v MetadataValue) AsString() (string, bool)  { return v.str, v.kind == metadataString }
func (v MetadataValue) AsNumber() (float64, bool) { return v.num, v.kind == metadataNumber }
func (v MetadataValue) AsBool() (bool, bool)      { return v.b, v.kind == metadataBool }

func (v MetadataValue) String() string {
	switch v.kind {
	case metadataString:
		return v.str
	case metadataNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case metadataBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

// Metadata is a bounded string-keyed map of MetadataValue.
type Metadata struct {
	entries map[string]MetadataValue
}

// NewMetadata copies entries after checking key count and key length.
func NewMetadata(entries map[string]MetadataValue) (Metadata, error) {
	if len(entries) > MaxMetadataEntries {
		return Metadata{}, validationErr("metadata", "has %d entries, max %d", len(entries), MaxMetadataEntries)
	}
	out := make(map[string]MetadataValue, len(entries))
	for k, v := range entries {
		if k == "" {
			return Metadata{}, validationErr("metadata", "key must not be empty")
		}
		if len(k) > MaxMetadataKeyLength {
			return Metadata{}, validationErr("metadata", "key %q longer than %d bytes", k, MaxMetadataKeyLength)
		}
		if v.kind == 0 {
			return Metadata{}, validationErr("metadata", "key %q has no value", k)
		}
		out[k] = v
	}
	return Metadata{entries: out}, nil
}

func (m Metadata) Get(key string) (MetadataValue, bool) {
	v, ok := m.entries[key]
	return v, ok
}

func (m Metadata) Len() int { return len(m.entries) }

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
