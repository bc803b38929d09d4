// Package fingerprint computes a deterministic content digest over the
// tracked fields of a book record. The digest is the cheap "did anything
// change" signal for the detection pass.
package fingerprint

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Houeta/bookwatch/internal/models"
)

// trackedKeys is the fixed set of fields covered by the digest, in the
// lexical order they are serialized. Changing this list changes every
// stored fingerprint.
var trackedKeys = []string{
	"availability",
	"name",
	"num_reviews",
	"price_excluding_tax",
	"price_including_tax",
	"rating",
}

// Book returns the hex-encoded SHA-256 digest of the canonical form of the
// record's tracked fields. If every tracked field is absent, the raw page
// snapshot is hashed instead, so pages where structured extraction failed
// remain comparable across cycles.
func Book(b *models.Book) (string, error) {
	values := map[string]any{
		"availability":        deref(b.Availability),
		"name":                deref(b.Name),
		"num_reviews":         deref(b.NumReviews),
		"price_excluding_tax": deref(b.PriceExclTax),
		"price_including_tax": deref(b.PriceInclTax),
		"rating":              deref(b.Rating),
	}

	allAbsent := true
	for _, k := range trackedKeys {
		if values[k] != nil {
			allAbsent = false
			break
		}
	}
	if allAbsent {
		return fmt.Sprintf("%x", sha256.Sum256([]byte(b.RawHTML))), nil
	}

	canonical, err := serialize(values)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}

	return fmt.Sprintf("%x", sha256.Sum256([]byte(canonical))), nil
}

// serialize writes the tracked values as a compact JSON object with keys in
// fixed lexical order. Absent values are serialized as an explicit null so
// that absence and omission cannot produce different digests.
func serialize(values map[string]any) (string, error) {
	var sb strings.Builder
	sb.WriteByte('{')

	for i, key := range trackedKeys {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(key)
		sb.WriteString(`":`)

		switch v := values[key].(type) {
		case nil:
			sb.WriteString("null")
		case float64:
			// Shortest decimal form that round-trips, stable across runs.
			sb.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		case int:
			sb.WriteString(strconv.Itoa(v))
		case string:
			encoded, err := json.Marshal(v)
			if err != nil {
				return "", fmt.Errorf("failed to encode field %q: %w", key, err)
			}
			sb.Write(encoded)
		default:
			return "", fmt.Errorf("unsupported value type %T for field %q", v, key)
		}
	}

	sb.WriteByte('}')

	return sb.String(), nil
}

// deref converts a typed pointer to its value or nil.
func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
