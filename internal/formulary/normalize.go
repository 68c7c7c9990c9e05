// Package formulary turns raw formulary records into the composed table the
// document writer serializes: normalization of nested field shapes, grouping
// by generic name, and per-group sub-table layout.
package formulary

import (
	"formulary/internal/domain"
)

// Normalize collapses the heterogeneous raw field representations into plain
// scalars, preserving record order and count. The images field becomes a flat
// ordered list of URL strings. Normalizing an already-normalized record is a
// no-op.
//
// Only a record missing the generic-name field is fatal; every other shape
// mismatch degrades to a nil value so one odd record cannot fail the batch.
func Normalize(records []domain.RawRecord) ([]domain.NormalizedRecord, error) {
	normalized := make([]domain.NormalizedRecord, 0, len(records))
	for i, rec := range records {
		out := make(domain.NormalizedRecord, len(rec))
		for field, value := range rec {
			if field == domain.FieldImages {
				out[field] = imageURLs(value)
				continue
			}
			out[field] = unwrap(value)
		}
		if _, ok := out[domain.FieldGenericName]; !ok {
			return nil, &domain.MalformedFieldError{Field: domain.FieldGenericName, Record: i}
		}
		normalized = append(normalized, out)
	}
	return normalized, nil
}

// unwrap resolves a single field value:
//  1. labeled-value wrapper -> its inner value (nil when the wrapper has none)
//  2. non-empty list headed by a wrapper -> the first element's inner value
//  3. anything else passes through unchanged
//
// Rule 2 keeps only the first entry of a multi-valued field.
func unwrap(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return v["value"]
	case []any:
		if len(v) > 0 {
			if first, ok := v[0].(map[string]any); ok {
				return first["value"]
			}
		}
		return value
	default:
		return value
	}
}

// imageURLs extracts the ordered URL strings from an images field, keeping
// only entries that expose a URL. Already-extracted URL strings pass through
// so normalization stays idempotent.
func imageURLs(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		urls := make([]string, 0, len(v))
		for _, entry := range v {
			switch e := entry.(type) {
			case string:
				urls = append(urls, e)
			case map[string]any:
				if url, ok := e["url"].(string); ok {
					urls = append(urls, url)
				}
			}
		}
		return urls
	default:
		return []string{}
	}
}
