package formulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formulary/internal/domain"
)

func TestNormalizeUnwrapsLabeledValues(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"trade_name":   map[string]any{"value": "Tylenol", "label": "Tylenol (TM)"},
		"price":        map[string]any{"value": 12.5},
		"remarks":      "plain scalar",
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "Paracetamol", got[0]["generic_name"])
	assert.Equal(t, "Tylenol", got[0]["trade_name"])
	assert.Equal(t, 12.5, got[0]["price"])
	assert.Equal(t, "plain scalar", got[0]["remarks"])
}

func TestNormalizeWrapperWithoutInnerValue(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"remarks":      map[string]any{"label": "no value key"},
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	assert.Nil(t, got[0]["remarks"])
}

func TestNormalizeListOfWrappersKeepsFirstOnly(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"dosage_form": []any{
			map[string]any{"value": "tablet"},
			map[string]any{"value": "syrup"},
		},
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	assert.Equal(t, "tablet", got[0]["dosage_form"])
}

func TestNormalizePlainListPassesThrough(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"remarks":      []any{"a", "b"},
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got[0]["remarks"])
}

func TestNormalizeImages(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"images": []any{
			map[string]any{"url": "http://host/a.jpg", "name": "a"},
			map[string]any{"name": "no url"},
			map[string]any{"url": "http://host/b.jpg"},
		},
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://host/a.jpg", "http://host/b.jpg"}, got[0]["images"])
}

func TestNormalizeImagesEmpty(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"images":       []any{},
	}}

	got, err := Normalize(records)
	require.NoError(t, err)
	assert.Equal(t, []string{}, got[0]["images"])
}

func TestNormalizeMissingTitleFieldIsFatal(t *testing.T) {
	records := []domain.RawRecord{
		{"generic_name": "Paracetamol"},
		{"trade_name": "Tylenol"},
	}

	_, err := Normalize(records)
	require.Error(t, err)

	var malformed *domain.MalformedFieldError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, domain.FieldGenericName, malformed.Field)
	assert.Equal(t, 1, malformed.Record)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	records := []domain.RawRecord{{
		"generic_name": "Paracetamol",
		"trade_name":   map[string]any{"value": "Tylenol"},
		"price":        map[string]any{"value": 12.5},
		"images": []any{
			map[string]any{"url": "http://host/a.jpg"},
		},
	}}

	once, err := Normalize(records)
	require.NoError(t, err)

	again := make([]domain.RawRecord, len(once))
	for i, rec := range once {
		again[i] = domain.RawRecord(rec)
	}
	twice, err := Normalize(again)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestNormalizePreservesOrderAndCount(t *testing.T) {
	records := []domain.RawRecord{
		{"generic_name": "A"},
		{"generic_name": "B"},
		{"generic_name": "C"},
	}

	got, err := Normalize(records)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, got[i]["generic_name"])
	}
}
