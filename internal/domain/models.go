package domain

import (
	"fmt"
	"strings"
)

// Field names supplied by the record source. Category fields arrive with a
// human-readable label alongside the raw code; only the label columns are
// used for classification.
const (
	FieldGenericName  = "generic_name"
	FieldTradeName    = "trade_name"
	FieldDosageForm   = "dosage_form"
	FieldStrength     = "strength_package_size"
	FieldPrice        = "price"
	FieldNationalList = "national_list"
	FieldRemarks      = "remarks"
	FieldImages       = "images"
)

// ClassLabelFields are the classification label fields in level order. The
// first group member's labels are authoritative for the whole group.
var ClassLabelFields = []string{
	"cat_level1_label",
	"cat_level2_label",
	"cat_level3_label",
	"cat_level4_label",
}

// RawRecord is one row as delivered by the record source. Values may be
// scalars, labeled-value wrappers (a map exposing "value"), lists of such
// wrappers, or lists of image descriptors (maps exposing "url").
type RawRecord map[string]any

// NormalizedRecord maps field names to plain scalars, with the images field
// collapsed to an ordered []string of URLs.
type NormalizedRecord map[string]any

// MalformedFieldError reports a record that lacks a field required for
// grouping. It aborts the whole export.
type MalformedFieldError struct {
	Field  string
	Record int
}

func (e *MalformedFieldError) Error() string {
	return fmt.Sprintf("record %d is missing required field %q", e.Record, e.Field)
}

// Table is a rectangular table: every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// GalleryRef identifies a gallery row independently of its final position.
type GalleryRef struct {
	Group  int
	Member int
	Image  int
}

// GalleryImage is one (product-variant, image-URL) pairing destined for
// embedding. Row is the 0-based data row in the final table; Label is the
// rendered "trade dosage (strength)" string kept for traceability.
type GalleryImage struct {
	Ref   GalleryRef
	Row   int
	Label string
	URL   string
}

// Composition is the composed final table plus the gallery rows that need
// image resolution before writing.
type Composition struct {
	Table   Table
	Gallery []GalleryImage
}

// HostRemap rewrites a source host substring in image URLs to a host that is
// reachable from the export process.
type HostRemap struct {
	Source string
	Target string
}

// Apply rewrites every occurrence of the source substring. A remap with an
// empty source leaves URLs untouched.
func (r HostRemap) Apply(url string) string {
	if r.Source == "" {
		return url
	}
	return strings.ReplaceAll(url, r.Source, r.Target)
}
