package formulary

import (
	"fmt"
	"strconv"
	"strings"

	"formulary/internal/domain"
)

// Column headers of the four sub-tables. The composite "section:;column"
// headers are what the downstream template tooling keys on, so they are kept
// verbatim.
const (
	ColTitle        = "title"
	ColGenericTrade = "Generic Name (TRADE NAME)"
	ColTradeNames   = "Trade_Name(s)"
	ColGenericIndex = "Generic Trade Name [[^Generic (TRADE NAME) Index^]]"
	ColTradeIndex   = "Trade Name Index[[^Trade Name Index^]]"

	ColClassNumeral = "Drug_class:;numeral"
	ColClassLabel   = "Drug Class:;class"

	ColPriceTrade    = "ราคาและเงื่อนไข (Price and Prescription Condition):;Trade Name"
	ColPriceDosage   = "ราคาและเงื่อนไข (Price and Prescription Condition):;Dosage Form"
	ColPriceStrength = "ราคาและเงื่อนไข (Price and Prescription Condition):;Strength or Package Size"
	ColPriceAmount   = "ราคาและเงื่อนไข (Price and Prescription Condition):;ราคาขาย"
	ColPriceNational = "ราคาและเงื่อนไข (Price and Prescription Condition):;บัญชียาหลักแห่งชาติ"
	ColPriceRemarks  = "ราคาและเงื่อนไข_(Price_and_Prescription_Condition):;เงื่อนไขการสั่งยา/หมายเหตุ"

	ColGalleryLabel = "ตารางยาและรูปภาพ:;Trade_Dosage"
	ColGalleryImage = "ตารางยาและรูปภาพ:;Image"
)

// emptyClassLabel is the textual form an empty classification collection
// arrives as; it is filtered out alongside blank labels.
const emptyClassLabel = "[]"

// subTable is one of the four per-group column blocks before alignment.
type subTable struct {
	columns []string
	rows    [][]string
}

func (t *subTable) append(cells ...string) {
	t.rows = append(t.rows, cells)
}

// padTo right-pads the sub-table with empty-string rows until it has n rows.
func (t *subTable) padTo(n int) {
	for len(t.rows) < n {
		t.rows = append(t.rows, make([]string, len(t.columns)))
	}
}

// group is an ordered set of records sharing a title.
type group struct {
	title   string
	members []domain.NormalizedRecord
	indexes []int // original record positions, for gallery refs
}

// Compose partitions normalized records into product groups (first-seen
// order), builds the identity, classification, pricing and gallery sub-tables
// for each, pads them to a common height, concatenates them horizontally and
// stacks the resulting blocks into one final table. Gallery URLs have the
// asset-host remap applied before they reach the image pipeline.
func Compose(records []domain.NormalizedRecord, remap domain.HostRemap) *domain.Composition {
	groups := partition(records)

	blocks := make([]subTable, 0, len(groups))
	var gallery []domain.GalleryImage
	blockStart := 0

	for gi, g := range groups {
		identity := identityTable(g)
		class := classificationTable(g)
		pricing := pricingTable(g)
		images, refs := galleryTable(gi, g, remap)

		height := maxRows(identity, class, pricing, images)
		block := hconcat(height, identity, class, pricing, images)

		for i := range refs {
			refs[i].Row = blockStart + i
		}
		gallery = append(gallery, refs...)

		blocks = append(blocks, block)
		blockStart += height
	}

	return &domain.Composition{
		Table:   stack(blocks),
		Gallery: gallery,
	}
}

func partition(records []domain.NormalizedRecord) []group {
	var groups []group
	byTitle := make(map[string]int)
	for i, rec := range records {
		title := cellString(rec[domain.FieldGenericName])
		gi, ok := byTitle[title]
		if !ok {
			gi = len(groups)
			byTitle[title] = gi
			groups = append(groups, group{title: title})
		}
		groups[gi].members = append(groups[gi].members, rec)
		groups[gi].indexes = append(groups[gi].indexes, i)
	}
	return groups
}

// identityTable has one row per unique trade name (first-seen order). The
// title and the joined "Generic (TRADE, NAMES)" label appear on the first row
// only; the trade-name columns carry one name per row.
func identityTable(g group) subTable {
	trades := uniqueTradeNames(g.members)
	joined := fmt.Sprintf("%s (%s)", g.title, strings.Join(trades, ", "))

	t := subTable{columns: []string{ColTitle, ColGenericTrade, ColTradeNames, ColGenericIndex, ColTradeIndex}}
	for i, trade := range trades {
		title, label := "", ""
		if i == 0 {
			title, label = g.title, joined
		}
		t.append(title, label, trade, label, trade)
	}
	return t
}

func uniqueTradeNames(members []domain.NormalizedRecord) []string {
	seen := make(map[string]bool)
	var trades []string
	for _, m := range members {
		trade := cellString(m[domain.FieldTradeName])
		if !seen[trade] {
			seen[trade] = true
			trades = append(trades, trade)
		}
	}
	return trades
}

// classificationTable numbers the first member's non-empty classification
// labels 1..n. Classification is group-invariant by construction, so the
// first member is authoritative.
func classificationTable(g group) subTable {
	t := subTable{columns: []string{ColClassNumeral, ColClassLabel}}
	first := g.members[0]
	n := 0
	for _, field := range domain.ClassLabelFields {
		label := cellString(first[field])
		if label == "" || label == emptyClassLabel {
			continue
		}
		n++
		t.append(strconv.Itoa(n), label)
	}
	return t
}

func pricingTable(g group) subTable {
	t := subTable{columns: []string{
		ColPriceTrade, ColPriceDosage, ColPriceStrength,
		ColPriceAmount, ColPriceNational, ColPriceRemarks,
	}}
	for _, m := range g.members {
		t.append(
			cellString(m[domain.FieldTradeName]),
			cellString(m[domain.FieldDosageForm]),
			cellString(m[domain.FieldStrength]),
			cellString(m[domain.FieldPrice]),
			cellString(m[domain.FieldNationalList]),
			cellString(m[domain.FieldRemarks]),
		)
	}
	return t
}

// galleryTable emits one row per (member, image URL) pair; members without
// images contribute no rows. When the whole group has no images the sub-table
// contributes no columns either, matching the upstream layout. Returned refs
// still need their final Row assigned by the caller.
func galleryTable(groupIdx int, g group, remap domain.HostRemap) (subTable, []domain.GalleryImage) {
	var t subTable
	var refs []domain.GalleryImage
	for mi, m := range g.members {
		label := fmt.Sprintf("%s %s (%s)",
			cellString(m[domain.FieldTradeName]),
			cellString(m[domain.FieldDosageForm]),
			cellString(m[domain.FieldStrength]))
		urls, _ := m[domain.FieldImages].([]string)
		imgIdx := 0
		for _, url := range urls {
			if url == "" {
				continue
			}
			url = remap.Apply(url)
			if t.columns == nil {
				t.columns = []string{ColGalleryLabel, ColGalleryImage}
			}
			refs = append(refs, domain.GalleryImage{
				Ref:   domain.GalleryRef{Group: groupIdx, Member: mi, Image: imgIdx},
				Label: label,
				URL:   url,
			})
			t.append(label, url)
			imgIdx++
		}
	}
	return t, refs
}

func maxRows(tables ...subTable) int {
	max := 0
	for _, t := range tables {
		if len(t.rows) > max {
			max = len(t.rows)
		}
	}
	return max
}

// hconcat pads every sub-table to height rows and joins them side by side
// into one rectangular block.
func hconcat(height int, tables ...subTable) subTable {
	var block subTable
	block.rows = make([][]string, height)
	for _, t := range tables {
		if len(t.columns) == 0 {
			continue
		}
		t.padTo(height)
		block.columns = append(block.columns, t.columns...)
		for r := 0; r < height; r++ {
			block.rows[r] = append(block.rows[r], t.rows[r]...)
		}
	}
	return block
}

// stack concatenates the per-group blocks vertically. The final column set is
// the first-seen union across blocks; cells for columns a block does not have
// are filled with empty strings.
func stack(blocks []subTable) domain.Table {
	var columns []string
	index := make(map[string]int)
	for _, b := range blocks {
		for _, c := range b.columns {
			if _, ok := index[c]; !ok {
				index[c] = len(columns)
				columns = append(columns, c)
			}
		}
	}

	var rows [][]string
	for _, b := range blocks {
		for _, r := range b.rows {
			row := make([]string, len(columns))
			for ci, c := range b.columns {
				row[index[c]] = r[ci]
			}
			rows = append(rows, row)
		}
	}
	return domain.Table{Columns: columns, Rows: rows}
}

// cellString renders a normalized scalar into its cell text. The nil sentinel
// becomes an empty cell.
func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return fmt.Sprint(t)
	}
}
