package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// SearchDoc is the flattened, accent-stripped representation of a product
// that gets fed to the index engine. One per product; id = product slug.
type SearchDoc struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Brand       string `json:"brand"`
	Collection  string `json:"collection"`
	Taxonomy    string `json:"taxonomy"`
	Sizes       string `json:"sizes"`
	Description string `json:"description"`
}

// Bleve field name constants for consistent field references in queries and mappings.
const (
	DocFieldTitle       = "title"
	DocFieldBrand       = "brand"
	DocFieldCollection  = "collection"
	DocFieldTaxonomy    = "taxonomy"
	DocFieldSizes       = "sizes"
	DocFieldDescription = "description"
)

// combiningMarks covers the combining diacritical marks block (U+0300–U+036F).
var combiningMarks = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(combiningMarks)))

// Normalize decomposes the input (NFKD), strips combining diacritical
// marks, collapses whitespace runs to single spaces and trims. Case is
// preserved; lower-casing is applied to indexed terms only, by the engine.
func Normalize(s string) string {
	out, _, err := transform.String(stripMarks, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(out), " ")
}

// ToSearchDoc derives the search document for a product. Pure: it reads the
// product and touches nothing else. The taxonomy flatten order is fixed so
// document derivation is reproducible.
func ToSearchDoc(p Product) SearchDoc {
	return SearchDoc{
		ID:          p.Slug,
		Title:       Normalize(p.Title),
		Brand:       Normalize(p.Brand),
		Collection:  Normalize(p.Collection),
		Taxonomy:    Normalize(flattenTaxonomy(p.Taxonomy)),
		Sizes:       Normalize(strings.Join(p.Sizes, " ")),
		Description: Normalize(p.Description),
	}
}

// ToSearchDocs maps a product list to its document set, preserving order.
func ToSearchDocs(products []Product) []SearchDoc {
	docs := make([]SearchDoc, len(products))
	for i, p := range products {
		docs[i] = ToSearchDoc(p)
	}
	return docs
}

// flattenTaxonomy joins all taxonomy fields into one text blob. Empty
// facets are skipped so they leave no stray separators behind.
func flattenTaxonomy(t Taxonomy) string {
	parts := make([]string, 0, 24)
	appendPart := func(s string) {
		if s != "" {
			parts = append(parts, s)
		}
	}
	appendAll := func(ss []string) {
		for _, s := range ss {
			appendPart(s)
		}
	}

	appendPart(t.Department)
	appendPart(t.Category)
	appendPart(t.Subcategory)
	appendAll(t.Colors)
	appendAll(t.Materials)
	appendPart(t.Fit)
	appendPart(t.Length)
	appendPart(t.Neckline)
	appendPart(t.SleeveLength)
	appendPart(t.Pattern)
	appendAll(t.Occasions)
	appendPart(t.SizeClass)
	appendPart(t.StrapStyle)
	appendPart(t.HardwareColor)
	appendPart(t.ClosureType)
	appendAll(t.Fits)
	appendPart(t.Metal)
	appendPart(t.Gemstone)
	appendPart(t.JewelrySize)
	appendPart(t.JewelryStyle)
	appendPart(t.JewelryTier)

	return strings.Join(parts, " ")
}
