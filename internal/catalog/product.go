package catalog

import "time"

// Product is a storefront catalog record as delivered by the sync endpoint.
// The search subsystem never mutates products; it only derives search
// documents from them and maps result ids back to them.
type Product struct {
	// ID is the backend identifier of the product.
	ID string `json:"id"`

	// Slug is the URL-safe identifier. Search documents use it as their
	// document id, so it must be unique across the catalog.
	Slug string `json:"slug"`

	Title       string   `json:"title"`
	Brand       string   `json:"brand"`
	Collection  string   `json:"collection"`
	Description string   `json:"description"`
	Sizes       []string `json:"sizes"`

	Taxonomy Taxonomy `json:"taxonomy"`

	// Price and CompareAtPrice are in the storefront's display currency.
	Price          float64 `json:"price"`
	CompareAtPrice float64 `json:"compareAtPrice,omitempty"`

	Stock int         `json:"stock"`
	Media []MediaItem `json:"media,omitempty"`

	CreatedAt  time.Time `json:"createdAt"`
	Popularity float64   `json:"popularity"`
}

// Taxonomy carries the product's classification plus optional facets.
// Missing facets are empty and contribute nothing to search text.
type Taxonomy struct {
	Department  string `json:"department"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`

	Colors       []string `json:"color,omitempty"`
	Materials    []string `json:"material,omitempty"`
	Fit          string   `json:"fit,omitempty"`
	Length       string   `json:"length,omitempty"`
	Neckline     string   `json:"neckline,omitempty"`
	SleeveLength string   `json:"sleeveLength,omitempty"`
	Pattern      string   `json:"pattern,omitempty"`
	Occasions    []string `json:"occasion,omitempty"`
	SizeClass    string   `json:"sizeClass,omitempty"`
	StrapStyle   string   `json:"strapStyle,omitempty"`
	HardwareColor string  `json:"hardwareColor,omitempty"`
	ClosureType  string   `json:"closureType,omitempty"`
	Fits         []string `json:"fits,omitempty"`
	Metal        string   `json:"metal,omitempty"`
	Gemstone     string   `json:"gemstone,omitempty"`
	JewelrySize  string   `json:"jewelrySize,omitempty"`
	JewelryStyle string   `json:"jewelryStyle,omitempty"`
	JewelryTier  string   `json:"jewelryTier,omitempty"`
}

// MediaItem is a product image or video reference.
type MediaItem struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	AltText string `json:"altText,omitempty"`
}

// SyncResponse is the payload of a 200 response from the sync endpoint.
type SyncResponse struct {
	Version  string    `json:"version"`
	Products []Product `json:"products"`
}
