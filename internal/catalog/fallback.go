package catalog

import (
	"encoding/json"
	_ "embed"
)

//go:embed fallback.json
var fallbackJSON []byte

// Fallback returns the bundled product list used when the persistent cache
// is empty and no sync has completed yet. It guarantees the search index is
// never empty on first serve. The data is embedded at build time, so a
// decode failure here is a build defect, not a runtime condition.
func Fallback() []Product {
	var products []Product
	if err := json.Unmarshal(fallbackJSON, &products); err != nil {
		return nil
	}
	return products
}
