// pkg/core/category.go
package core

// Category vocabulary. The codes are GS1-style two-digit application
// identifiers; the table is fixed and must not be extended at runtime.
const (
	CategoryOther = "기타"
	CategoryGTIN  = "GTIN"
	CategoryGLN   = "GLN"
	CategoryGIAI  = "GIAI"
	CategorySSCC  = "SSCC"
	CategoryGSIN  = "GSIN"
)

// DefaultDomain is used when an object carries no domain of its own.
// Links resolve through the public GS1 Digital Link resolver.
const DefaultDomain = "https://id.gs1.org"

var categoryCodes = map[string]string{
	CategoryOther: "00",
	"other":       "00",
	CategoryGTIN:  "01",
	CategoryGLN:   "02",
	CategoryGIAI:  "03",
	CategorySSCC:  "03", // legacy alias for GIAI
	CategoryGSIN:  "04",
}

// CategoryCode returns the two-digit code for a category name.
// Unknown or empty categories map to the default "00".
func CategoryCode(category string) string {
	if code, ok := categoryCodes[category]; ok {
		return code
	}
	return "00"
}

// NormalizeCategory maps an absent category to the default vocabulary entry.
// Known names pass through unchanged; unknown names are kept as-is so the
// container preserves what the user typed (they still code to "00").
func NormalizeCategory(category string) string {
	if category == "" {
		return CategoryOther
	}
	return category
}

// DeriveLink computes domain + "/" + categoryCode + "/" + code.
// It is the only way a DerivedLink value may be produced.
func DeriveLink(domain, category, code string) string {
	if domain == "" {
		domain = DefaultDomain
	}
	return domain + "/" + CategoryCode(category) + "/" + code
}
