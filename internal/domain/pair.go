package domain

import "strings"

type FormulaKind string

const (
	FormulaDefault FormulaKind = "default"
	FormulaCustom  FormulaKind = "custom"
)

// Pair is a tradable base/quote combination, identified by a symbol of the
// conventional BASE_QUOTE form. A pair and its algebraic inverse may both
// be registered, but only one of them is priced directly; the inverse is
// computed as 1/price at lookup time and never stored.
type Pair struct {
	Symbol      string
	Base        string
	Quote       string
	FormulaKind FormulaKind
	FormulaID   string
}

// InverseSymbol returns the QUOTE_BASE counterpart of a BASE_QUOTE symbol,
// or "" if the symbol is not of that form.
func InverseSymbol(symbol string) string {
	base, quote, ok := strings.Cut(symbol, "_")
	if !ok || base == "" || quote == "" {
		return ""
	}
	return quote + "_" + base
}
