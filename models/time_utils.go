package models

import "time"

// feed timestamps arrive either with or without a time component
var datetimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC3339,
}

// ParseDatetime parses a feed datetime string. The zero time is returned
// for unparseable input; callers treat that as degraded input, not an
// error.
func ParseDatetime(s string) time.Time {
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// AssetClassForSymbol infers the asset class from the symbol notation:
// forex pairs are quoted with a slash ("EUR/USD"), equities are plain
// tickers.
func AssetClassForSymbol(symbol string) AssetClass {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] == '/' {
			return AssetClassForex
		}
	}
	return AssetClassStock
}
