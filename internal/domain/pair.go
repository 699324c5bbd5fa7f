// Package domain defines core data structures used throughout the buyer.
package domain

import (
	"fmt"
	"strings"
)

// Pair spot market: base asset priced in quote currency.
type Pair struct {
	// From base currency symbol.
	From string
	// To quote currency symbol.
	To string
}

// ParsePair accepts BASE/QUOTE, BASE_QUOTE and BASE-QUOTE forms.
func ParsePair(s string) (Pair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '_' || r == '-'
	})
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Pair{}, fmt.Errorf("invalid pair %q, expected BASE/QUOTE (e.g. BTC/USDT)", s)
	}

	return Pair{From: parts[0], To: parts[1]}, nil
}

// String returns the canonical BASE/QUOTE representation.
func (p Pair) String() string {
	return fmt.Sprintf("%s/%s", p.From, p.To)
}

// Symbol returns the concatenated exchange symbol.
func (p Pair) Symbol() string {
	return fmt.Sprintf("%s%s", p.From, p.To)
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool {
	return p.From == "" && p.To == ""
}
