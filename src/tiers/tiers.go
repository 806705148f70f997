package tiers

import (
	"strings"
)

// The summit pass hierarchy, lowest to highest. Ordering is the sole basis
// for upgrade validity; prices feed fee computation but never ordering.
const (
	Free    = "free"
	Pixel   = "pixel"
	Silicon = "silicon"
	Quantum = "quantum"
)

var hierarchy = []string{Free, Pixel, Silicon, Quantum}

var prices = map[string]float64{
	Free:    0,
	Pixel:   299,
	Silicon: 499,
	Quantum: 999,
}

type Option struct {
	Tier  string  `json:"tier"`
	Price float64 `json:"price"`
	Fee   float64 `json:"fee"`
}

// Normalize folds a raw tier string to its canonical key: case-fold, strip
// a trailing "pass" word, collapse inner whitespace to single underscores.
// "Quantum Pass", "quantum" and "QUANTUM" all map to "quantum".
func Normalize(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimSpace(strings.TrimSuffix(s, "pass"))
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// Index returns the position of the tier in the hierarchy, or -1 when the
// tier is unknown. The input is normalized first.
func Index(tier string) int {
	key := Normalize(tier)
	for i, t := range hierarchy {
		if t == key {
			return i
		}
	}
	return -1
}

func IsKnown(tier string) bool {
	return Index(tier) >= 0
}

// Price returns the list price for a tier, 0 for unknown tiers.
func Price(tier string) float64 {
	return prices[Normalize(tier)]
}

// Top returns the highest tier in the hierarchy.
func Top() string {
	return hierarchy[len(hierarchy)-1]
}

// IsValidUpgrade reports whether moving from one tier to another is a
// strict ascent of the hierarchy. The free tier is rejected as a target
// explicitly rather than relying on its zero price: ties or non-monotonic
// pricing must not be able to open it up as a destination.
func IsValidUpgrade(from, to string) bool {
	fi, ti := Index(from), Index(to)
	if fi < 0 || ti < 0 {
		return false
	}
	if Normalize(to) == Free {
		return false
	}
	return ti > fi
}

// Fee computes the price difference between two tiers, floored at zero.
// Any invalid pairing yields 0; callers must check IsValidUpgrade before
// treating a nonzero fee as meaningful.
func Fee(from, to string) float64 {
	if !IsKnown(from) || !IsKnown(to) {
		return 0
	}
	fee := Price(to) - Price(from)
	if fee < 0 {
		return 0
	}
	return fee
}

// OptionsAbove lists every tier strictly above current, in hierarchy
// order, with its price and upgrade fee.
func OptionsAbove(current string) []Option {
	ci := Index(current)
	if ci < 0 {
		return nil
	}
	opts := make([]Option, 0, len(hierarchy)-ci-1)
	for _, t := range hierarchy[ci+1:] {
		opts = append(opts, Option{
			Tier:  t,
			Price: prices[t],
			Fee:   Fee(current, t),
		})
	}
	return opts
}
