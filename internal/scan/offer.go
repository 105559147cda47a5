// Package scan turns scanned QR text into discount offers and imports
// batches of scans from gzip files or S3.
package scan

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// Validity is how long a redeemed offer stays usable.
	Validity = 30 * 24 * time.Hour

	structuredPrefix   = "LEVELUP"
	defaultPercentage  = 10
	defaultDescription = "Descuento Level-Up Gamer"
	genericPrefix      = "Descuento especial: "
	genericMin         = 5
	genericMax         = 25
)

var digitsPattern = regexp.MustCompile(`(\d+)`)

// Rand is the source for generic offer percentages. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Offer is the parsed form of a scanned code.
type Offer struct {
	Code        string
	Description string
	Percentage  int
	ExpiresAt   time.Time
}

// Parse reads text in priority order:
//
//	LEVELUP:<pct>:<description>   structured offer
//	anything with % or "descuento" first number in the text
//	anything else                 random percentage in [5,25]
//
// The offer code is always the full text and expires 30 days after now.
func Parse(text string, now time.Time, rng Rand) Offer {
	if rng == nil {
		rng = globalRand{}
	}

	offer := Offer{
		Code:      text,
		ExpiresAt: now.Add(Validity),
	}

	parts := strings.Split(text, ":")
	switch {
	case len(parts) >= 3 && strings.ToUpper(parts[0]) == structuredPrefix:
		offer.Percentage = clamp(atoiOr(parts[1], defaultPercentage))
		offer.Description = strings.Join(parts[2:], ":")
		if offer.Description == "" {
			offer.Description = defaultDescription
		}

	case strings.Contains(text, "%") || strings.Contains(strings.ToLower(text), "descuento"):
		pct := defaultPercentage
		if m := digitsPattern.FindString(text); m != "" {
			pct = atoiOr(m, defaultPercentage)
		}
		offer.Percentage = clamp(pct)
		offer.Description = text

	default:
		offer.Percentage = genericMin + rng.IntN(genericMax-genericMin+1)
		offer.Description = genericPrefix + text
	}

	return offer
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func clamp(pct int) int {
	return min(max(pct, 1), 100)
}
