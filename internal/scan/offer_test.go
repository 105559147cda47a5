package scan

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fixedRand int

func (f fixedRand) IntN(n int) int { return int(f) % n }

func TestParse(t *testing.T) {
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		text        string
		percentage  int
		description string
	}{
		{
			name:        "Structured code",
			text:        "LEVELUP:20:20% descuento en consolas",
			percentage:  20,
			description: "20% descuento en consolas",
		},
		{
			name:        "Structured code keeps colons in description",
			text:        "levelup:15:Promo: sillas gamer",
			percentage:  15,
			description: "Promo: sillas gamer",
		},
		{
			name:        "Structured code with bad percentage defaults to 10",
			text:        "LEVELUP:abc:Promo",
			percentage:  10,
			description: "Promo",
		},
		{
			name:        "Structured code clamps high percentage",
			text:        "LEVELUP:150:Promo",
			percentage:  100,
			description: "Promo",
		},
		{
			name:        "Structured code clamps zero percentage",
			text:        "LEVELUP:0:Promo",
			percentage:  1,
			description: "Promo",
		},
		{
			name:        "Structured code with empty description",
			text:        "LEVELUP:30:",
			percentage:  30,
			description: "Descuento Level-Up Gamer",
		},
		{
			name:        "Percent sign takes first number",
			text:        "Black friday 35% off",
			percentage:  35,
			description: "Black friday 35% off",
		},
		{
			name:        "Descuento keyword without number",
			text:        "DESCUENTO sorpresa",
			percentage:  10,
			description: "DESCUENTO sorpresa",
		},
		{
			name:        "Percent with oversized number is clamped",
			text:        "500% locura",
			percentage:  100,
			description: "500% locura",
		},
		{
			name:        "Two parts is not structured",
			text:        "LEVELUP:25%",
			percentage:  25,
			description: "LEVELUP:25%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offer := Parse(tt.text, now, fixedRand(0))

			assert.Equal(t, tt.text, offer.Code)
			assert.Equal(t, tt.percentage, offer.Percentage)
			assert.Equal(t, tt.description, offer.Description)
			assert.Equal(t, now.Add(30*24*time.Hour), offer.ExpiresAt)
		})
	}
}

func TestParse_Generic(t *testing.T) {
	now := time.Now()

	offer := Parse("ABC123", now, fixedRand(7))
	assert.Equal(t, 12, offer.Percentage)
	assert.Equal(t, "Descuento especial: ABC123", offer.Description)
	assert.Equal(t, "ABC123", offer.Code)

	assert.Equal(t, 5, Parse("X", now, fixedRand(0)).Percentage)
	assert.Equal(t, 25, Parse("X", now, fixedRand(20)).Percentage)
}

func TestParse_GenericRangeIsCovered(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	seen := make(map[int]bool)

	for range 2000 {
		pct := Parse("ABC123", time.Now(), rng).Percentage
		assert.GreaterOrEqual(t, pct, 5)
		assert.LessOrEqual(t, pct, 25)
		seen[pct] = true
	}

	assert.Len(t, seen, 21)
}

func TestParse_NilRand(t *testing.T) {
	pct := Parse("plain", time.Now(), nil).Percentage
	assert.GreaterOrEqual(t, pct, 5)
	assert.LessOrEqual(t, pct, 25)
}
