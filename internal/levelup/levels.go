// Package levelup holds the loyalty level table and the pure calculations
// derived from it: level from points, progress, and purchase point awards.
package levelup

// MaxLevel is the highest reachable loyalty level.
const MaxLevel = 10

const (
	defaultDiscount   = 5
	defaultTitle      = "Novato"
	defaultMultiplier = 1.0

	// WelcomeBonus is granted once when a user first enters the program.
	WelcomeBonus = 50

	// PointsUnit is the spend that earns one base point.
	PointsUnit = 1000
)

// Definition describes a single loyalty level.
type Definition struct {
	Level           int     `json:"level"`
	Threshold       int     `json:"pointThreshold"`
	DiscountPercent int     `json:"discountPercent"`
	Multiplier      float64 `json:"pointMultiplier"`
	Title           string  `json:"title"`
	Benefit         string  `json:"benefit"`
}

var levels = [MaxLevel]Definition{
	{Level: 1, Threshold: 0, DiscountPercent: 5, Multiplier: 1.0, Title: "Novato", Benefit: "Descuento del 5% en productos"},
	{Level: 2, Threshold: 500, DiscountPercent: 8, Multiplier: 1.1, Title: "Aprendiz", Benefit: "Descuento del 8% + x1.1 puntos"},
	{Level: 3, Threshold: 1500, DiscountPercent: 12, Multiplier: 1.2, Title: "Jugador", Benefit: "Descuento del 12% + x1.2 puntos"},
	{Level: 4, Threshold: 3500, DiscountPercent: 15, Multiplier: 1.3, Title: "Experto", Benefit: "Descuento del 15% + envío gratis"},
	{Level: 5, Threshold: 7000, DiscountPercent: 18, Multiplier: 1.5, Title: "Veterano", Benefit: "Descuento del 18% + x1.5 puntos"},
	{Level: 6, Threshold: 12000, DiscountPercent: 20, Multiplier: 1.7, Title: "Maestro", Benefit: "Descuento del 20% + productos exclusivos"},
	{Level: 7, Threshold: 20000, DiscountPercent: 22, Multiplier: 2.0, Title: "Campeón", Benefit: "Descuento del 22% + x2.0 puntos"},
	{Level: 8, Threshold: 35000, DiscountPercent: 25, Multiplier: 2.3, Title: "Leyenda", Benefit: "Descuento del 25% + acceso anticipado"},
	{Level: 9, Threshold: 60000, DiscountPercent: 28, Multiplier: 2.7, Title: "Mítico", Benefit: "Descuento del 28% + x2.7 puntos"},
	{Level: 10, Threshold: 100000, DiscountPercent: 30, Multiplier: 3.0, Title: "Inmortal", Benefit: "Descuento del 30% + x3.0 puntos + VIP"},
}

// Levels returns a copy of the level table ordered by level.
func Levels() []Definition {
	out := make([]Definition, len(levels))
	copy(out, levels[:])
	return out
}

// Lookup returns the definition for level, reporting whether it exists.
func Lookup(level int) (Definition, bool) {
	if level < 1 || level > MaxLevel {
		return Definition{}, false
	}
	return levels[level-1], true
}
