package levelup

import (
	"math"

	"github.com/shopspring/decimal"
)

// Status is the computed loyalty view for a points balance.
type Status struct {
	Points              int     `json:"points"`
	Level               int     `json:"level"`
	Title               string  `json:"title"`
	DiscountPercent     int     `json:"discountPercent"`
	Multiplier          float64 `json:"pointMultiplier"`
	PointsToNextLevel   int     `json:"pointsToNextLevel"`
	ProgressToNextLevel float64 `json:"progressToNextLevel"`
}

// LevelFor returns the highest level whose threshold is at or below points.
func LevelFor(points int) int {
	for i := MaxLevel - 1; i >= 0; i-- {
		if points >= levels[i].Threshold {
			return levels[i].Level
		}
	}
	return 1
}

// PointsToNextLevel returns how many points are missing for the next level, or 0 at the top.
func PointsToNextLevel(points int) int {
	level := LevelFor(points)
	if level >= MaxLevel {
		return 0
	}
	return levels[level].Threshold - points
}

// ProgressToNextLevel returns the percentage travelled between the current
// level threshold and the next one, in [0, 100].
func ProgressToNextLevel(points int) float64 {
	level := LevelFor(points)
	if level >= MaxLevel {
		return 100
	}

	current := levels[level-1].Threshold
	next := levels[level].Threshold
	progress := float64(points-current) / float64(next-current) * 100

	return math.Max(0, math.Min(100, progress))
}

// PurchasePoints converts a purchase amount into base points and the bonus
// earned from the level multiplier.
func PurchasePoints(amount float64, level int) (base, bonus int) {
	if amount <= 0 {
		return 0, 0
	}
	base = int(math.Floor(amount / PointsUnit))
	// decimal keeps 100 * 2.3 at 230 instead of 229.99...
	total := decimal.NewFromInt(int64(base)).
		Mul(decimal.NewFromFloat(MultiplierFor(level))).
		Floor().
		IntPart()
	return base, int(total) - base
}

// DiscountFor returns the loyalty discount percentage for level.
func DiscountFor(level int) int {
	if def, ok := Lookup(level); ok {
		return def.DiscountPercent
	}
	return defaultDiscount
}

// TitleFor returns the display title for level.
func TitleFor(level int) string {
	if def, ok := Lookup(level); ok {
		return def.Title
	}
	return defaultTitle
}

// MultiplierFor returns the purchase point multiplier for level.
func MultiplierFor(level int) float64 {
	if def, ok := Lookup(level); ok {
		return def.Multiplier
	}
	return defaultMultiplier
}

// StatusFor builds the full computed view for a points balance.
func StatusFor(points int) Status {
	level := LevelFor(points)
	return Status{
		Points:              points,
		Level:               level,
		Title:               TitleFor(level),
		DiscountPercent:     DiscountFor(level),
		Multiplier:          MultiplierFor(level),
		PointsToNextLevel:   PointsToNextLevel(points),
		ProgressToNextLevel: ProgressToNextLevel(points),
	}
}
