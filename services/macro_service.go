package services

import (
	"math"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"
)

// MacroLine is the minimal shape the aggregator works on: a food reference
// plus a quantity. Recipe ingredients, free-meal items and snack items all
// reduce to this.
type MacroLine struct {
	Food     models.FoodKey
	Quantity float64
}

func LinesFromIngredients(ings []models.Ingredient) []MacroLine {
	out := make([]MacroLine, 0, len(ings))
	for _, ing := range ings {
		out = append(out, MacroLine{Food: ing.FoodKey(), Quantity: ing.Quantity})
	}
	return out
}

func LinesFromFreeMeal(items []models.FreeMealItem) []MacroLine {
	out := make([]MacroLine, 0, len(items))
	for _, it := range items {
		out = append(out, MacroLine{Food: it.FoodKey(), Quantity: it.Quantity})
	}
	return out
}

func LinesFromSnack(items []models.SnackItem) []MacroLine {
	out := make([]MacroLine, 0, len(items))
	for _, it := range items {
		out = append(out, MacroLine{Food: it.FoodKey(), Quantity: it.Quantity})
	}
	return out
}

// AggregateMacros sums the macro contribution of every line against the
// catalog. Pure computation, no I/O; it runs on every render of a planned day.
//
// Lines whose food is missing from the catalog contribute zero so a recipe
// with a deleted food still shows partial totals. Quantities that are NaN,
// infinite or negative count as zero. No intermediate rounding: repeated
// rounding during accumulation drifts under the frequent recomputation this
// app does, so rounding stays a display concern.
func AggregateMacros(lines []MacroLine, catalog Catalog) models.MacroTotals {
	var total models.MacroTotals
	for _, line := range lines {
		total = total.Add(lineMacros(line, catalog))
	}
	return total
}

func lineMacros(line MacroLine, catalog Catalog) models.MacroTotals {
	food, ok := catalog.Get(line.Food)
	if !ok {
		return models.MacroTotals{}
	}
	qty := sanitizeQuantity(line.Quantity)
	return food.MacrosPer100.Scale(qty * perQuantityFactor(food))
}

// perQuantityFactor converts MacrosPer100 into a per-quantity-unit factor:
// mass-based foods are per 100 g, count-based foods are per unit.
func perQuantityFactor(food *models.FoodItem) float64 {
	if food.Unit == models.UnitUnits {
		return 1
	}
	return 1.0 / 100.0
}

func sanitizeQuantity(q float64) float64 {
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return q
}
