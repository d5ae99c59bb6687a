package models

// MacroTotals is the nutrition vector used everywhere in the app.
// Values are never negative; subtraction clamps at zero.
type MacroTotals struct {
	Calories float64 `json:"calories"`
	Proteins float64 `json:"proteins"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
}

func (m MacroTotals) Add(o MacroTotals) MacroTotals {
	return MacroTotals{
		Calories: m.Calories + o.Calories,
		Proteins: m.Proteins + o.Proteins,
		Carbs:    m.Carbs + o.Carbs,
		Fats:     m.Fats + o.Fats,
	}
}

// SubClamped subtracts component-wise, flooring each field at zero. A source
// item bigger than a meal's budget zeroes the remaining budget, it never goes
// negative.
func (m MacroTotals) SubClamped(o MacroTotals) MacroTotals {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return MacroTotals{
		Calories: clamp(m.Calories - o.Calories),
		Proteins: clamp(m.Proteins - o.Proteins),
		Carbs:    clamp(m.Carbs - o.Carbs),
		Fats:     clamp(m.Fats - o.Fats),
	}
}

func (m MacroTotals) Scale(f float64) MacroTotals {
	return MacroTotals{
		Calories: m.Calories * f,
		Proteins: m.Proteins * f,
		Carbs:    m.Carbs * f,
		Fats:     m.Fats * f,
	}
}

func (m MacroTotals) IsZero() bool {
	return m.Calories == 0 && m.Proteins == 0 && m.Carbs == 0 && m.Fats == 0
}
