package models

import "gorm.io/gorm"

// Recipe kinds. Plan recipes belong to a meal plan template; private recipes
// belong to a single user.
const (
	RecipeKindPlan    = "plan"
	RecipeKindPrivate = "private"
)

type Recipe struct {
	gorm.Model
	UserID uint   `gorm:"index"` // zero for plan recipes
	Kind   string `gorm:"type:varchar(16);not null;default:plan"`
	Name   string `gorm:"not null"`
	Items  []Ingredient
}

// Ingredient is one food line of a recipe. Quantity is grams for mass-based
// foods and a count for unit-based foods.
type Ingredient struct {
	gorm.Model
	RecipeID          uint    `gorm:"index;not null"`
	FoodID            string  `gorm:"type:varchar(64);not null"`
	FoodIsUserCreated bool    `gorm:"not null;default:false"`
	Quantity          float64 // >= 0
}

func (i Ingredient) FoodKey() FoodKey {
	return FoodKey{FoodID: i.FoodID, IsUserCreated: i.FoodIsUserCreated}
}
