package models

import (
	"time"

	"gorm.io/gorm"
)

// Adjustment lifecycle. Failed and undone adjustments are deleted outright, so
// any row present in the table is either pending (in flight) or applied.
const (
	AdjustmentPending = "pending"
	AdjustmentApplied = "applied"
	AdjustmentFailed  = "failed"
)

// Source kinds an equivalence adjustment can spend. Exactly one per
// adjustment; the pair (SourceKind, SourceID) is a tagged reference, never
// four nullable foreign keys.
const (
	SourceFreeMeal      = "free_meal"
	SourceSnack         = "snack"
	SourcePlanRecipe    = "plan_recipe"
	SourcePrivateRecipe = "private_recipe"
)

// EquivalenceAdjustment moves the macro cost of one logged item onto a reduced
// target for a different meal slot on a given day. The unique index on
// (target_meal_slot_id, log_date) is the at-most-one-active guard; it closes
// the race that a read-then-insert check alone would leave open.
type EquivalenceAdjustment struct {
	gorm.Model
	UserID           uint      `gorm:"index;not null"`
	LogDate          time.Time `gorm:"not null;uniqueIndex:idx_adjustment_slot_date"` // midnight UTC
	TargetMealSlotID uint      `gorm:"not null;uniqueIndex:idx_adjustment_slot_date"`

	SourceKind string `gorm:"type:varchar(16);not null"`
	SourceID   uint   `gorm:"not null"`

	// Macro snapshot of the source item at creation time. Editing the source
	// later must not move an already-applied adjustment.
	Adjustment MacroTotals `gorm:"embedded;embeddedPrefix:adj_"`

	Status string `gorm:"type:varchar(16);not null;default:pending"`

	Items []IngredientAdjustment `gorm:"foreignKey:EquivalenceAdjustmentID"`
}

// IngredientAdjustment is one solver-produced quantity override. Display code
// substitutes AdjustedQuantity for the recipe's base quantity; absence of a
// row means "use the base quantity", which is what makes undo a pure delete.
type IngredientAdjustment struct {
	gorm.Model
	EquivalenceAdjustmentID uint   `gorm:"not null;index:idx_ingr_adj,priority:1"`
	RecipeID                uint   `gorm:"not null;index:idx_ingr_adj,priority:2"`
	FoodID                  string `gorm:"type:varchar(64);not null;index:idx_ingr_adj,priority:3"`
	FoodIsUserCreated       bool   `gorm:"not null;default:false"`
	AdjustedQuantity        float64
}

func (a IngredientAdjustment) FoodKey() FoodKey {
	return FoodKey{FoodID: a.FoodID, IsUserCreated: a.FoodIsUserCreated}
}
