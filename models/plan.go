package models

import (
	"time"

	"gorm.io/gorm"
)

type MealPlan struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Name   string `gorm:"not null"`
	Slots  []MealSlot
}

// MealSlot is a named time-of-day meal ("Breakfast", "Lunch", …) with its own
// macro budget. The budget is what equivalence adjustments reduce.
type MealSlot struct {
	gorm.Model
	MealPlanID uint   `gorm:"index;not null"`
	Name       string `gorm:"not null"`
	Position   int    // ordering within the day

	Target MacroTotals `gorm:"embedded;embeddedPrefix:target_"`
}

// ScheduledRecipe pins a recipe into a slot on a calendar day.
type ScheduledRecipe struct {
	gorm.Model
	MealSlotID uint      `gorm:"index:idx_sched_slot_date;not null"`
	Date       time.Time `gorm:"index:idx_sched_slot_date;not null"` // midnight UTC
	RecipeID   uint      `gorm:"index;not null"`
}

// Day truncates a timestamp to the date bucket scheduling uses.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
