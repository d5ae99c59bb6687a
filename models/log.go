package models

import (
	"time"

	"gorm.io/gorm"
)

// FreeMeal is a free-form meal the user logged outside the plan.
type FreeMeal struct {
	gorm.Model
	UserID uint      `gorm:"index;not null"`
	Name   string    `gorm:"not null"`
	AteAt  time.Time `gorm:"index;not null"`
	Items  []FreeMealItem
}

type FreeMealItem struct {
	gorm.Model
	FreeMealID        uint   `gorm:"index;not null"`
	FoodID            string `gorm:"type:varchar(64);not null"`
	FoodIsUserCreated bool   `gorm:"not null;default:false"`
	Quantity          float64
}

func (i FreeMealItem) FoodKey() FoodKey {
	return FoodKey{FoodID: i.FoodID, IsUserCreated: i.FoodIsUserCreated}
}

// SnackLog is a single logged snack.
type SnackLog struct {
	gorm.Model
	UserID uint      `gorm:"index;not null"`
	AteAt  time.Time `gorm:"index;not null"`
	Items  []SnackItem
}

type SnackItem struct {
	gorm.Model
	SnackLogID        uint   `gorm:"index;not null"`
	FoodID            string `gorm:"type:varchar(64);not null"`
	FoodIsUserCreated bool   `gorm:"not null;default:false"`
	Quantity          float64
}

func (i SnackItem) FoodKey() FoodKey {
	return FoodKey{FoodID: i.FoodID, IsUserCreated: i.FoodIsUserCreated}
}
