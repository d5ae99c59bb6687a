package models

import "gorm.io/gorm"

// Food units. Mass-based foods store macros per 100 g; count-based foods
// reinterpret the same columns as "per unit".
const (
	UnitGrams = "grams"
	UnitUnits = "units"
)

// Relations a food can have with a medical condition.
const (
	RelationAvoid     = "avoid"
	RelationRecommend = "recommend"
)

// FoodItem is a catalog entry. Global foods and user-created foods share the
// table; lookups always go by (FoodID, IsUserCreated), never FoodID alone.
type FoodItem struct {
	gorm.Model
	FoodID        string `gorm:"type:varchar(64);not null;uniqueIndex:idx_food_scope"`
	IsUserCreated bool   `gorm:"not null;default:false;uniqueIndex:idx_food_scope"`
	OwnerUserID   uint   `gorm:"index"` // zero for global foods
	Name          string `gorm:"not null"`
	Unit          string `gorm:"type:varchar(16);not null;default:grams"`

	// Per 100 g, or per unit when Unit == "units".
	MacrosPer100 MacroTotals `gorm:"embedded;embeddedPrefix:per100_"`

	Groups        []FoodGroupMembership `gorm:"foreignKey:FoodItemID"`
	Sensitivities []FoodSensitivity     `gorm:"foreignKey:FoodItemID"`
	Conditions    []FoodConditionLink   `gorm:"foreignKey:FoodItemID"`
}

// FoodKey identifies a food across the global/user-created split.
type FoodKey struct {
	FoodID        string
	IsUserCreated bool
}

func (f *FoodItem) Key() FoodKey {
	return FoodKey{FoodID: f.FoodID, IsUserCreated: f.IsUserCreated}
}

type FoodGroupMembership struct {
	gorm.Model
	FoodItemID uint   `gorm:"index;not null"`
	Group      string `gorm:"type:varchar(64);not null"`
}

type FoodSensitivity struct {
	gorm.Model
	FoodItemID uint   `gorm:"index;not null"`
	Tag        string `gorm:"type:varchar(64);not null"`
}

type FoodConditionLink struct {
	gorm.Model
	FoodItemID  uint   `gorm:"index;not null"`
	ConditionID string `gorm:"type:varchar(64);not null"`
	Relation    string `gorm:"type:varchar(16);not null"` // avoid | recommend
}
