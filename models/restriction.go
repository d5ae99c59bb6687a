package models

import "gorm.io/gorm"

// Per-user food rules.
const (
	FoodRuleRestricted   = "restricted"
	FoodRulePreferred    = "preferred"
	FoodRuleNonPreferred = "non_preferred"
)

type UserSensitivity struct {
	gorm.Model
	UserID uint   `gorm:"index;not null"`
	Tag    string `gorm:"type:varchar(64);not null"`
}

type UserCondition struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	ConditionID string `gorm:"type:varchar(64);not null"`
	Relation    string `gorm:"type:varchar(16);not null"` // avoid | recommend
}

type UserFoodRule struct {
	gorm.Model
	UserID            uint   `gorm:"index;not null"`
	FoodID            string `gorm:"type:varchar(64);not null"`
	FoodIsUserCreated bool   `gorm:"not null;default:false"`
	Rule              string `gorm:"type:varchar(16);not null"`
}

// RestrictionProfile is the in-memory form built from the rows above. Sets are
// keyed by identifier so membership checks are O(1).
type RestrictionProfile struct {
	UserID                       uint
	Sensitivities                map[string]struct{}
	AvoidedMedicalConditions     map[string]struct{}
	RecommendedMedicalConditions map[string]struct{}
	IndividuallyRestrictedFoods  map[FoodKey]struct{}
	PreferredFoods               map[FoodKey]struct{}
	NonPreferredFoods            map[FoodKey]struct{}
}

// EmptyRestrictionProfile returns a profile with all sets allocated, so
// callers never need nil checks.
func EmptyRestrictionProfile(userID uint) *RestrictionProfile {
	return &RestrictionProfile{
		UserID:                       userID,
		Sensitivities:                map[string]struct{}{},
		AvoidedMedicalConditions:     map[string]struct{}{},
		RecommendedMedicalConditions: map[string]struct{}{},
		IndividuallyRestrictedFoods:  map[FoodKey]struct{}{},
		PreferredFoods:               map[FoodKey]struct{}{},
		NonPreferredFoods:            map[FoodKey]struct{}{},
	}
}
