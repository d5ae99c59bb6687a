package services

import (
	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"gorm.io/gorm"
)

// Verdict is the single classification a food gets against a user's
// restriction profile.
type Verdict string

const (
	VerdictConditionAvoid        Verdict = "condition_avoid"
	VerdictSensitivity           Verdict = "sensitivity"
	VerdictNonPreferred          Verdict = "non_preferred"
	VerdictIndividualRestriction Verdict = "individual_restriction"
	VerdictConditionRecommend    Verdict = "condition_recommend"
	VerdictPreferred             Verdict = "preferred"
	VerdictNone                  Verdict = ""
)

// IsAvoidClass reports whether the verdict blocks automatic substitution into
// the food. Recommend-class verdicts are informational only.
func (v Verdict) IsAvoidClass() bool {
	switch v {
	case VerdictConditionAvoid, VerdictSensitivity, VerdictNonPreferred, VerdictIndividualRestriction:
		return true
	}
	return false
}

// DefaultVerdictOrder is the evaluation order: first match wins. A food can
// qualify for several categories at once; only the highest-priority verdict is
// reported. The relative order of non_preferred and individual_restriction is
// product policy, hence configurable rather than hard-coded.
var DefaultVerdictOrder = []Verdict{
	VerdictConditionAvoid,
	VerdictSensitivity,
	VerdictNonPreferred,
	VerdictIndividualRestriction,
	VerdictConditionRecommend,
	VerdictPreferred,
}

// RestrictionService classifies foods and loads restriction profiles.
type RestrictionService struct {
	db    *gorm.DB
	order []Verdict
}

func NewRestrictionService(db *gorm.DB) *RestrictionService {
	return &RestrictionService{db: db, order: DefaultVerdictOrder}
}

// WithVerdictOrder overrides the evaluation order (both avoid-class verdicts
// are equally "critical"; which one surfaces first is configurable).
func (s *RestrictionService) WithVerdictOrder(order []Verdict) *RestrictionService {
	s.order = order
	return s
}

// Classify returns the single highest-priority verdict for a food, or
// VerdictNone. Foods with missing relation slices are fine: absent arrays are
// just empty.
func (s *RestrictionService) Classify(food *models.FoodItem, profile *models.RestrictionProfile) Verdict {
	if food == nil || profile == nil {
		return VerdictNone
	}
	for _, v := range s.order {
		if matches(v, food, profile) {
			return v
		}
	}
	return VerdictNone
}

func matches(v Verdict, food *models.FoodItem, profile *models.RestrictionProfile) bool {
	switch v {
	case VerdictConditionAvoid:
		return hasConditionLink(food, profile.AvoidedMedicalConditions, models.RelationAvoid)
	case VerdictSensitivity:
		for _, sens := range food.Sensitivities {
			if _, ok := profile.Sensitivities[sens.Tag]; ok {
				return true
			}
		}
	case VerdictNonPreferred:
		_, ok := profile.NonPreferredFoods[food.Key()]
		return ok
	case VerdictIndividualRestriction:
		_, ok := profile.IndividuallyRestrictedFoods[food.Key()]
		return ok
	case VerdictConditionRecommend:
		return hasConditionLink(food, profile.RecommendedMedicalConditions, models.RelationRecommend)
	case VerdictPreferred:
		_, ok := profile.PreferredFoods[food.Key()]
		return ok
	}
	return false
}

func hasConditionLink(food *models.FoodItem, conditions map[string]struct{}, relation string) bool {
	if len(conditions) == 0 {
		return false
	}
	for _, link := range food.Conditions {
		if link.Relation != relation {
			continue
		}
		if _, ok := conditions[link.ConditionID]; ok {
			return true
		}
	}
	return false
}

// GetUserRestrictions materializes a user's profile from its row sets.
func (s *RestrictionService) GetUserRestrictions(userID uint) (*models.RestrictionProfile, error) {
	profile := models.EmptyRestrictionProfile(userID)

	var sensitivities []models.UserSensitivity
	if err := s.db.Where("user_id = ?", userID).Find(&sensitivities).Error; err != nil {
		return nil, err
	}
	for _, row := range sensitivities {
		profile.Sensitivities[row.Tag] = struct{}{}
	}

	var conditions []models.UserCondition
	if err := s.db.Where("user_id = ?", userID).Find(&conditions).Error; err != nil {
		return nil, err
	}
	for _, row := range conditions {
		switch row.Relation {
		case models.RelationAvoid:
			profile.AvoidedMedicalConditions[row.ConditionID] = struct{}{}
		case models.RelationRecommend:
			profile.RecommendedMedicalConditions[row.ConditionID] = struct{}{}
		}
	}

	var rules []models.UserFoodRule
	if err := s.db.Where("user_id = ?", userID).Find(&rules).Error; err != nil {
		return nil, err
	}
	for _, row := range rules {
		key := models.FoodKey{FoodID: row.FoodID, IsUserCreated: row.FoodIsUserCreated}
		switch row.Rule {
		case models.FoodRuleRestricted:
			profile.IndividuallyRestrictedFoods[key] = struct{}{}
		case models.FoodRulePreferred:
			profile.PreferredFoods[key] = struct{}{}
		case models.FoodRuleNonPreferred:
			profile.NonPreferredFoods[key] = struct{}{}
		}
	}

	return profile, nil
}

// ReplaceUserRestrictions swaps a user's restriction rows for the given
// profile contents. Used by the profile PUT endpoint.
func (s *RestrictionService) ReplaceUserRestrictions(userID uint, sensitivities []models.UserSensitivity, conditions []models.UserCondition, rules []models.UserFoodRule) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserSensitivity{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserCondition{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserFoodRule{}).Error; err != nil {
			return err
		}
		for i := range sensitivities {
			sensitivities[i].UserID = userID
		}
		for i := range conditions {
			conditions[i].UserID = userID
		}
		for i := range rules {
			rules[i].UserID = userID
		}
		if len(sensitivities) > 0 {
			if err := tx.Create(&sensitivities).Error; err != nil {
				return err
			}
		}
		if len(conditions) > 0 {
			if err := tx.Create(&conditions).Error; err != nil {
				return err
			}
		}
		if len(rules) > 0 {
			if err := tx.Create(&rules).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
