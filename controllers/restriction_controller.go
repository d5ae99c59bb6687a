package controllers

import (
	"net/http"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/gin-gonic/gin"
)

// GET /api/restrictions
func GetRestrictions(c *gin.Context) {
	profile, err := deps.Restrictions.GetUserRestrictions(c.GetUint("userID"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sensitivities":          setKeys(profile.Sensitivities),
		"avoided_conditions":     setKeys(profile.AvoidedMedicalConditions),
		"recommended_conditions": setKeys(profile.RecommendedMedicalConditions),
		"restricted_foods":       foodKeys(profile.IndividuallyRestrictedFoods),
		"preferred_foods":        foodKeys(profile.PreferredFoods),
		"non_preferred_foods":    foodKeys(profile.NonPreferredFoods),
	})
}

type restrictionsInput struct {
	Sensitivities []string `json:"sensitivities"`
	Conditions    []struct {
		ConditionID string `json:"condition_id" binding:"required"`
		Relation    string `json:"relation" binding:"required"`
	} `json:"conditions"`
	FoodRules []struct {
		FoodID        string `json:"food_id" binding:"required"`
		IsUserCreated bool   `json:"is_user_created"`
		Rule          string `json:"rule" binding:"required"`
	} `json:"food_rules"`
}

// PUT /api/restrictions — replaces the whole profile
func UpdateRestrictions(c *gin.Context) {
	var body restrictionsInput
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetUint("userID")
	sensitivities := make([]models.UserSensitivity, 0, len(body.Sensitivities))
	for _, tag := range body.Sensitivities {
		sensitivities = append(sensitivities, models.UserSensitivity{Tag: tag})
	}
	conditions := make([]models.UserCondition, 0, len(body.Conditions))
	for _, cond := range body.Conditions {
		conditions = append(conditions, models.UserCondition{ConditionID: cond.ConditionID, Relation: cond.Relation})
	}
	rules := make([]models.UserFoodRule, 0, len(body.FoodRules))
	for _, rule := range body.FoodRules {
		rules = append(rules, models.UserFoodRule{
			FoodID:            rule.FoodID,
			FoodIsUserCreated: rule.IsUserCreated,
			Rule:              rule.Rule,
		})
	}

	if err := deps.Restrictions.ReplaceUserRestrictions(userID, sensitivities, conditions, rules); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func setKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func foodKeys(set map[models.FoodKey]struct{}) []gin.H {
	out := make([]gin.H, 0, len(set))
	for k := range set {
		out = append(out, gin.H{"food_id": k.FoodID, "is_user_created": k.IsUserCreated})
	}
	return out
}
