package services

import (
	"errors"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"gorm.io/gorm"
)

// RecipeService mutates recipe ingredient lists. Writes are fenced against
// in-flight equivalence adjustments on the recipe's slot.
type RecipeService struct {
	db     *gorm.DB
	ledger *EquivalenceService
}

func NewRecipeService(db *gorm.DB, ledger *EquivalenceService) *RecipeService {
	return &RecipeService{db: db, ledger: ledger}
}

type IngredientRequest struct {
	FoodID            string  `json:"food_id" binding:"required"`
	FoodIsUserCreated bool    `json:"food_is_user_created"`
	Quantity          float64 `json:"quantity"`
}

// ReplaceIngredients swaps a recipe's ingredient list. Rejected with a busy
// conflict while a pending adjustment covers the recipe.
func (s *RecipeService) ReplaceIngredients(userID, recipeID uint, items []IngredientRequest) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.First(&recipe, recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: "recipe not found"}
		}
		return nil, &PersistenceError{Step: "load recipe", Err: err}
	}
	if recipe.Kind == models.RecipeKindPrivate && recipe.UserID != userID {
		return nil, &ValidationError{Reason: "recipe not found"}
	}

	if err := s.ledger.AssertRecipeEditable(recipeID); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("recipe_id = ?", recipeID).Delete(&models.Ingredient{}).Error; err != nil {
			return err
		}
		for _, it := range items {
			ing := models.Ingredient{
				RecipeID:          recipeID,
				FoodID:            it.FoodID,
				FoodIsUserCreated: it.FoodIsUserCreated,
				Quantity:          it.Quantity,
			}
			if err := tx.Create(&ing).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, &PersistenceError{Step: "replace ingredients", Err: err}
	}

	var updated models.Recipe
	if err := s.db.Preload("Items").First(&updated, recipeID).Error; err != nil {
		return nil, &PersistenceError{Step: "reload recipe", Err: err}
	}
	return &updated, nil
}
