package services

import (
	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"gorm.io/gorm"
)

// Catalog is an in-memory snapshot of the foods a computation needs, keyed by
// (foodID, isUserCreated). Missing entries are simply absent; lookups that
// miss contribute zero macros downstream.
type Catalog map[models.FoodKey]*models.FoodItem

func (c Catalog) Get(key models.FoodKey) (*models.FoodItem, bool) {
	f, ok := c[key]
	return f, ok
}

// CatalogService reads foods out of the shared food table.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetFoodsByKeys loads the requested foods, global and user-created mixed.
// Requested ids that do not exist are not an error; they just stay out of the
// returned catalog.
func (s *CatalogService) GetFoodsByKeys(keys []models.FoodKey) (Catalog, error) {
	catalog := make(Catalog, len(keys))
	if len(keys) == 0 {
		return catalog, nil
	}

	// Dedupe, then query each scope in one IN clause.
	seen := make(map[models.FoodKey]struct{}, len(keys))
	var globalIDs, userIDs []string
	for _, k := range keys {
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		if k.IsUserCreated {
			userIDs = append(userIDs, k.FoodID)
		} else {
			globalIDs = append(globalIDs, k.FoodID)
		}
	}

	load := func(ids []string, userCreated bool) error {
		if len(ids) == 0 {
			return nil
		}
		var foods []models.FoodItem
		err := s.db.
			Preload("Groups").
			Preload("Sensitivities").
			Preload("Conditions").
			Where("food_id IN ? AND is_user_created = ?", ids, userCreated).
			Find(&foods).Error
		if err != nil {
			return err
		}
		for i := range foods {
			f := &foods[i]
			catalog[f.Key()] = f
		}
		return nil
	}

	if err := load(globalIDs, false); err != nil {
		return nil, err
	}
	if err := load(userIDs, true); err != nil {
		return nil, err
	}
	return catalog, nil
}

// CatalogForIngredients is a convenience that loads exactly the foods an
// ingredient list references.
func (s *CatalogService) CatalogForIngredients(ings []models.Ingredient) (Catalog, error) {
	keys := make([]models.FoodKey, 0, len(ings))
	for _, ing := range ings {
		keys = append(keys, ing.FoodKey())
	}
	return s.GetFoodsByKeys(keys)
}
