package services

import (
	"testing"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFoodsByKeys_ScopesAndMisses(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db)

	seedFood(t, db, &models.FoodItem{
		FoodID: "oats", Name: "Oats", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 370, Proteins: 12, Carbs: 62, Fats: 6},
	})
	seedFood(t, db, &models.FoodItem{
		FoodID: "oats", IsUserCreated: true, OwnerUserID: 7, Name: "My oats", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 380, Proteins: 13, Carbs: 68, Fats: 7},
	})

	catalog, err := svc.GetFoodsByKeys([]models.FoodKey{
		{FoodID: "oats"},
		{FoodID: "oats", IsUserCreated: true},
		{FoodID: "oats"}, // duplicate keys are fine
		{FoodID: "never-seeded"},
	})
	require.NoError(t, err)
	require.Len(t, catalog, 2)

	global, ok := catalog.Get(models.FoodKey{FoodID: "oats"})
	require.True(t, ok)
	assert.Equal(t, "Oats", global.Name)

	scoped, ok := catalog.Get(models.FoodKey{FoodID: "oats", IsUserCreated: true})
	require.True(t, ok)
	assert.Equal(t, "My oats", scoped.Name)
	assert.InDelta(t, 380, scoped.MacrosPer100.Calories, 1e-9)

	_, ok = catalog.Get(models.FoodKey{FoodID: "never-seeded"})
	assert.False(t, ok)
}

func TestGetFoodsByKeys_Empty(t *testing.T) {
	svc := NewCatalogService(newTestDB(t))
	catalog, err := svc.GetFoodsByKeys(nil)
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestGetFoodsByKeys_PreloadsRelations(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db)

	food := seedFood(t, db, &models.FoodItem{
		FoodID: "milk", Name: "Whole milk", Unit: models.UnitGrams,
		MacrosPer100:  models.MacroTotals{Calories: 61, Proteins: 3.2, Carbs: 4.8, Fats: 3.3},
		Sensitivities: []models.FoodSensitivity{{Tag: "lactose"}},
		Conditions:    []models.FoodConditionLink{{ConditionID: "gastritis", Relation: models.RelationAvoid}},
	})

	catalog, err := svc.GetFoodsByKeys([]models.FoodKey{food.Key()})
	require.NoError(t, err)
	loaded, ok := catalog.Get(food.Key())
	require.True(t, ok)
	require.Len(t, loaded.Sensitivities, 1)
	assert.Equal(t, "lactose", loaded.Sensitivities[0].Tag)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, models.RelationAvoid, loaded.Conditions[0].Relation)
}

func TestCatalogForIngredients(t *testing.T) {
	db := newTestDB(t)
	svc := NewCatalogService(db)
	seedFood(t, db, &models.FoodItem{
		FoodID: "rice", Name: "White rice", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 130, Proteins: 2, Carbs: 28, Fats: 0.3},
	})

	catalog, err := svc.CatalogForIngredients([]models.Ingredient{
		{FoodID: "rice", Quantity: 100},
		{FoodID: "ghost", Quantity: 20},
	})
	require.NoError(t, err)
	assert.Len(t, catalog, 1)
}
