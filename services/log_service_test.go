package services

import (
	"testing"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogService(t *testing.T) (*LogService, *models.User) {
	t.Helper()
	db := newTestDB(t)
	seedFood(t, db, &models.FoodItem{
		FoodID: "banana", Name: "Banana", Unit: models.UnitUnits,
		MacrosPer100: models.MacroTotals{Calories: 105, Proteins: 1.3, Carbs: 27, Fats: 0.4},
	})
	seedFood(t, db, &models.FoodItem{
		FoodID: "yogurt", Name: "Greek yogurt", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 59, Proteins: 10, Carbs: 3.6, Fats: 0.4},
	})
	user := seedUser(t, db, "logs@test.dev")
	return NewLogService(db, NewCatalogService(db)), user
}

func TestAddFreeMeal(t *testing.T) {
	svc, user := newLogService(t)
	ateAt := day(t, "2026-03-02").Add(13 * time.Hour)

	meal, macros, err := svc.AddFreeMeal(user.ID, "Office lunch", ateAt, []LogItemRequest{
		{FoodID: "yogurt", Quantity: 200},
		{FoodID: "banana", Quantity: 1},
	})
	require.NoError(t, err)
	require.NotZero(t, meal.ID)
	assert.Len(t, meal.Items, 2)

	// 200 g yogurt + 1 banana.
	assert.InDelta(t, 223, macros.Calories, 1e-9)
	assert.InDelta(t, 21.3, macros.Proteins, 1e-9)
}

func TestAddFreeMeal_RequiresItems(t *testing.T) {
	svc, user := newLogService(t)

	_, _, err := svc.AddFreeMeal(user.ID, "Nothing", time.Now(), nil)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestAddSnack(t *testing.T) {
	svc, user := newLogService(t)

	snack, macros, err := svc.AddSnack(user.ID, day(t, "2026-03-02").Add(17*time.Hour), []LogItemRequest{
		{FoodID: "banana", Quantity: 2},
	})
	require.NoError(t, err)
	require.NotZero(t, snack.ID)
	assert.InDelta(t, 210, macros.Calories, 1e-9)
	assert.InDelta(t, 54, macros.Carbs, 1e-9)
}

func TestListByDateRange(t *testing.T) {
	svc, user := newLogService(t)
	monday := day(t, "2026-03-02")

	_, _, err := svc.AddSnack(user.ID, monday.Add(10*time.Hour), []LogItemRequest{{FoodID: "banana", Quantity: 1}})
	require.NoError(t, err)
	_, _, err = svc.AddSnack(user.ID, monday.Add(36*time.Hour), []LogItemRequest{{FoodID: "banana", Quantity: 1}})
	require.NoError(t, err)
	_, _, err = svc.AddFreeMeal(user.ID, "Dinner", monday.Add(20*time.Hour), []LogItemRequest{{FoodID: "yogurt", Quantity: 150}})
	require.NoError(t, err)

	snacks, err := svc.ListSnacksByDateRange(user.ID, monday, monday.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, snacks, 1)
	assert.Len(t, snacks[0].Items, 1)

	meals, err := svc.ListFreeMealsByDateRange(user.ID, monday, monday.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Len(t, meals, 1)

	// Another user sees nothing.
	other := seedUser(t, svc.db, "nobody@test.dev")
	snacks, err = svc.ListSnacksByDateRange(other.ID, monday, monday.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, snacks)
}
