package services

import (
	"context"
	"testing"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ledgerFixture is a user with one lunch slot, a chicken-and-rice recipe
// scheduled for logDate, and a 300 kcal protein bar snack to spend against it.
type ledgerFixture struct {
	user    *models.User
	slot    *models.MealSlot
	recipe  *models.Recipe
	snack   *models.SnackLog
	logDate time.Time

	catalog *CatalogService
	ledger  *EquivalenceService
	plans   *PlanService
}

func newLedgerFixture(t *testing.T, solver QuantitySolver) (*ledgerFixture, *EquivalenceService) {
	t.Helper()
	db := newTestDB(t)

	seedFood(t, db, &models.FoodItem{
		FoodID: "chicken", Name: "Chicken breast", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 120, Proteins: 20, Carbs: 0, Fats: 2},
	})
	seedFood(t, db, &models.FoodItem{
		FoodID: "rice", Name: "White rice", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 130, Proteins: 2, Carbs: 28, Fats: 0.3},
	})
	seedFood(t, db, &models.FoodItem{
		FoodID: "olive-oil", Name: "Olive oil", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 900, Proteins: 0, Carbs: 0, Fats: 100},
	})
	seedFood(t, db, &models.FoodItem{
		FoodID: "protein-bar", Name: "Protein bar", Unit: models.UnitGrams,
		MacrosPer100: models.MacroTotals{Calories: 300, Proteins: 20, Carbs: 10, Fats: 15},
	})

	user := seedUser(t, db, "ledger@test.dev")

	plan := &models.MealPlan{UserID: user.ID, Name: "Cut week"}
	require.NoError(t, db.Create(plan).Error)
	slot := &models.MealSlot{
		MealPlanID: plan.ID,
		Name:       "Lunch",
		Target:     models.MacroTotals{Calories: 600, Proteins: 40, Carbs: 50, Fats: 20},
	}
	require.NoError(t, db.Create(slot).Error)

	recipe := &models.Recipe{
		Kind: models.RecipeKindPlan,
		Name: "Chicken and rice",
		Items: []models.Ingredient{
			{FoodID: "chicken", Quantity: 150},
			{FoodID: "rice", Quantity: 100},
			{FoodID: "olive-oil", Quantity: 10},
		},
	}
	require.NoError(t, db.Create(recipe).Error)

	logDate := day(t, "2026-03-02")
	require.NoError(t, db.Create(&models.ScheduledRecipe{
		MealSlotID: slot.ID, Date: logDate, RecipeID: recipe.ID,
	}).Error)

	snack := &models.SnackLog{
		UserID: user.ID,
		AteAt:  logDate.Add(16 * time.Hour),
		Items:  []models.SnackItem{{FoodID: "protein-bar", Quantity: 100}},
	}
	require.NoError(t, db.Create(snack).Error)

	catalog := NewCatalogService(db)
	restrictions := NewRestrictionService(db)
	if solver == nil {
		solver = NewLocalSolver(catalog)
	}
	ledger := NewEquivalenceService(db, catalog, restrictions, NewSolverService(solver, restrictions), 10*time.Minute)

	return &ledgerFixture{
		user:    user,
		slot:    slot,
		recipe:  recipe,
		snack:   snack,
		logDate: logDate,
		catalog: catalog,
		ledger:  ledger,
		plans:   NewPlanService(db, catalog, ledger),
	}, ledger
}

func (f *ledgerFixture) adjustmentCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.ledger.db.Model(&models.EquivalenceAdjustment{}).Count(&count).Error)
	return count
}

func (f *ledgerFixture) deltaCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.ledger.db.Model(&models.IngredientAdjustment{}).Count(&count).Error)
	return count
}

func TestCreate_AppliesSnackEquivalence(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	result, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)
	require.NotNil(t, result.Adjustment)

	assert.Equal(t, models.AdjustmentApplied, result.Adjustment.Status)
	assert.InDelta(t, 300, result.Adjustment.Adjustment.Calories, 1e-9)
	assert.InDelta(t, 20, result.Adjustment.Adjustment.Proteins, 1e-9)
	assert.NotEmpty(t, result.Deltas)

	active, err := ledger.GetActiveAdjustment(f.slot.ID, f.logDate)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, result.Adjustment.ID, active.ID)
	assert.Len(t, active.Items, len(result.Deltas))
}

func TestCreate_EffectiveMacrosHitReducedTarget(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	_, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)

	view, err := f.plans.EffectiveSlotView(f.slot.ID, f.logDate)
	require.NoError(t, err)
	require.NotNil(t, view.Adjustment)

	// Slot target 600/40/50/20 minus the 300/20/10/15 bar leaves 300/20/40/5;
	// the rebalanced slot must land within a gram of that on every solved axis.
	assert.InDelta(t, 20, view.Totals.Proteins, 1.0)
	assert.InDelta(t, 40, view.Totals.Carbs, 1.0)
	assert.InDelta(t, 5, view.Totals.Fats, 1.0)
}

func TestCreate_MutualExclusionPerSlotDate(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)
	ctx := context.Background()

	_, err := ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)

	_, err = ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.EqualValues(t, 1, f.adjustmentCount(t))

	// A different date on the same slot is a different key.
	nextDay := f.logDate.Add(24 * time.Hour)
	require.NoError(t, f.ledger.db.Create(&models.ScheduledRecipe{
		MealSlotID: f.slot.ID, Date: nextDay, RecipeID: f.recipe.ID,
	}).Error)
	_, err = ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, nextDay)
	require.NoError(t, err)
}

func TestCreate_SourceValidation(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)
	ctx := context.Background()

	var validation *ValidationError

	_, err := ledger.Create(ctx, f.user.ID, "mystery_kind", 1, f.slot.ID, f.logDate)
	require.ErrorAs(t, err, &validation)

	_, err = ledger.Create(ctx, f.user.ID, models.SourceSnack, 9999, f.slot.ID, f.logDate)
	require.ErrorAs(t, err, &validation)

	// Another user's snack is invisible, not forbidden.
	stranger := seedUser(t, f.ledger.db, "stranger@test.dev")
	_, err = ledger.Create(ctx, stranger.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.ErrorAs(t, err, &validation)

	_, err = ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, 9999, f.logDate)
	require.ErrorAs(t, err, &validation)

	assert.EqualValues(t, 0, f.adjustmentCount(t))
}

func TestCreate_RejectsForeignSlot(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	// The stranger owns the snack, so only the slot ownership can fail.
	stranger := seedUser(t, f.ledger.db, "stranger@test.dev")
	theirSnack := &models.SnackLog{
		UserID: stranger.ID,
		AteAt:  f.logDate.Add(11 * time.Hour),
		Items:  []models.SnackItem{{FoodID: "protein-bar", Quantity: 100}},
	}
	require.NoError(t, f.ledger.db.Create(theirSnack).Error)

	_, err := ledger.Create(context.Background(), stranger.ID, models.SourceSnack, theirSnack.ID, f.slot.ID, f.logDate)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.EqualValues(t, 0, f.adjustmentCount(t))

	// The victim's day is untouched.
	view, viewErr := f.plans.EffectiveSlotView(f.slot.ID, f.logDate)
	require.NoError(t, viewErr)
	assert.Nil(t, view.Adjustment)
}

func TestCreate_RejectsZeroMacroSource(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	ghostSnack := &models.SnackLog{
		UserID: f.user.ID,
		AteAt:  f.logDate.Add(10 * time.Hour),
		Items:  []models.SnackItem{{FoodID: "deleted-food", Quantity: 100}},
	}
	require.NoError(t, f.ledger.db.Create(ghostSnack).Error)

	_, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, ghostSnack.ID, f.slot.ID, f.logDate)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.EqualValues(t, 0, f.adjustmentCount(t))
}

func TestCreate_NoScheduledRecipesRollsBack(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	// Nothing is scheduled the day after; the pending row must not survive.
	emptyDay := f.logDate.Add(48 * time.Hour)
	_, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, emptyDay)
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.EqualValues(t, 0, f.adjustmentCount(t))
}

func TestCreate_SolverFailureRollsBack(t *testing.T) {
	failing := &stubSolver{err: &SolverError{Reason: "solver unreachable"}}
	f, ledger := newLedgerFixture(t, failing)

	_, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	var solverErr *SolverError
	require.ErrorAs(t, err, &solverErr)

	assert.EqualValues(t, 0, f.adjustmentCount(t))
	assert.EqualValues(t, 0, f.deltaCount(t))

	// The slot is immediately usable again.
	_, err = ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.ErrorAs(t, err, &solverErr)
	assert.EqualValues(t, 0, f.adjustmentCount(t))
}

func TestCreate_FromPlanRecipeSource(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	breakfast := &models.Recipe{
		Kind:  models.RecipeKindPlan,
		Name:  "Oatmeal bowl",
		Items: []models.Ingredient{{FoodID: "rice", Quantity: 50}},
	}
	require.NoError(t, f.ledger.db.Create(breakfast).Error)

	result, err := ledger.Create(context.Background(), f.user.ID, models.SourcePlanRecipe, breakfast.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.InDelta(t, 65, result.Adjustment.Adjustment.Calories, 1e-9)
}

func TestUndo_RestoresBaseQuantities(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	before, err := f.plans.EffectiveSlotView(f.slot.ID, f.logDate)
	require.NoError(t, err)

	result, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)

	during, err := f.plans.EffectiveSlotView(f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.NotEqual(t, before.Totals, during.Totals)

	require.NoError(t, ledger.Undo(result.Adjustment.ID))

	after, err := f.plans.EffectiveSlotView(f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.Nil(t, after.Adjustment)
	assert.Equal(t, before.Totals, after.Totals)
	for _, recipe := range after.Recipes {
		for _, item := range recipe.Items {
			assert.False(t, item.Adjusted)
			assert.Equal(t, item.BaseQuantity, item.EffectiveQuantity)
		}
	}
	assert.EqualValues(t, 0, f.adjustmentCount(t))
	assert.EqualValues(t, 0, f.deltaCount(t))
}

func TestUndo_Idempotent(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	result, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)

	require.NoError(t, ledger.Undo(result.Adjustment.ID))
	require.NoError(t, ledger.Undo(result.Adjustment.ID))
	require.NoError(t, ledger.Undo(9999))
}

func TestUndo_FreesSlotForNewAdjustment(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)
	ctx := context.Background()

	first, err := ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)
	require.NoError(t, ledger.Undo(first.Adjustment.ID))

	second, err := ledger.Create(ctx, f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.NotEqual(t, first.Adjustment.ID, second.Adjustment.ID)
}

func TestGetActiveAdjustment_IgnoresPending(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	require.NoError(t, f.ledger.db.Create(&models.EquivalenceAdjustment{
		UserID:           f.user.ID,
		LogDate:          f.logDate,
		TargetMealSlotID: f.slot.ID,
		SourceKind:       models.SourceSnack,
		SourceID:         f.snack.ID,
		Status:           models.AdjustmentPending,
	}).Error)

	active, err := ledger.GetActiveAdjustment(f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestReapStalePending(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	stale := &models.EquivalenceAdjustment{
		UserID:           f.user.ID,
		LogDate:          f.logDate,
		TargetMealSlotID: f.slot.ID,
		SourceKind:       models.SourceSnack,
		SourceID:         f.snack.ID,
		Status:           models.AdjustmentPending,
	}
	require.NoError(t, f.ledger.db.Create(stale).Error)
	require.NoError(t, f.ledger.db.Create(&models.IngredientAdjustment{
		EquivalenceAdjustmentID: stale.ID,
		RecipeID:                f.recipe.ID,
		FoodID:                  "chicken",
		AdjustedQuantity:        80,
	}).Error)
	require.NoError(t, f.ledger.db.Model(stale).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, ledger.ReapStalePending())
	assert.EqualValues(t, 0, f.adjustmentCount(t))
	assert.EqualValues(t, 0, f.deltaCount(t))
}

func TestReap_KeepsFreshPending(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	require.NoError(t, f.ledger.db.Create(&models.EquivalenceAdjustment{
		UserID:           f.user.ID,
		LogDate:          f.logDate,
		TargetMealSlotID: f.slot.ID,
		SourceKind:       models.SourceSnack,
		SourceID:         f.snack.ID,
		Status:           models.AdjustmentPending,
	}).Error)

	require.NoError(t, ledger.ReapStalePending())
	assert.EqualValues(t, 1, f.adjustmentCount(t))

	// A fresh pending row still blocks new creates for its slot.
	_, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreate_ReapsStalePendingOnitsSlot(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	stale := &models.EquivalenceAdjustment{
		UserID:           f.user.ID,
		LogDate:          f.logDate,
		TargetMealSlotID: f.slot.ID,
		SourceKind:       models.SourceSnack,
		SourceID:         f.snack.ID,
		Status:           models.AdjustmentPending,
	}
	require.NoError(t, f.ledger.db.Create(stale).Error)
	require.NoError(t, f.ledger.db.Model(stale).
		Update("created_at", time.Now().Add(-time.Hour)).Error)

	result, err := ledger.Create(context.Background(), f.user.ID, models.SourceSnack, f.snack.ID, f.slot.ID, f.logDate)
	require.NoError(t, err)
	assert.Equal(t, models.AdjustmentApplied, result.Adjustment.Status)
	assert.EqualValues(t, 1, f.adjustmentCount(t))
}

func TestAssertRecipeEditable_BusyWhilePending(t *testing.T) {
	f, ledger := newLedgerFixture(t, nil)

	pending := &models.EquivalenceAdjustment{
		UserID:           f.user.ID,
		LogDate:          f.logDate,
		TargetMealSlotID: f.slot.ID,
		SourceKind:       models.SourceSnack,
		SourceID:         f.snack.ID,
		Status:           models.AdjustmentPending,
	}
	require.NoError(t, f.ledger.db.Create(pending).Error)

	err := ledger.AssertRecipeEditable(f.recipe.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// Applied adjustments do not block edits, and unrelated recipes never do.
	require.NoError(t, f.ledger.db.Model(pending).Update("status", models.AdjustmentApplied).Error)
	require.NoError(t, ledger.AssertRecipeEditable(f.recipe.ID))
	require.NoError(t, ledger.AssertRecipeEditable(9999))
}

func TestAdjustedQuantities_Indexing(t *testing.T) {
	adjustment := &models.EquivalenceAdjustment{
		Items: []models.IngredientAdjustment{
			{RecipeID: 1, FoodID: "chicken", AdjustedQuantity: 90},
			{RecipeID: 1, FoodID: "oats", FoodIsUserCreated: true, AdjustedQuantity: 40},
			{RecipeID: 2, FoodID: "rice", AdjustedQuantity: 0},
		},
	}

	overlay := AdjustedQuantities(adjustment)
	assert.InDelta(t, 90, overlay[1][models.FoodKey{FoodID: "chicken"}], 1e-9)
	assert.InDelta(t, 40, overlay[1][models.FoodKey{FoodID: "oats", IsUserCreated: true}], 1e-9)
	q, ok := overlay[2][models.FoodKey{FoodID: "rice"}]
	assert.True(t, ok) // a zero delta is "remove", not "missing"
	assert.Zero(t, q)

	assert.Empty(t, AdjustedQuantities(nil))
}
