package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"
	"github.com/JesusMartinezCamps/bibofit-sub000/utils"

	"gorm.io/gorm"
)

// EquivalenceService is the ledger: the single source of truth for "has this
// meal slot been adjusted, and by what". It owns the create/undo workflow,
// including the compensation path when the solver or a write fails partway.
//
// The store offers no multi-row atomicity guarantee the workflow could lean
// on, so the write sequence is a saga: explicit forward steps, explicit
// cleanup on failure, with the status column as the recovery marker. Failed
// and undone adjustments are deleted outright; "failed" only ever reaches the
// caller, never the table.
type EquivalenceService struct {
	db           *gorm.DB
	catalog      *CatalogService
	restrictions *RestrictionService
	solver       *SolverService
	hub          *RealtimeHub

	pendingMaxAge time.Duration
}

func NewEquivalenceService(db *gorm.DB, catalog *CatalogService, restrictions *RestrictionService, solver *SolverService, pendingMaxAge time.Duration) *EquivalenceService {
	return &EquivalenceService{
		db:            db,
		catalog:       catalog,
		restrictions:  restrictions,
		solver:        solver,
		pendingMaxAge: pendingMaxAge,
	}
}

// WithHub attaches a realtime hub; applied/undone adjustments are broadcast so
// open clients refresh without a reload.
func (s *EquivalenceService) WithHub(hub *RealtimeHub) *EquivalenceService {
	s.hub = hub
	return s
}

// CreateResult is returned to the caller for immediate UI reflection.
type CreateResult struct {
	Adjustment *models.EquivalenceAdjustment `json:"adjustment"`
	Deltas     []models.IngredientAdjustment `json:"deltas"`
}

// Create spends the macros of a source item against a target slot on a day.
//
// Sequence: validate → snapshot source macros → insert pending row (uniqueness
// guard) → gather the slot's scheduled recipes → solve the combined ingredient
// set against the reduced target → write per-ingredient deltas → flip to
// applied. Any failure after the pending insert deletes everything written so
// far before surfacing.
func (s *EquivalenceService) Create(ctx context.Context, userID uint, sourceKind string, sourceID uint, targetSlotID uint, logDate time.Time) (*CreateResult, error) {
	day := models.Day(logDate)

	// An abandoned pending row must not block the slot forever.
	if err := s.reapSlot(targetSlotID, day); err != nil {
		return nil, &PersistenceError{Step: "reap stale pending", Err: err}
	}

	// Slot lookup is ownership-scoped: spending a snack against someone
	// else's planned day must look like a missing slot, not succeed.
	var slot models.MealSlot
	err := s.db.
		Joins("JOIN meal_plans ON meal_plans.id = meal_slots.meal_plan_id").
		Where("meal_slots.id = ? AND meal_plans.user_id = ?", targetSlotID, userID).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: "target meal slot not found"}
		}
		return nil, &PersistenceError{Step: "load slot", Err: err}
	}

	sourceLines, err := s.loadSourceLines(userID, sourceKind, sourceID)
	if err != nil {
		return nil, err
	}

	sourceKeys := make([]models.FoodKey, 0, len(sourceLines))
	for _, l := range sourceLines {
		sourceKeys = append(sourceKeys, l.Food)
	}
	sourceCatalog, err := s.catalog.GetFoodsByKeys(sourceKeys)
	if err != nil {
		return nil, &PersistenceError{Step: "load source catalog", Err: err}
	}

	// Snapshot. Immutable from here on: editing the source item later must
	// not move an already-applied adjustment.
	snapshot := AggregateMacros(sourceLines, sourceCatalog)
	if snapshot.IsZero() {
		return nil, &ValidationError{Reason: "source item has no resolvable macros, nothing to compensate"}
	}

	reducedTarget := slot.Target.SubClamped(snapshot)

	adjustment := &models.EquivalenceAdjustment{
		UserID:           userID,
		LogDate:          day,
		TargetMealSlotID: targetSlotID,
		SourceKind:       sourceKind,
		SourceID:         sourceID,
		Adjustment:       snapshot,
		Status:           models.AdjustmentPending,
	}

	// Check-then-insert inside a transaction; the unique index on
	// (target_meal_slot_id, log_date) closes the race the check alone leaves.
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.EquivalenceAdjustment{}).
			Where("target_meal_slot_id = ? AND log_date = ?", targetSlotID, day).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return &ConflictError{Reason: "this meal already has an active equivalence, undo it first"}
		}
		return tx.Create(adjustment).Error
	})
	if err != nil {
		var conflict *ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &ConflictError{Reason: "this meal already has an active equivalence, undo it first"}
		}
		return nil, &PersistenceError{Step: "insert adjustment", Err: err}
	}

	result, err := s.resolvePending(ctx, adjustment, reducedTarget)
	if err != nil {
		// Compensate: the pending row and any deltas written for it go away.
		s.cleanup(adjustment.ID)
		return nil, err
	}
	return result, nil
}

// resolvePending runs the solver and the delta writes for a freshly inserted
// pending adjustment. The caller owns cleanup on error.
func (s *EquivalenceService) resolvePending(ctx context.Context, adjustment *models.EquivalenceAdjustment, reducedTarget models.MacroTotals) (*CreateResult, error) {
	lines, err := s.scheduledLines(adjustment.TargetMealSlotID, adjustment.LogDate)
	if err != nil {
		return nil, &PersistenceError{Step: "load scheduled recipes", Err: err}
	}
	if len(lines) == 0 {
		return nil, &ValidationError{Reason: "no recipes scheduled in the target slot on that date"}
	}

	lineKeys := make([]models.FoodKey, 0, len(lines))
	for _, l := range lines {
		lineKeys = append(lineKeys, l.Food)
	}
	catalog, err := s.catalog.GetFoodsByKeys(lineKeys)
	if err != nil {
		return nil, &PersistenceError{Step: "load recipe catalog", Err: err}
	}

	profile, err := s.restrictions.GetUserRestrictions(adjustment.UserID)
	if err != nil {
		return nil, &PersistenceError{Step: "load restriction profile", Err: err}
	}

	balanced, err := s.solver.Rebalance(ctx, lines, reducedTarget, profile, catalog)
	if err != nil {
		adjustment.Status = models.AdjustmentFailed // surfaced, never stored
		return nil, err
	}

	deltas := make([]models.IngredientAdjustment, 0, len(balanced))
	for _, b := range balanced {
		if !b.Changed {
			continue
		}
		deltas = append(deltas, models.IngredientAdjustment{
			EquivalenceAdjustmentID: adjustment.ID,
			RecipeID:                b.RecipeID,
			FoodID:                  b.Food.FoodID,
			FoodIsUserCreated:       b.Food.IsUserCreated,
			AdjustedQuantity:        b.NewQuantity,
		})
	}

	if len(deltas) > 0 {
		if err := s.db.Create(&deltas).Error; err != nil {
			return nil, &PersistenceError{Step: "write ingredient adjustments", Err: err}
		}
	}

	if err := s.db.Model(adjustment).Update("status", models.AdjustmentApplied).Error; err != nil {
		return nil, &PersistenceError{Step: "mark applied", Err: err}
	}
	adjustment.Status = models.AdjustmentApplied
	adjustment.Items = deltas

	s.broadcast(adjustment.UserID, "equivalence.applied", adjustment)
	return &CreateResult{Adjustment: adjustment, Deltas: deltas}, nil
}

// Undo deletes an adjustment and its deltas. Display code treats a missing
// delta row as "use the base quantity", so deletion alone restores the
// pre-adjustment state; no inverse solve, no dependence on solver determinism.
// Calling it again for an already-undone id is a no-op.
func (s *EquivalenceService) Undo(adjustmentID uint) error {
	var adjustment models.EquivalenceAdjustment
	err := s.db.First(&adjustment, adjustmentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil // idempotent
	}
	if err != nil {
		return &PersistenceError{Step: "load adjustment", Err: err}
	}

	if err := s.cleanup(adjustmentID); err != nil {
		return err
	}
	s.broadcast(adjustment.UserID, "equivalence.undone", map[string]any{
		"adjustmentId": adjustmentID,
		"slotId":       adjustment.TargetMealSlotID,
		"logDate":      adjustment.LogDate.Format("2006-01-02"),
	})
	return nil
}

// cleanup removes an adjustment's delta rows and then the adjustment itself.
// Delta rows go first so a failure in between leaves a pending/applied parent
// that a later cleanup or reap can still find.
func (s *EquivalenceService) cleanup(adjustmentID uint) error {
	if err := s.db.Unscoped().
		Where("equivalence_adjustment_id = ?", adjustmentID).
		Delete(&models.IngredientAdjustment{}).Error; err != nil {
		return &PersistenceError{Step: "delete ingredient adjustments", Err: err}
	}
	if err := s.db.Unscoped().
		Delete(&models.EquivalenceAdjustment{}, adjustmentID).Error; err != nil {
		return &PersistenceError{Step: "delete adjustment", Err: err}
	}
	return nil
}

// GetActiveAdjustment is the one read API every presentation layer uses.
// Returns nil when the slot has no applied adjustment for the date.
func (s *EquivalenceService) GetActiveAdjustment(slotID uint, date time.Time) (*models.EquivalenceAdjustment, error) {
	var adjustment models.EquivalenceAdjustment
	err := s.db.Preload("Items").
		Where("target_meal_slot_id = ? AND log_date = ? AND status = ?",
			slotID, models.Day(date), models.AdjustmentApplied).
		First(&adjustment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &adjustment, nil
}

// AdjustedQuantities indexes an adjustment's deltas by (recipe, food) for the
// O(1) per-ingredient lookup the render path needs. Safe on nil.
func AdjustedQuantities(adjustment *models.EquivalenceAdjustment) map[uint]map[models.FoodKey]float64 {
	out := make(map[uint]map[models.FoodKey]float64)
	if adjustment == nil {
		return out
	}
	for _, item := range adjustment.Items {
		byFood := out[item.RecipeID]
		if byFood == nil {
			byFood = make(map[models.FoodKey]float64)
			out[item.RecipeID] = byFood
		}
		byFood[item.FoodKey()] = item.AdjustedQuantity
	}
	return out
}

// ReapStalePending deletes pending rows older than the configured bound,
// together with any deltas written for them. A pending row is never a valid
// terminal state.
func (s *EquivalenceService) ReapStalePending() error {
	cutoff := time.Now().Add(-s.pendingMaxAge)
	var stale []models.EquivalenceAdjustment
	if err := s.db.
		Where("status = ? AND created_at < ?", models.AdjustmentPending, cutoff).
		Find(&stale).Error; err != nil {
		return &PersistenceError{Step: "find stale pending", Err: err}
	}
	for _, adjustment := range stale {
		utils.Log.Warnw("reaping stale pending adjustment",
			"adjustmentId", adjustment.ID,
			"slotId", adjustment.TargetMealSlotID,
			"age", time.Since(adjustment.CreatedAt).String())
		if err := s.cleanup(adjustment.ID); err != nil {
			return err
		}
	}
	return nil
}

// reapSlot applies the stale-pending rule to one (slot, date) key before a
// create attempt.
func (s *EquivalenceService) reapSlot(slotID uint, day time.Time) error {
	cutoff := time.Now().Add(-s.pendingMaxAge)
	var stale []models.EquivalenceAdjustment
	if err := s.db.
		Where("target_meal_slot_id = ? AND log_date = ? AND status = ? AND created_at < ?",
			slotID, day, models.AdjustmentPending, cutoff).
		Find(&stale).Error; err != nil {
		return err
	}
	for _, adjustment := range stale {
		if err := s.cleanup(adjustment.ID); err != nil {
			return err
		}
	}
	return nil
}

// AssertRecipeEditable rejects recipe mutations while any slot the recipe is
// scheduled into has a pending adjustment. Losing one of the two writes
// silently is worse than a retryable busy error.
func (s *EquivalenceService) AssertRecipeEditable(recipeID uint) error {
	var count int64
	err := s.db.Model(&models.EquivalenceAdjustment{}).
		Joins("JOIN scheduled_recipes ON scheduled_recipes.meal_slot_id = equivalence_adjustments.target_meal_slot_id"+
			" AND scheduled_recipes.date = equivalence_adjustments.log_date").
		Where("scheduled_recipes.recipe_id = ? AND equivalence_adjustments.status = ? AND scheduled_recipes.deleted_at IS NULL",
			recipeID, models.AdjustmentPending).
		Count(&count).Error
	if err != nil {
		return &PersistenceError{Step: "check recipe busy", Err: err}
	}
	if count > 0 {
		return &ConflictError{Reason: "recipe is being rebalanced, retry shortly"}
	}
	return nil
}

// scheduledLines flattens every ingredient of every recipe scheduled in the
// slot on the day into the solver's working set.
func (s *EquivalenceService) scheduledLines(slotID uint, day time.Time) ([]RecipeLine, error) {
	var scheduled []models.ScheduledRecipe
	if err := s.db.
		Where("meal_slot_id = ? AND date = ?", slotID, day).
		Find(&scheduled).Error; err != nil {
		return nil, err
	}
	if len(scheduled) == 0 {
		return nil, nil
	}

	recipeIDs := make([]uint, 0, len(scheduled))
	for _, sr := range scheduled {
		recipeIDs = append(recipeIDs, sr.RecipeID)
	}

	var recipes []models.Recipe
	if err := s.db.Preload("Items").Where("id IN ?", recipeIDs).Find(&recipes).Error; err != nil {
		return nil, err
	}

	var lines []RecipeLine
	for _, recipe := range recipes {
		for _, ing := range recipe.Items {
			lines = append(lines, RecipeLine{
				RecipeID: recipe.ID,
				Food:     ing.FoodKey(),
				Quantity: ing.Quantity,
			})
		}
	}
	return lines, nil
}

// loadSourceLines resolves the tagged source reference to its macro lines and
// checks ownership.
func (s *EquivalenceService) loadSourceLines(userID uint, sourceKind string, sourceID uint) ([]MacroLine, error) {
	switch sourceKind {
	case models.SourceFreeMeal:
		var meal models.FreeMeal
		if err := s.db.Preload("Items").Where("id = ? AND user_id = ?", sourceID, userID).First(&meal).Error; err != nil {
			return nil, sourceLoadError(err, sourceKind)
		}
		return LinesFromFreeMeal(meal.Items), nil
	case models.SourceSnack:
		var snack models.SnackLog
		if err := s.db.Preload("Items").Where("id = ? AND user_id = ?", sourceID, userID).First(&snack).Error; err != nil {
			return nil, sourceLoadError(err, sourceKind)
		}
		return LinesFromSnack(snack.Items), nil
	case models.SourcePlanRecipe:
		var recipe models.Recipe
		if err := s.db.Preload("Items").Where("id = ? AND kind = ?", sourceID, models.RecipeKindPlan).First(&recipe).Error; err != nil {
			return nil, sourceLoadError(err, sourceKind)
		}
		return LinesFromIngredients(recipe.Items), nil
	case models.SourcePrivateRecipe:
		var recipe models.Recipe
		if err := s.db.Preload("Items").
			Where("id = ? AND kind = ? AND user_id = ?", sourceID, models.RecipeKindPrivate, userID).
			First(&recipe).Error; err != nil {
			return nil, sourceLoadError(err, sourceKind)
		}
		return LinesFromIngredients(recipe.Items), nil
	default:
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown source kind %q", sourceKind)}
	}
}

func sourceLoadError(err error, sourceKind string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &ValidationError{Reason: sourceKind + " source item not found"}
	}
	return &PersistenceError{Step: "load source item", Err: err}
}

func (s *EquivalenceService) broadcast(userID uint, kind string, payload any) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(userID, map[string]any{"kind": kind, "payload": payload})
}
