package services

import (
	"errors"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"gorm.io/gorm"
)

// PlanService serves the display side of planned days: slot views with
// adjustment-overlaid quantities and day-level progress.
type PlanService struct {
	db      *gorm.DB
	catalog *CatalogService
	ledger  *EquivalenceService
}

func NewPlanService(db *gorm.DB, catalog *CatalogService, ledger *EquivalenceService) *PlanService {
	return &PlanService{db: db, catalog: catalog, ledger: ledger}
}

type EffectiveIngredient struct {
	FoodID            string  `json:"food_id"`
	FoodIsUserCreated bool    `json:"food_is_user_created"`
	BaseQuantity      float64 `json:"base_quantity"`
	EffectiveQuantity float64 `json:"effective_quantity"`
	Adjusted          bool    `json:"adjusted"`
}

type EffectiveRecipe struct {
	RecipeID uint                  `json:"recipe_id"`
	Name     string                `json:"name"`
	Items    []EffectiveIngredient `json:"items"`
	Macros   models.MacroTotals    `json:"macros"`
}

type SlotView struct {
	SlotID     uint                          `json:"slot_id"`
	Name       string                        `json:"name"`
	Date       string                        `json:"date"`
	Target     models.MacroTotals            `json:"target"`
	Adjustment *models.EquivalenceAdjustment `json:"adjustment,omitempty"`
	Recipes    []EffectiveRecipe             `json:"recipes"`
	Totals     models.MacroTotals            `json:"totals"`
}

// EffectiveSlotView renders a slot for a day with the active adjustment
// overlaid: for each (recipe, food) an adjustment delta replaces the base
// quantity, absence of a delta means the base quantity. The delta lookup is a
// pre-built map, O(1) per ingredient.
func (s *PlanService) EffectiveSlotView(slotID uint, date time.Time) (*SlotView, error) {
	day := models.Day(date)

	var slot models.MealSlot
	if err := s.db.First(&slot, slotID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{Reason: "meal slot not found"}
		}
		return nil, err
	}

	adjustment, err := s.ledger.GetActiveAdjustment(slotID, day)
	if err != nil {
		return nil, err
	}
	overlay := AdjustedQuantities(adjustment)

	var scheduled []models.ScheduledRecipe
	if err := s.db.Where("meal_slot_id = ? AND date = ?", slotID, day).Find(&scheduled).Error; err != nil {
		return nil, err
	}

	view := &SlotView{
		SlotID:     slot.ID,
		Name:       slot.Name,
		Date:       day.Format("2006-01-02"),
		Target:     slot.Target,
		Adjustment: adjustment,
		Recipes:    []EffectiveRecipe{},
	}
	if len(scheduled) == 0 {
		return view, nil
	}

	recipeIDs := make([]uint, 0, len(scheduled))
	for _, sr := range scheduled {
		recipeIDs = append(recipeIDs, sr.RecipeID)
	}
	var recipes []models.Recipe
	if err := s.db.Preload("Items").Where("id IN ?", recipeIDs).Find(&recipes).Error; err != nil {
		return nil, err
	}

	// One catalog load for the whole slot.
	var items []models.Ingredient
	for _, recipe := range recipes {
		items = append(items, recipe.Items...)
	}
	catalog, err := s.catalog.CatalogForIngredients(items)
	if err != nil {
		return nil, err
	}

	for _, recipe := range recipes {
		er := EffectiveRecipe{RecipeID: recipe.ID, Name: recipe.Name}
		lines := make([]MacroLine, 0, len(recipe.Items))
		for _, ing := range recipe.Items {
			effective := ing.Quantity
			adjusted := false
			if byFood, ok := overlay[recipe.ID]; ok {
				if q, ok := byFood[ing.FoodKey()]; ok {
					effective = q
					adjusted = true
				}
			}
			er.Items = append(er.Items, EffectiveIngredient{
				FoodID:            ing.FoodID,
				FoodIsUserCreated: ing.FoodIsUserCreated,
				BaseQuantity:      ing.Quantity,
				EffectiveQuantity: effective,
				Adjusted:          adjusted,
			})
			lines = append(lines, MacroLine{Food: ing.FoodKey(), Quantity: effective})
		}
		er.Macros = AggregateMacros(lines, catalog)
		view.Recipes = append(view.Recipes, er)
		view.Totals = view.Totals.Add(er.Macros)
	}
	return view, nil
}

type DayProgress struct {
	Date     string             `json:"date"`
	Planned  models.MacroTotals `json:"planned"`
	Logged   models.MacroTotals `json:"logged"`
	Target   models.MacroTotals `json:"target"`
	Consumed models.MacroTotals `json:"consumed"`
}

// DayProgressFor sums a user's day: planned slots (with adjustments applied)
// plus free meals and snacks, against the summed slot targets.
func (s *PlanService) DayProgressFor(userID uint, date time.Time) (*DayProgress, error) {
	day := models.Day(date)
	progress := &DayProgress{Date: day.Format("2006-01-02")}

	var slots []models.MealSlot
	err := s.db.
		Joins("JOIN meal_plans ON meal_plans.id = meal_slots.meal_plan_id").
		Where("meal_plans.user_id = ? AND meal_plans.deleted_at IS NULL", userID).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		progress.Target = progress.Target.Add(slot.Target)
		view, err := s.EffectiveSlotView(slot.ID, day)
		if err != nil {
			return nil, err
		}
		progress.Planned = progress.Planned.Add(view.Totals)
	}

	logged, err := s.loggedMacros(userID, day)
	if err != nil {
		return nil, err
	}
	progress.Logged = logged
	progress.Consumed = progress.Planned.Add(logged)
	return progress, nil
}

func (s *PlanService) loggedMacros(userID uint, day time.Time) (models.MacroTotals, error) {
	start, end := day, day.Add(24*time.Hour)
	var total models.MacroTotals

	var meals []models.FreeMeal
	if err := s.db.Preload("Items").
		Where("user_id = ? AND ate_at >= ? AND ate_at < ?", userID, start, end).
		Find(&meals).Error; err != nil {
		return total, err
	}
	var snacks []models.SnackLog
	if err := s.db.Preload("Items").
		Where("user_id = ? AND ate_at >= ? AND ate_at < ?", userID, start, end).
		Find(&snacks).Error; err != nil {
		return total, err
	}

	var lines []MacroLine
	for _, m := range meals {
		lines = append(lines, LinesFromFreeMeal(m.Items)...)
	}
	for _, sn := range snacks {
		lines = append(lines, LinesFromSnack(sn.Items)...)
	}

	keys := make([]models.FoodKey, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, l.Food)
	}
	catalog, err := s.catalog.GetFoodsByKeys(keys)
	if err != nil {
		return total, err
	}
	return AggregateMacros(lines, catalog), nil
}

// UpdateSlotTarget upserts a slot's macro budget, checking plan ownership.
func (s *PlanService) UpdateSlotTarget(userID, slotID uint, target models.MacroTotals) error {
	var slot models.MealSlot
	err := s.db.
		Joins("JOIN meal_plans ON meal_plans.id = meal_slots.meal_plan_id").
		Where("meal_slots.id = ? AND meal_plans.user_id = ?", slotID, userID).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ValidationError{Reason: "meal slot not found"}
		}
		return err
	}
	slot.Target = target
	return s.db.Save(&slot).Error
}
