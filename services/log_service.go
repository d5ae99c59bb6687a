package services

import (
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"gorm.io/gorm"
)

// LogService records free-form meals and snacks, the items an equivalence
// adjustment later spends.
type LogService struct {
	db      *gorm.DB
	catalog *CatalogService
}

func NewLogService(db *gorm.DB, catalog *CatalogService) *LogService {
	return &LogService{db: db, catalog: catalog}
}

type LogItemRequest struct {
	FoodID            string  `json:"food_id" binding:"required"`
	FoodIsUserCreated bool    `json:"food_is_user_created"`
	Quantity          float64 `json:"quantity"`
}

func (s *LogService) AddFreeMeal(userID uint, name string, ateAt time.Time, items []LogItemRequest) (*models.FreeMeal, models.MacroTotals, error) {
	if len(items) == 0 {
		return nil, models.MacroTotals{}, &ValidationError{Reason: "a free meal needs at least one item"}
	}

	meal := &models.FreeMeal{UserID: userID, Name: name, AteAt: ateAt}
	for _, it := range items {
		meal.Items = append(meal.Items, models.FreeMealItem{
			FoodID:            it.FoodID,
			FoodIsUserCreated: it.FoodIsUserCreated,
			Quantity:          it.Quantity,
		})
	}
	if err := s.db.Create(meal).Error; err != nil {
		return nil, models.MacroTotals{}, &PersistenceError{Step: "create free meal", Err: err}
	}

	macros, err := s.macrosForFreeMeal(meal)
	if err != nil {
		return nil, models.MacroTotals{}, err
	}
	return meal, macros, nil
}

func (s *LogService) AddSnack(userID uint, ateAt time.Time, items []LogItemRequest) (*models.SnackLog, models.MacroTotals, error) {
	if len(items) == 0 {
		return nil, models.MacroTotals{}, &ValidationError{Reason: "a snack needs at least one item"}
	}

	snack := &models.SnackLog{UserID: userID, AteAt: ateAt}
	for _, it := range items {
		snack.Items = append(snack.Items, models.SnackItem{
			FoodID:            it.FoodID,
			FoodIsUserCreated: it.FoodIsUserCreated,
			Quantity:          it.Quantity,
		})
	}
	if err := s.db.Create(snack).Error; err != nil {
		return nil, models.MacroTotals{}, &PersistenceError{Step: "create snack", Err: err}
	}

	lines := LinesFromSnack(snack.Items)
	macros, err := s.aggregate(lines)
	if err != nil {
		return nil, models.MacroTotals{}, err
	}
	return snack, macros, nil
}

func (s *LogService) ListFreeMealsByDateRange(userID uint, from, to time.Time) ([]models.FreeMeal, error) {
	var meals []models.FreeMeal
	err := s.db.Preload("Items").
		Where("user_id = ? AND ate_at >= ? AND ate_at < ?", userID, from, to).
		Order("ate_at DESC").
		Find(&meals).Error
	return meals, err
}

func (s *LogService) ListSnacksByDateRange(userID uint, from, to time.Time) ([]models.SnackLog, error) {
	var snacks []models.SnackLog
	err := s.db.Preload("Items").
		Where("user_id = ? AND ate_at >= ? AND ate_at < ?", userID, from, to).
		Order("ate_at DESC").
		Find(&snacks).Error
	return snacks, err
}

func (s *LogService) macrosForFreeMeal(meal *models.FreeMeal) (models.MacroTotals, error) {
	return s.aggregate(LinesFromFreeMeal(meal.Items))
}

func (s *LogService) aggregate(lines []MacroLine) (models.MacroTotals, error) {
	keys := make([]models.FoodKey, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, l.Food)
	}
	catalog, err := s.catalog.GetFoodsByKeys(keys)
	if err != nil {
		return models.MacroTotals{}, &PersistenceError{Step: "load catalog", Err: err}
	}
	return AggregateMacros(lines, catalog), nil
}
