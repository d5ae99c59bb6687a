package services

import (
	"testing"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/config"
	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// A named shared-cache database keeps the schema alive across pooled
	// connections while staying isolated per test.
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	return db
}

func seedFood(t *testing.T, db *gorm.DB, food *models.FoodItem) *models.FoodItem {
	t.Helper()
	require.NoError(t, db.Create(food).Error)
	return food
}

func seedUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", FullName: "Test User"}
	require.NoError(t, db.Create(u).Error)
	return u
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}
