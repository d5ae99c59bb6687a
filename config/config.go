package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/JesusMartinezCamps/bibofit-sub000/models"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// Config holds all configuration for the application.
type Config struct {
	Environment  string
	IsProduction bool

	Port      string
	JWTSecret string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	// Quantity solver. Empty URL selects the in-process solver.
	SolverURL     string
	SolverTimeout time.Duration

	// Pending adjustments older than this are treated as failed and reaped.
	PendingAdjustmentMaxAge time.Duration
}

// Load reads configuration from the environment (.env honoured if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "bibofit"),
		DBPort:      getEnv("DB_PORT", "5432"),
		SolverURL:   getEnv("SOLVER_URL", ""),
	}
	cfg.IsProduction = cfg.Environment == "production"

	cfg.SolverTimeout = getEnvSeconds("SOLVER_TIMEOUT_SECONDS", 10)
	cfg.PendingAdjustmentMaxAge = getEnvSeconds("PENDING_ADJUSTMENT_MAX_AGE_SECONDS", 120)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if all required configuration is present.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	return nil
}

// InitDB connects to Postgres and migrates the schema.
func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	DB = db
	return db, nil
}

// Migrate runs AutoMigrate for every model. Shared with the test suite, which
// runs it against an in-memory SQLite database.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.FoodItem{},
		&models.FoodGroupMembership{},
		&models.FoodSensitivity{},
		&models.FoodConditionLink{},
		&models.Recipe{},
		&models.Ingredient{},
		&models.MealPlan{},
		&models.MealSlot{},
		&models.ScheduledRecipe{},
		&models.FreeMeal{},
		&models.FreeMealItem{},
		&models.SnackLog{},
		&models.SnackItem{},
		&models.UserSensitivity{},
		&models.UserCondition{},
		&models.UserFoodRule{},
		&models.EquivalenceAdjustment{},
		&models.IngredientAdjustment{},
	)
	if err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvSeconds(key string, defaultSeconds int) time.Duration {
	secs, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultSeconds)))
	if err != nil || secs <= 0 {
		secs = defaultSeconds
	}
	return time.Duration(secs) * time.Second
}
