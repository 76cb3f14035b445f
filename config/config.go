package config

import (
	"fmt"
	"os"

	"renalscan/models"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

type Config struct {
	Port          string
	Env           string
	AWSRegion     string
	JWTSecret     string
	HistoryAPIURL string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
}

// Load reads .env when present and then the process environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:          getenv("PORT", "8080"),
		Env:           getenv("APP_ENV", "production"),
		AWSRegion:     getenv("AWS_REGION", "us-east-1"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		HistoryAPIURL: os.Getenv("HISTORY_API_BASE_URL"),
		DBHost:        os.Getenv("DB_HOST"),
		DBUser:        os.Getenv("DB_USER"),
		DBPassword:    os.Getenv("DB_PASSWORD"),
		DBName:        os.Getenv("DB_NAME"),
		DBPort:        getenv("DB_PORT", "5432"),
	}
}

func (c Config) Development() bool { return c.Env == "development" }

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

func NewLogger(c Config) (*zap.Logger, error) {
	if c.Development() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// InitDB opens postgres, migrates the schema and sets DB.
func InitDB(c Config) error {
	gcfg := &gorm.Config{}
	if !c.Development() {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(c.DSN()), gcfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Analysis{},
		&models.Alert{},
		&models.UserDevice{},
	); err != nil {
		return fmt.Errorf("AutoMigrate failed: %w", err)
	}
	DB = db
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
