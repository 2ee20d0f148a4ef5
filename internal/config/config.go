package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	AWSRegion       string
	PaymentQueueURL string
	LPREnabled      bool

	JWTSecret          string
	JWTExpirationHours time.Duration

	// DefaultHourlyRate is the fallback rate the payment backfill uses
	// when a session's lot can no longer be resolved.
	DefaultHourlyRate int64

	// PaymentBackfillWindow is how far back the periodic backfill job
	// looks for closed sessions without a payment record.
	PaymentBackfillWindow time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	jwtExpHours, _ := strconv.Atoi(getEnv("JWT_EXPIRATION_HOURS", "24"))
	defaultRate, _ := strconv.ParseInt(getEnv("DEFAULT_HOURLY_RATE", "10"), 10, 64)
	backfillHours, _ := strconv.Atoi(getEnv("PAYMENT_BACKFILL_WINDOW_HOURS", "48"))
	lprEnabled, _ := strconv.ParseBool(getEnv("LPR_ENABLED", "false"))

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "plaza"),
		DBPassword: getEnv("DB_PASSWORD", "plaza"),
		DBName:     getEnv("DB_NAME", "plaza_backoffice"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		AWSRegion:       getEnv("AWS_REGION", "ap-southeast-1"),
		PaymentQueueURL: getEnv("PAYMENT_QUEUE_URL", ""),
		LPREnabled:      lprEnabled,

		JWTSecret:          getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours: time.Duration(jwtExpHours) * time.Hour,

		DefaultHourlyRate:     defaultRate,
		PaymentBackfillWindow: time.Duration(backfillHours) * time.Hour,
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable '%s' not set, using default: '%s'", key, fallback)
	return fallback
}
