package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Env            string
	DatabaseDriver string
	DatabaseURL    string
	JWTSecret      string
	JWTExpiration  time.Duration
	ServerPort     string
	AdminPassword  string

	// Payroll policy defaults. Handlers pass these to the aggregator; the
	// aggregator itself never assumes them.
	HourlyRate         float64
	HoursPerEvent      float64
	WeeklyThreshold    float64
	OvertimeMultiplier float64
	PayrollWorkers     int

	StoreTimeout time.Duration

	RedisURL          string
	CheckInRateLimit  int
	CheckInRatePeriod time.Duration
}

func Load() *Config {
	return &Config{
		Env:            getEnv("ENV", "development"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgresql://postgres@localhost:5432/workforce"),
		JWTSecret:      getEnv("JWT_SECRET", "your-super-secret-key-change-in-production"),
		JWTExpiration:  getDuration("JWT_EXPIRATION", "24h"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", "admin"),

		HourlyRate:         getFloat("HOURLY_RATE", "15"),
		HoursPerEvent:      getFloat("HOURS_PER_EVENT", "8"),
		WeeklyThreshold:    getFloat("WEEKLY_THRESHOLD", "40"),
		OvertimeMultiplier: getFloat("OVERTIME_MULTIPLIER", "1.5"),
		PayrollWorkers:     getInt("PAYROLL_WORKERS", "4"),

		StoreTimeout: getDuration("STORE_TIMEOUT", "5s"),

		RedisURL:          getEnv("REDIS_URL", ""),
		CheckInRateLimit:  getInt("CHECKIN_RATE_LIMIT", "30"),
		CheckInRatePeriod: getDuration("CHECKIN_RATE_PERIOD", "1m"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key, defaultValue string) int {
	v, err := strconv.Atoi(getEnv(key, defaultValue))
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return v
}

func getFloat(key, defaultValue string) float64 {
	v, err := strconv.ParseFloat(getEnv(key, defaultValue), 64)
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return v
}

func getDuration(key, defaultValue string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, defaultValue))
	if err != nil {
		log.Panicf("Invalid %s: %v", key, err)
	}
	return v
}
