package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"payu-gateway/internal/payu"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv  string
	AppPort string

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	PayUPosID      int
	PayUPosAuthKey string
	PayUKey1       string
	PayUKey2       string
	PayULanguage   string
	PayUTimezone   string
	PayUBaseURL    string

	JWTSecret string
}

// Load reads configuration from the environment, optionally seeded by a
// .env file in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         os.Getenv("APP_ENV"),
		AppPort:        getEnv("APP_PORT", "8080"),
		DBHost:         os.Getenv("DB_HOST"),
		DBUser:         os.Getenv("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBName:         os.Getenv("DB_NAME"),
		DBPort:         getEnv("DB_PORT", "5432"),
		PayUPosAuthKey: os.Getenv("PAYU_POS_AUTH_KEY"),
		PayUKey1:       os.Getenv("PAYU_KEY1"),
		PayUKey2:       os.Getenv("PAYU_KEY2"),
		PayULanguage:   getEnv("PAYU_LANGUAGE", payu.DefaultLanguage),
		PayUTimezone:   getEnv("PAYU_TIMEZONE", payu.DefaultTimezone),
		PayUBaseURL:    getEnv("PAYU_BASE_URL", payu.BaseURL),
		JWTSecret:      os.Getenv("JWT_SECRET"),
	}

	if raw := os.Getenv("PAYU_POS_ID"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid PAYU_POS_ID %q: %w", raw, err)
		}
		cfg.PayUPosID = id
	}

	if cfg.DBHost == "" {
		return nil, errors.New("DB_HOST is not set")
	}
	if cfg.PayUPosID == 0 || cfg.PayUKey1 == "" || cfg.PayUKey2 == "" {
		return nil, errors.New("PAYU_POS_ID, PAYU_KEY1 and PAYU_KEY2 must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is not set")
	}

	return cfg, nil
}

// PayU returns the gateway credentials.
func (c *Config) PayU() payu.Config {
	return payu.Config{
		PosID:      c.PayUPosID,
		PosAuthKey: c.PayUPosAuthKey,
		Key1:       c.PayUKey1,
		Key2:       c.PayUKey2,
		Language:   c.PayULanguage,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
