package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port                      string
	AllowedOrigin             string
	DatabaseURL               string
	RedisAddr                 string
	RedisPassword             string
	RedisDB                   int
	AuthSecret                string
	AccessTokenTTLMinutes     int
	LoginAttemptMax           int
	LoginAttemptWindowSeconds int
	BootstrapAdminPassword    string
	LogLevel                  string
	LogFile                   string
}

func Load() Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "480"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 480
	}
	attemptMax, err := strconv.Atoi(getEnv("LOGIN_ATTEMPT_MAX", "5"))
	if err != nil || attemptMax < 1 {
		attemptMax = 5
	}
	attemptWindow, err := strconv.Atoi(getEnv("LOGIN_ATTEMPT_WINDOW_SECONDS", "60"))
	if err != nil || attemptWindow < 1 {
		attemptWindow = 60
	}

	cfg := Config{
		Port:                      getEnv("PORT", "8080"),
		AllowedOrigin:             getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:3000"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		RedisAddr:                 os.Getenv("REDIS_ADDR"),
		RedisPassword:             os.Getenv("REDIS_PASSWORD"),
		RedisDB:                   redisDB,
		AuthSecret:                strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:     tokenTTL,
		LoginAttemptMax:           attemptMax,
		LoginAttemptWindowSeconds: attemptWindow,
		BootstrapAdminPassword:    strings.TrimSpace(os.Getenv("BOOTSTRAP_ADMIN_PASSWORD")),
		LogLevel:                  getEnv("LOG_LEVEL", "info"),
		LogFile:                   os.Getenv("LOG_FILE"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}
