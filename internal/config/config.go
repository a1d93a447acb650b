package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	StoreDriver    string // "postgres" or "sqlite"
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	SQLitePath     string
	ServerPort     string
	JWTSecret      string
	RedisAddr      string // empty disables the cross-instance bridge
	ReaperInterval time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("⚠️  No .env file found, using system environment variables")
	}

	return &Config{
		StoreDriver:    getEnv("STORE_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "taskflow_user"),
		DBPassword:     getEnv("DB_PASSWORD", "taskflow_pass"),
		DBName:         getEnv("DB_NAME", "taskflow_db"),
		SQLitePath:     getEnv("SQLITE_PATH", "taskflow.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", "supersecretkey"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		ReaperInterval: getEnvSeconds("REAPER_INTERVAL", 30),
	}
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvSeconds(key string, defaultSec int) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if sec, err := strconv.Atoi(value); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		log.Printf("⚠️  Invalid %s value %q, using default %ds", key, value, defaultSec)
	}
	return time.Duration(defaultSec) * time.Second
}
