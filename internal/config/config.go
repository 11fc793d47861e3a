package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            string
	AllowOrigins    string
	LogLevel        string
	DBHost          string
	DBPort          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBSSLMode       string
	JWTSecret       string
	SessionTTL      time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	RateLimitPerMin int
	UploadDir       string
	PublicBaseURL   string
	ReqTimeoutSec   int
	MaxUploadMB     int64
	AdminLoginID    string
}

// ClientConfig is read by the cnb command line client.
type ClientConfig struct {
	APIURL      string
	SessionFile string
	AdminPhone  string
	AdminPIN    string
	LogLevel    string
	ReqTimeout  time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func Load() *Config {
	return &Config{
		Port:            getenv("PORT", "8080"),
		AllowOrigins:    getenv("ALLOW_ORIGINS", "*"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
		DBHost:          getenv("DB_HOST", "localhost"),
		DBPort:          getenv("DB_PORT", "5432"),
		DBUser:          getenv("DB_USER", "cnb"),
		DBPassword:      getenv("DB_PASSWORD", "cnb"),
		DBName:          getenv("DB_NAME", "castenobar"),
		DBSSLMode:       getenv("DB_SSLMODE", "disable"),
		JWTSecret:       getenv("JWT_SECRET", "change-me"),
		SessionTTL:      time.Duration(atoi("SESSION_TTL_MINUTES", 60*24*7)) * time.Minute,
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		RedisDB:         atoi("REDIS_DB", 0),
		RateLimitPerMin: atoi("RATE_LIMIT_PER_MINUTE", 20),
		UploadDir:       getenv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:   getenv("PUBLIC_BASE_URL", "http://localhost:8080"),
		ReqTimeoutSec:   atoi("REQUEST_TIMEOUT_SECONDS", 30),
		MaxUploadMB:     int64(atoi("MAX_UPLOAD_MB", 5)),
		AdminLoginID:    getenv("ADMIN_LOGIN_ID", "46733115830@cnb.app"),
	}
}

// DSN builds the postgres connection string from the DB_* settings.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func LoadClient() *ClientConfig {
	home, _ := os.UserHomeDir()
	return &ClientConfig{
		APIURL:      getenv("CNB_API_URL", "http://localhost:8080"),
		SessionFile: getenv("CNB_SESSION_FILE", home+"/.cnb/session.json"),
		AdminPhone:  getenv("CNB_ADMIN_PHONE", "+46733115830"),
		AdminPIN:    getenv("CNB_ADMIN_PIN", "0000"),
		LogLevel:    getenv("LOG_LEVEL", "warn"),
		ReqTimeout:  time.Duration(atoi("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}
