package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey string
	DatabaseURL  string
	HTTPPort     string
	LogLevel     string
	JWTSecret    string

	// Admin policy: emails granted admin on registration, and emails
	// refused at registration entirely.
	AdminEmails      []string
	RestrictedEmails []string

	// Optional operator account seeded (idempotently) at startup.
	SeedAdminEmail    string
	SeedAdminPassword string
	SeedAdminName     string
}

var AppConfig Config

// Registration denylist used when RESTRICTED_EMAILS is not set. Carried
// over from the original deployment.
var defaultRestrictedEmails = []string{
	"admin@mukhaweb.com",
	"admin@mukha.com",
	"admin@it.com",
}

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:       getEnv("DATABASE_URL", "mukha_chat.db"),
		HTTPPort:          getEnv("HTTP_PORT", "8080"),
		LogLevel:          getEnv("LOG_LEVEL", "INFO"),
		JWTSecret:         getEnv("JWT_SECRET", ""),
		AdminEmails:       getEnvAsList("ADMIN_EMAILS", nil),
		RestrictedEmails:  getEnvAsList("RESTRICTED_EMAILS", defaultRestrictedEmails),
		SeedAdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		SeedAdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		SeedAdminName:     getEnv("SEED_ADMIN_NAME", ""),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}

	if AppConfig.SeedAdminEmail != "" && AppConfig.SeedAdminPassword == "" {
		log.Fatal("SEED_ADMIN_PASSWORD is required when SEED_ADMIN_EMAIL is set")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsList parses a comma-separated env var, trimming and lowercasing
// each entry. Returns defaultValue when the variable is unset or empty.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}
