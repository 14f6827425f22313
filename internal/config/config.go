package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey     string
	JWTSecret        string
	DatabaseURL      string
	HTTPPort         string
	QdrantAddr       string
	QdrantCollection string
	PlunkSecretKey   string
	LogLevel         string
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		DatabaseURL:      getEnv("DATABASE_URL", "chatpdf.db"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		QdrantAddr:       getEnv("QDRANT_ADDR", "localhost:6334"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "chatpdf"),
		PlunkSecretKey:   getEnv("PLUNK_SECRET_KEY", ""),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.JWTSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
