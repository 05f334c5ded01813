package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey     string
	DatabaseURL      string
	HTTPPort         string
	LogLevel         string
	EncryptionKey    string // hex-encoded 32-byte AES key; empty means ephemeral
	EmbeddingModel   string
	EmbeddingDim     int
	ChunkSize        int
	ChunkOverlap     int
	EmbedConcurrency int
	SearchTopK       int
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		DatabaseURL:      getEnv("DATABASE_URL", "docvault.db"),
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		EncryptionKey:    getEnv("ENCRYPTION_KEY", ""),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "text-embedding-004"),
		EmbeddingDim:     getEnvAsInt("EMBEDDING_DIM", 768),
		ChunkSize:        getEnvAsInt("CHUNK_SIZE", 300),
		ChunkOverlap:     getEnvAsInt("CHUNK_OVERLAP", 10),
		EmbedConcurrency: getEnvAsInt("EMBED_CONCURRENCY", 4),
		SearchTopK:       getEnvAsInt("SEARCH_TOP_K", 5),
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.ChunkOverlap >= AppConfig.ChunkSize {
		log.Fatalf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)",
			AppConfig.ChunkOverlap, AppConfig.ChunkSize)
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
