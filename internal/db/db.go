package db

import (
	"context"
	"encoding/hex"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Config carries everything the service reads from the environment.
type Config struct {
	ListenAddr     string
	DatabaseURL    string
	JWTSecret      []byte
	OperatorSecret string
	// CustodyKey seals wallet private keys; 32 bytes, hex in the env.
	CustodyKey []byte
}

func LoadConfig() Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file, using system environment variables")
	}

	cfg := Config{
		ListenAddr:     getenv("LISTEN_ADDR", ":8000"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      []byte(mustGetenv("JWT_SECRET")),
		OperatorSecret: mustGetenv("OPERATOR_SECRET"),
	}

	key, err := hex.DecodeString(mustGetenv("CUSTODY_KEY"))
	if err != nil || len(key) != 32 {
		log.Fatalf("CUSTODY_KEY must be 32 bytes hex")
	}
	cfg.CustodyKey = key
	return cfg
}

// NewConnection opens the pgx pool for cfg.DatabaseURL.
func NewConnection(cfg Config) *pgxpool.Pool {
	config, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to parse db config: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("Failed to create db pool: %v", err)
	}

	return pool
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func mustGetenv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("%s is required", key)
	}
	return v
}
