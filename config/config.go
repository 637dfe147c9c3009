package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Config carries everything the handlers and services need at runtime.
type Config struct {
	MongoClient *mongo.Client
	DBName      string
	JWTSecret   []byte
	Port        string
	CORSOrigins []string
	NotifyEmail string

	Log *zap.Logger
}

// Load reads .env when present, connects to Mongo and builds the logger.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	uri := getenv("MONGO_URI", "mongodb://localhost:27017")
	dbName := getenv("DB_NAME", "eventfund")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}

	return &Config{
		MongoClient: client,
		DBName:      dbName,
		JWTSecret:   []byte(secret),
		Port:        getenv("PORT", "8080"),
		CORSOrigins: strings.Split(getenv("CORS_ORIGINS", "*"), ","),
		NotifyEmail: os.Getenv("EVENT_NOTIFY_EMAIL"),
		Log:         log,
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
