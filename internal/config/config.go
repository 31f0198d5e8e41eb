package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBURL         string
	DBPoolSize    int
	DBMaxOverflow int

	CacheURL string

	EventBusURL               string
	EventBusVisibilityTimeout time.Duration
	EventBusMaxReceives       int

	ServerPort string

	TokenSecret string
	TokenTTL    time.Duration

	CelebrityThreshold int
	TimelineCap        int
	FanoutBatchSize    int
	WorkerConcurrency  int
	PullWindow         time.Duration
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found or error loading it, relying on environment variables")
	}

	serverPort := os.Getenv("SERVER_PORT")
	if serverPort == "" {
		serverPort = "8080"
	}

	cacheURL := os.Getenv("CACHE_URL")
	if cacheURL == "" {
		cacheURL = "redis://localhost:6379"
	}

	return &Config{
		DBURL:         os.Getenv("DB_URL"),
		DBPoolSize:    intEnv("DB_POOL_SIZE", 10),
		DBMaxOverflow: intEnv("DB_MAX_OVERFLOW", 20),

		CacheURL: cacheURL,

		EventBusURL:               os.Getenv("EVENT_BUS_URL"),
		EventBusVisibilityTimeout: time.Duration(intEnv("EVENT_BUS_VISIBILITY_TIMEOUT", 30)) * time.Second,
		EventBusMaxReceives:       intEnv("EVENT_BUS_MAX_RECEIVES", 3),

		ServerPort: serverPort,

		TokenSecret: os.Getenv("TOKEN_SECRET"),
		TokenTTL:    time.Duration(intEnv("TOKEN_TTL", 86400)) * time.Second,

		CelebrityThreshold: intEnv("CELEBRITY_THRESHOLD", 100000),
		TimelineCap:        intEnv("TIMELINE_CAP", 1000),
		FanoutBatchSize:    intEnv("FANOUT_BATCH_SIZE", 1000),
		WorkerConcurrency:  intEnv("WORKER_CONCURRENCY", 4),
		PullWindow:         time.Duration(intEnv("PULL_WINDOW_HOURS", 24)) * time.Hour,
	}, nil
}

// intEnv reads an integer environment variable, falling back to def when the
// variable is unset or not a positive integer.
func intEnv(name string, def int) int {
	v, err := strconv.Atoi(os.Getenv(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
