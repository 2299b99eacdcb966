package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"

	AuthJWT      = "jwt"
	AuthJWKS     = "jwks"
	AuthFirebase = "firebase"
)

type Config struct {
	ServerPort  string
	Environment string

	FirebaseProject    string
	ServiceAccountPath string
	ServiceAccountJSON string
	StorageBucket      string
	StoreDriver        string
	MaxDocumentSize    int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthProvider string
	JWTSecret    string
	JWTExpiry    int64
	JWKSURL      string

	PresenceTTL   time.Duration
	HistoryTTL    time.Duration
	SnapshotTTL   time.Duration
	HistoryWindow int64
	WSSendBuffer  int
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		Environment:        getEnv("ENVIRONMENT", "development"),
		FirebaseProject:    getEnv("FIREBASE_PROJECT_ID", ""),
		ServiceAccountPath: getEnv("FIREBASE_SERVICE_ACCOUNT_PATH", ""),
		ServiceAccountJSON: getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", ""),
		StoreDriver:        getEnv("STORE_DRIVER", StoreFirestore),
		MaxDocumentSize:    getEnvAsInt64("MAX_DOCUMENT_SIZE", 10*1024*1024),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            int(getEnvAsInt64("REDIS_DB", 0)),
		AuthProvider:       getEnv("AUTH_PROVIDER", AuthJWT),
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key"),
		JWTExpiry:          getEnvAsInt64("JWT_EXPIRY", 24*60*60), // 24 hours
		JWKSURL:            getEnv("JWKS_URL", ""),
		PresenceTTL:        getEnvAsDuration("PRESENCE_TTL", 24*time.Hour),
		HistoryTTL:         getEnvAsDuration("HISTORY_TTL", 24*time.Hour),
		SnapshotTTL:        getEnvAsDuration("SNAPSHOT_TTL", 24*time.Hour),
		HistoryWindow:      getEnvAsInt64("HISTORY_WINDOW", 50),
		WSSendBuffer:       int(getEnvAsInt64("WS_SEND_BUFFER", 256)),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case StoreFirestore:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firestore store driver")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.AuthProvider {
	case AuthJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required for the jwt auth provider")
		}
	case AuthJWKS:
		if c.JWKSURL == "" {
			return fmt.Errorf("JWKS_URL is required for the jwks auth provider")
		}
	case AuthFirebase:
		if c.FirebaseProject == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required for the firebase auth provider")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q", c.AuthProvider)
	}

	if c.HistoryWindow <= 0 {
		return fmt.Errorf("HISTORY_WINDOW must be positive")
	}

	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
	}
	return defaultValue
}
