package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Session   SessionConfig
	OAuth     OAuthConfig
	Storage   StorageConfig
	Redis     RedisConfig
	Watermark WatermarkConfig
	Logger    LoggerConfig

	ResourcesSeedFile string
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	RateLimitPerMinute int
	MaxUploadBytes     int64
}

type DatabaseConfig struct {
	DSN string
}

type SessionConfig struct {
	SecretKey    string
	TTL          time.Duration
	CookieSecure bool
}

type OAuthConfig struct {
	GoogleKey    string
	GoogleSecret string
	CallbackURL  string
}

// StorageConfig selects the object store. Driver is one of s3, minio or local.
type StorageConfig struct {
	Driver          string
	Bucket          string
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	Region          string
	PublicURL       string
	MinioEndpoint   string
	MinioUseSSL     bool
	LocalPath       string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type WatermarkConfig struct {
	PreviewTTL      time.Duration
	PreviewDPI      float64
	PreviewMaxWidth int
}

type LoggerConfig struct {
	Level string
}

// Load reads configuration from the environment. A .env file is optional.
func Load() (*Config, error) {
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	return &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "3000"),
			ReadTimeout:        getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout:    getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RateLimitPerMinute: getInt("RATE_LIMIT_PER_MINUTE", 20),
			MaxUploadBytes:     int64(getInt("MAX_UPLOAD_BYTES", 25<<20)),
		},
		Database: DatabaseConfig{
			DSN: getEnv("DSN", "host=localhost user=postgres password=postgres dbname=watermark port=5432 sslmode=disable"),
		},
		Session: SessionConfig{
			SecretKey:    getEnv("JWT_SECRET_KEY", ""),
			TTL:          getDuration("SESSION_TTL", 24*time.Hour),
			CookieSecure: getBool("COOKIE_SECURE", false),
		},
		OAuth: OAuthConfig{
			GoogleKey:    getEnv("GOOGLE_KEY", ""),
			GoogleSecret: getEnv("GOOGLE_SECRET", ""),
			CallbackURL:  getEnv("OAUTH_CALLBACK_URL", "http://localhost:3000/auth/google/callback"),
		},
		Storage: StorageConfig{
			Driver:          strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			Bucket:          getEnv("BUCKET_NAME", "documents"),
			AccountID:       getEnv("ACCOUNT_ID", ""),
			AccessKeyID:     getEnv("ACCESS_KEY_ID", ""),
			AccessKeySecret: getEnv("ACCESS_KEY_SECRET", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			Region:          getEnv("S3_REGION", "auto"),
			PublicURL:       getEnv("PUBLIC_URL", ""),
			MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
			MinioUseSSL:     getBool("MINIO_USE_SSL", false),
			LocalPath:       getEnv("LOCAL_STORAGE_PATH", "data"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Watermark: WatermarkConfig{
			PreviewTTL:      getDuration("PREVIEW_TTL", 10*time.Minute),
			PreviewDPI:      getFloat("PREVIEW_DPI", 72),
			PreviewMaxWidth: getInt("PREVIEW_MAX_WIDTH", 800),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		ResourcesSeedFile: getEnv("RESOURCES_SEED_FILE", ""),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloat(key string, defaultValue float64) float64 {
	v, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return v
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

// getDuration accepts Go duration strings ("90s", "24h").
func getDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return defaultValue
	}
	return v
}
