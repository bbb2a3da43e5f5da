package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config - all environment configuration in one struct
type Config struct {
	// Server
	Port string

	// Redis (credential store)
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
	RedisUseTLS   bool

	// Supabase (asset persistence)
	SupabaseURL            string
	SupabaseServiceKey     string
	SupabaseStorageBaseURL string
	SupabaseStorageBucket  string

	// Gemini
	GeminiAPIKey     string
	GeminiTextModel  string
	GeminiImageModel string

	// Groq (alternate text)
	GroqAPIKey string
	GroqModel  string

	// Runware (alternate image)
	RunwareAPIKey string
	RunwareModel  string

	// Veo (preferred video)
	VeoAPIKey string
	VeoModel  string

	// Kling (alternate video)
	KlingAccessKey string
	KlingSecretKey string
	KlingModel     string

	// Provider preference per capability
	PreferredTextProvider  string
	PreferredImageProvider string
	PreferredVideoProvider string

	// Orchestration tuning
	BatchConcurrency    int           // 0 = unbounded
	VideoPollInterval   time.Duration
	VideoPollMaxChecks  int
	RateLimitRetryDelay time.Duration
}

var globalConfig *Config

// LoadConfig - load .env if present, then environment variables with defaults
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables")
	}

	useTLS := false
	if tlsStr := os.Getenv("REDIS_USE_TLS"); tlsStr != "" {
		if parsed, err := strconv.ParseBool(tlsStr); err == nil {
			useTLS = parsed
		}
	}

	globalConfig = &Config{
		Port: getEnv("PORT", "8080"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisUsername: getEnv("REDIS_USERNAME", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisUseTLS:   useTLS,

		SupabaseURL:            getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey:     getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseStorageBaseURL: getEnv("SUPABASE_STORAGE_BASE_URL", ""),
		SupabaseStorageBucket:  getEnv("SUPABASE_STORAGE_BUCKET", "storyboard-assets"),

		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiTextModel:  getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),

		GroqAPIKey: getEnv("GROQ_API_KEY", ""),
		GroqModel:  getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),

		RunwareAPIKey: getEnv("RUNWARE_API_KEY", ""),
		RunwareModel:  getEnv("RUNWARE_MODEL", "bytedance:seedream@4"),

		VeoAPIKey: getEnv("VEO_API_KEY", ""),
		VeoModel:  getEnv("VEO_MODEL", "veo3-fast"),

		KlingAccessKey: getEnv("KLING_ACCESS_KEY", ""),
		KlingSecretKey: getEnv("KLING_SECRET_KEY", ""),
		KlingModel:     getEnv("KLING_MODEL", "kling-v1-6"),

		PreferredTextProvider:  getEnv("PREFERRED_TEXT_PROVIDER", "gemini"),
		PreferredImageProvider: getEnv("PREFERRED_IMAGE_PROVIDER", "gemini"),
		PreferredVideoProvider: getEnv("PREFERRED_VIDEO_PROVIDER", "veo"),

		BatchConcurrency:    getEnvInt("BATCH_CONCURRENCY", 0),
		VideoPollInterval:   getEnvDuration("VIDEO_POLL_INTERVAL", 5*time.Second),
		VideoPollMaxChecks:  getEnvInt("VIDEO_POLL_MAX_CHECKS", 60),
		RateLimitRetryDelay: getEnvDuration("RATE_LIMIT_RETRY_DELAY", 10*time.Second),
	}

	if err := globalConfig.validate(); err != nil {
		return nil, err
	}

	log.Println("✅ Configuration loaded successfully")
	log.Printf("   Redis: %s:%s (TLS: %v)", globalConfig.RedisHost, globalConfig.RedisPort, globalConfig.RedisUseTLS)
	log.Printf("   Text: %s / Image: %s / Video: %s",
		globalConfig.PreferredTextProvider, globalConfig.PreferredImageProvider, globalConfig.PreferredVideoProvider)

	return globalConfig, nil
}

// GetConfig - loaded configuration, fatal when LoadConfig was never called
func GetConfig() *Config {
	if globalConfig == nil {
		log.Fatal("❌ Config not loaded. Call LoadConfig() first.")
	}
	return globalConfig
}

func (c *Config) validate() error {
	if c.GeminiAPIKey == "" && c.GroqAPIKey == "" {
		return fmt.Errorf("at least one text provider key is required (GEMINI_API_KEY or GROQ_API_KEY)")
	}
	if c.RedisHost == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetRedisAddr - Redis connection string
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}
