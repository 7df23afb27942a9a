package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	JWTTTL           time.Duration
	AllowedOrigins   []string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
	MaxUploadBytes   int64

	StorageDriver   string
	StorageBaseURL  string
	StoragePath     string
	S3Bucket        string
	S3Region        string
	S3Endpoint      string
	S3PublicBaseURL string
	S3KeyPrefix     string

	PromptProvider string

	GeminiAPIKey      string
	GeminiBaseURL     string
	GeminiTextModel   string
	GeminiImageModel  string
	ImagenModel       string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIOrg         string
	OpenAITextModel   string
	OpenAIImageModel  string
	OpenAIImageSize   string
	QwenAPIKey        string
	QwenBaseURL       string
	QwenModel         string
	QwenEditModel     string
	QwenSize          string
	ProviderTimeout   time.Duration
	ImageProviders    []string
	RetryMaxAttempts  int
	RetryBackoff      time.Duration
	SlotStagger       time.Duration
	HistoryMaxRecords int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             port,
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTIssuer:        getEnv("JWT_ISSUER", "thumbgen"),
		JWTTTL:           time.Hour * time.Duration(getEnvInt("JWT_TTL_HOURS", 24)),
		AllowedOrigins:   getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 0)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		MaxUploadBytes:   int64(getEnvInt("MAX_UPLOAD_BYTES", 10<<20)),

		StorageDriver:   strings.ToLower(getEnv("STORAGE_DRIVER", "filesystem")),
		StorageBaseURL:  getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		StoragePath:     getEnv("STORAGE_PATH", "./data/static"),
		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:      os.Getenv("S3_ENDPOINT"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		S3KeyPrefix:     getEnv("S3_KEY_PREFIX", "thumbnails"),

		PromptProvider: strings.ToLower(getEnv("PROMPT_PROVIDER", "gemini")),

		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL:     os.Getenv("GEMINI_BASE_URL"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-2.5-flash"),
		GeminiImageModel:  getEnv("GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
		ImagenModel:       getEnv("IMAGEN_MODEL", "imagen-4.0-generate-001"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		OpenAIOrg:         os.Getenv("OPENAI_ORG"),
		OpenAITextModel:   getEnv("OPENAI_TEXT_MODEL", "gpt-4o-mini"),
		OpenAIImageModel:  getEnv("OPENAI_IMAGE_MODEL", "gpt-image-1"),
		OpenAIImageSize:   getEnv("OPENAI_IMAGE_SIZE", "1536x1024"),
		QwenAPIKey:        os.Getenv("QWEN_API_KEY"),
		QwenBaseURL:       getEnv("QWEN_BASE_URL", "https://dashscope-intl.aliyuncs.com/api/v1"),
		QwenModel:         getEnv("QWEN_MODEL", "qwen-image-plus"),
		QwenEditModel:     os.Getenv("QWEN_EDIT_MODEL"),
		QwenSize:          getEnv("QWEN_SIZE", "1664*928"),
		ProviderTimeout:   time.Second * time.Duration(getEnvInt("IMAGE_PROVIDER_TIMEOUT_SECONDS", 120)),
		ImageProviders:    getEnvList("IMAGE_PROVIDER_ORDER", []string{"gemini", "imagen", "openai", "qwen"}),
		RetryMaxAttempts:  getEnvInt("IMAGE_RETRY_MAX_ATTEMPTS", 2),
		RetryBackoff:      time.Millisecond * time.Duration(getEnvInt("IMAGE_RETRY_BACKOFF_MS", 2000)),
		SlotStagger:       time.Millisecond * time.Duration(getEnvInt("IMAGE_SLOT_STAGGER_MS", 1500)),
		HistoryMaxRecords: getEnvInt("HISTORY_MAX_RECORDS", 100),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	switch cfg.StorageDriver {
	case "filesystem":
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	if cfg.RetryMaxAttempts < 1 {
		cfg.RetryMaxAttempts = 1
	}
	if cfg.HistoryMaxRecords < 1 {
		cfg.HistoryMaxRecords = 100
	}
	if os.Getenv("HTTP_WRITE_TIMEOUT_SECONDS") == "" {
		cfg.HTTPWriteTimeout = cfg.GenerationBudget() + writeTimeoutMargin
	}

	return cfg, nil
}

const (
	// maxGenerationSlots mirrors imagegen.MaxCount.
	maxGenerationSlots = 4
	// writeTimeoutMargin leaves room for upload and history after generation.
	writeTimeoutMargin = 60 * time.Second
)

// GenerationBudget is the worst-case duration of one generate request: every
// provider in the chain exhausting its retries at ProviderTimeout, plus the
// image-to-image stagger of the last slot.
func (c *Config) GenerationBudget() time.Duration {
	providers := len(c.ImageProviders)
	if providers == 0 {
		providers = 1
	}
	attempts := c.RetryMaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	perProvider := time.Duration(attempts)*c.ProviderTimeout + time.Duration(attempts-1)*c.RetryBackoff
	return time.Duration(providers)*perProvider + time.Duration(maxGenerationSlots-1)*c.SlotStagger
}

// UsesDatabase reports whether a PostgreSQL connection string was provided.
func (c *Config) UsesDatabase() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
