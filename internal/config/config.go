package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	ShutdownTimeout time.Duration
	DatabaseURL     string
	// UseMemoryStores keeps users, complaints, and drafts in process memory.
	UseMemoryStores bool

	AuthJWTSecret      string
	AuthTokenTTL       time.Duration
	AdminJWTSecret     string
	OpsToken           string
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool
	DraftTTL      time.Duration

	// Capability selection: "gemini", "bedrock", "openai", or "" to disable.
	VisionProvider string
	TextProvider   string

	GeminiAPIKey      string
	GeminiVisionModel string
	GeminiTextModel   string
	BedrockModelID    string
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string

	SpeechEnabled         bool
	SpeechCredentialsFile string

	SpeechTimeout     time.Duration
	VisionTimeout     time.Duration
	TextTimeout       time.Duration
	BreakerMaxFailure int
	BreakerOpenFor    time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Email submission: "sendgrid", "ses", or "" to disable.
	EmailProvider      string
	SendGridAPIKey     string
	EmailFromAddress   string
	EmailFromName      string
	ComplaintInbox     string
	ComplaintInboxName string

	EvidenceBucket string

	// Event delivery: "kafka", "sqs", "log", or "" to keep events in the outbox.
	EventSink          string
	KafkaBrokers       []string
	KafkaTopic         string
	EventsQueueURL     string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		UseMemoryStores: getEnvAsBool("USE_MEMORY_STORES", false),

		AuthJWTSecret:      getEnv("AUTH_JWT_SECRET", ""),
		AuthTokenTTL:       getEnvAsDuration("AUTH_TOKEN_TTL", 7*24*time.Hour),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		OpsToken:           getEnv("OPS_TOKEN", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		RedisAddr:     getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),
		DraftTTL:      getEnvAsDuration("DRAFT_TTL", 30*time.Minute),

		VisionProvider: strings.ToLower(strings.TrimSpace(getEnv("VISION_PROVIDER", "gemini"))),
		TextProvider:   strings.ToLower(strings.TrimSpace(getEnv("TEXT_PROVIDER", "gemini"))),

		GeminiAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GeminiVisionModel: getEnv("GEMINI_VISION_MODEL", "gemini-1.5-flash"),
		GeminiTextModel:   getEnv("GEMINI_TEXT_MODEL", "gemini-1.5-flash"),
		BedrockModelID:    getEnv("BEDROCK_MODEL_ID", ""),
		OpenAIAPIKey:      getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:     getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:       getEnv("OPENAI_MODEL", ""),

		SpeechEnabled:         getEnvAsBool("SPEECH_ENABLED", true),
		SpeechCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		SpeechTimeout:     getEnvAsDuration("SPEECH_TIMEOUT", 15*time.Second),
		VisionTimeout:     getEnvAsDuration("VISION_TIMEOUT", 30*time.Second),
		TextTimeout:       getEnvAsDuration("TEXT_TIMEOUT", 30*time.Second),
		BreakerMaxFailure: getEnvAsInt("BREAKER_MAX_FAILURES", 5),
		BreakerOpenFor:    getEnvAsDuration("BREAKER_OPEN_FOR", 30*time.Second),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		EmailProvider:      strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", ""))),
		SendGridAPIKey:     getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:   getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:      getEnv("EMAIL_FROM_NAME", "Nagrik Sahayak"),
		ComplaintInbox:     getEnv("COMPLAINT_INBOX", ""),
		ComplaintInboxName: getEnv("COMPLAINT_INBOX_NAME", "Municipal Corporation"),

		EvidenceBucket: getEnv("EVIDENCE_BUCKET", ""),

		EventSink:          strings.ToLower(strings.TrimSpace(getEnv("EVENT_SINK", ""))),
		KafkaBrokers:       getEnvAsSlice("KAFKA_BROKERS", nil),
		KafkaTopic:         getEnv("KAFKA_TOPIC", "nagrik.complaints"),
		EventsQueueURL:     getEnv("EVENTS_QUEUE_URL", ""),
		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 50),
	}
}

// IsProduction reports whether ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice splits a comma-separated variable, dropping blanks.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
