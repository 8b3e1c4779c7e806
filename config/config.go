package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is built once in main and passed by pointer into the
// pipeline. Nothing reads the environment after startup.
type Config struct {
	AppPort      string
	AppMode      string
	LocalDevMode bool

	UploadDir    string
	StaticDir    string
	FormsLogPath string
	MaxUploadMB  int64

	RateLimitWindow time.Duration
	RateLimitMax    int
	AllowedOrigins  []string

	RecaptchaSecret   string
	RecaptchaMinScore float64

	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string

	RedisAddr     string
	RedisPassword string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string
	MailTo   []string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:      getEnv("APP_PORT", "8080"),
		AppMode:      getEnv("APP_MODE", "debug"),
		LocalDevMode: getEnv("LOCAL_DEV_MODE", "") == "true",

		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		StaticDir:    getEnv("STATIC_DIR", "dist/weneedwax"),
		FormsLogPath: getEnv("FORMS_LOG_PATH", "uploads/forms.json"),
		MaxUploadMB:  int64(getEnvAsInt("MAX_UPLOAD_MB", 10)),

		RateLimitWindow: getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:    getEnvAsInt("RATE_LIMIT_MAX", 20),
		AllowedOrigins: getEnvAsSlice("ALLOWED_ORIGINS", []string{
			"https://weneedwax.com",
			"https://www.weneedwax.com",
			"http://localhost:4200",
		}),

		RecaptchaSecret:   getEnv("RECAPTCHA_SECRET_KEY", ""),
		RecaptchaMinScore: getEnvAsFloat("RECAPTCHA_MIN_SCORE", 0.5),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "wax_intake"),
		DBPort:     getEnv("DB_PORT", "5432"),

		S3Region:    getEnv("S3_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", "submissions"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		SMTPHost: getEnv("SES_SMTP_HOST", ""),
		SMTPPort: getEnvAsInt("SES_SMTP_PORT", 587),
		SMTPUser: getEnv("SES_SMTP_USER", ""),
		SMTPPass: getEnv("SES_SMTP_PASS", ""),
		MailFrom: getEnv("SES_FROM", "info@weneedwax.com"),
		MailTo:   getEnvAsSlice("SES_TO", []string{"hey@weneedwax.com"}),
	}
}

// IsProduction reports whether degraded fallbacks are forbidden.
func (c *Config) IsProduction() bool {
	return c.AppMode == "release" && !c.LocalDevMode
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSlice(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
