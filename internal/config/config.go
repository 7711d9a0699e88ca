package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Recommender backends selectable through RECOMMENDER.
const (
	RecommenderLocal  = "local"
	RecommenderGemini = "gemini"
)

const devJWTSecret = "chemocare-development-secret-change-me"

type Config struct {
	AppName           string   `mapstructure:"APP_NAME"`
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	DBSchema          string   `mapstructure:"DB_SCHEMA"`
	RedisURL          string   `mapstructure:"REDIS_URL"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	AccessTokenMins   int      `mapstructure:"ACCESS_TOKEN_EXPIRE_MINUTES"`
	RefreshTokenDays  int      `mapstructure:"REFRESH_TOKEN_EXPIRE_DAYS"`
	ResetTokenMins    int      `mapstructure:"PASSWORD_RESET_EXPIRE_MINUTES"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	Recommender       string   `mapstructure:"RECOMMENDER"`
	GeminiAPIKey      string   `mapstructure:"GEMINI_API_KEY"`
	GeminiModel       string   `mapstructure:"GEMINI_MODEL"`
	GeminiTimeoutSecs int      `mapstructure:"GEMINI_TIMEOUT_SECONDS"`
	GeminiRateLimit   int      `mapstructure:"GEMINI_RATE_LIMIT_RPM"`
	RequestTimeout    int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	AIRateLimitRPS    float64  `mapstructure:"AI_RATE_LIMIT_RPS"`
	AIRateLimitBurst  int      `mapstructure:"AI_RATE_LIMIT_BURST"`
	FrontendURL       string   `mapstructure:"FRONTEND_URL"`
	CareTeamEmail     string   `mapstructure:"CARE_TEAM_EMAIL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("APP_NAME", "ChemoCare AI")
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("ACCESS_TOKEN_EXPIRE_MINUTES", 30)
	v.SetDefault("REFRESH_TOKEN_EXPIRE_DAYS", 7)
	v.SetDefault("PASSWORD_RESET_EXPIRE_MINUTES", 60)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RECOMMENDER", RecommenderLocal)
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash")
	v.SetDefault("GEMINI_TIMEOUT_SECONDS", 60)
	v.SetDefault("GEMINI_RATE_LIMIT_RPM", 60)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("AI_RATE_LIMIT_RPS", 2)
	v.SetDefault("AI_RATE_LIMIT_BURST", 10)
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")

	for _, key := range []string{
		"APP_NAME", "PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"DB_SCHEMA", "REDIS_URL", "JWT_SECRET", "ACCESS_TOKEN_EXPIRE_MINUTES",
		"REFRESH_TOKEN_EXPIRE_DAYS", "PASSWORD_RESET_EXPIRE_MINUTES", "CORS_ORIGINS",
		"RECOMMENDER", "GEMINI_API_KEY", "GEMINI_MODEL", "GEMINI_TIMEOUT_SECONDS",
		"GEMINI_RATE_LIMIT_RPM", "REQUEST_TIMEOUT_SECONDS", "AI_RATE_LIMIT_RPS",
		"AI_RATE_LIMIT_BURST", "FRONTEND_URL", "CARE_TEAM_EMAIL",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMins) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenDays) * 24 * time.Hour
}

func (c *Config) ResetTokenTTL() time.Duration {
	return time.Duration(c.ResetTokenMins) * time.Minute
}

func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutSecs) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a JWT secret must be configured, and the gemini recommender needs an API key.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && c.JWTSecret == devJWTSecret {
		return fmt.Errorf("JWT_SECRET must not use the development default in production")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production, got %d", len(c.JWTSecret))
	}

	switch c.Recommender {
	case RecommenderLocal:
	case RecommenderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required when RECOMMENDER is %q", RecommenderGemini)
		}
	default:
		return fmt.Errorf("RECOMMENDER must be %q or %q, got %q", RecommenderLocal, RecommenderGemini, c.Recommender)
	}

	if c.AccessTokenMins <= 0 || c.RefreshTokenDays <= 0 || c.ResetTokenMins <= 0 {
		return fmt.Errorf("token lifetimes must be positive")
	}
	if c.DBSchema == "" {
		return fmt.Errorf("DB_SCHEMA must not be empty")
	}

	return nil
}
