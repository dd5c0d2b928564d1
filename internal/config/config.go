package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	BLS       BLSConfig
	COS       COSConfig
	Extractor ExtractorConfig
	Enrich    EnrichConfig
}

type AppConfig struct {
	AppName     string
	Environment string
	HTTPPort    string
}

type DatabaseConfig struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	ConnectTimeout time.Duration
	PoolMaxConns   int32
	PoolMinConns   int32

	RunSeeders bool
}

type JWTConfig struct {
	AccessSecret    string
	AccessExpiresIn time.Duration
}

type BLSConfig struct {
	BaseURL string
	APIKey  string

	// Regional preference chain. Defaults target the Tampa Bay pilot region.
	MSACode   string
	StateCode string
}

type COSConfig struct {
	BaseURL    string
	UserID     string
	Token      string
	StateCode  string
	BatchDelay time.Duration
}

type ExtractorConfig struct {
	PythonPath string
	ScriptPath string
	ModelID    string
	HFToken    string
	Timeout    time.Duration
}

type EnrichConfig struct {
	WageCacheTTL  time.Duration
	OccupationTTL time.Duration
	BatchDelay    time.Duration
}

var errMissingRequiredEnv = errors.New("missing required environment variables")

func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}

	var missing []string
	req := func(key string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}
	opt := func(key, def string) string {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		return v
	}

	cfg.App = AppConfig{
		AppName:     opt("APP_NAME", "skillsync"),
		Environment: opt("APP_ENV", "development"),
		HTTPPort:    req("HTTP_PORT"),
	}

	cfg.Database = DatabaseConfig{
		DBHost:         opt("DB_HOST", "localhost"),
		DBPort:         opt("DB_PORT", "5432"),
		DBName:         req("DB_NAME"),
		DBUser:         req("DB_USER"),
		DBPassword:     os.Getenv("DB_PASSWORD"),
		DBSSLMode:      opt("DB_SSL_MODE", "disable"),
		ConnectTimeout: optDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		PoolMaxConns:   int32(optInt("DB_POOL_MAX_CONNS", 0)),
		PoolMinConns:   int32(optInt("DB_POOL_MIN_CONNS", 0)),
		RunSeeders:     opt("DB_RUN_SEEDERS", "false") == "true",
	}

	cfg.JWT = JWTConfig{
		AccessSecret:    req("JWT_ACCESS_SECRET"),
		AccessExpiresIn: optDuration("JWT_ACCESS_EXPIRES_IN", 15*time.Minute),
	}

	cfg.BLS = BLSConfig{
		BaseURL:   opt("BLS_BASE_URL", "https://api.bls.gov/publicAPI/v2"),
		APIKey:    os.Getenv("BLS_API_KEY"),
		MSACode:   opt("BLS_MSA_CODE", "45300"),
		StateCode: opt("BLS_STATE_CODE", "12"),
	}

	cfg.COS = COSConfig{
		BaseURL:    opt("COS_BASE_URL", "https://api.careeronestop.org/v1"),
		UserID:     os.Getenv("COS_USERID"),
		Token:      os.Getenv("COS_TOKEN"),
		StateCode:  opt("COS_STATE_CODE", "FL"),
		BatchDelay: optDuration("ENRICH_COS_BATCH_DELAY", 500*time.Millisecond),
	}

	cfg.Extractor = ExtractorConfig{
		PythonPath: opt("EXTRACTOR_PYTHON_PATH", "python3"),
		ScriptPath: opt("EXTRACTOR_SCRIPT_PATH", "scripts/skills_extractor.py"),
		ModelID:    opt("EXTRACTOR_MODEL_ID", "microsoft/DialoGPT-medium"),
		HFToken:    os.Getenv("HUGGINGFACE_TOKEN"),
		Timeout:    optDuration("EXTRACTOR_TIMEOUT", 2*time.Minute),
	}

	cfg.Enrich = EnrichConfig{
		WageCacheTTL:  optDuration("ENRICH_WAGE_CACHE_TTL", 90*24*time.Hour),
		OccupationTTL: optDuration("ENRICH_OCCUPATION_TTL", 60*24*time.Hour),
		BatchDelay:    optDuration("ENRICH_BATCH_DELAY", time.Second),
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", errMissingRequiredEnv, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func optDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func optInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
