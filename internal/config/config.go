package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	App      AppConfig
	Analysis AnalysisConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	MaxUploadMB    int
}

type AppConfig struct {
	LogLevel  string
	LogFormat string
	OutputDir string
}

// AnalysisConfig holds engine tunables. Request overrides take precedence.
type AnalysisConfig struct {
	ScanDepth         int
	FallbackStartRow  int
	HeaderLookback    int
	ContentSampleRows int
	DesiredPeriodDays int
	DefaultCategory   string
	ForecastHorizon   int
	Workers           int
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type StorageConfig struct {
	Driver    string // minio (default) or sevalla
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// Enabled reports whether enough settings exist to build an object storage client.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

type DriveConfig struct {
	CredentialsJSON string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults(viper.GetViper())

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper(viper.GetViper())
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER_MAX_UPLOAD_MB", 32)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("APP_OUTPUT_DIR", "./data/reports")
	v.SetDefault("ANALYSIS_SCAN_DEPTH", 200)
	v.SetDefault("ANALYSIS_FALLBACK_START_ROW", 15)
	v.SetDefault("ANALYSIS_HEADER_LOOKBACK", 30)
	v.SetDefault("ANALYSIS_CONTENT_SAMPLE_ROWS", 50)
	v.SetDefault("ANALYSIS_DESIRED_PERIOD_DAYS", 90)
	v.SetDefault("ANALYSIS_DEFAULT_CATEGORY", "")
	v.SetDefault("ANALYSIS_FORECAST_HORIZON", 3)
	v.SetDefault("ANALYSIS_WORKERS", 4)
	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 600)
	v.SetDefault("STORAGE_DRIVER", "minio")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_USE_SSL", true)
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			MaxUploadMB:    v.GetInt("SERVER_MAX_UPLOAD_MB"),
		},
		App: AppConfig{
			LogLevel:  v.GetString("LOG_LEVEL"),
			LogFormat: v.GetString("LOG_FORMAT"),
			OutputDir: v.GetString("APP_OUTPUT_DIR"),
		},
		Analysis: AnalysisConfig{
			ScanDepth:         v.GetInt("ANALYSIS_SCAN_DEPTH"),
			FallbackStartRow:  v.GetInt("ANALYSIS_FALLBACK_START_ROW"),
			HeaderLookback:    v.GetInt("ANALYSIS_HEADER_LOOKBACK"),
			ContentSampleRows: v.GetInt("ANALYSIS_CONTENT_SAMPLE_ROWS"),
			DesiredPeriodDays: v.GetInt("ANALYSIS_DESIRED_PERIOD_DAYS"),
			DefaultCategory:   v.GetString("ANALYSIS_DEFAULT_CATEGORY"),
			ForecastHorizon:   v.GetInt("ANALYSIS_FORECAST_HORIZON"),
			Workers:           v.GetInt("ANALYSIS_WORKERS"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Driver:    v.GetString("STORAGE_DRIVER"),
			Endpoint:  v.GetString("S3_ENDPOINT"),
			AccessKey: v.GetString("S3_ACCESS_KEY"),
			SecretKey: v.GetString("S3_SECRET_KEY"),
			Bucket:    v.GetString("S3_BUCKET"),
			Region:    v.GetString("S3_REGION"),
			UseSSL:    v.GetBool("S3_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
		},
	}
}
