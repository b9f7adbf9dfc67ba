package config

import (
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Artifacts ArtifactsConfig
	Forecast  ForecastConfig
	Policy    PolicyConfig
	Scenario  ScenarioConfig
}

type ServerConfig struct {
	Port           string
	OpsPort        string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

type ArtifactsConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ForecastConfig controls engine selection and the backtest harness.
type ForecastConfig struct {
	DefaultEngine   string
	BacktestWorkers int
	BatchWorkers    int
}

// PolicyConfig carries the inventory-policy assumptions. These are
// business defaults, not physical constants; domain owners can tune
// every one of them through the environment.
type PolicyConfig struct {
	ServiceLevel        float64
	LeadTimeDays        int
	GraceWindowDays     float64
	OverstockWindowDays float64
	OverstockCutoff     float64
	SigmaFallbackRatio  float64
}

// ScenarioConfig carries the named what-if deltas and the sensitivity
// sweep grid, both as fractional demand changes.
type ScenarioConfig struct {
	NamedDeltas map[string]float64
	Grid        []float64
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_OPS_PORT", "8081")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "stockcast")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_TTL_SECONDS", 300)
		viper.SetDefault("ARTIFACTS_ENABLED", false)
		viper.SetDefault("ARTIFACTS_ENDPOINT", "")
		viper.SetDefault("ARTIFACTS_ACCESS_KEY", "")
		viper.SetDefault("ARTIFACTS_SECRET_KEY", "")
		viper.SetDefault("ARTIFACTS_BUCKET", "stockcast-models")
		viper.SetDefault("ARTIFACTS_USE_SSL", true)
		viper.SetDefault("FORECAST_DEFAULT_ENGINE", "boosted")
		viper.SetDefault("FORECAST_BACKTEST_WORKERS", 4)
		viper.SetDefault("FORECAST_BATCH_WORKERS", 4)
		viper.SetDefault("POLICY_SERVICE_LEVEL", 0.95)
		viper.SetDefault("POLICY_LEAD_TIME_DAYS", 7)
		viper.SetDefault("POLICY_GRACE_WINDOW_DAYS", 3.0)
		viper.SetDefault("POLICY_OVERSTOCK_WINDOW_DAYS", 30.0)
		viper.SetDefault("POLICY_OVERSTOCK_CUTOFF", 0.8)
		viper.SetDefault("POLICY_SIGMA_FALLBACK_RATIO", 0.3)
		viper.SetDefault("SCENARIO_DELTAS", "worst=-0.2,best=0.2")
		viper.SetDefault("SENSITIVITY_GRID", "-0.4,-0.2,0,0.2,0.4,0.6")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				OpsPort:        viper.GetString("SERVER_OPS_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_TTL_SECONDS"),
			},
			Artifacts: ArtifactsConfig{
				Enabled:   viper.GetBool("ARTIFACTS_ENABLED"),
				Endpoint:  viper.GetString("ARTIFACTS_ENDPOINT"),
				AccessKey: viper.GetString("ARTIFACTS_ACCESS_KEY"),
				SecretKey: viper.GetString("ARTIFACTS_SECRET_KEY"),
				Bucket:    viper.GetString("ARTIFACTS_BUCKET"),
				UseSSL:    viper.GetBool("ARTIFACTS_USE_SSL"),
			},
			Forecast: ForecastConfig{
				DefaultEngine:   viper.GetString("FORECAST_DEFAULT_ENGINE"),
				BacktestWorkers: viper.GetInt("FORECAST_BACKTEST_WORKERS"),
				BatchWorkers:    viper.GetInt("FORECAST_BATCH_WORKERS"),
			},
			Policy: PolicyConfig{
				ServiceLevel:        viper.GetFloat64("POLICY_SERVICE_LEVEL"),
				LeadTimeDays:        viper.GetInt("POLICY_LEAD_TIME_DAYS"),
				GraceWindowDays:     viper.GetFloat64("POLICY_GRACE_WINDOW_DAYS"),
				OverstockWindowDays: viper.GetFloat64("POLICY_OVERSTOCK_WINDOW_DAYS"),
				OverstockCutoff:     viper.GetFloat64("POLICY_OVERSTOCK_CUTOFF"),
				SigmaFallbackRatio:  viper.GetFloat64("POLICY_SIGMA_FALLBACK_RATIO"),
			},
			Scenario: ScenarioConfig{
				NamedDeltas: parseNamedDeltas(viper.GetString("SCENARIO_DELTAS")),
				Grid:        parseGrid(viper.GetString("SENSITIVITY_GRID")),
			},
		}
	})

	return instance
}

// parseNamedDeltas parses "worst=-0.2,best=0.2" into a name -> delta map.
func parseNamedDeltas(raw string) map[string]float64 {
	deltas := make(map[string]float64)
	for _, part := range strings.Split(raw, ",") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		delta, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		deltas[strings.TrimSpace(name)] = delta
	}
	return deltas
}

// parseGrid parses "-0.4,-0.2,0,0.2" into an ordered slice.
func parseGrid(raw string) []float64 {
	var grid []float64
	for _, part := range strings.Split(raw, ",") {
		delta, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			continue
		}
		grid = append(grid, delta)
	}
	return grid
}
