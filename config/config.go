package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
	"hermannm.dev/wrap"
)

type Config struct {
	BaseConfig
	ClickHouse ClickHouse
}

type BaseConfig struct {
	IsProduction   bool           `env:"PRODUCTION" envDefault:"false"`
	LogLevel       slog.Level     `env:"LOG_LEVEL" envDefault:"INFO"`
	ColumnarEngine ColumnarEngine `env:"COLUMNAR_ENGINE" envDefault:"duckdb"`
	API            API
	Spaces         Spaces
	Cache          Cache
	Loader         Loader
}

type API struct {
	Port               string   `env:"API_PORT" envDefault:"8080"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Spaces is the S3-compatible object storage that uploaded datasets are kept in.
type Spaces struct {
	Endpoint        string `env:"SPACES_ENDPOINT,notEmpty"`
	AccessKeyID     string `env:"SPACES_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SPACES_SECRET_ACCESS_KEY"`
	Bucket          string `env:"SPACES_BUCKET,notEmpty"`
	UseSSL          bool   `env:"SPACES_USE_SSL" envDefault:"true"`
}

type Cache struct {
	// Empty means results are cached in process memory.
	RedisURL  string `env:"REDIS_URL" envDefault:""`
	KeyPrefix string `env:"CACHE_KEY_PREFIX" envDefault:"dataset_query:"`
}

type Loader struct {
	ProfileSampleRows int `env:"PROFILE_SAMPLE_ROWS" envDefault:"10000"`
}

type ClickHouse struct {
	Address      string `env:"CLICKHOUSE_ADDRESS"`
	DatabaseName string `env:"CLICKHOUSE_DB_NAME"`
	Username     string `env:"CLICKHOUSE_USERNAME"`
	Password     string `env:"CLICKHOUSE_PASSWORD"`
	Debug        bool   `env:"CLICKHOUSE_DEBUG_ENABLED" envDefault:"false"`
}

// ColumnarEngine is the engine that datasets above the columnar row threshold are loaded into.
type ColumnarEngine string

const (
	ColumnarEngineDuckDB     ColumnarEngine = "duckdb"
	ColumnarEngineClickHouse ColumnarEngine = "clickhouse"
)

func ReadFromEnv() (Config, error) {
	// The .env file is optional, since deployments set the environment directly
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, wrap.Error(err, "failed to load .env file")
	}

	parseOptions := env.Options{RequiredIfNoDef: true}

	var config Config

	if err := env.ParseWithOptions(&config.BaseConfig, parseOptions); err != nil {
		return Config{}, err
	}

	if err := config.validate(); err != nil {
		return Config{}, err
	}

	switch config.ColumnarEngine {
	case ColumnarEngineDuckDB:
	case ColumnarEngineClickHouse:
		if err := env.ParseWithOptions(&config.ClickHouse, parseOptions); err != nil {
			return Config{}, err
		}
	default:
		err := fmt.Errorf(
			"must be one of: '%s', '%s'", ColumnarEngineDuckDB, ColumnarEngineClickHouse,
		)
		return Config{}, wrap.Errorf(
			err, "unsupported value '%s' for COLUMNAR_ENGINE in env", config.ColumnarEngine,
		)
	}

	return config, nil
}

func (config Config) validate() error {
	if config.Loader.ProfileSampleRows <= 0 {
		return fmt.Errorf(
			"PROFILE_SAMPLE_ROWS must be positive, got %d", config.Loader.ProfileSampleRows,
		)
	}
	return nil
}
