package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"hermannm.dev/datasetquery/api"
	"hermannm.dev/datasetquery/cache"
	"hermannm.dev/datasetquery/config"
	"hermannm.dev/datasetquery/db/clickhouse"
	"hermannm.dev/datasetquery/engine"
	"hermannm.dev/datasetquery/loader"
	"hermannm.dev/datasetquery/metrics"
	"hermannm.dev/datasetquery/storage"
	"hermannm.dev/devlog"
	"hermannm.dev/devlog/log"
)

// memoryCacheSize is the max number of query results kept when no Redis URL is configured.
const memoryCacheSize = 1024

func main() {
	conf, err := config.ReadFromEnv()
	if err != nil {
		setUpLogger(false, slog.LevelInfo)
		log.ErrorCause(err, "failed to read config from env")
		os.Exit(1)
	}
	setUpLogger(conf.IsProduction, conf.LogLevel)

	datasetAPI, err := initialize(conf)
	if err != nil {
		log.ErrorCause(err, "failed to initialize service")
		os.Exit(1)
	}

	if err := datasetAPI.ListenAndServe(); err != nil {
		log.ErrorCause(err, "server stopped")
		os.Exit(1)
	}
}

func setUpLogger(isProduction bool, level slog.Level) {
	var handler slog.Handler
	if isProduction {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = devlog.NewHandler(os.Stdout, &devlog.Options{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func initialize(conf config.Config) (api.DatasetAPI, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	storageClient, err := storage.NewClient(conf.Spaces)
	if err != nil {
		return api.DatasetAPI{}, err
	}
	if err := storageClient.EnsureBucket(ctx); err != nil {
		log.Warnf("could not verify dataset bucket, uploads may fail: %v", err)
	}

	serviceMetrics := metrics.New()

	resultCache, err := initializeCache(ctx, conf.Cache)
	if err != nil {
		return api.DatasetAPI{}, err
	}

	var clickhouseDB *clickhouse.ClickHouseDB
	if conf.ColumnarEngine == config.ColumnarEngineClickHouse {
		log.Infof("connecting to ClickHouse...")
		db, err := clickhouse.NewClickHouseDB(conf.ClickHouse)
		if err != nil {
			return api.DatasetAPI{}, err
		}
		if err := db.Ping(ctx); err != nil {
			log.Warnf("ClickHouse ping failed, large dataset loads may fail: %v", err)
		}
		clickhouseDB = &db
	}

	datasetLoader := loader.New(
		storageClient, clickhouseDB, serviceMetrics, conf.Loader.ProfileSampleRows,
	)
	log.Infof(
		"loading datasets of %d+ rows into %s",
		loader.ColumnarThreshold, datasetLoader.ColumnarEngine(),
	)

	executor := engine.NewExecutor(resultCache, serviceMetrics)

	return api.NewDatasetAPI(datasetLoader, storageClient, executor, serviceMetrics, conf.API), nil
}

func initializeCache(ctx context.Context, conf config.Cache) (cache.Cache, error) {
	if conf.RedisURL == "" {
		log.Infof("no Redis URL configured, caching query results in memory")
		return cache.NewMemoryCache(memoryCacheSize, engine.ResultCacheTTL), nil
	}

	redisCache, err := cache.NewRedisCache(conf.RedisURL, conf.KeyPrefix)
	if err != nil {
		return nil, err
	}

	// Queries still work without the cache, so an unreachable Redis is not fatal
	if err := redisCache.Ping(ctx); err != nil {
		log.Warnf("Redis ping failed, queries will run uncached until it is reachable: %v", err)
	}

	return redisCache, nil
}
