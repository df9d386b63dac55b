// Package app implements the application layer for zr.
package app

import (
	"os"

	"go.trai.ch/zr/internal/adapters/cas"
	"go.trai.ch/zr/internal/adapters/cas/remote"
	"go.trai.ch/zr/internal/adapters/config"
	"go.trai.ch/zr/internal/adapters/fs"
	"go.trai.ch/zr/internal/adapters/history"
	"go.trai.ch/zr/internal/adapters/logger"
	"go.trai.ch/zr/internal/adapters/shell"
	"go.trai.ch/zr/internal/adapters/telemetry/progrock"
	"go.trai.ch/zr/internal/core/ports"
	"go.trai.ch/zr/internal/engine/condition"
	"go.trai.ch/zr/internal/engine/scheduler"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App          *App
	Logger       ports.Logger
	ConfigLoader ports.ConfigLoader
	Cache        ports.CacheStore
	History      ports.HistoryLog
}

// NewComponents assembles a Components value from its already-constructed
// dependencies.
func NewComponents(
	app *App, logger ports.Logger, loader ports.ConfigLoader, cache ports.CacheStore, hist ports.HistoryLog,
) *Components {
	return &Components{
		App:          app,
		Logger:       logger,
		ConfigLoader: loader,
		Cache:        cache,
		History:      hist,
	}
}

// NewApp manually wires every adapter and engine component into a runnable
// App, mirroring the shape of the Graft-registered node graph for contexts
// (tests, a minimal binary) that want construction without the DI container.
func NewApp() (*Components, error) {
	loggerAdapter := logger.New()

	walker := fs.NewWalker()
	hasher := fs.NewHasher(walker)
	fsResolver := fs.NewResolver()
	verifier := fs.NewVerifier()

	configLoader := config.NewLoader(loggerAdapter)
	shellExecutor := shell.NewExecutor(loggerAdapter, "sh")
	condEvaluator := condition.NewEvaluator()
	telemetry := progrock.New()

	casStore, err := cas.NewStore(cas.DefaultDir())
	if err != nil {
		return nil, err
	}

	histLog, err := history.New(history.DefaultPath())
	if err != nil {
		return nil, err
	}

	remoteCache := buildRemoteCache()

	sched := scheduler.New(
		shellExecutor,
		casStore,
		remoteCache,
		hasher,
		fsResolver,
		loggerAdapter,
		condEvaluator,
		histLog,
		telemetry,
		verifier,
	)

	app := New(configLoader, sched, loggerAdapter)

	return NewComponents(app, loggerAdapter, configLoader, casStore, histLog), nil
}

// buildRemoteCache constructs an optional remote cache backend from
// environment variables. Credentials belong in the environment, not in
// zr.toml, so this is deliberately separate from the config loader.
func buildRemoteCache() ports.RemoteCache {
	switch os.Getenv("ZR_CACHE_REMOTE") {
	case "http":
		return remote.NewHTTPCache(os.Getenv("ZR_CACHE_HTTP_URL"), os.Getenv("ZR_CACHE_HTTP_TOKEN"))
	case "s3":
		accessKey := os.Getenv("ZR_CACHE_S3_ACCESS_KEY")
		if accessKey == "" {
			accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		}
		secretKey := os.Getenv("ZR_CACHE_S3_SECRET_KEY")
		if secretKey == "" {
			secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
		return remote.NewS3Cache(
			os.Getenv("ZR_CACHE_S3_BUCKET"),
			os.Getenv("ZR_CACHE_S3_REGION"),
			os.Getenv("ZR_CACHE_S3_PREFIX"),
			accessKey,
			secretKey,
		)
	case "gcs":
		return remote.NotImplementedCache{Backend: "gcs"}
	case "azure":
		return remote.NotImplementedCache{Backend: "azure"}
	default:
		return nil
	}
}
