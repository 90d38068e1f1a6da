package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awsS3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/larder/internal/logger"
	"github.com/marmos91/larder/pkg/metrics"
	"github.com/marmos91/larder/pkg/secrets/generator"
	"github.com/marmos91/larder/pkg/secrets/transformer"
	"github.com/marmos91/larder/pkg/storage"
	storageBadger "github.com/marmos91/larder/pkg/storage/badger"
	storageFs "github.com/marmos91/larder/pkg/storage/fs"
	"github.com/marmos91/larder/pkg/storage/instrument"
	"github.com/marmos91/larder/pkg/storage/memory"
	storageRedis "github.com/marmos91/larder/pkg/storage/redis"
	storageS3 "github.com/marmos91/larder/pkg/storage/s3"
	"github.com/marmos91/larder/pkg/storage/throttle"
	"github.com/marmos91/larder/pkg/task"
	"github.com/mitchellh/mapstructure"
)

// CreateBackend creates a storage backend based on configuration.
//
// This factory function uses the Type field to determine which backend
// implementation to create, then decodes the type-specific configuration
// from the corresponding map and passes it to the backend's constructor.
//
// Supported types:
//   - "memory": Uses pkg/storage/memory (ephemeral, optionally seeded)
//   - "filesystem": Uses pkg/storage/fs (one file per secret)
//   - "badger": Uses pkg/storage/badger (BadgerDB, persistent)
//   - "s3": Uses pkg/storage/s3 (Amazon S3 or compatible storage)
//   - "redis": Uses pkg/storage/redis
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Backend configuration
//
// Returns:
//   - storage.Backend: Initialized backend. Backends holding resources also
//     implement io.Closer.
//   - error: Configuration or initialization error
func CreateBackend(ctx context.Context, cfg *BackendConfig) (storage.Backend, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "memory":
		return createMemoryBackend(cfg.Memory)
	case "filesystem":
		return createFilesystemBackend(ctx, cfg.Filesystem)
	case "badger":
		return createBadgerBackend(ctx, cfg.Badger)
	case "s3":
		return createS3Backend(ctx, cfg.S3)
	case "redis":
		return createRedisBackend(ctx, cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown storage backend type: %q (supported: memory, filesystem, badger, s3, redis)", cfg.Type)
	}
}

// createMemoryBackend creates an in-memory backend, optionally seeded.
//
// Seed entries are a list of {path, content} rather than a map because
// viper lowercases map keys, which would rewrite the seeded paths.
func createMemoryBackend(options map[string]any) (storage.Backend, error) {
	type MemoryEntry struct {
		Path    string `mapstructure:"path"`
		Content string `mapstructure:"content"`
	}
	type MemoryBackendConfig struct {
		Contents []MemoryEntry `mapstructure:"contents"`
	}

	var backendCfg MemoryBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory backend config: %w", err)
	}

	contents := make(map[string]string, len(backendCfg.Contents))
	for i, entry := range backendCfg.Contents {
		if entry.Path == "" {
			return nil, fmt.Errorf("memory backend: contents[%d]: path is required", i)
		}
		contents[entry.Path] = entry.Content
	}

	return memory.New(memory.WithContents(contents)), nil
}

// createFilesystemBackend creates a filesystem-based backend.
func createFilesystemBackend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type FilesystemBackendConfig struct {
		Root     string      `mapstructure:"root"`
		DirMode  os.FileMode `mapstructure:"dir_mode"`
		FileMode os.FileMode `mapstructure:"file_mode"`
	}

	var backendCfg FilesystemBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem backend config: %w", err)
	}

	if backendCfg.Root == "" {
		return nil, fmt.Errorf("filesystem backend: root is required")
	}

	backend, err := storageFs.New(ctx, storageFs.Config{
		Root:     backendCfg.Root,
		DirMode:  backendCfg.DirMode,
		FileMode: backendCfg.FileMode,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem backend: %w", err)
	}

	logger.Debug("filesystem backend initialized: root=%s", backend.Root())
	return backend, nil
}

// createBadgerBackend creates a BadgerDB-based persistent backend.
func createBadgerBackend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type BadgerBackendConfig struct {
		DBPath     string `mapstructure:"db_path"`
		InMemory   bool   `mapstructure:"in_memory"`
		SyncWrites bool   `mapstructure:"sync_writes"`
	}

	var backendCfg BadgerBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger backend config: %w", err)
	}

	if backendCfg.DBPath == "" && !backendCfg.InMemory {
		return nil, fmt.Errorf("badger backend: db_path is required")
	}

	backend, err := storageBadger.New(ctx, storageBadger.Config{
		DBPath:     backendCfg.DBPath,
		InMemory:   backendCfg.InMemory,
		SyncWrites: backendCfg.SyncWrites,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger backend: %w", err)
	}

	logger.Debug("badger backend initialized: path=%s in_memory=%v", backendCfg.DBPath, backendCfg.InMemory)
	return backend, nil
}

// createS3Backend creates an S3-based backend.
func createS3Backend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type S3BackendConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var backendCfg S3BackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 backend config: %w", err)
	}

	// Validate required fields
	if backendCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 backend: bucket is required")
	}

	if backendCfg.Region == "" {
		return nil, fmt.Errorf("S3 backend: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(backendCfg.Region))

	// Set credentials if provided, otherwise use default credential chain
	if backendCfg.AccessKeyID != "" && backendCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			backendCfg.AccessKeyID,
			backendCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	// Default to 10 attempts (AWS default is 3)
	maxRetries := backendCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := awsS3.NewFromConfig(awsCfg, func(o *awsS3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if backendCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(backendCfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Backend
	// ========================================================================

	backend, err := storageS3.New(ctx, storageS3.Config{
		Client:    client,
		Bucket:    backendCfg.Bucket,
		KeyPrefix: backendCfg.KeyPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 backend: %w", err)
	}

	logger.Info("S3 backend initialized: bucket=%s, region=%s, prefix=%s",
		backendCfg.Bucket, backendCfg.Region, backendCfg.KeyPrefix)

	return backend, nil
}

// createRedisBackend creates a Redis-based backend.
func createRedisBackend(ctx context.Context, options map[string]any) (storage.Backend, error) {
	type RedisBackendConfig struct {
		Address   string `mapstructure:"address"`
		Password  string `mapstructure:"password"`
		DB        int    `mapstructure:"db"`
		KeyPrefix string `mapstructure:"key_prefix"`
		TLS       bool   `mapstructure:"tls"`
	}

	var backendCfg RedisBackendConfig
	if err := mapstructure.Decode(options, &backendCfg); err != nil {
		return nil, fmt.Errorf("failed to decode redis backend config: %w", err)
	}

	redisOptions := storageRedis.DefaultOptions()
	if backendCfg.Address != "" {
		redisOptions.Address = backendCfg.Address
	}
	redisOptions.Password = backendCfg.Password
	redisOptions.DB = backendCfg.DB
	if backendCfg.TLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	backend, err := storageRedis.Open(ctx, redisOptions, backendCfg.KeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis backend: %w", err)
	}

	logger.Info("Redis backend initialized: address=%s, db=%d, prefix=%s",
		redisOptions.Address, redisOptions.DB, backendCfg.KeyPrefix)

	return backend, nil
}

// CreateStorage creates the storage facade: the configured backend, rate
// limited if requested, behind a path manager anchored at BasePath.
//
// When metrics are enabled (metrics.InitRegistry was called) backend
// operations are instrumented. Time spent waiting on the rate limit is not
// counted as operation latency.
//
// The caller owns the result and must Close it.
func CreateStorage(ctx context.Context, cfg *StorageConfig) (*storage.Storage, error) {
	backend, err := CreateBackend(ctx, &cfg.Backend)
	if err != nil {
		return nil, err
	}

	backend = instrument.Wrap(backend, metrics.NewStorageMetrics())
	backend = throttle.Wrap(backend, cfg.RateLimit)

	return storage.New(backend, storage.WithBasePath(cfg.BasePath)), nil
}

// CreateTasks builds a registry holding every configured task, all storing
// into st.
//
// Returns an error naming the first task whose generator or transformer
// cannot be built, or whose ID collides with another task.
func CreateTasks(tasks []TaskConfig, st *storage.Storage) (*task.Registry, error) {
	reg := task.NewRegistry()
	reg.SetMetrics(metrics.NewTaskMetrics())

	for i := range tasks {
		t, err := createTask(&tasks[i], st)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d] (%s): %w", i, tasks[i].ID, err)
		}
		if err := reg.Register(t); err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
	}

	return reg, nil
}

// createTask builds a single task.
func createTask(cfg *TaskConfig, st *storage.Storage) (task.Task, error) {
	switch cfg.Type {
	case TaskTypePlaceholder:
		return &task.Placeholder{ID: cfg.ID}, nil
	case TaskTypeGenerate, "":
		if cfg.Generator == nil {
			return nil, fmt.Errorf("generate task requires a generator")
		}

		gen, err := generator.Lookup(*cfg.Generator)
		if err != nil {
			return nil, err
		}

		tr := transformer.Identity()
		if cfg.Transformer != nil {
			tr, err = transformer.Lookup(*cfg.Transformer)
			if err != nil {
				return nil, err
			}
		}

		path := cfg.Path
		if path == "" {
			path = cfg.ID
		}

		return &task.Generate{
			ID:          cfg.ID,
			Path:        path,
			Generator:   gen,
			Transformer: tr,
			Storage:     st,
			Retries:     cfg.Retries,
		}, nil
	default:
		return nil, fmt.Errorf("unknown task type: %q", cfg.Type)
	}
}
