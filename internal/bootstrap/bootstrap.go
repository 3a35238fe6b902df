// Package bootstrap wires the assist service from a Config. It is shared by
// the Lambda entrypoint and the local CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"content-assist/internal/cache"
	"content-assist/internal/cache/dynamo"
	"content-assist/internal/cache/memory"
	rediscache "content-assist/internal/cache/redis"
	"content-assist/internal/cache/sqlite"
	"content-assist/internal/config"
	"content-assist/internal/content"
	"content-assist/internal/integrations/gemini"
	"content-assist/internal/integrations/openai"
	"content-assist/internal/integrations/paramstore"
	"content-assist/internal/retry"
	"content-assist/internal/tools"
	"content-assist/internal/usecase"
)

// App holds the wired service and the resources it owns.
type App struct {
	Assist *usecase.AssistService
	// SQLite is set only for the sqlite cache backend.
	SQLite *sqlite.Store

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg == nil {
			c, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return aws.Config{}, fmt.Errorf("bootstrap: load AWS config: %w", err)
			}
			awsCfg = &c
		}
		return *awsCfg, nil
	}

	apiKey, err := resolveAPIKey(ctx, cfg, loadAWS)
	if err != nil {
		return nil, err
	}
	model, err := newModelClient(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}

	store, err := app.newStore(cfg, loadAWS)
	if err != nil {
		return nil, err
	}
	requestCache, err := cache.NewRequestCache(store, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect content database: %w", err)
	}
	app.closers = append(app.closers, pool.Close)
	repo, err := content.NewRepository(pool)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	reader, err := content.NewCachedRepository(repo, store, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	registry, err := tools.NewRegistry(reader, reader, logger)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	app.Assist, err = usecase.NewAssistService(model, registry, requestCache, usecase.AssistOptions{
		Retry: retry.Policy{
			MaxAttempts:  cfg.RetryMaxAttempts,
			InitialDelay: cfg.RetryInitialDelay(),
			MaxDelay:     cfg.RetryMaxDelay(),
			Jitter:       retry.DefaultJitter,
		},
		CacheTTL: cfg.CacheTTL(),
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("assist service ready",
		"provider", cfg.Provider,
		"cache_backend", cfg.CacheBackend,
		"cache_ttl", cfg.CacheTTL(),
	)
	ok = true
	return app, nil
}

// resolveAPIKey prefers an explicit key and falls back to the SSM parameter.
func resolveAPIKey(ctx context.Context, cfg config.Config, loadAWS func() (aws.Config, error)) (string, error) {
	if key := strings.TrimSpace(cfg.APIKey); key != "" {
		return key, nil
	}
	if strings.TrimSpace(cfg.APIKeyParam) == "" {
		return "", errors.New("bootstrap: no API key or API key parameter configured")
	}
	awsCfg, err := loadAWS()
	if err != nil {
		return "", err
	}
	ps, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return "", fmt.Errorf("bootstrap: %w", err)
	}
	key, err := paramstore.GetToken(ctx, ps, cfg.APIKeyParam)
	if err != nil {
		return "", fmt.Errorf("bootstrap: %w", err)
	}
	return key, nil
}

func newModelClient(ctx context.Context, cfg config.Config, apiKey string) (usecase.ModelClient, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		c, err := openai.NewClient(apiKey, openai.WithBaseURL(cfg.BaseURL), openai.WithModel(cfg.Model))
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return c, nil
	case config.ProviderGemini, "":
		c, err := gemini.New(ctx, gemini.Config{APIKey: apiKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown provider %q", cfg.Provider)
	}
}

func (a *App) newStore(cfg config.Config, loadAWS func() (aws.Config, error)) (cache.Store, error) {
	switch cfg.CacheBackend {
	case config.CacheRedis:
		client := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		a.closers = append(a.closers, func() { _ = client.Close() })
		s, err := rediscache.New(client)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return s, nil
	case config.CacheDynamoDB:
		awsCfg, err := loadAWS()
		if err != nil {
			return nil, err
		}
		s, err := dynamo.New(awsdynamodb.NewFromConfig(awsCfg), cfg.CacheTable)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		return s, nil
	case config.CacheSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		a.closers = append(a.closers, func() { _ = s.Close() })
		a.SQLite = s
		return s, nil
	case config.CacheMemory, "":
		s, err := memory.New(0)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown cache backend %q", cfg.CacheBackend)
	}
}
