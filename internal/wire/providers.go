package wire

import (
	"context"
	"strings"

	"serial-novel-engine/internal/application/installment"
	"serial-novel-engine/internal/application/installment/jobs"
	"serial-novel-engine/internal/application/installment/normalize"
	"serial-novel-engine/internal/application/installment/usage"
	"serial-novel-engine/internal/application/lore"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/domain/repository"
	llmctx "serial-novel-engine/internal/domain/service"
	"serial-novel-engine/internal/infrastructure/llm"
	"serial-novel-engine/internal/infrastructure/messaging"
	"serial-novel-engine/internal/infrastructure/persistence/filestore"
	"serial-novel-engine/internal/infrastructure/persistence/postgres"
	"serial-novel-engine/internal/infrastructure/persistence/redis"
	"serial-novel-engine/internal/interfaces/http/handler"
	"serial-novel-engine/internal/interfaces/http/router"
	"serial-novel-engine/pkg/logger"
)

// Archive 分集存档与设定集的存储后端
type Archive struct {
	Installments repository.InstallmentRepository
	Lore         repository.LoreRepository
	State        repository.StateRepository
	// Usage 文件后端为 nil，不记录用量流水
	Usage repository.LLMUsageEventRepository
	// Health 文件后端为 nil
	Health handler.HealthChecker
}

// LoreSources 组装器使用的设定集与状态来源
type LoreSources struct {
	Lore  repository.LoreRepository
	State repository.StateRepository
}

// Worker 任务执行器依赖
type Worker struct {
	Runner *jobs.Runner
	Redis  *redis.Client
}

// ProvideArchive 按 archive.backend 选择 postgres 或文件存档
func ProvideArchive(ctx context.Context, cfg *config.Config) (*Archive, func(), error) {
	if strings.EqualFold(strings.TrimSpace(cfg.Archive.Backend), "file") {
		loreDir := cfg.Archive.LoreDir
		if loreDir == "" {
			loreDir = cfg.Archive.Dir
		}
		loreStore := filestore.NewLoreStore(loreDir)
		logger.Info(ctx, "using file archive", "dir", cfg.Archive.Dir, "lore_dir", loreDir)
		return &Archive{
			Installments: filestore.NewInstallmentStore(cfg.Archive.Dir),
			Lore:         loreStore,
			State:        loreStore,
		}, func() {}, nil
	}

	client, cleanup, err := ProvidePostgresClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return &Archive{
		Installments: postgres.NewInstallmentRepository(client),
		Lore:         postgres.NewLoreRepository(client),
		State:        postgres.NewStateRepository(client),
		Usage:        postgres.NewLLMUsageEventRepository(client),
		Health:       client,
	}, cleanup, nil
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideUsageRecorder 有用量仓储时记录流水
func ProvideUsageRecorder(a *Archive) llmctx.LLMUsageRecorder {
	if a.Usage == nil {
		return nil
	}
	return usage.NewRecorder(a.Usage)
}

// ProvideLLMRouter 提供模型路由器
func ProvideLLMRouter(ctx context.Context, cfg *config.Config, recorder llmctx.LLMUsageRecorder) (*llm.Router, func()) {
	r := llm.NewRouter(cfg, recorder)
	if !r.Available() {
		logger.Warn(ctx, "no llm provider configured, generation requests will be rejected")
	}
	return r, func() { _ = r.Close() }
}

// ProvideNormalizer 加载校正表；未配置路径时使用内置表
func ProvideNormalizer(cfg *config.Config) (*normalize.Normalizer, error) {
	if cfg.Normalizer.TablesPath == "" {
		return normalize.New(nil), nil
	}
	tables, err := normalize.LoadTables(cfg.Normalizer.TablesPath)
	if err != nil {
		return nil, err
	}
	return normalize.New(tables), nil
}

// ProvideCachedLore 设定集与状态读取加一层 Redis 缓存
func ProvideCachedLore(cfg *config.Config, a *Archive, cache *redis.Cache) *LoreSources {
	return &LoreSources{
		Lore:  redis.NewCachedLoreRepository(a.Lore, cache, cfg.Cache.LoreTTL),
		State: redis.NewCachedStateRepository(a.State, cache, cfg.Cache.StateTTL),
	}
}

// ProvideDirectLore 直接读取存档
func ProvideDirectLore(a *Archive) *LoreSources {
	return &LoreSources{Lore: a.Lore, State: a.State}
}

// ProvideService 提供单集生成服务
func ProvideService(cfg *config.Config, r *llm.Router, a *Archive, src *LoreSources, norm *normalize.Normalizer) *installment.Service {
	return installment.NewService(installment.Deps{
		Config:       cfg,
		LLM:          r,
		Installments: a.Installments,
		Lore:         src.Lore,
		State:        src.State,
		Normalizer:   norm,
	})
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	return messaging.NewProducer(client.Redis(), int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideJobRepository 提供任务状态仓储
func ProvideJobRepository(client *redis.Client, cfg *config.Config) *redis.JobRepository {
	return redis.NewJobRepository(client, cfg.Messaging.JobStatusTTL)
}

// ProvideRunner 提供任务执行器
func ProvideRunner(cfg *config.Config, svc *installment.Service, jobRepo *redis.JobRepository, producer *messaging.Producer) *jobs.Runner {
	return jobs.NewRunner(svc, jobRepo, producer, cfg.Messaging.RedisStream.RetryLimit)
}

// ProvideHealthHandler 就绪检查：数据库与模型必需，Redis 失败只标记 degraded
func ProvideHealthHandler(cfg *config.Config, a *Archive, rc *redis.Client, r *llm.Router) *handler.HealthHandler {
	deps := make([]handler.Dependency, 0, 3)
	if a.Health != nil {
		deps = append(deps, handler.Dependency{Name: "postgres", Checker: a.Health, Required: true})
	}
	deps = append(deps,
		handler.Dependency{Name: "redis", Checker: rc},
		handler.Dependency{Name: "llm", Checker: r, Required: true},
	)
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// ProvideUsageHandler 仅数据库存档记录用量流水，文件存档不注册用量接口
func ProvideUsageHandler(cfg *config.Config, a *Archive) *handler.UsageHandler {
	if a.Usage == nil {
		return nil
	}
	return handler.NewUsageHandler(usage.NewReporter(a.Usage, cfg.LLM))
}

// ProvideRouter 提供路由器；未启用限流时不注入限流器
func ProvideRouter(cfg *config.Config, handlers router.Handlers, limiter *redis.RateLimiter) *router.Router {
	if !cfg.Security.RateLimit.Enabled {
		return router.New(cfg, handlers, nil)
	}
	return router.New(cfg, handlers, limiter)
}

// ProvideLoreFileSource 导入来源为文件设定集目录
func ProvideLoreFileSource(cfg *config.Config) *filestore.LoreStore {
	dir := cfg.Archive.LoreDir
	if dir == "" {
		dir = cfg.Archive.Dir
	}
	return filestore.NewLoreStore(dir)
}

// ProvideOptionalInvalidator Redis 不可达时跳过缓存清理
func ProvideOptionalInvalidator(ctx context.Context, cfg *config.Config) (lore.Invalidator, func()) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache invalidation skipped", "error", err.Error())
		return nil, func() {}
	}
	return redis.NewCache(client), func() { _ = client.Close() }
}

// ProvideImporter 提供设定集导入器
func ProvideImporter(tx *postgres.TxManager, src *filestore.LoreStore, loreRepo *postgres.LoreRepository, stateRepo *postgres.StateRepository, cache lore.Invalidator) *lore.Importer {
	return lore.NewImporter(tx, src, loreRepo, stateRepo, cache)
}
