//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"serial-novel-engine/internal/application/installment"
	"serial-novel-engine/internal/application/installment/jobs"
	"serial-novel-engine/internal/application/lore"
	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/infrastructure/persistence/postgres"
	"serial-novel-engine/internal/infrastructure/persistence/redis"
	"serial-novel-engine/internal/interfaces/http/handler"
	"serial-novel-engine/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 服务（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		ArchiveSet,
		RedisSet,
		CachedServiceSet,
		JobSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化任务执行器
func InitializeWorker(ctx context.Context, cfg *config.Config) (*Worker, func(), error) {
	wire.Build(
		ArchiveSet,
		RedisSet,
		CachedServiceSet,
		JobSet,
		wire.Struct(new(Worker), "*"),
	)
	return nil, nil, nil
}

// InitializeService 仅初始化流水线（命令行使用，不依赖 Redis）
func InitializeService(ctx context.Context, cfg *config.Config) (*installment.Service, func(), error) {
	wire.Build(
		ArchiveSet,
		DirectServiceSet,
	)
	return nil, nil, nil
}

// InitializeImporter 初始化设定集导入器
func InitializeImporter(ctx context.Context, cfg *config.Config) (*lore.Importer, func(), error) {
	wire.Build(ImportSet)
	return nil, nil, nil
}

// ArchiveSet 存档后端
var ArchiveSet = wire.NewSet(
	ProvideArchive,
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	redis.NewCache,
	redis.NewRateLimiter,
)

// ServiceSet 流水线提供者集合
var ServiceSet = wire.NewSet(
	ProvideUsageRecorder,
	ProvideLLMRouter,
	ProvideNormalizer,
	ProvideService,
)

// CachedServiceSet 设定集读取走 Redis 缓存
var CachedServiceSet = wire.NewSet(
	ServiceSet,
	ProvideCachedLore,
)

// DirectServiceSet 设定集直接读取存档
var DirectServiceSet = wire.NewSet(
	ServiceSet,
	ProvideDirectLore,
)

// JobSet 异步任务提供者集合
var JobSet = wire.NewSet(
	ProvideMessagingProducer,
	ProvideJobRepository,
	ProvideRunner,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideUsageHandler,
	handler.NewInstallmentHandler,
	handler.NewJobHandler,
	wire.Bind(new(handler.InstallmentService), new(*installment.Service)),
	wire.Bind(new(handler.JobService), new(*jobs.Runner)),
	wire.Struct(new(router.Handlers), "*"),
	ProvideRouter,
)

// ImportSet 设定集导入提供者集合
var ImportSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewLoreRepository,
	postgres.NewStateRepository,
	ProvideLoreFileSource,
	ProvideOptionalInvalidator,
	ProvideImporter,
)
