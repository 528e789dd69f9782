// Package main 异步任务执行器入口（job-worker）
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/infrastructure/messaging"
	einoobs "serial-novel-engine/internal/observability/eino"
	"serial-novel-engine/internal/wire"
	"serial-novel-engine/pkg/logger"
	"serial-novel-engine/pkg/tracer"
)

// dlqAlertThreshold 死信队列告警阈值
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "job-worker",
		Version:     cfg.App.Version,
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() {
		flush, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(flush)
	}()

	einoobs.Init()

	worker, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	handle := func(ctx context.Context, msg *messaging.JobMessage) error {
		return worker.Runner.Handle(ctx, msg.JobID)
	}

	n := cfg.Messaging.Workers
	if n <= 0 {
		n = 1
	}
	stream := cfg.Messaging.RedisStream
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		consumer := messaging.NewConsumer(worker.Redis.Redis(), messaging.ConsumerConfig{
			Stream:        messaging.StreamInstallmentGen,
			Group:         messaging.ConsumerGroupInstallmentWorker.GroupName(stream.ConsumerGroupPrefix),
			ConsumerName:  consumerName(i),
			BlockTimeout:  stream.BlockTimeout,
			ClaimInterval: stream.ClaimInterval,
			RetryLimit:    stream.RetryLimit,
		}, handle)
		if i == 0 {
			// 积压监控只需一个实例
			go consumer.Monitor(gctx, time.Minute, dlqAlertThreshold)
		}
		g.Go(func() error { return consumer.Run(gctx) })
	}
	logger.Info(ctx, "job-worker started", "workers", n)

	if err := g.Wait(); err != nil {
		logger.Error(ctx, "job-worker stopped with error", err)
		return
	}
	logger.Info(context.Background(), "job-worker shut down")
}

func consumerName(index int) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), index)
}
