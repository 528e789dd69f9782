// Package main 单集生成命令行工具
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"serial-novel-engine/internal/application/installment"
	"serial-novel-engine/internal/config"
	einoobs "serial-novel-engine/internal/observability/eino"
	"serial-novel-engine/internal/wire"
	"serial-novel-engine/pkg/logger"
)

var (
	configPath  string
	archiveKind string
	archiveDir  string
)

var rootCmd = &cobra.Command{
	Use:           "installment-cli",
	Short:         "Serialized fiction installment pipeline",
	Long:          "Generates, normalizes and checks serialized fiction installments using the same pipeline as the API server.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "Path to config YAML (optional)")
	rootCmd.PersistentFlags().StringVar(&archiveKind, "archive", "file", "Archive backend: file or postgres")
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive-dir", "", "Archive directory for the file backend (overrides config)")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadService 按命令行参数覆盖配置并初始化流水线
func loadService(ctx context.Context) (*installment.Service, func(), error) {
	cfg, err := config.LoadFile(configPath, true)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Archive.Backend = archiveKind
	if archiveDir != "" {
		cfg.Archive.Dir = archiveDir
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	einoobs.Init()

	svc, cleanup, err := wire.InitializeService(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize pipeline: %w", err)
	}
	return svc, cleanup, nil
}

// readInput 读取文件；路径为空或 "-" 时读取标准输入
func readInput(path string) (string, error) {
	if path == "" || path == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(b), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(b), nil
}

// writeOutput 写文件；路径为空时写标准输出
func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
