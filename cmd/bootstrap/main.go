// Package main 初始化数据库：建表并从文件导入系列设定集与状态
package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"serial-novel-engine/internal/config"
	"serial-novel-engine/internal/wire"
	"serial-novel-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	var loreDir string
	cmd := &cobra.Command{
		Use:   "bootstrap [SERIES_ID...]",
		Short: "Create tables and import series lore and state into PostgreSQL",
		Long:  "Series ids come from arguments or the comma-separated BOOTSTRAP_SERIES variable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, loreDir, seriesIDs(args))
		},
		SilenceUsage: true,
	}
	cmd.Flags().StringVar(&loreDir, "lore-dir", "", "lore directory (defaults to archive.lore_dir)")

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func seriesIDs(args []string) []string {
	if len(args) == 0 {
		if env := os.Getenv("BOOTSTRAP_SERIES"); env != "" {
			args = strings.Split(env, ",")
		}
	}
	ids := make([]string, 0, len(args))
	for _, id := range args {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func run(cmd *cobra.Command, loreDir string, series []string) error {
	if len(series) == 0 {
		return fmt.Errorf("no series given: pass SERIES_ID arguments or set BOOTSTRAP_SERIES")
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	if loreDir != "" {
		cfg.Archive.LoreDir = loreDir
	}
	// 导入目标固定为数据库
	cfg.Database.Postgres.AutoMigrate = true

	ctx := cmd.Context()
	importer, cleanup, err := wire.InitializeImporter(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize importer: %w", err)
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	for _, id := range series {
		res, err := importer.Import(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to import series %s: %w", id, err)
		}
		fmt.Fprintf(out, "Imported %s: %d lore sections, state=%v\n", res.SeriesID, res.Sections, res.State)
	}
	fmt.Fprintln(out, "Bootstrap completed successfully!")
	return nil
}
