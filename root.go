package main

import (
	"fmt"

	"repo-search-web/internal/application"
	"repo-search-web/internal/domain/services"
	"repo-search-web/internal/infrastructure/greptile"
	"repo-search-web/pkg/config"
	"repo-search-web/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	// configPath 配置文件路径
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "repo-search",
	Short: "在 GitHub 仓库中搜索关键词并以文件路径树展示结果",
	Long: `repo-search 把关键词和 owner/repo 发送到 Greptile 代码搜索 API，
并把返回的命中记录按文件路径组织成可折叠的树。`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "配置文件路径")
}

// setup 加载配置、初始化日志并组装搜索服务
func setup() (*config.Config, *application.SearchService, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}

	if err := logger.Init(cfg.GetLogLevel(), cfg.GetLogOutputPath()); err != nil {
		return nil, nil, fmt.Errorf("初始化日志失败: %w", err)
	}

	policy, err := services.ParseDuplicatePolicy(cfg.GetDuplicatePolicy())
	if err != nil {
		return nil, nil, err
	}

	searchService, err := application.NewSearchService(greptile.NewClient(cfg.Search), application.Options{
		CacheSize:    cfg.GetCacheSize(),
		CacheTTL:     cfg.GetCacheTTL(),
		SessionLimit: cfg.GetSessionLimit(),
		Policy:       policy,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("创建搜索服务失败: %w", err)
	}

	return cfg, searchService, nil
}
