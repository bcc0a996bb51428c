package main

import (
	"encoding/json"
	"fmt"
	"os"

	"repo-search-web/internal/domain/models"
	"repo-search-web/internal/domain/services"
	"repo-search-web/pkg/types"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	searchRepos  []string
	searchBranch string
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "执行一次搜索并打印文件路径树",
	Long: `执行一次搜索并打印结果。

Examples:
  repo-search search llamas --repo meta-llama/llama3
  repo-search search "rate limit" --repo owner/a --repo owner/b --branch dev
  repo-search search llamas --repo meta-llama/llama3 --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringArrayVar(&searchRepos, "repo", nil, "要搜索的仓库 owner/name，可重复")
	searchCmd.Flags().StringVar(&searchBranch, "branch", types.DefaultBranch, "搜索的分支")
	searchCmd.Flags().StringVar(&searchFormat, "format", "text", "输出格式 (text, json)")
	_ = searchCmd.MarkFlagRequired("repo")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	_, searchService, err := setup()
	if err != nil {
		return err
	}

	repositories := make([]models.RepoDescriptor, 0, len(searchRepos))
	for _, raw := range searchRepos {
		repo, err := types.ParseRepoDescriptor(raw, searchBranch)
		if err != nil {
			return err
		}
		repositories = append(repositories, repo)
	}

	result, err := searchService.SearchTree(cmd.Context(), models.SearchRequest{
		Query:        args[0],
		Repositories: repositories,
		SessionID:    "cli-" + uuid.NewString(),
	})
	if err != nil {
		return err
	}

	switch searchFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Records)
	case "text":
		if len(result.Records) == 0 {
			fmt.Fprintln(os.Stderr, "未找到结果")
			return nil
		}
		fmt.Print(services.NewTreeRenderer().Text(result.Tree))
		fmt.Printf("\n共 %d 条结果\n", len(result.Records))
		return nil
	default:
		return fmt.Errorf("未知的输出格式: %s", searchFormat)
	}
}
