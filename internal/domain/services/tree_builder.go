package services

import (
	"fmt"
	"strings"

	"repo-search-web/internal/domain/models"
)

// DuplicatePolicy 多条记录落在同一路径时 Match 字段的取值策略
type DuplicatePolicy int

const (
	// LastWins 后出现的记录覆盖先前的记录
	LastWins DuplicatePolicy = iota
	// FirstWins 保留最先出现的记录
	FirstWins
)

// ParseDuplicatePolicy 解析配置中的策略名称
func ParseDuplicatePolicy(name string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "last_wins":
		return LastWins, nil
	case "first_wins":
		return FirstWins, nil
	default:
		return LastWins, fmt.Errorf("未知的重复路径策略: %s", name)
	}
}

func (p DuplicatePolicy) String() string {
	if p == FirstWins {
		return "first_wins"
	}
	return "last_wins"
}

// PathTreeBuilder 把扁平的命中列表按路径段组织成树
type PathTreeBuilder struct {
	policy DuplicatePolicy
}

// NewPathTreeBuilder 创建路径树构建器
func NewPathTreeBuilder(policy DuplicatePolicy) *PathTreeBuilder {
	return &PathTreeBuilder{policy: policy}
}

// BuildTree 按输入顺序构建路径树；子节点顺序即首次出现顺序
func (b *PathTreeBuilder) BuildTree(records []models.MatchRecord) (*models.TreeNode, error) {
	root := models.NewRootNode()

	for i, record := range records {
		segments, ok := splitPath(record.Filepath)
		if !ok {
			return nil, &models.InvalidPathError{Path: record.Filepath, Index: i}
		}

		current := root
		for _, segment := range segments {
			current = current.ChildOrCreate(segment)
		}

		b.attach(current, record)
	}

	return root, nil
}

func (b *PathTreeBuilder) attach(node *models.TreeNode, record models.MatchRecord) {
	node.Matches = append(node.Matches, record)
	if node.Match != nil && b.policy == FirstWins {
		return
	}
	r := record
	node.Match = &r
}

// splitPath 拆分 "/" 分隔的路径并丢弃空段，没有剩余段时视为非法
func splitPath(path string) ([]string, bool) {
	segments := make([]string, 0, strings.Count(path, "/")+1)
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}
	return segments, len(segments) > 0
}

// BuildTree 使用默认策略 (LastWins) 构建路径树
func BuildTree(records []models.MatchRecord) (*models.TreeNode, error) {
	return NewPathTreeBuilder(LastWins).BuildTree(records)
}
