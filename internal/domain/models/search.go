package models

import (
	"repo-search-web/pkg/types"
)

// MatchRecord alias to unified model
type MatchRecord = types.MatchRecord

// RepoDescriptor alias to unified model
type RepoDescriptor = types.RepoDescriptor

// SearchRequest alias to unified model
type SearchRequest = types.SearchRequest

// TreeNode alias to unified model
type TreeNode = types.TreeNode

// InvalidPathError alias to unified error
type InvalidPathError = types.InvalidPathError

// NewRootNode alias to unified function
func NewRootNode() *TreeNode {
	return types.NewRootNode()
}

// SearchResult 一次搜索的完整结果
type SearchResult struct {
	Records []MatchRecord `json:"records"`
	Tree    *TreeNode     `json:"-"`
	Cached  bool          `json:"cached"`
}

// NodeView 渲染用的节点视图
type NodeView struct {
	Name     string        `json:"name"`
	Path     string        `json:"path"`
	Kind     string        `json:"kind"` // leaf 或 branch
	Match    *MatchRecord  `json:"match,omitempty"`
	Matches  []MatchRecord `json:"matches,omitempty"`
	Children []NodeView    `json:"children,omitempty"`
}

// IsLeaf 是否按叶子渲染
func (v NodeView) IsLeaf() bool {
	return v.Kind == KindLeaf
}

const (
	KindLeaf   = "leaf"
	KindBranch = "branch"
)
