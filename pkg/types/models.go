package types

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const (
	// DefaultRemote 默认代码托管平台
	DefaultRemote = "github"
	// DefaultBranch 默认搜索分支
	DefaultBranch = "main"
	// RootName 合成根节点名称，真实路径段不可能包含 "/"
	RootName = "/"
)

var (
	repoNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+/[A-Za-z0-9_-]+$`)
	repoURLPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:(?:https?|ssh|git)://(?:git@)?(?:www\.)?|git@)?github\.com[:/]([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+?)(?:\.git)?/?$`),
		regexp.MustCompile(`^([A-Za-z0-9_-]+)/([A-Za-z0-9_-]+)$`),
	}
)

// MatchRecord 代码搜索 API 返回的一条命中记录
type MatchRecord struct {
	Repository string `json:"repository"`
	Remote     string `json:"remote"`
	Branch     string `json:"branch"`
	Filepath   string `json:"filepath"`
	LineStart  *int   `json:"linestart"`
	LineEnd    *int   `json:"lineend"`
	Summary    string `json:"summary"`
}

// IsLineLevel 是否为行级命中
func (m MatchRecord) IsLineLevel() bool {
	return m.LineStart != nil && m.LineEnd != nil
}

// LineRange 返回 "Lx-y" 形式的行号范围，文件级命中返回空串
func (m MatchRecord) LineRange() string {
	if !m.IsLineLevel() {
		return ""
	}
	if *m.LineStart == *m.LineEnd {
		return fmt.Sprintf("L%d", *m.LineStart)
	}
	return fmt.Sprintf("L%d-%d", *m.LineStart, *m.LineEnd)
}

// Validate 检查记录是否符合约定的结构
func (m MatchRecord) Validate() error {
	if m.Filepath == "" {
		return fmt.Errorf("filepath 为空")
	}
	if (m.LineStart == nil) != (m.LineEnd == nil) {
		return fmt.Errorf("%s: linestart 与 lineend 必须同时出现", m.Filepath)
	}
	if m.IsLineLevel() && *m.LineStart > *m.LineEnd {
		return fmt.Errorf("%s: linestart %d 大于 lineend %d", m.Filepath, *m.LineStart, *m.LineEnd)
	}
	return nil
}

// RepoDescriptor 标识要搜索的代码库及版本
type RepoDescriptor struct {
	Remote     string `json:"remote"`
	Branch     string `json:"branch"`
	Repository string `json:"repository"`
}

// Validate 检查仓库描述是否完整合法
func (r RepoDescriptor) Validate() error {
	if strings.TrimSpace(r.Remote) == "" {
		return &ValidationError{Field: "remote", Reason: "不能为空"}
	}
	if strings.TrimSpace(r.Branch) == "" {
		return &ValidationError{Field: "branch", Reason: "不能为空"}
	}
	if !repoNamePattern.MatchString(r.Repository) {
		return &ValidationError{Field: "repository", Reason: "格式应为 owner/name"}
	}
	return nil
}

// String 返回 remote:owner/name@branch
func (r RepoDescriptor) String() string {
	return fmt.Sprintf("%s:%s@%s", r.Remote, r.Repository, r.Branch)
}

// ParseRepoDescriptor 解析 owner/name 或 GitHub 仓库 URL
func ParseRepoDescriptor(raw, branch string) (RepoDescriptor, error) {
	raw = strings.TrimSpace(raw)
	if branch = strings.TrimSpace(branch); branch == "" {
		branch = DefaultBranch
	}

	for _, re := range repoURLPatterns {
		matches := re.FindStringSubmatch(raw)
		if len(matches) == 3 {
			return RepoDescriptor{
				Remote:     DefaultRemote,
				Branch:     branch,
				Repository: matches[1] + "/" + matches[2],
			}, nil
		}
	}

	return RepoDescriptor{}, &ValidationError{Field: "repository", Reason: "格式应为 owner/name"}
}

// SearchRequest 搜索请求
type SearchRequest struct {
	Query        string           `json:"query"`
	Repositories []RepoDescriptor `json:"repositories"`
	SessionID    string           `json:"sessionId"`
}

// Validate 检查请求字段
func (r SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return &ValidationError{Field: "query", Reason: "不能为空"}
	}
	if len(r.Repositories) == 0 {
		return &ValidationError{Field: "repositories", Reason: "至少需要一个仓库"}
	}
	for i, repo := range r.Repositories {
		if err := repo.Validate(); err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Field = fmt.Sprintf("repositories[%d].%s", i, ve.Field)
			}
			return err
		}
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return &ValidationError{Field: "sessionId", Reason: "不能为空"}
	}
	return nil
}

// TreeNode 路径树中的一个节点
type TreeNode struct {
	Name     string        `json:"name"`
	Children []*TreeNode   `json:"children,omitempty"`
	Match    *MatchRecord  `json:"match,omitempty"`
	Matches  []MatchRecord `json:"matches,omitempty"`

	index map[string]int
}

// NewTreeNode 创建新的树节点
func NewTreeNode(name string) *TreeNode {
	return &TreeNode{
		Name:  name,
		index: make(map[string]int),
	}
}

// NewRootNode 创建合成根节点
func NewRootNode() *TreeNode {
	return NewTreeNode(RootName)
}

// IsLeaf 没有子节点即为叶子
func (n *TreeNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Child 按名称查找子节点
func (n *TreeNode) Child(name string) *TreeNode {
	if i, ok := n.index[name]; ok {
		return n.Children[i]
	}
	return nil
}

// ChildOrCreate 返回已有子节点，不存在时按插入顺序追加
func (n *TreeNode) ChildOrCreate(name string) *TreeNode {
	if child := n.Child(name); child != nil {
		return child
	}
	if n.index == nil {
		n.index = make(map[string]int)
	}
	child := NewTreeNode(name)
	n.index[name] = len(n.Children)
	n.Children = append(n.Children, child)
	return child
}

// ChildNames 按顺序返回子节点名称
func (n *TreeNode) ChildNames() []string {
	names := make([]string, 0, len(n.Children))
	for _, child := range n.Children {
		names = append(names, child.Name)
	}
	return names
}

// Walk 深度优先遍历，path 为从根开始的相对路径；fn 返回 false 时不再进入子树
func (n *TreeNode) Walk(fn func(path string, node *TreeNode) bool) {
	n.walk("", fn)
}

func (n *TreeNode) walk(prefix string, fn func(string, *TreeNode) bool) {
	for _, child := range n.Children {
		path := child.Name
		if prefix != "" {
			path = prefix + "/" + child.Name
		}
		if fn(path, child) {
			child.walk(path, fn)
		}
	}
}

// NodeCount 返回不含根节点的节点总数
func (n *TreeNode) NodeCount() int {
	count := 0
	n.Walk(func(string, *TreeNode) bool {
		count++
		return true
	})
	return count
}

// LeafCount 返回叶子节点数量
func (n *TreeNode) LeafCount() int {
	count := 0
	n.Walk(func(_ string, node *TreeNode) bool {
		if node.IsLeaf() {
			count++
		}
		return true
	})
	return count
}

// Print 递归打印文件树，子节点保持插入顺序
func (n *TreeNode) Print(buffer *bytes.Buffer, prefix string, isLast bool) {
	if n.Name != RootName {
		buffer.WriteString(prefix)
		if isLast {
			buffer.WriteString("└── ")
			prefix += "    "
		} else {
			buffer.WriteString("├── ")
			prefix += "│   "
		}
		buffer.WriteString(n.Name)
		if n.Match != nil {
			buffer.WriteString(" [" + n.Match.Repository + "@" + n.Match.Branch)
			if lines := n.Match.LineRange(); lines != "" {
				buffer.WriteString(" " + lines)
			}
			buffer.WriteString("]")
		}
		buffer.WriteString("\n")
	}

	for i, child := range n.Children {
		child.Print(buffer, prefix, i == len(n.Children)-1)
	}
}
