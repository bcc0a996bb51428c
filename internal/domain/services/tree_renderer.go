package services

import (
	"bytes"

	"repo-search-web/internal/domain/models"
)

// TreeRenderer 把路径树转换为展示结构
type TreeRenderer struct{}

// NewTreeRenderer 创建渲染器
func NewTreeRenderer() *TreeRenderer {
	return &TreeRenderer{}
}

// View 返回根节点下的节点视图；空树返回空切片
func (r *TreeRenderer) View(root *models.TreeNode) []models.NodeView {
	if root == nil {
		return []models.NodeView{}
	}
	return r.children(root, "")
}

func (r *TreeRenderer) children(node *models.TreeNode, prefix string) []models.NodeView {
	views := make([]models.NodeView, 0, len(node.Children))
	for _, child := range node.Children {
		path := child.Name
		if prefix != "" {
			path = prefix + "/" + child.Name
		}

		view := models.NodeView{
			Name:    child.Name,
			Path:    path,
			Kind:    models.KindLeaf,
			Match:   child.Match,
			Matches: child.Matches,
		}
		// 有子节点即按分支渲染，即使自身也带有命中记录
		if !child.IsLeaf() {
			view.Kind = models.KindBranch
			view.Children = r.children(child, path)
		}
		views = append(views, view)
	}
	return views
}

// Text 返回树形文本，空树返回空串
func (r *TreeRenderer) Text(root *models.TreeNode) string {
	if root == nil {
		return ""
	}
	var buffer bytes.Buffer
	root.Print(&buffer, "", true)
	return buffer.String()
}
