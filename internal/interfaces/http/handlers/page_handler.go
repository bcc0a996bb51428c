package handlers

import (
	"net/http"
	"strings"

	"repo-search-web/internal/application"
	"repo-search-web/internal/domain/models"
	"repo-search-web/internal/domain/services"
	"repo-search-web/internal/interfaces/http/middleware"
	"repo-search-web/pkg/logger"
	"repo-search-web/pkg/types"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// SessionCookie 浏览器会话 ID 的 cookie 名称
	SessionCookie = "rs_session"

	defaultKeyword = "llamas"
	defaultRepo    = "meta-llama/llama3"
	noResultsMsg   = "未找到结果，请检查仓库名称"
)

// pageData 搜索页面模板数据
type pageData struct {
	Query    string
	Repo     string
	Branch   string
	Error    string
	Nodes    []models.NodeView
	Total    int
	Searched bool
	Cached   bool
}

// PageHandler 搜索页面处理器
type PageHandler struct {
	searchService *application.SearchService
	renderer      *services.TreeRenderer
}

// NewPageHandler 创建页面处理器实例
func NewPageHandler(searchService *application.SearchService, renderer *services.TreeRenderer) *PageHandler {
	return &PageHandler{
		searchService: searchService,
		renderer:      renderer,
	}
}

// HandleIndex 渲染搜索表单
func (h *PageHandler) HandleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", pageData{
		Query:  defaultKeyword,
		Repo:   defaultRepo,
		Branch: types.DefaultBranch,
		Nodes:  []models.NodeView{},
	})
}

// HandleSearchPage 执行搜索并渲染可折叠的路径树
func (h *PageHandler) HandleSearchPage(c *gin.Context) {
	data := pageData{
		Query:    strings.TrimSpace(c.Query("q")),
		Repo:     strings.TrimSpace(c.Query("repo")),
		Branch:   strings.TrimSpace(c.DefaultQuery("branch", types.DefaultBranch)),
		Nodes:    []models.NodeView{},
		Searched: true,
	}

	if data.Query == "" {
		data.Error = "请输入搜索关键词"
		c.HTML(http.StatusBadRequest, "index.tmpl", data)
		return
	}

	repo, err := types.ParseRepoDescriptor(data.Repo, data.Branch)
	if err != nil {
		data.Error = "请输入合法的仓库 (例如 username/repo-name)"
		c.HTML(http.StatusBadRequest, "index.tmpl", data)
		return
	}
	data.Repo = repo.Repository

	request := models.SearchRequest{
		Query:        data.Query,
		Repositories: []models.RepoDescriptor{repo},
		SessionID:    h.sessionID(c),
	}

	result, err := h.searchService.SearchTree(c.Request.Context(), request)
	if err != nil {
		kind := types.KindOf(err)
		logger.Warn("页面搜索失败",
			zap.String("request_id", c.GetString(middleware.RequestIDKey)),
			zap.String("session_id", request.SessionID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		data.Error = pageMessage(kind, err)
		c.HTML(StatusFor(kind), "index.tmpl", data)
		return
	}

	data.Nodes = h.renderer.View(result.Tree)
	data.Total = len(result.Records)
	data.Cached = result.Cached
	if data.Total == 0 {
		data.Error = noResultsMsg
	}
	c.HTML(http.StatusOK, "index.tmpl", data)
}

// sessionID 读取浏览器会话 ID，不存在时创建
func (h *PageHandler) sessionID(c *gin.Context) string {
	if id, err := c.Cookie(SessionCookie); err == nil && id != "" {
		return id
	}
	id := "session-" + uuid.NewString()
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
	return id
}

// pageMessage 面向用户的简短错误信息
func pageMessage(kind types.ErrorKind, err error) string {
	switch kind {
	case types.KindValidation:
		return err.Error()
	case types.KindSuperseded:
		return "搜索已被新的搜索取代"
	case types.KindUpstream:
		return noResultsMsg
	default:
		return "搜索失败，请稍后重试"
	}
}
