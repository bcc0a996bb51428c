package handlers

import (
	"net/http"

	"repo-search-web/internal/application"
	"repo-search-web/internal/domain/models"
	"repo-search-web/internal/domain/services"
	"repo-search-web/internal/interfaces/http/middleware"
	"repo-search-web/pkg/logger"
	"repo-search-web/pkg/types"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SearchHandler 搜索 JSON API 处理器
type SearchHandler struct {
	searchService *application.SearchService
	renderer      *services.TreeRenderer
}

// NewSearchHandler 创建搜索 API 处理器实例
func NewSearchHandler(searchService *application.SearchService, renderer *services.TreeRenderer) *SearchHandler {
	return &SearchHandler{
		searchService: searchService,
		renderer:      renderer,
	}
}

// HandleSearch 处理搜索请求，成功时返回扁平的命中数组
func (h *SearchHandler) HandleSearch(c *gin.Context) {
	requestID := c.GetString(middleware.RequestIDKey)

	var request models.SearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, &types.ValidationError{Reason: "请求体不是合法的 JSON"})
		return
	}

	logger.Info("处理搜索请求",
		zap.String("request_id", requestID),
		zap.String("session_id", request.SessionID),
		zap.String("query", request.Query),
		zap.Int("repositories", len(request.Repositories)))

	records, err := h.searchService.Search(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, records)
}

// HandleSearchTree 处理搜索请求并返回路径树
func (h *SearchHandler) HandleSearchTree(c *gin.Context) {
	var request models.SearchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		respondError(c, &types.ValidationError{Reason: "请求体不是合法的 JSON"})
		return
	}

	result, err := h.searchService.SearchTree(c.Request.Context(), request)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"records": result.Records,
		"tree":    h.renderer.View(result.Tree),
		"nodes":   result.Tree.NodeCount(),
		"leaves":  result.Tree.LeafCount(),
		"cached":  result.Cached,
	})
}

// HandleHealth 健康检查
func (h *SearchHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// StatusFor 错误分类对应的 HTTP 状态码
func StatusFor(kind types.ErrorKind) int {
	switch kind {
	case types.KindValidation:
		return http.StatusBadRequest
	case types.KindSuperseded:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError 返回 {error, kind} 结构的错误响应
func respondError(c *gin.Context, err error) {
	kind := types.KindOf(err)
	status := StatusFor(kind)

	fields := []zap.Field{
		zap.String("request_id", c.GetString(middleware.RequestIDKey)),
		zap.String("kind", string(kind)),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("搜索失败", fields...)
	} else {
		logger.Warn("搜索未完成", fields...)
	}

	_ = c.Error(err)
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
