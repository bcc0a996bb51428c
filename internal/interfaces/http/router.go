package http

import (
	"fmt"

	"repo-search-web/internal/application"
	"repo-search-web/internal/domain/services"
	"repo-search-web/internal/interfaces/http/handlers"
	"repo-search-web/internal/interfaces/http/middleware"
	"repo-search-web/internal/interfaces/http/templates"

	"github.com/gin-gonic/gin"
)

// NewRouter 注册路由并返回 gin 引擎
func NewRouter(searchService *application.SearchService) (*gin.Engine, error) {
	tmpl, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("加载页面模板失败: %w", err)
	}

	renderer := services.NewTreeRenderer()
	searchHandler := handlers.NewSearchHandler(searchService, renderer)
	pageHandler := handlers.NewPageHandler(searchService, renderer)

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.AccessLog(), middleware.Recovery())
	router.SetHTMLTemplate(tmpl)

	router.GET("/", pageHandler.HandleIndex)
	router.GET("/search", pageHandler.HandleSearchPage)
	router.GET("/healthz", searchHandler.HandleHealth)

	api := router.Group("/api")
	api.POST("/search", searchHandler.HandleSearch)
	api.POST("/search/tree", searchHandler.HandleSearchTree)

	return router, nil
}
