package application

import (
	"context"
	"strings"
	"time"

	"repo-search-web/internal/domain/models"
	"repo-search-web/internal/domain/services"
	"repo-search-web/pkg/logger"
	"repo-search-web/pkg/types"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
)

// Searcher 外部代码搜索接口
type Searcher interface {
	Search(ctx context.Context, query string, repositories []models.RepoDescriptor, sessionID string) ([]models.MatchRecord, error)
}

// SearchService 搜索应用服务
type SearchService struct {
	searcher Searcher
	builder  *services.PathTreeBuilder
	sessions *SessionTracker
	cache    *expirable.LRU[string, []models.MatchRecord]
}

// Options 搜索服务参数
type Options struct {
	CacheSize    int // 0 表示不缓存
	CacheTTL     time.Duration
	SessionLimit int
	Policy       services.DuplicatePolicy
}

// NewSearchService 创建搜索应用服务实例
func NewSearchService(searcher Searcher, opts Options) (*SearchService, error) {
	sessions, err := NewSessionTracker(opts.SessionLimit)
	if err != nil {
		return nil, err
	}

	s := &SearchService{
		searcher: searcher,
		builder:  services.NewPathTreeBuilder(opts.Policy),
		sessions: sessions,
	}
	if opts.CacheSize > 0 {
		s.cache = expirable.NewLRU[string, []models.MatchRecord](opts.CacheSize, nil, opts.CacheTTL)
	}
	return s, nil
}

// Search 校验请求并执行搜索，被同一会话新请求取代时返回 types.ErrSuperseded
func (s *SearchService) Search(ctx context.Context, req models.SearchRequest) ([]models.MatchRecord, error) {
	records, _, err := s.search(ctx, req)
	return records, err
}

// SearchTree 执行搜索并构建路径树
func (s *SearchService) SearchTree(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	records, cached, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}

	tree, err := s.builder.BuildTree(records)
	if err != nil {
		logger.Warn("构建路径树失败",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		return nil, err
	}

	return &models.SearchResult{
		Records: records,
		Tree:    tree,
		Cached:  cached,
	}, nil
}

func (s *SearchService) search(ctx context.Context, req models.SearchRequest) ([]models.MatchRecord, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}

	// 新搜索总是取代同一会话中的旧搜索，即使结果来自缓存
	ctx, ticket := s.sessions.Begin(ctx, req.SessionID)
	defer ticket.Done()

	key := cacheKey(req)
	if s.cache != nil {
		if records, ok := s.cache.Get(key); ok {
			logger.Debug("命中搜索缓存",
				zap.String("session_id", req.SessionID),
				zap.Int("results", len(records)))
			return records, true, nil
		}
	}

	records, err := s.searcher.Search(ctx, req.Query, req.Repositories, req.SessionID)
	if !ticket.Current() {
		logger.Info("丢弃被取代的搜索结果",
			zap.String("session_id", req.SessionID),
			zap.Uint64("seq", ticket.Seq()))
		return nil, false, types.ErrSuperseded
	}
	if err != nil {
		return nil, false, err
	}
	if records == nil {
		records = []models.MatchRecord{}
	}

	if s.cache != nil {
		s.cache.Add(key, records)
	}
	return records, false, nil
}

// cacheKey 查询和仓库决定结果，会话不参与
func cacheKey(req models.SearchRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Query))
	for _, repo := range req.Repositories {
		b.WriteString("\x00")
		b.WriteString(repo.String())
	}
	return b.String()
}
