package greptile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"repo-search-web/internal/domain/models"
	"repo-search-web/pkg/config"
	"repo-search-web/pkg/logger"
	"repo-search-web/pkg/types"

	"go.uber.org/zap"
)

// maxErrorBodySize 错误响应体最多保留的字节数
const maxErrorBodySize = 512

// searchRequest 搜索 API 请求结构
type searchRequest struct {
	Query        string                  `json:"query"`
	Repositories []models.RepoDescriptor `json:"repositories"`
	SessionID    string                  `json:"sessionId,omitempty"`
}

// Client Greptile 搜索客户端
type Client struct {
	endpoint    string
	apiToken    string
	githubToken string
	userAgent   string
	httpClient  *http.Client
}

// NewClient 创建搜索客户端，凭据在构造时注入
func NewClient(cfg config.SearchConfig) *Client {
	timeout := cfg.GetTimeout()
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		endpoint:    cfg.GetEndpoint(),
		apiToken:    cfg.APIToken,
		githubToken: cfg.GithubToken,
		userAgent:   cfg.GetUserAgent(),
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}
}

// Search 向搜索 API 发送一次请求，返回扁平的命中列表
func (c *Client) Search(ctx context.Context, query string, repositories []models.RepoDescriptor, sessionID string) ([]models.MatchRecord, error) {
	start := time.Now()

	payload, err := json.Marshal(searchRequest{
		Query:        query,
		Repositories: repositories,
		SessionID:    sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("X-GitHub-Token", c.githubToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	logger.Debug("发送搜索请求",
		zap.String("endpoint", c.endpoint),
		zap.String("session_id", sessionID),
		zap.Int("repositories", len(repositories)))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &types.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		logger.Warn("搜索 API 返回错误",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", string(body)),
			zap.Duration("latency", time.Since(start)))
		return nil, &types.UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	records, err := decodeRecords(resp.Body)
	if err != nil {
		logger.Warn("解析搜索响应失败", zap.Error(err))
		return nil, err
	}

	logger.Info("搜索完成",
		zap.String("session_id", sessionID),
		zap.Int("results", len(records)),
		zap.Duration("latency", time.Since(start)))
	return records, nil
}

// decodeRecords 解析并校验响应体，必须是命中记录数组
func decodeRecords(body io.Reader) ([]models.MatchRecord, error) {
	dec := json.NewDecoder(body)
	var raw []json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, &types.ParseError{Err: err}
	}
	if raw == nil {
		return nil, &types.ParseError{Err: fmt.Errorf("响应体不是数组")}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, &types.ParseError{Err: fmt.Errorf("数组之后存在多余内容")}
	}

	records := make([]models.MatchRecord, 0, len(raw))
	for i, item := range raw {
		var record models.MatchRecord
		if err := json.Unmarshal(item, &record); err != nil {
			return nil, &types.ParseError{Err: fmt.Errorf("第 %d 条记录: %w", i, err)}
		}
		if err := record.Validate(); err != nil {
			return nil, &types.ParseError{Err: fmt.Errorf("第 %d 条记录: %w", i, err)}
		}
		records = append(records, record)
	}
	return records, nil
}
