package service

import (
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// LISResultsResponse LIS 结果查询响应
type LISResultsResponse struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Results []LISTestResult `json:"results"`
}

// LISTestResult LIS 返回的单个项目结果
type LISTestResult struct {
	TestID         string         `json:"test_id"`
	TestName       string         `json:"test_name"`
	Interpretation string         `json:"interpretation"`
	Parameters     []LISParameter `json:"parameters"`
}

// LISParameter LIS 返回的单个指标
type LISParameter struct {
	Name           string `json:"name"`
	Value          string `json:"value"`
	Unit           string `json:"unit"`
	ReferenceRange string `json:"reference_range"`
	Status         string `json:"status"`
	Note           string `json:"note"`
}

// LISClient 实验室信息系统 API 客户端
// 报告的项目结果由 LIS 侧生成，本服务只做拉取和落库
type LISClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewLISClient 创建 LIS 客户端
func NewLISClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *LISClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Api-Key", apiKey)

	return &LISClient{
		httpClient: client,
		logger:     logger,
	}
}

// FetchResults 按订单拉取全部项目结果
func (c *LISClient) FetchResults(orderID string) ([]LISTestResult, error) {
	c.logger.Info("Calling LIS API: fetchResults", zap.String("order_id", orderID))

	var response LISResultsResponse
	resp, err := c.httpClient.R().
		SetQueryParam("order_id", orderID).
		SetResult(&response).
		Get("/v1/results")

	if err != nil {
		c.logger.Error("LIS API call failed",
			zap.Error(err),
			zap.String("order_id", orderID),
		)
		return nil, fmt.Errorf("failed to call LIS API: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("LIS API returned HTTP %d", resp.StatusCode())
	}
	if response.Status != 0 {
		c.logger.Error("LIS API returned error",
			zap.Int("status", response.Status),
			zap.String("message", response.Message),
		)
		return nil, fmt.Errorf("LIS API error: %s", response.Message)
	}
	return response.Results, nil
}
