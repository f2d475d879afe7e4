package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"
)

// WorkerClient 外部生成/合成服务的 HTTP 客户端。
// 提交请求带重试退避，提交成功后轮询 job 直到终态。
type WorkerClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	log        *logger.Logger
}

func NewWorkerClient(baseURL string, maxRetries int, log *logger.Logger) *WorkerClient {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &WorkerClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: maxRetries,
		log:        log.With("component", "worker_client"),
	}
}

// JobResult 外部服务的任务终态
type JobResult struct {
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	ResourceURL string `json:"resource_url"`
	Error       string `json:"error"`
}

// SubmitJob 发送 POST 请求，失败按指数退避重试，返回 job_id
func (c *WorkerClient) SubmitJob(ctx context.Context, apiPath string, body map[string]interface{}) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request failed: %w", err)
	}
	fullURL := c.baseURL + apiPath

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			c.log.Warn("重试提交", "url", fullURL, "attempt", attempt+1, "last_err", lastErr)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader(jsonBody))
		if err != nil {
			return "", fmt.Errorf("create request failed: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		jobID, err := decodeJobID(resp)
		if err != nil {
			lastErr = err
			continue
		}
		return jobID, nil
	}
	return "", fmt.Errorf("submit to %s failed after %d attempts: %v: %w",
		fullURL, c.maxRetries, lastErr, models.ErrExternalService)
}

func decodeJobID(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("worker status code: %d", resp.StatusCode)
	}
	var respData map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&respData); err != nil {
		return "", fmt.Errorf("decode response failed: %w", err)
	}
	if id, ok := respData["id"].(string); ok && id != "" {
		return id, nil
	}
	if jobID, ok := respData["job_id"].(string); ok && jobID != "" {
		return jobID, nil
	}
	return "", fmt.Errorf("response missing 'id'")
}

// PollJob 轮询 GET /v1/jobs/{job_id} 直到终态。onProgress 可为 nil。
func (c *WorkerClient) PollJob(ctx context.Context, jobID string, onProgress func(int)) (*JobResult, error) {
	jobURL := fmt.Sprintf("%s/v1/jobs/%s", c.baseURL, jobID)
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("polling canceled: %w", ctx.Err())
		case <-ticker.C:
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, jobURL, nil)
			if err != nil {
				return nil, fmt.Errorf("create request failed: %w", err)
			}
			resp, err := c.httpClient.Do(req)
			if err != nil {
				c.log.Warn("轮询网络错误(重试中)", "job_id", jobID, "err", err)
				continue
			}
			var result JobResult
			err = json.NewDecoder(resp.Body).Decode(&result)
			resp.Body.Close()
			if err != nil {
				c.log.Warn("解析轮询响应失败", "job_id", jobID, "err", err)
				continue
			}

			switch result.Status {
			case "success", "succeeded", "completed":
				return &result, nil
			case "failed", "error":
				return nil, fmt.Errorf("worker reported failure: %s: %w",
					result.Error, models.ErrExternalService)
			default:
				if onProgress != nil {
					onProgress(result.Progress)
				}
			}
		}
	}
}

// GeneratePreview 为单个场景生成预览素材，返回外部资源 URL
func (c *WorkerClient) GeneratePreview(ctx context.Context, p *models.Project, s *models.Scene, onProgress func(int)) (string, error) {
	jobID, err := c.SubmitJob(ctx, "/v1/generate", map[string]interface{}{
		"project_id": p.ID,
		"prompt":     s.Prompt,
		"style":      s.Style,
		"duration":   s.RawDuration,
		"width":      p.Resolution.Width,
		"height":     p.Resolution.Height,
		"fps":        p.FPS,
	})
	if err != nil {
		return "", err
	}
	result, err := c.PollJob(ctx, jobID, onProgress)
	if err != nil {
		return "", err
	}
	if result.ResourceURL == "" {
		return "", fmt.Errorf("generate result missing resource_url: %w", models.ErrExternalService)
	}
	return result.ResourceURL, nil
}

// ComposeVideo 把合成图交给合成服务执行，返回成片 URL
func (c *WorkerClient) ComposeVideo(ctx context.Context, graphURL string, onProgress func(int)) (string, error) {
	jobID, err := c.SubmitJob(ctx, "/v1/compose", map[string]interface{}{
		"graph_url": graphURL,
	})
	if err != nil {
		return "", err
	}
	result, err := c.PollJob(ctx, jobID, onProgress)
	if err != nil {
		return "", err
	}
	if result.ResourceURL == "" {
		return "", fmt.Errorf("compose result missing resource_url: %w", models.ErrExternalService)
	}
	return result.ResourceURL, nil
}
