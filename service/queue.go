package service

import (
	"encoding/json"
	"fmt"
	"time"

	"TimelineStudio-server/config"

	"github.com/hibiken/asynq"
)

const (
	TypeScenePreview  = "timeline:preview"
	TypeProjectRender = "timeline:render"
)

// PreviewPayload 单场景预览生成。生成期间场景下标可能因
// 插入/删除/交换而漂移，处理器凭 SceneID 定位，SceneIndex 只用于展示。
type PreviewPayload struct {
	TaskID     string `json:"task_id"`
	ProjectID  string `json:"project_id"`
	SceneID    string `json:"scene_id"`
	SceneIndex int    `json:"scene_index"`
}

// RenderPayload 成片渲染。Fingerprint 是入队时刻批准状态的指纹，
// 处理器执行前重新计算并比对，不一致则放弃（文档已被继续编辑）。
type RenderPayload struct {
	TaskID      string `json:"task_id"`
	ProjectID   string `json:"project_id"`
	Fingerprint string `json:"fingerprint"`
}

var QueueClient *asynq.Client

// InitQueue 初始化队列客户端，在 main.go 中调用
func InitQueue() {
	QueueClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.Redis.Addr,
		Password: config.AppConfig.Redis.Password,
	})
}

// EnqueueScenePreview 预览任务入队
func EnqueueScenePreview(p PreviewPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	task := asynq.NewTask(TypeScenePreview, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute), // 生成侧较慢，给足超时
		asynq.Retention(24*time.Hour),
	)
	if _, err := QueueClient.Enqueue(task); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	return nil
}

// EnqueueProjectRender 渲染任务入队
func EnqueueProjectRender(p RenderPayload) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal payload failed: %w", err)
	}
	task := asynq.NewTask(TypeProjectRender, payload,
		asynq.MaxRetry(2),
		asynq.Timeout(60*time.Minute),
		asynq.Retention(24*time.Hour),
	)
	if _, err := QueueClient.Enqueue(task); err != nil {
		return fmt.Errorf("enqueue failed: %w", err)
	}
	return nil
}
