package models

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusQueued     = "queued"
	TaskStatusProcessing = "processing"
	TaskStatusSuccess    = "success"
	TaskStatusFailed     = "failed"
)

const (
	TaskTypeScenePreview  = "scene_preview"
	TaskTypeProjectRender = "project_render"
)

// Task 异步任务记录。任务本身是临时态，进度由处理器写回，
// 前端通过轮询或 WebSocket 订阅。
type Task struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"projectId"`
	SceneIndex int       `json:"sceneIndex,omitempty"`
	Type       string    `json:"type"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Message    string    `json:"message,omitempty"`
	ResultRef  string    `json:"resultRef,omitempty"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// TaskRegistry 内存任务表。任务记录不随项目文档持久化，
// 队列侧的重试与留存由 asynq 负责。
type TaskRegistry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{tasks: make(map[string]*Task)}
}

func (r *TaskRegistry) Create(projectID string, sceneIndex int, taskType string) *Task {
	now := time.Now().UTC()
	t := &Task{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		SceneIndex: sceneIndex,
		Type:       taskType,
		Status:     TaskStatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.mu.Lock()
	r.tasks[t.ID] = t
	r.mu.Unlock()
	return t
}

func (r *TaskRegistry) Get(id string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return *t, nil
}

// Update 写回状态与进度，progress < 0 表示保持原值
func (r *TaskRegistry) Update(id, status string, progress int, message, resultRef, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return
	}
	t.Status = status
	if progress >= 0 {
		t.Progress = progress
	}
	if message != "" {
		t.Message = message
	}
	if resultRef != "" {
		t.ResultRef = resultRef
	}
	t.Error = errMsg
	t.UpdatedAt = time.Now().UTC()
}

// ListByProject 按创建时间倒序返回项目的任务
func (r *TaskRegistry) ListByProject(projectID string) []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Task
	for _, t := range r.tasks {
		if t.ProjectID == projectID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
