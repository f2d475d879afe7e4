package api

import (
	"net/http"
	"time"

	"TimelineStudio-server/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GetTaskStatus 查询任务状态
func (h *Handlers) GetTaskStatus(c *gin.Context) {
	task, err := h.Tasks.Get(c.Param("task_id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// ListProjectTasks 项目的任务列表
func (h *Handlers) ListProjectTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.Tasks.ListByProject(c.Param("project_id"))})
}

// TaskProgressWebSocket 任务进度推送：先推当前状态，之后轮询注册表，
// 状态或进度变化时推送，终态后关闭连接。
func (h *Handlers) TaskProgressWebSocket(c *gin.Context) {
	taskID := c.Param("task_id")
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "WebSocket升级失败"})
		return
	}
	defer conn.Close()

	task, err := h.Tasks.Get(taskID)
	if err != nil {
		conn.WriteJSON(map[string]interface{}{"error": "task not found: " + err.Error()})
		return
	}
	_ = conn.WriteJSON(task)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	prevStatus := task.Status
	prevProgress := task.Progress

	for range ticker.C {
		cur, err := h.Tasks.Get(taskID)
		if err != nil {
			continue
		}
		if cur.Status != prevStatus || cur.Progress != prevProgress {
			if err := conn.WriteJSON(cur); err != nil {
				break
			}
			prevStatus = cur.Status
			prevProgress = cur.Progress
		}
		if cur.Status == models.TaskStatusSuccess || cur.Status == models.TaskStatusFailed {
			_ = conn.WriteJSON(cur)
			break
		}
	}
}
