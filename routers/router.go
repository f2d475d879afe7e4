package routers

import (
	"TimelineStudio-server/routers/api"

	"github.com/gin-gonic/gin"
)

func InitRouter(h *api.Handlers) *gin.Engine {
	r := gin.Default()
	v1 := r.Group("/v1/api")
	{
		v1.POST("/projects", h.CreateProject)
		v1.GET("/projects", h.ListProjects)
		v1.GET("/projects/:project_id", h.GetProject)
		v1.GET("/projects/:project_id/timeline", h.GetTimeline)
		v1.DELETE("/projects/:project_id", h.DeleteProject)

		// 编辑操作
		v1.POST("/projects/:project_id/scenes", h.AddScene)
		v1.POST("/projects/:project_id/scenes/:index/trim-start", h.TrimStart)
		v1.POST("/projects/:project_id/scenes/:index/trim-end", h.TrimEnd)
		v1.POST("/projects/:project_id/scenes/:index/split", h.SplitScene)
		v1.POST("/projects/:project_id/scenes/:index/merge-next", h.MergeNext)
		v1.POST("/projects/:project_id/scenes/:index/duplicate", h.DuplicateScene)
		v1.DELETE("/projects/:project_id/scenes/:index", h.DeleteScene)
		v1.POST("/projects/:project_id/scenes/:index/swap", h.SwapScenes)
		v1.POST("/projects/:project_id/scenes/:index/transition", h.SetTransition)
		v1.POST("/projects/:project_id/scenes/:index/camera", h.SetCamera)
		v1.POST("/projects/:project_id/scenes/:index/ken-burns", h.SetKenBurns)
		v1.POST("/projects/:project_id/scenes/:index/speed", h.SetSpeed)
		v1.POST("/projects/:project_id/scenes/:index/reverse", h.SetReverse)
		v1.POST("/projects/:project_id/scenes/:index/style", h.StyleTransfer)
		v1.POST("/projects/:project_id/scenes/:index/lock", h.LockScene)
		v1.POST("/projects/:project_id/scenes/:index/unlock", h.UnlockScene)

		// 调色与挂载（不进历史）
		v1.POST("/projects/:project_id/scenes/:index/grade", h.ColorGrade)
		v1.POST("/projects/:project_id/scenes/:index/color/:field", h.ColorAdjust)
		v1.POST("/projects/:project_id/color", h.SetGlobalColor)
		v1.POST("/projects/:project_id/scenes/:index/narration", h.AddNarration)
		v1.POST("/projects/:project_id/scenes/:index/audio-clips", h.AddAudioClip)
		v1.POST("/projects/:project_id/scenes/:index/text-overlays", h.AddTextOverlay)
		v1.POST("/projects/:project_id/markers/chapters", h.AddChapter)

		// 历史
		v1.POST("/projects/:project_id/undo", h.Undo)
		v1.POST("/projects/:project_id/redo", h.Redo)
		v1.GET("/projects/:project_id/history", h.GetHistory)

		// 生成 / 批准 / 渲染
		v1.POST("/projects/:project_id/scenes/:index/preview", h.GeneratePreview)
		v1.POST("/projects/:project_id/scenes/:index/regenerate", h.RegenerateScene)
		v1.POST("/projects/:project_id/scenes/:index/approve", h.ApproveScene)
		v1.POST("/projects/:project_id/scenes/:index/reject", h.RejectScene)
		v1.POST("/projects/:project_id/approve-all", h.ApproveAll)
		v1.POST("/projects/:project_id/render", h.RenderProject)
		v1.GET("/projects/:project_id/graph", h.CompilePreviewGraph)

		// 任务
		v1.GET("/tasks/:task_id", h.GetTaskStatus)
		v1.GET("/projects/:project_id/tasks", h.ListProjectTasks)
	}
	r.GET("/tasks/:task_id/wss", h.TaskProgressWebSocket)
	return r
}
