package api

import (
	"fmt"
	"net/http"

	"TimelineStudio-server/models"
	"TimelineStudio-server/service"

	"github.com/gin-gonic/gin"
)

// ApproveScene ready -> approved
func (h *Handlers) ApproveScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	scene, err := h.Editor.ApproveScene(c.Param("project_id"), index)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scene": scene})
}

// ApproveAll 批准所有 ready 场景
func (h *Handlers) ApproveAll(c *gin.Context) {
	count, err := h.Editor.ApproveAll(c.Param("project_id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"approved": count})
}

// RejectScene 打回场景并触发新的预览生成
func (h *Handlers) RejectScene(c *gin.Context) {
	projectID := c.Param("project_id")
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	scene, err := h.Editor.RejectScene(projectID, index)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	task := h.Tasks.Create(projectID, index, models.TaskTypeScenePreview)
	if err := service.EnqueueScenePreview(service.PreviewPayload{
		TaskID:     task.ID,
		ProjectID:  projectID,
		SceneID:    scene.ID,
		SceneIndex: index,
	}); err != nil {
		h.Tasks.Update(task.ID, models.TaskStatusFailed, -1, "", "", err.Error())
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID})
}

// GeneratePreview 为单个场景触发预览生成任务
func (h *Handlers) GeneratePreview(c *gin.Context) {
	projectID := c.Param("project_id")
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	scene, err := h.Store.GetScene(projectID, index)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	task := h.Tasks.Create(projectID, index, models.TaskTypeScenePreview)
	if err := service.EnqueueScenePreview(service.PreviewPayload{
		TaskID:     task.ID,
		ProjectID:  projectID,
		SceneID:    scene.ID,
		SceneIndex: index,
	}); err != nil {
		h.Tasks.Update(task.ID, models.TaskStatusFailed, -1, "", "", err.Error())
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID})
}

// RegenerateScene 修改 prompt 并重新生成预览
func (h *Handlers) RegenerateScene(c *gin.Context) {
	projectID := c.Param("project_id")
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.RegenerateParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	project, _, err := h.Editor.Apply(projectID, models.EditOp{
		Op:         models.OpRegenerate,
		SceneIndex: index,
		Params:     models.EditParams{Regenerate: &params},
	})
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	scene, err := project.SceneByIndex(index)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	task := h.Tasks.Create(projectID, index, models.TaskTypeScenePreview)
	if err := service.EnqueueScenePreview(service.PreviewPayload{
		TaskID:     task.ID,
		ProjectID:  projectID,
		SceneID:    scene.ID,
		SceneIndex: index,
	}); err != nil {
		h.Tasks.Update(task.ID, models.TaskStatusFailed, -1, "", "", err.Error())
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID})
}

// RenderProject 触发成片渲染。入口同步做批准校验，
// 指纹随任务入队，执行时二次比对防止渲染过期快照。
func (h *Handlers) RenderProject(c *gin.Context) {
	projectID := c.Param("project_id")
	project, err := h.Store.SnapshotProject(projectID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if unapproved := project.UnapprovedIndices(); len(unapproved) > 0 {
		h.abortWithError(c, &models.UnapprovedScenesError{Indices: unapproved})
		return
	}
	for _, s := range project.Scenes {
		if s.PreviewRef == "" {
			h.abortWithError(c, fmt.Errorf("scene %d has no rendered media: %w",
				s.Index, models.ErrMissingMedia))
			return
		}
	}

	task := h.Tasks.Create(projectID, 0, models.TaskTypeProjectRender)
	if err := service.EnqueueProjectRender(service.RenderPayload{
		TaskID:      task.ID,
		ProjectID:   projectID,
		Fingerprint: project.ApprovalFingerprint(),
	}); err != nil {
		h.Tasks.Update(task.ID, models.TaskStatusFailed, -1, "", "", err.Error())
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": task.ID})
}

// CompilePreviewGraph 只编译并返回合成图，不触发渲染。调试用。
func (h *Handlers) CompilePreviewGraph(c *gin.Context) {
	project, err := h.Store.SnapshotProject(c.Param("project_id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	graph, err := service.Compile(project)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, graph)
}
