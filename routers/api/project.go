package api

import (
	"net/http"

	"TimelineStudio-server/models"

	"github.com/gin-gonic/gin"
)

// CreateProject 创建项目
func (h *Handlers) CreateProject(c *gin.Context) {
	var req struct {
		Title      string `json:"title"`
		Mode       string `json:"mode"`
		Resolution string `json:"resolution"`
		// 批量建场景：项目整体从分镜脚本初始化时使用
		Scenes []struct {
			Prompt   string  `json:"prompt"`
			Style    string  `json:"style"`
			Duration float64 `json:"duration"`
		} `json:"scenes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resolution := models.ResolutionStandard
	switch req.Resolution {
	case "480p":
		resolution = models.ResolutionPreview
	case "4k", "2160p":
		resolution = models.ResolutionUHD
	}

	project, err := h.Store.CreateProject(req.Title, req.Mode, resolution)
	if err != nil {
		h.abortWithError(c, err)
		return
	}

	if len(req.Scenes) > 0 {
		err := h.Store.WithProjectLock(project.ID, func() error {
			for i, sc := range req.Scenes {
				duration := sc.Duration
				if duration <= 0 {
					duration = 5.0
				}
				project.Scenes = append(project.Scenes, models.NewScene(i+1, sc.Prompt, sc.Style, duration))
			}
			project.RecalculateTimings()
			return h.Store.Persist(project)
		})
		if err != nil {
			h.abortWithError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"project": project.Clone()})
}

// ListProjects 项目列表
func (h *Handlers) ListProjects(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"projects": h.Store.SnapshotProjects()})
}

// GetProject 项目详情，含时间轴视图
func (h *Handlers) GetProject(c *gin.Context) {
	projectID := c.Param("project_id")
	project, err := h.Store.SnapshotProject(projectID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project":  project,
		"timeline": timelineView(project),
	})
}

// GetTimeline 只返回时间轴视图
func (h *Handlers) GetTimeline(c *gin.Context) {
	projectID := c.Param("project_id")
	project, err := h.Store.SnapshotProject(projectID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, timelineView(project))
}

// DeleteProject 删除项目
func (h *Handlers) DeleteProject(c *gin.Context) {
	projectID := c.Param("project_id")
	if err := h.Store.DeleteProject(projectID); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "项目已删除"})
}

// timelineView 派生视图：场景时间区间、转场、总时长
func timelineView(p *models.Project) gin.H {
	type sceneView struct {
		Index             int     `json:"index"`
		Prompt            string  `json:"prompt"`
		Status            string  `json:"status"`
		Start             float64 `json:"start"`
		End               float64 `json:"end"`
		EffectiveDuration float64 `json:"effectiveDuration"`
		TransitionOut     string  `json:"transitionOut"`
		Locked            bool    `json:"locked"`
	}
	scenes := make([]sceneView, 0, len(p.Scenes))
	for _, s := range p.Scenes {
		scenes = append(scenes, sceneView{
			Index:             s.Index,
			Prompt:            s.Prompt,
			Status:            s.Status,
			Start:             s.StartTime,
			End:               s.EndTime,
			EffectiveDuration: s.EffectiveDuration(),
			TransitionOut:     s.TransitionOut.Type,
			Locked:            s.Locked,
		})
	}
	return gin.H{
		"scenes":        scenes,
		"markers":       p.Markers,
		"totalDuration": p.TotalDuration(),
	}
}
