package api

import (
	"net/http"
	"strconv"

	"TimelineStudio-server/models"

	"github.com/gin-gonic/gin"
)

func sceneIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scene index"})
		return 0, false
	}
	return index, true
}

// applyEdit 统一出口：执行编辑并返回最新时间轴
func (h *Handlers) applyEdit(c *gin.Context, op models.EditOp) {
	projectID := c.Param("project_id")
	project, record, err := h.Editor.Apply(projectID, op)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	resp := gin.H{
		"project":  project,
		"timeline": timelineView(project),
	}
	if record != nil {
		resp["record_id"] = record.ID
	}
	c.JSON(http.StatusOK, resp)
}

// AddScene 追加或插入场景
func (h *Handlers) AddScene(c *gin.Context) {
	var params models.AddSceneParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:     models.OpAddScene,
		Params: models.EditParams{AddScene: &params},
	})
}

// TrimStart 场景头部剪裁
func (h *Handlers) TrimStart(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.TrimParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpTrimStart,
		SceneIndex: index,
		Params:     models.EditParams{Trim: &params},
	})
}

// TrimEnd 场景尾部剪裁
func (h *Handlers) TrimEnd(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.TrimParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpTrimEnd,
		SceneIndex: index,
		Params:     models.EditParams{Trim: &params},
	})
}

// SplitScene 在指定有效时间点切分
func (h *Handlers) SplitScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.SplitParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: index,
		Params:     models.EditParams{Split: &params},
	})
}

// MergeNext 与下一场景合并
func (h *Handlers) MergeNext(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	h.applyEdit(c, models.EditOp{Op: models.OpMergeNext, SceneIndex: index})
}

// DuplicateScene 复制场景
func (h *Handlers) DuplicateScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	h.applyEdit(c, models.EditOp{Op: models.OpDuplicate, SceneIndex: index})
}

// DeleteScene 删除场景
func (h *Handlers) DeleteScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	h.applyEdit(c, models.EditOp{Op: models.OpDelete, SceneIndex: index})
}

// SwapScenes 交换两个场景的位置
func (h *Handlers) SwapScenes(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.SwapParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSwap,
		SceneIndex: index,
		Params:     models.EditParams{Swap: &params},
	})
}

// SetTransition 设置出场转场（同时写入下一场景的入场转场）
func (h *Handlers) SetTransition(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.TransitionParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSetTransition,
		SceneIndex: index,
		Params:     models.EditParams{Transition: &params},
	})
}

// SetCamera 设置运镜
func (h *Handlers) SetCamera(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.CameraParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSetCamera,
		SceneIndex: index,
		Params:     models.EditParams{Camera: &params},
	})
}

// SetKenBurns 设置 Ken Burns 缩放
func (h *Handlers) SetKenBurns(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.KenBurnsParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSetKenBurns,
		SceneIndex: index,
		Params:     models.EditParams{KenBurns: &params},
	})
}

// SetSpeed 设置播放速度
func (h *Handlers) SetSpeed(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.SpeedParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSetSpeed,
		SceneIndex: index,
		Params:     models.EditParams{Speed: &params},
	})
}

// SetReverse 设置倒放
func (h *Handlers) SetReverse(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.ReverseParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpSetReverse,
		SceneIndex: index,
		Params:     models.EditParams{Reverse: &params},
	})
}

// StyleTransfer 更换场景风格
func (h *Handlers) StyleTransfer(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.StyleParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpStyleTransfer,
		SceneIndex: index,
		Params:     models.EditParams{Style: &params},
	})
}

// LockScene 锁定场景
func (h *Handlers) LockScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	h.applyEdit(c, models.EditOp{Op: models.OpLock, SceneIndex: index})
}

// UnlockScene 解锁场景
func (h *Handlers) UnlockScene(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	h.applyEdit(c, models.EditOp{Op: models.OpUnlock, SceneIndex: index})
}

// ColorGrade 设置调色预设
func (h *Handlers) ColorGrade(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.GradeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpColorGrade,
		SceneIndex: index,
		Params:     models.EditParams{Grade: &params},
	})
}

// ColorAdjust 数值调色，field 取 brightness/contrast/saturation/vignette/grain
func (h *Handlers) ColorAdjust(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var op string
	switch c.Param("field") {
	case "brightness":
		op = models.OpBrightness
	case "contrast":
		op = models.OpContrast
	case "saturation":
		op = models.OpSaturation
	case "vignette":
		op = models.OpVignette
	case "grain":
		op = models.OpFilmGrain
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown color field"})
		return
	}
	var params models.ColorValueParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         op,
		SceneIndex: index,
		Params:     models.EditParams{ColorValue: &params},
	})
}

// SetGlobalColor 项目级调色
func (h *Handlers) SetGlobalColor(c *gin.Context) {
	var params models.GradeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:     models.OpGlobalColor,
		Params: models.EditParams{Grade: &params},
	})
}

// AddNarration 设置场景旁白文本
func (h *Handlers) AddNarration(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.NarrationParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpAddNarration,
		SceneIndex: index,
		Params:     models.EditParams{Narration: &params},
	})
}

// AddAudioClip 给场景挂音频片段
func (h *Handlers) AddAudioClip(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.AudioClipParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpAddAudioClip,
		SceneIndex: index,
		Params:     models.EditParams{AudioClip: &params},
	})
}

// AddTextOverlay 给场景挂字幕/贴字
func (h *Handlers) AddTextOverlay(c *gin.Context) {
	index, ok := sceneIndex(c)
	if !ok {
		return
	}
	var params models.TextOverlayParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:         models.OpAddTextOverlay,
		SceneIndex: index,
		Params:     models.EditParams{TextOverlay: &params},
	})
}

// AddChapter 添加章节标记
func (h *Handlers) AddChapter(c *gin.Context) {
	var params models.ChapterParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyEdit(c, models.EditOp{
		Op:     models.OpAddChapter,
		Params: models.EditParams{Chapter: &params},
	})
}
