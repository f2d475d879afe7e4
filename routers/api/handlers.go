package api

import (
	"errors"
	"net/http"

	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"
	"TimelineStudio-server/service"

	"github.com/gin-gonic/gin"
)

// Handlers 汇总所有 HTTP 处理器的依赖，由 main.go 注入
type Handlers struct {
	Store  *models.Store
	Editor *service.Editor
	Tasks  *models.TaskRegistry
	Log    *logger.Logger
}

func NewHandlers(store *models.Store, editor *service.Editor, tasks *models.TaskRegistry, log *logger.Logger) *Handlers {
	return &Handlers{
		Store:  store,
		Editor: editor,
		Tasks:  tasks,
		Log:    log.With("component", "api"),
	}
}

// abortWithError 统一错误到状态码的映射
func (h *Handlers) abortWithError(c *gin.Context, err error) {
	var unapproved *models.UnapprovedScenesError
	status := http.StatusInternalServerError
	body := gin.H{"error": err.Error()}

	switch {
	case errors.As(err, &unapproved):
		status = http.StatusConflict
		body["unapproved_scenes"] = unapproved.Indices
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidRange):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrLockedResource):
		status = http.StatusLocked
	case errors.Is(err, models.ErrNothingToUndo),
		errors.Is(err, models.ErrNothingToRedo),
		errors.Is(err, models.ErrStaleSnapshot),
		errors.Is(err, models.ErrMissingMedia):
		status = http.StatusConflict
	case errors.Is(err, models.ErrExternalService):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("请求处理失败", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, body)
}
