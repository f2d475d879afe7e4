package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Undo 撤销一步
func (h *Handlers) Undo(c *gin.Context) {
	projectID := c.Param("project_id")
	project, record, err := h.Editor.Undo(projectID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"undone_op": record.Op,
		"project":   project,
		"timeline":  timelineView(project),
	})
}

// Redo 重做一步
func (h *Handlers) Redo(c *gin.Context) {
	projectID := c.Param("project_id")
	project, record, err := h.Editor.Redo(projectID)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"redone_op": record.Op,
		"project":   project,
		"timeline":  timelineView(project),
	})
}

// GetHistory 编辑历史摘要
func (h *Handlers) GetHistory(c *gin.Context) {
	summary, err := h.Editor.History(c.Param("project_id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
