package models

import (
	"errors"
	"fmt"
)

// 错误分类。校验与不变量冲突同步拒绝且不产生部分修改；
// 外部服务失败收敛到受影响的场景/任务，不影响引擎本身。
var (
	ErrNotFound        = errors.New("not found")
	ErrLockedResource  = errors.New("scene is locked")
	ErrInvalidRange    = errors.New("value out of range")
	ErrNothingToUndo   = errors.New("nothing to undo")
	ErrNothingToRedo   = errors.New("nothing to redo")
	ErrStaleSnapshot   = errors.New("snapshot is stale")
	ErrExternalService = errors.New("external service failure")
	ErrCorruptDocument = errors.New("corrupt project document")
	ErrMissingMedia    = errors.New("approved scene has no source media")
)

// UnapprovedScenesError 渲染前置校验失败，携带未批准的场景下标
type UnapprovedScenesError struct {
	Indices []int
}

func (e *UnapprovedScenesError) Error() string {
	return fmt.Sprintf("unapproved scenes present: %v", e.Indices)
}
