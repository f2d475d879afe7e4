package service

import (
	"fmt"

	"TimelineStudio-server/models"
)

// Undo 游标回退一步，恢复该条记录的修改前快照
func (e *Editor) Undo(projectID string) (*models.Project, *models.EditRecord, error) {
	var project *models.Project
	var record *models.EditRecord
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.UndoCursor <= 0 {
			return fmt.Errorf("project %s: %w", projectID, models.ErrNothingToUndo)
		}
		p.UndoCursor--
		rec := p.History[p.UndoCursor]
		p.RestoreState(rec.Before)
		p.RecalculateTimings()
		project = p.Clone()
		record = &rec
		return e.store.Persist(p)
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.Debug("撤销", "project_id", projectID, "op", record.Op)
	return project, record, nil
}

// Redo 恢复游标处记录的修改后快照，游标前进一步
func (e *Editor) Redo(projectID string) (*models.Project, *models.EditRecord, error) {
	var project *models.Project
	var record *models.EditRecord
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		if p.UndoCursor >= len(p.History) {
			return fmt.Errorf("project %s: %w", projectID, models.ErrNothingToRedo)
		}
		rec := p.History[p.UndoCursor]
		p.RestoreState(rec.After)
		p.RecalculateTimings()
		p.UndoCursor++
		project = p.Clone()
		record = &rec
		return e.store.Persist(p)
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.Debug("重做", "project_id", projectID, "op", record.Op)
	return project, record, nil
}

// HistorySummary 历史摘要，供前端展示撤销栈
type HistorySummary struct {
	Entries  []HistoryEntry `json:"entries"`
	Cursor   int            `json:"cursor"`
	CanUndo  bool           `json:"can_undo"`
	CanRedo  bool           `json:"can_redo"`
	Capacity int            `json:"capacity"`
}

type HistoryEntry struct {
	ID         string `json:"id"`
	Op         string `json:"op"`
	SceneIndex int    `json:"scene_index,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func (e *Editor) History(projectID string) (*HistorySummary, error) {
	p, err := e.store.SnapshotProject(projectID)
	if err != nil {
		return nil, err
	}
	summary := &HistorySummary{
		Cursor:   p.UndoCursor,
		CanUndo:  p.UndoCursor > 0,
		CanRedo:  p.UndoCursor < len(p.History),
		Capacity: e.opts.MaxUndoSteps,
	}
	for _, rec := range p.History {
		summary.Entries = append(summary.Entries, HistoryEntry{
			ID:         rec.ID,
			Op:         rec.Op,
			SceneIndex: rec.SceneIndex,
			Timestamp:  rec.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return summary, nil
}
