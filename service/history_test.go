package service

import (
	"testing"

	"TimelineStudio-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoRestoresExactState(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpTrimStart,
		SceneIndex: 1,
		Params:     models.EditParams{Trim: &models.TrimParams{Seconds: 2}},
	})
	require.NoError(t, err)

	_, rec, err := e.Undo(id)
	require.NoError(t, err)
	assert.Equal(t, models.OpTrimStart, rec.Op)

	s, err := store.GetScene(id, 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s.TrimStart, 1e-9)
	assert.Equal(t, 0, s.EditCount)
}

func TestUndoRedoIdentity(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 3)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: 2,
		Params:     models.EditParams{Split: &models.SplitParams{AtTime: 2.0}},
	})
	require.NoError(t, err)
	after := sceneFingerprint(t, store, id)

	_, _, err = e.Undo(id)
	require.NoError(t, err)
	p, _ := store.GetProject(id)
	require.Len(t, p.Scenes, 3)

	_, _, err = e.Redo(id)
	require.NoError(t, err)
	assert.Equal(t, after, sceneFingerprint(t, store, id))
}

func TestRedoBranchLostAfterNewEdit(t *testing.T) {
	e, _, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	_, _, err := e.Undo(id)
	require.NoError(t, err)

	// 新编辑作废 redo 分支
	_, _, err = e.Apply(id, models.EditOp{
		Op: models.OpAddScene,
		Params: models.EditParams{AddScene: &models.AddSceneParams{
			Prompt: "branch", Duration: 3.0,
		}},
	})
	require.NoError(t, err)

	_, _, err = e.Redo(id)
	assert.ErrorIs(t, err, models.ErrNothingToRedo)
}

func TestUndoRedoAtBoundaries(t *testing.T) {
	e, _, id := newTestEditor(t, EditorOptions{})

	_, _, err := e.Undo(id)
	assert.ErrorIs(t, err, models.ErrNothingToUndo)
	_, _, err = e.Redo(id)
	assert.ErrorIs(t, err, models.ErrNothingToRedo)

	addScenes(t, e, id, 1)
	_, _, err = e.Redo(id)
	assert.ErrorIs(t, err, models.ErrNothingToRedo)

	_, _, err = e.Undo(id)
	require.NoError(t, err)
	_, _, err = e.Undo(id)
	assert.ErrorIs(t, err, models.ErrNothingToUndo)
}

func TestHistorySummary(t *testing.T) {
	e, _, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	summary, err := e.History(id)
	require.NoError(t, err)
	assert.Len(t, summary.Entries, 2)
	assert.Equal(t, 2, summary.Cursor)
	assert.True(t, summary.CanUndo)
	assert.False(t, summary.CanRedo)

	_, _, err = e.Undo(id)
	require.NoError(t, err)

	summary, err = e.History(id)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Cursor)
	assert.True(t, summary.CanRedo)
}

// sceneFingerprint 场景结构的粗指纹：数量 + 各自的有效时长区间
func sceneFingerprint(t *testing.T, store *models.Store, projectID string) []float64 {
	t.Helper()
	p, err := store.GetProject(projectID)
	require.NoError(t, err)
	var out []float64
	for _, s := range p.Scenes {
		out = append(out, s.StartTime, s.EndTime, s.EffectiveDuration())
	}
	return out
}
