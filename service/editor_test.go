package service

import (
	"encoding/json"
	"testing"

	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEditor(t *testing.T, opts EditorOptions) (*Editor, *models.Store, string) {
	t.Helper()
	repo, err := models.NewFileRepo(t.TempDir())
	require.NoError(t, err)
	store := models.NewStore(repo, logger.Nop())
	editor := NewEditor(store, logger.Nop(), opts)

	p, err := store.CreateProject("测试项目", "", models.Resolution{})
	require.NoError(t, err)
	return editor, store, p.ID
}

func addScenes(t *testing.T, e *Editor, projectID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, _, err := e.Apply(projectID, models.EditOp{
			Op: models.OpAddScene,
			Params: models.EditParams{AddScene: &models.AddSceneParams{
				Prompt: "scene", Duration: 5.0,
			}},
		})
		require.NoError(t, err)
	}
}

func projectJSON(t *testing.T, store *models.Store, projectID string) string {
	t.Helper()
	p, err := store.GetProject(projectID)
	require.NoError(t, err)
	data, err := json.Marshal(p.Clone())
	require.NoError(t, err)
	return string(data)
}

func TestAddSceneAppendAndInsert(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	_, _, err := e.Apply(id, models.EditOp{
		Op: models.OpAddScene,
		Params: models.EditParams{AddScene: &models.AddSceneParams{
			Prompt: "inserted", Duration: 3.0, Position: 2,
		}},
	})
	require.NoError(t, err)

	p, err := store.GetProject(id)
	require.NoError(t, err)
	require.Len(t, p.Scenes, 3)
	assert.Equal(t, "inserted", p.Scenes[1].Prompt)
	// 下标始终是连续的 1..N
	for i, s := range p.Scenes {
		assert.Equal(t, i+1, s.Index)
	}
}

func TestTrimClampKeepsMinimumContent(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpTrimStart,
		SceneIndex: 1,
		Params:     models.EditParams{Trim: &models.TrimParams{Seconds: 100}},
	})
	require.NoError(t, err)

	s, err := store.GetScene(id, 1)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, s.TrimStart, 1e-9)
	assert.InDelta(t, 0.5, s.EffectiveDuration(), 1e-9)

	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpTrimEnd,
		SceneIndex: 1,
		Params:     models.EditParams{Trim: &models.TrimParams{Seconds: -1}},
	})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestSplitPreservesTotalDuration(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	_, _, err := e.Apply(id, models.EditOp{
		Op: models.OpAddScene,
		Params: models.EditParams{AddScene: &models.AddSceneParams{
			Prompt: "long", Duration: 10.0,
		}},
	})
	require.NoError(t, err)

	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: 1,
		Params:     models.EditParams{Split: &models.SplitParams{AtTime: 4.0}},
	})
	require.NoError(t, err)

	p, err := store.GetProject(id)
	require.NoError(t, err)
	require.Len(t, p.Scenes, 2)
	assert.InDelta(t, 4.0, p.Scenes[0].EffectiveDuration(), 1e-9)
	assert.InDelta(t, 6.0, p.Scenes[1].EffectiveDuration(), 1e-9)
	assert.InDelta(t, 10.0, p.TotalDuration(), 1e-9)

	// 切分点越界
	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: 1,
		Params:     models.EditParams{Split: &models.SplitParams{AtTime: 4.0}},
	})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestSplitRespectsTrimsAndSpeed(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	for _, op := range []models.EditOp{
		{Op: models.OpTrimStart, SceneIndex: 1, Params: models.EditParams{Trim: &models.TrimParams{Seconds: 1.0}}},
		{Op: models.OpSetSpeed, SceneIndex: 1, Params: models.EditParams{Speed: &models.SpeedParams{Speed: 2.0}}},
	} {
		_, _, err := e.Apply(id, op)
		require.NoError(t, err)
	}
	// 有效时长 (5-1)/2 = 2.0
	s, _ := store.GetScene(id, 1)
	require.InDelta(t, 2.0, s.EffectiveDuration(), 1e-9)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: 1,
		Params:     models.EditParams{Split: &models.SplitParams{AtTime: 0.5}},
	})
	require.NoError(t, err)

	p, _ := store.GetProject(id)
	require.Len(t, p.Scenes, 2)
	assert.InDelta(t, 0.5, p.Scenes[0].EffectiveDuration(), 1e-9)
	assert.InDelta(t, 1.5, p.Scenes[1].EffectiveDuration(), 1e-9)
}

func TestMergeNextSumsEffectiveDurations(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 3)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSetSpeed,
		SceneIndex: 2,
		Params:     models.EditParams{Speed: &models.SpeedParams{Speed: 2.0}},
	})
	require.NoError(t, err)

	_, _, err = e.Apply(id, models.EditOp{Op: models.OpMergeNext, SceneIndex: 1})
	require.NoError(t, err)

	p, err := store.GetProject(id)
	require.NoError(t, err)
	require.Len(t, p.Scenes, 2)
	// 5.0 + 5.0/2 = 7.5
	assert.InDelta(t, 7.5, p.Scenes[0].EffectiveDuration(), 1e-9)

	// 尾部场景没有后继可并
	_, _, err = e.Apply(id, models.EditOp{Op: models.OpMergeNext, SceneIndex: 2})
	assert.ErrorIs(t, err, models.ErrInvalidRange)
}

func TestLockedSceneRejectsEditsUnchanged(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	_, _, err := e.Apply(id, models.EditOp{Op: models.OpLock, SceneIndex: 1})
	require.NoError(t, err)

	snapshot := projectJSON(t, store, id)

	rejected := []models.EditOp{
		{Op: models.OpTrimStart, SceneIndex: 1, Params: models.EditParams{Trim: &models.TrimParams{Seconds: 1}}},
		{Op: models.OpSplit, SceneIndex: 1, Params: models.EditParams{Split: &models.SplitParams{AtTime: 2}}},
		{Op: models.OpDelete, SceneIndex: 1},
		{Op: models.OpSwap, SceneIndex: 1, Params: models.EditParams{Swap: &models.SwapParams{OtherIndex: 2}}},
		{Op: models.OpSetSpeed, SceneIndex: 1, Params: models.EditParams{Speed: &models.SpeedParams{Speed: 2}}},
		{Op: models.OpSetReverse, SceneIndex: 1, Params: models.EditParams{Reverse: &models.ReverseParams{Reverse: true}}},
		{Op: models.OpMergeNext, SceneIndex: 1},
		{Op: models.OpStyleTransfer, SceneIndex: 1, Params: models.EditParams{Style: &models.StyleParams{Style: "noir"}}},
	}
	for _, op := range rejected {
		_, _, err := e.Apply(id, op)
		assert.ErrorIs(t, err, models.ErrLockedResource, "op %s", op.Op)
	}

	// 被拒绝的操作不留任何痕迹
	assert.Equal(t, snapshot, projectJSON(t, store, id))

	// 解锁后恢复可编辑
	_, _, err = e.Apply(id, models.EditOp{Op: models.OpUnlock, SceneIndex: 1})
	require.NoError(t, err)
	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpTrimStart,
		SceneIndex: 1,
		Params:     models.EditParams{Trim: &models.TrimParams{Seconds: 1}},
	})
	assert.NoError(t, err)
}

func TestColorOpsClampAndSkipHistory(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	p, _ := store.GetProject(id)
	historyBefore := len(p.History)

	_, rec, err := e.Apply(id, models.EditOp{
		Op:         models.OpBrightness,
		SceneIndex: 1,
		Params:     models.EditParams{ColorValue: &models.ColorValueParams{Value: 250}},
	})
	require.NoError(t, err)
	assert.Nil(t, rec)

	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpVignette,
		SceneIndex: 1,
		Params:     models.EditParams{ColorValue: &models.ColorValueParams{Value: -5}},
	})
	require.NoError(t, err)

	s, _ := store.GetScene(id, 1)
	assert.InDelta(t, 100.0, s.Color.Brightness, 1e-9)
	assert.InDelta(t, 0.0, s.Color.Vignette, 1e-9)

	p, _ = store.GetProject(id)
	assert.Equal(t, historyBefore, len(p.History))
}

func TestSetTransitionIsSymmetric(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSetTransition,
		SceneIndex: 1,
		Params: models.EditParams{Transition: &models.TransitionParams{
			Type: models.TransitionDissolve, Duration: 0.5,
		}},
	})
	require.NoError(t, err)

	p, err := store.GetProject(id)
	require.NoError(t, err)
	assert.Equal(t, models.TransitionDissolve, p.Scenes[0].TransitionOut.Type)
	assert.Equal(t, models.TransitionDissolve, p.Scenes[1].TransitionIn.Type)
	assert.InDelta(t, 0.5, p.Scenes[1].TransitionIn.Duration, 1e-9)
}

func TestSpeedOutOfRangeRejected(t *testing.T) {
	e, _, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	for _, speed := range []float64{0.05, 11.0, 0} {
		_, _, err := e.Apply(id, models.EditOp{
			Op:         models.OpSetSpeed,
			SceneIndex: 1,
			Params:     models.EditParams{Speed: &models.SpeedParams{Speed: speed}},
		})
		assert.ErrorIs(t, err, models.ErrInvalidRange, "speed %v", speed)
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{MaxUndoSteps: 3})
	addScenes(t, e, id, 5)

	p, err := store.GetProject(id)
	require.NoError(t, err)
	assert.Len(t, p.History, 3)
	assert.Equal(t, 3, p.UndoCursor)

	// 被驱逐的步数无法撤销：3 步之后到底
	for i := 0; i < 3; i++ {
		_, _, err := e.Undo(id)
		require.NoError(t, err)
	}
	_, _, err = e.Undo(id)
	assert.ErrorIs(t, err, models.ErrNothingToUndo)
}

func TestApproveSceneLifecycle(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 2)

	// pending 不能直接通过
	_, err := e.ApproveScene(id, 1)
	assert.ErrorIs(t, err, models.ErrInvalidRange)

	p, _ := store.GetProject(id)
	p.Scenes[0].Status = models.SceneStatusReady
	p.Scenes[1].Status = models.SceneStatusReady
	require.NoError(t, store.Persist(p))

	s, err := e.ApproveScene(id, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SceneStatusApproved, s.Status)

	// 幂等
	_, err = e.ApproveScene(id, 1)
	assert.NoError(t, err)

	count, err := e.ApproveAll(id)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRejectSceneBackToPending(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	p, _ := store.GetProject(id)
	p.Scenes[0].Status = models.SceneStatusReady
	p.Scenes[0].PreviewRef = "https://cdn.example/preview.mp4"
	require.NoError(t, store.Persist(p))

	s, err := e.RejectScene(id, 1)
	require.NoError(t, err)
	assert.Equal(t, models.SceneStatusPending, s.Status)

	// 锁定的场景不能打回
	_, _, err = e.Apply(id, models.EditOp{Op: models.OpLock, SceneIndex: 1})
	require.NoError(t, err)
	_, err = e.RejectScene(id, 1)
	assert.ErrorIs(t, err, models.ErrLockedResource)
}

func TestDuplicateSceneDeepCopy(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	_, _, err := e.Apply(id, models.EditOp{Op: models.OpDuplicate, SceneIndex: 1})
	require.NoError(t, err)

	p, _ := store.GetProject(id)
	require.Len(t, p.Scenes, 2)

	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpTrimStart,
		SceneIndex: 2,
		Params:     models.EditParams{Trim: &models.TrimParams{Seconds: 1}},
	})
	require.NoError(t, err)

	p, _ = store.GetProject(id)
	assert.InDelta(t, 0.0, p.Scenes[0].TrimStart, 1e-9)
	assert.InDelta(t, 1.0, p.Scenes[1].TrimStart, 1e-9)
}

func TestSceneIDSurvivesStructuralEdits(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 3)

	p, _ := store.GetProject(id)
	target := p.Scenes[1]
	require.NotEmpty(t, target.ID)
	targetID := target.ID
	targetPrompt := "我是第二个"
	target.Prompt = targetPrompt
	require.NoError(t, store.Persist(p))

	// 前面插入一个场景，目标下标从 2 漂到 3
	_, _, err := e.Apply(id, models.EditOp{
		Op: models.OpAddScene,
		Params: models.EditParams{AddScene: &models.AddSceneParams{
			Prompt: "插队", Duration: 3.0, Position: 1,
		}},
	})
	require.NoError(t, err)

	p, _ = store.GetProject(id)
	s, err := p.SceneByID(targetID)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Index)
	assert.Equal(t, targetPrompt, s.Prompt)

	// 删除后凭 ID 查找失败，而不是命中占了原下标的别的场景
	_, _, err = e.Apply(id, models.EditOp{Op: models.OpDelete, SceneIndex: 3})
	require.NoError(t, err)

	p, _ = store.GetProject(id)
	_, err = p.SceneByID(targetID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	byIndex, err := p.SceneByIndex(3)
	require.NoError(t, err)
	assert.NotEqual(t, targetID, byIndex.ID)
}

func TestSplitAndDuplicateMintFreshSceneIDs(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 1)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSplit,
		SceneIndex: 1,
		Params:     models.EditParams{Split: &models.SplitParams{AtTime: 2.0}},
	})
	require.NoError(t, err)
	_, _, err = e.Apply(id, models.EditOp{Op: models.OpDuplicate, SceneIndex: 1})
	require.NoError(t, err)

	p, _ := store.GetProject(id)
	require.Len(t, p.Scenes, 3)
	seen := map[string]bool{}
	for _, s := range p.Scenes {
		require.NotEmpty(t, s.ID)
		assert.False(t, seen[s.ID])
		seen[s.ID] = true
	}
}

func TestSwapAndDeleteKeepTransitionPairsConsistent(t *testing.T) {
	e, store, id := newTestEditor(t, EditorOptions{})
	addScenes(t, e, id, 4)

	_, _, err := e.Apply(id, models.EditOp{
		Op:         models.OpSetTransition,
		SceneIndex: 1,
		Params:     models.EditParams{Transition: &models.TransitionParams{Type: models.TransitionDissolve, Duration: 0.5}},
	})
	require.NoError(t, err)
	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpSetTransition,
		SceneIndex: 3,
		Params:     models.EditParams{Transition: &models.TransitionParams{Type: models.TransitionWipeLeft, Duration: 1.0}},
	})
	require.NoError(t, err)

	_, _, err = e.Apply(id, models.EditOp{
		Op:         models.OpSwap,
		SceneIndex: 2,
		Params:     models.EditParams{Swap: &models.SwapParams{OtherIndex: 4}},
	})
	require.NoError(t, err)

	p, _ := store.GetProject(id)
	for i := 1; i < len(p.Scenes); i++ {
		assert.Equal(t, p.Scenes[i-1].TransitionOut, p.Scenes[i].TransitionIn,
			"scene %d 的入场转场应与左邻居的出场转场一致", i+1)
	}

	_, _, err = e.Apply(id, models.EditOp{Op: models.OpDelete, SceneIndex: 2})
	require.NoError(t, err)

	p, _ = store.GetProject(id)
	for i := 1; i < len(p.Scenes); i++ {
		assert.Equal(t, p.Scenes[i-1].TransitionOut, p.Scenes[i].TransitionIn)
	}
}
