package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProject(sceneCount int) *Project {
	p := &Project{
		ID:         "p1",
		Title:      "测试项目",
		Mode:       ModeAdvanced,
		Resolution: ResolutionStandard,
		FPS:        30,
	}
	for i := 0; i < sceneCount; i++ {
		p.Scenes = append(p.Scenes, NewScene(i+1, "scene", "cinematic", 5.0))
	}
	p.RecalculateTimings()
	return p
}

func TestEffectiveDuration(t *testing.T) {
	s := NewScene(1, "p", "", 10.0)
	assert.InDelta(t, 10.0, s.EffectiveDuration(), 1e-9)

	s.TrimStart = 2.0
	s.TrimEnd = 3.0
	assert.InDelta(t, 5.0, s.EffectiveDuration(), 1e-9)

	s.Motion.Speed = 2.0
	assert.InDelta(t, 2.5, s.EffectiveDuration(), 1e-9)

	s.Motion.Speed = 0.5
	assert.InDelta(t, 10.0, s.EffectiveDuration(), 1e-9)
}

func TestRecalculateTimingsNoTransitions(t *testing.T) {
	p := newTestProject(3)
	// 默认转场是硬切，场景首尾相接
	assert.InDelta(t, 0.0, p.Scenes[0].StartTime, 1e-9)
	assert.InDelta(t, 5.0, p.Scenes[1].StartTime, 1e-9)
	assert.InDelta(t, 10.0, p.Scenes[2].StartTime, 1e-9)
	assert.InDelta(t, 15.0, p.TotalDuration(), 1e-9)
}

func TestRecalculateTimingsWithTransitions(t *testing.T) {
	p := newTestProject(3)
	for _, s := range p.Scenes[:2] {
		s.TransitionOut = TransitionSettings{Type: TransitionDissolve, Duration: 0.5}
	}
	p.RecalculateTimings()

	// 每个转场让后一场景提前 0.5s 进入重叠
	assert.InDelta(t, 0.0, p.Scenes[0].StartTime, 1e-9)
	assert.InDelta(t, 4.5, p.Scenes[1].StartTime, 1e-9)
	assert.InDelta(t, 9.0, p.Scenes[2].StartTime, 1e-9)
	assert.InDelta(t, 14.0, p.Scenes[2].EndTime, 1e-9)
	assert.InDelta(t, 14.0, p.TotalDuration(), 1e-9)
}

func TestTransitionOverlapClampedToShortScene(t *testing.T) {
	p := newTestProject(2)
	p.Scenes[0].TrimEnd = 4.2 // 有效时长 0.8
	p.Scenes[0].TransitionOut = TransitionSettings{Type: TransitionDissolve, Duration: 2.0}
	p.RecalculateTimings()

	// 重叠不能超过相邻两段中较短的有效时长
	assert.InDelta(t, 0.8, p.Scenes[0].EndTime-p.Scenes[1].StartTime, 1e-9)
	assert.InDelta(t, 5.0, p.TotalDuration(), 1e-9)
}

func TestSceneByIndex(t *testing.T) {
	p := newTestProject(2)
	s, err := p.SceneByIndex(2)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Index)

	_, err = p.SceneByIndex(0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.SceneByIndex(3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSceneByID(t *testing.T) {
	p := newTestProject(2)
	want := p.Scenes[1]
	require.NotEmpty(t, want.ID)

	s, err := p.SceneByID(want.ID)
	require.NoError(t, err)
	assert.Same(t, want, s)

	_, err = p.SceneByID("")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = p.SceneByID("no-such-scene")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloneIsDeep(t *testing.T) {
	p := newTestProject(2)
	p.Scenes[0].AudioClips = []AudioClip{{ID: "a1", MediaRef: "ref"}}
	p.GlobalColor = &ColorSettings{Preset: GradeCinematic}

	clone := p.Clone()
	clone.Scenes[0].Prompt = "changed"
	clone.Scenes[0].AudioClips[0].MediaRef = "other"
	clone.GlobalColor.Preset = GradeWarm

	assert.Equal(t, "scene", p.Scenes[0].Prompt)
	assert.Equal(t, "ref", p.Scenes[0].AudioClips[0].MediaRef)
	assert.Equal(t, GradeCinematic, p.GlobalColor.Preset)
}

func TestApprovalFingerprintChanges(t *testing.T) {
	p := newTestProject(2)
	base := p.ApprovalFingerprint()

	p.Scenes[0].Status = SceneStatusApproved
	assert.NotEqual(t, base, p.ApprovalFingerprint())

	p.Scenes[0].Status = SceneStatusPending
	assert.Equal(t, base, p.ApprovalFingerprint())

	p.Scenes[1].EditCount++
	assert.NotEqual(t, base, p.ApprovalFingerprint())
}

func TestCaptureAndRestoreState(t *testing.T) {
	p := newTestProject(2)
	p.Markers = []Marker{{ID: "m1", Time: 3.0, Label: "章节一", Kind: "chapter"}}
	st := p.CaptureState()

	p.Scenes = p.Scenes[:1]
	p.Markers = nil
	p.RestoreState(st)

	require.Len(t, p.Scenes, 2)
	require.Len(t, p.Markers, 1)

	// 快照是深拷贝，恢复后再改不影响快照来源
	p.Scenes[0].Prompt = "mutated"
	assert.Equal(t, "scene", st.Scenes[0].Prompt)
}

func TestUnapprovedIndices(t *testing.T) {
	p := newTestProject(3)
	p.Scenes[1].Status = SceneStatusApproved
	assert.Equal(t, []int{1, 3}, p.UnapprovedIndices())

	for _, s := range p.Scenes {
		s.Status = SceneStatusApproved
	}
	assert.Empty(t, p.UnapprovedIndices())
}
