package service

import (
	"fmt"
	"time"

	"TimelineStudio-server/config"
	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"

	"github.com/google/uuid"
)

// EditorOptions 编辑器参数，零值时取默认
type EditorOptions struct {
	MaxUndoSteps      int
	MinSceneContent   float64
	DefaultDuration   float64
	DefaultTransition float64
}

func (o *EditorOptions) fill() {
	if o.MaxUndoSteps <= 0 {
		o.MaxUndoSteps = 100
	}
	if o.MinSceneContent <= 0 {
		o.MinSceneContent = 0.5
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 5.0
	}
	if o.DefaultTransition <= 0 {
		o.DefaultTransition = 0.5
	}
}

// EditorOptionsFromConfig 从全局配置取编辑器参数
func EditorOptionsFromConfig() EditorOptions {
	c := config.AppConfig
	return EditorOptions{
		MaxUndoSteps:      c.Editor.MaxUndoSteps,
		MinSceneContent:   c.Editor.MinSceneContent,
		DefaultDuration:   c.Editor.DefaultDuration,
		DefaultTransition: c.Editor.DefaultTransition,
	}
}

// Editor 编辑操作引擎。所有修改统一走 Apply，按项目加锁串行，
// 校验通过前不做任何修改（全有或全无）。
type Editor struct {
	store *models.Store
	log   *logger.Logger
	opts  EditorOptions
}

func NewEditor(store *models.Store, log *logger.Logger, opts EditorOptions) *Editor {
	opts.fill()
	return &Editor{
		store: store,
		log:   log.With("component", "editor"),
		opts:  opts,
	}
}

// recordable 是否进入编辑历史。调色与挂载类操作不可撤销。
func recordable(op string) bool {
	switch op {
	case models.OpColorGrade, models.OpBrightness, models.OpContrast,
		models.OpSaturation, models.OpVignette, models.OpFilmGrain,
		models.OpGlobalColor, models.OpAddNarration, models.OpAddAudioClip,
		models.OpAddTextOverlay, models.OpAddChapter:
		return false
	}
	return true
}

// Apply 单次编辑操作入口
func (e *Editor) Apply(projectID string, op models.EditOp) (*models.Project, *models.EditRecord, error) {
	var project *models.Project
	var record *models.EditRecord
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		var before models.ProjectState
		if recordable(op.Op) {
			before = p.CaptureState()
		}
		if err := e.dispatch(p, op); err != nil {
			return err
		}
		p.Reindex()
		p.RecalculateTimings()
		if recordable(op.Op) {
			rec := *e.appendRecord(p, op, before)
			record = &rec
		}
		// 返回拷贝，调用方在锁外序列化也不会读到后续编辑
		project = p.Clone()
		return e.store.Persist(p)
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.Debug("编辑完成", "project_id", projectID, "op", op.Op, "scene", op.SceneIndex)
	return project, record, nil
}

func (e *Editor) appendRecord(p *models.Project, op models.EditOp, before models.ProjectState) *models.EditRecord {
	// 游标之后的 redo 分支作废
	if p.UndoCursor < len(p.History) {
		p.History = p.History[:p.UndoCursor]
	}
	rec := models.EditRecord{
		ID:         uuid.NewString(),
		Op:         op.Op,
		SceneIndex: op.SceneIndex,
		Timestamp:  time.Now().UTC(),
		Params:     op.Params,
		Before:     before,
		After:      p.CaptureState(),
	}
	p.History = append(p.History, rec)
	p.UndoCursor = len(p.History)
	// 历史上限：驱逐最旧条目并同步下移游标
	if overflow := len(p.History) - e.opts.MaxUndoSteps; overflow > 0 {
		p.History = append([]models.EditRecord(nil), p.History[overflow:]...)
		p.UndoCursor -= overflow
		if p.UndoCursor < 0 {
			p.UndoCursor = 0
		}
	}
	return &p.History[len(p.History)-1]
}

func (e *Editor) dispatch(p *models.Project, op models.EditOp) error {
	switch op.Op {
	case models.OpAddScene:
		return e.addScene(p, op.Params.AddScene)
	case models.OpTrimStart:
		return e.trimStart(p, op.SceneIndex, op.Params.Trim)
	case models.OpTrimEnd:
		return e.trimEnd(p, op.SceneIndex, op.Params.Trim)
	case models.OpSplit:
		return e.split(p, op.SceneIndex, op.Params.Split)
	case models.OpMergeNext:
		return e.mergeNext(p, op.SceneIndex)
	case models.OpDuplicate:
		return e.duplicate(p, op.SceneIndex)
	case models.OpDelete:
		return e.deleteScene(p, op.SceneIndex)
	case models.OpSwap:
		return e.swap(p, op.SceneIndex, op.Params.Swap)
	case models.OpSetTransition:
		return e.setTransition(p, op.SceneIndex, op.Params.Transition)
	case models.OpSetCamera:
		return e.setCamera(p, op.SceneIndex, op.Params.Camera)
	case models.OpSetKenBurns:
		return e.setKenBurns(p, op.SceneIndex, op.Params.KenBurns)
	case models.OpSetSpeed:
		return e.setSpeed(p, op.SceneIndex, op.Params.Speed)
	case models.OpSetReverse:
		return e.setReverse(p, op.SceneIndex, op.Params.Reverse)
	case models.OpRegenerate:
		return e.regenerate(p, op.SceneIndex, op.Params.Regenerate)
	case models.OpStyleTransfer:
		return e.styleTransfer(p, op.SceneIndex, op.Params.Style)
	case models.OpLock:
		return e.setLocked(p, op.SceneIndex, true)
	case models.OpUnlock:
		return e.setLocked(p, op.SceneIndex, false)
	case models.OpColorGrade:
		return e.colorGrade(p, op.SceneIndex, op.Params.Grade)
	case models.OpBrightness, models.OpContrast, models.OpSaturation,
		models.OpVignette, models.OpFilmGrain:
		return e.colorAdjust(p, op.SceneIndex, op.Op, op.Params.ColorValue)
	case models.OpGlobalColor:
		return e.globalColor(p, op.Params.Grade)
	case models.OpAddNarration:
		return e.addNarration(p, op.SceneIndex, op.Params.Narration)
	case models.OpAddAudioClip:
		return e.addAudioClip(p, op.SceneIndex, op.Params.AudioClip)
	case models.OpAddTextOverlay:
		return e.addTextOverlay(p, op.SceneIndex, op.Params.TextOverlay)
	case models.OpAddChapter:
		return e.addChapter(p, op.Params.Chapter)
	default:
		return fmt.Errorf("unknown op %q: %w", op.Op, models.ErrInvalidRange)
	}
}

func (e *Editor) scene(p *models.Project, index int) (*models.Scene, error) {
	s, err := p.SceneByIndex(index)
	if err != nil {
		return nil, fmt.Errorf("scene %d: %w", index, models.ErrNotFound)
	}
	return s, nil
}

func mustUnlocked(s *models.Scene) error {
	if s.Locked {
		return fmt.Errorf("scene %d: %w", s.Index, models.ErrLockedResource)
	}
	return nil
}

// ============================================================================
// 编辑类操作
// ============================================================================

func (e *Editor) addScene(p *models.Project, params *models.AddSceneParams) error {
	if params == nil {
		return fmt.Errorf("missing add_scene params: %w", models.ErrInvalidRange)
	}
	duration := params.Duration
	if duration <= 0 {
		duration = e.opts.DefaultDuration
	}
	if duration < e.opts.MinSceneContent {
		return fmt.Errorf("scene duration %.2f below minimum: %w", duration, models.ErrInvalidRange)
	}
	scene := models.NewScene(len(p.Scenes)+1, params.Prompt, params.Style, duration)
	if pos := params.Position; pos >= 1 && pos <= len(p.Scenes) {
		p.Scenes = append(p.Scenes, nil)
		copy(p.Scenes[pos:], p.Scenes[pos-1:])
		p.Scenes[pos-1] = scene
	} else {
		p.Scenes = append(p.Scenes, scene)
	}
	return nil
}

func (e *Editor) trimStart(p *models.Project, index int, params *models.TrimParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.Seconds < 0 {
		return fmt.Errorf("trim seconds must be >= 0: %w", models.ErrInvalidRange)
	}
	// 剪裁量夹取，至少保留 MinSceneContent 的内容
	limit := s.RawDuration - s.TrimEnd - e.opts.MinSceneContent
	if limit < 0 {
		limit = 0
	}
	trim := params.Seconds
	if trim > limit {
		trim = limit
	}
	s.TrimStart = trim
	s.EditCount++
	return nil
}

func (e *Editor) trimEnd(p *models.Project, index int, params *models.TrimParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.Seconds < 0 {
		return fmt.Errorf("trim seconds must be >= 0: %w", models.ErrInvalidRange)
	}
	limit := s.RawDuration - s.TrimStart - e.opts.MinSceneContent
	if limit < 0 {
		limit = 0
	}
	trim := params.Seconds
	if trim > limit {
		trim = limit
	}
	s.TrimEnd = trim
	s.EditCount++
	return nil
}

// split 在有效时间轴 at 处一分为二，两段有效时长之和等于原值
func (e *Editor) split(p *models.Project, index int, params *models.SplitParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil {
		return fmt.Errorf("missing split params: %w", models.ErrInvalidRange)
	}
	eff := s.EffectiveDuration()
	at := params.AtTime
	if at <= 0 || at >= eff {
		return fmt.Errorf("split point %.2f outside (0, %.2f): %w", at, eff, models.ErrInvalidRange)
	}

	// 有效时间 -> 原始素材内的偏移
	speed := s.Motion.Speed
	if speed <= 0 {
		speed = 1.0
	}
	rawOffset := at * speed

	second := s.Clone()
	second.ID = uuid.NewString()
	second.Prompt = s.Prompt + " (continued)"
	second.RawDuration = s.RawDuration - s.TrimStart - rawOffset
	second.TrimStart = 0
	second.TrimEnd = s.TrimEnd
	second.TransitionIn = models.DefaultTransition()
	second.TransitionOut = s.TransitionOut
	second.Status = models.SceneStatusPending
	second.PreviewRef = ""
	second.ErrorMessage = ""
	second.EditCount = 0

	s.RawDuration = s.TrimStart + rawOffset
	s.TrimEnd = 0
	// 两段之间不插转场，保证项目总时长不变
	s.TransitionOut = models.DefaultTransition()
	s.EditCount++

	pos := index // second 紧随其后
	p.Scenes = append(p.Scenes, nil)
	copy(p.Scenes[pos+1:], p.Scenes[pos:])
	p.Scenes[pos] = second
	return nil
}

// mergeNext 与下一个场景合并，合并后的有效时长等于两段之和
func (e *Editor) mergeNext(p *models.Project, index int) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if index >= len(p.Scenes) {
		return fmt.Errorf("no following scene to merge: %w", models.ErrInvalidRange)
	}
	next := p.Scenes[index]
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if err := mustUnlocked(next); err != nil {
		return err
	}
	speed := s.Motion.Speed
	if speed <= 0 {
		speed = 1.0
	}
	merged := s.EffectiveDuration() + next.EffectiveDuration()
	s.RawDuration = merged * speed
	s.TrimStart = 0
	s.TrimEnd = 0
	s.TransitionOut = next.TransitionOut
	s.EditCount++
	p.Scenes = append(p.Scenes[:index], p.Scenes[index+1:]...)
	return nil
}

func (e *Editor) duplicate(p *models.Project, index int) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	dup := s.Clone()
	dup.ID = uuid.NewString()
	dup.Locked = false
	pos := index
	p.Scenes = append(p.Scenes, nil)
	copy(p.Scenes[pos+1:], p.Scenes[pos:])
	p.Scenes[pos] = dup
	return nil
}

func (e *Editor) deleteScene(p *models.Project, index int) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	p.Scenes = append(p.Scenes[:index-1], p.Scenes[index:]...)
	return nil
}

func (e *Editor) swap(p *models.Project, index int, params *models.SwapParams) error {
	if params == nil {
		return fmt.Errorf("missing swap params: %w", models.ErrInvalidRange)
	}
	a, err := e.scene(p, index)
	if err != nil {
		return err
	}
	b, err := e.scene(p, params.OtherIndex)
	if err != nil {
		return err
	}
	if err := mustUnlocked(a); err != nil {
		return err
	}
	if err := mustUnlocked(b); err != nil {
		return err
	}
	p.Scenes[index-1], p.Scenes[params.OtherIndex-1] = p.Scenes[params.OtherIndex-1], p.Scenes[index-1]
	return nil
}

// setTransition 写对称转场：本场景的 transition_out 与下一场景的 transition_in
func (e *Editor) setTransition(p *models.Project, index int, params *models.TransitionParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil || params.Duration < 0 {
		return fmt.Errorf("transition duration must be >= 0: %w", models.ErrInvalidRange)
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	t := models.TransitionSettings{Type: params.Type, Duration: params.Duration}
	if t.Type == "" {
		t.Type = models.TransitionCut
	}
	if t.Type != models.TransitionCut && t.Duration == 0 {
		t.Duration = e.opts.DefaultTransition
	}
	if index < len(p.Scenes) {
		next := p.Scenes[index]
		if err := mustUnlocked(next); err != nil {
			return err
		}
		next.TransitionIn = t
	}
	s.TransitionOut = t
	s.EditCount++
	return nil
}

// ============================================================================
// 运动类操作
// ============================================================================

func (e *Editor) setCamera(p *models.Project, index int, params *models.CameraParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.Movement == "" {
		return fmt.Errorf("missing camera params: %w", models.ErrInvalidRange)
	}
	s.Motion.CameraMove = params.Movement
	s.Motion.CameraIntensity = clamp(params.Intensity, 0, 100)
	s.EditCount++
	return nil
}

func (e *Editor) setKenBurns(p *models.Project, index int, params *models.KenBurnsParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.StartZoom <= 0 || params.EndZoom <= 0 {
		return fmt.Errorf("ken burns zoom must be > 0: %w", models.ErrInvalidRange)
	}
	s.Motion.KenBurnsEnabled = true
	s.Motion.KenBurnsStart = params.StartZoom
	s.Motion.KenBurnsEnd = params.EndZoom
	s.EditCount++
	return nil
}

func (e *Editor) setSpeed(p *models.Project, index int, params *models.SpeedParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.Speed < models.MinSpeed || params.Speed > models.MaxSpeed {
		return fmt.Errorf("speed outside [%.1f, %.1f]: %w",
			models.MinSpeed, models.MaxSpeed, models.ErrInvalidRange)
	}
	s.Motion.Speed = params.Speed
	s.EditCount++
	return nil
}

func (e *Editor) setReverse(p *models.Project, index int, params *models.ReverseParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil {
		return fmt.Errorf("missing reverse params: %w", models.ErrInvalidRange)
	}
	s.Motion.Reverse = params.Reverse
	s.EditCount++
	return nil
}

// ============================================================================
// 生成类操作
// ============================================================================

func (e *Editor) regenerate(p *models.Project, index int, params *models.RegenerateParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params != nil && params.Prompt != "" {
		s.Prompt = params.Prompt
	}
	s.Status = models.SceneStatusPending
	s.ErrorMessage = ""
	s.EditCount++
	return nil
}

func (e *Editor) styleTransfer(p *models.Project, index int, params *models.StyleParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if err := mustUnlocked(s); err != nil {
		return err
	}
	if params == nil || params.Style == "" {
		return fmt.Errorf("missing style params: %w", models.ErrInvalidRange)
	}
	s.Style = params.Style
	s.Status = models.SceneStatusPending
	s.EditCount++
	return nil
}

func (e *Editor) setLocked(p *models.Project, index int, locked bool) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	s.Locked = locked
	return nil
}

// ============================================================================
// 调色类操作：数值统一夹取到文档化范围，不检查锁（非破坏性）
// ============================================================================

func (e *Editor) colorGrade(p *models.Project, index int, params *models.GradeParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil || params.Preset == "" {
		return fmt.Errorf("missing grade params: %w", models.ErrInvalidRange)
	}
	s.Color.Preset = params.Preset
	return nil
}

func (e *Editor) colorAdjust(p *models.Project, index int, op string, params *models.ColorValueParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil {
		return fmt.Errorf("missing color value: %w", models.ErrInvalidRange)
	}
	switch op {
	case models.OpBrightness:
		s.Color.Brightness = clamp(params.Value, -100, 100)
	case models.OpContrast:
		s.Color.Contrast = clamp(params.Value, -100, 100)
	case models.OpSaturation:
		s.Color.Saturation = clamp(params.Value, -100, 100)
	case models.OpVignette:
		s.Color.Vignette = clamp(params.Value, 0, 100)
	case models.OpFilmGrain:
		s.Color.Grain = clamp(params.Value, 0, 100)
	}
	return nil
}

func (e *Editor) globalColor(p *models.Project, params *models.GradeParams) error {
	if params == nil || params.Preset == "" {
		return fmt.Errorf("missing grade params: %w", models.ErrInvalidRange)
	}
	if params.Preset == models.GradeNone {
		p.GlobalColor = nil
		return nil
	}
	p.GlobalColor = &models.ColorSettings{Preset: params.Preset}
	return nil
}

// ============================================================================
// 挂载类操作：不影响时间轴，不进历史
// ============================================================================

func (e *Editor) addNarration(p *models.Project, index int, params *models.NarrationParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil || params.Text == "" {
		return fmt.Errorf("missing narration text: %w", models.ErrInvalidRange)
	}
	s.NarrationText = params.Text
	return nil
}

func (e *Editor) addAudioClip(p *models.Project, index int, params *models.AudioClipParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil || params.MediaRef == "" {
		return fmt.Errorf("missing audio clip params: %w", models.ErrInvalidRange)
	}
	volume := params.Volume
	if volume <= 0 {
		volume = 1.0
	}
	trackType := params.TrackType
	if trackType == "" {
		trackType = models.TrackSFX
	}
	s.AudioClips = append(s.AudioClips, models.AudioClip{
		ID:        uuid.NewString(),
		MediaRef:  params.MediaRef,
		TrackType: trackType,
		Duration:  s.EffectiveDuration(),
		Volume:    volume,
	})
	return nil
}

func (e *Editor) addTextOverlay(p *models.Project, index int, params *models.TextOverlayParams) error {
	s, err := e.scene(p, index)
	if err != nil {
		return err
	}
	if params == nil || params.Text == "" {
		return fmt.Errorf("missing overlay text: %w", models.ErrInvalidRange)
	}
	overlay := models.TextOverlay{
		ID:       uuid.NewString(),
		Text:     params.Text,
		X:        params.X,
		Y:        params.Y,
		FontSize: params.FontSize,
		Color:    "#FFFFFF",
	}
	if overlay.X == 0 && overlay.Y == 0 {
		overlay.X, overlay.Y = 0.5, 0.9
	}
	if overlay.FontSize == 0 {
		overlay.FontSize = 48
	}
	s.TextOverlays = append(s.TextOverlays, overlay)
	return nil
}

func (e *Editor) addChapter(p *models.Project, params *models.ChapterParams) error {
	if params == nil || params.Time < 0 {
		return fmt.Errorf("chapter time must be >= 0: %w", models.ErrInvalidRange)
	}
	p.Markers = append(p.Markers, models.Marker{
		ID:    uuid.NewString(),
		Time:  params.Time,
		Label: params.Label,
		Kind:  "chapter",
	})
	p.SortMarkers()
	return nil
}

// ============================================================================
// 生命周期（不进历史）
// ============================================================================

// ApproveScene ready -> approved
func (e *Editor) ApproveScene(projectID string, index int) (*models.Scene, error) {
	var out *models.Scene
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		s, err := e.scene(p, index)
		if err != nil {
			return err
		}
		if s.Status == models.SceneStatusApproved {
			out = s.Clone()
			return nil
		}
		if s.Status != models.SceneStatusReady {
			return fmt.Errorf("scene %d status %s, only ready scenes can be approved: %w",
				index, s.Status, models.ErrInvalidRange)
		}
		s.Status = models.SceneStatusApproved
		out = s.Clone()
		return e.store.Persist(p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RejectScene 打回场景：回到 pending，等待重新生成预览
func (e *Editor) RejectScene(projectID string, index int) (*models.Scene, error) {
	var out *models.Scene
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		s, err := e.scene(p, index)
		if err != nil {
			return err
		}
		if err := mustUnlocked(s); err != nil {
			return err
		}
		s.Status = models.SceneStatusPending
		s.ErrorMessage = ""
		out = s.Clone()
		return e.store.Persist(p)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveAll 把所有 ready 场景批准
func (e *Editor) ApproveAll(projectID string) (int, error) {
	count := 0
	err := e.store.WithProjectLock(projectID, func() error {
		p, err := e.store.GetProject(projectID)
		if err != nil {
			return err
		}
		for _, s := range p.Scenes {
			if s.Status == models.SceneStatusReady {
				s.Status = models.SceneStatusApproved
				count++
			}
		}
		return e.store.Persist(p)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
