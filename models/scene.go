package models

import "github.com/google/uuid"

// 场景生命周期状态
const (
	SceneStatusPending    = "pending"
	SceneStatusGenerating = "generating"
	SceneStatusReady      = "ready"
	SceneStatusError      = "error"
	SceneStatusApproved   = "approved"
)

// 转场类型（与合成引擎的 xfade 一一对应）
const (
	TransitionCut       = "cut"
	TransitionDissolve  = "dissolve"
	TransitionFadeBlack = "fade_black"
	TransitionFadeWhite = "fade_white"
	TransitionWipeLeft  = "wipe_left"
	TransitionWipeRight = "wipe_right"
	TransitionZoomIn    = "zoom_in"
	TransitionSlideLeft = "slide_left"
)

// 镜头运动类型
const (
	CameraStatic   = "static"
	CameraPanLeft  = "pan_left"
	CameraPanRight = "pan_right"
	CameraTiltUp   = "tilt_up"
	CameraTiltDown = "tilt_down"
	CameraZoomIn   = "zoom_in"
	CameraZoomOut  = "zoom_out"
	CameraDollyIn  = "dolly_in"
	CameraDollyOut = "dolly_out"
	CameraHandheld = "handheld"
)

// 调色预设
const (
	GradeNone         = "none"
	GradeCinematic    = "cinematic"
	GradeFilmNoir     = "film_noir"
	GradeVintage      = "vintage"
	GradeWarm         = "warm"
	GradeCool         = "cool"
	GradeVibrant      = "vibrant"
	GradeMuted        = "muted"
	GradeOrangeTeal   = "orange_teal"
	GradeHighContrast = "high_contrast"
	GradeBlackWhite   = "black_white"
)

// 音轨类型
const (
	TrackDialogue  = "dialogue"
	TrackMusic     = "music"
	TrackSFX       = "sfx"
	TrackAmbient   = "ambient"
	TrackNarration = "narration"
)

// 播放速度允许区间
const (
	MinSpeed = 0.1
	MaxSpeed = 10.0
)

// ColorSettings 场景调色参数。brightness/contrast/saturation 取值 [-100,100]，
// vignette/grain 取值 [0,100]，写入时由编辑器负责夹取。
type ColorSettings struct {
	Preset     string  `json:"preset"`
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Vignette   float64 `json:"vignette"`
	Grain      float64 `json:"grain"`
}

func DefaultColorSettings() ColorSettings {
	return ColorSettings{Preset: GradeNone}
}

// MotionSettings 镜头运动与播放参数
type MotionSettings struct {
	CameraMove       string  `json:"cameraMove"`
	CameraIntensity  float64 `json:"cameraIntensity"` // [0,100]
	KenBurnsEnabled  bool    `json:"kenBurnsEnabled"`
	KenBurnsStart    float64 `json:"kenBurnsStartZoom"`
	KenBurnsEnd      float64 `json:"kenBurnsEndZoom"`
	Speed            float64 `json:"speed"` // [0.1, 10.0]
	Reverse          bool    `json:"reverse"`
}

func DefaultMotionSettings() MotionSettings {
	return MotionSettings{
		CameraMove:      CameraStatic,
		CameraIntensity: 50,
		KenBurnsStart:   1.0,
		KenBurnsEnd:     1.2,
		Speed:           1.0,
	}
}

// TransitionSettings 转场描述。Duration 为 0 或类型为 cut 时视为硬切。
type TransitionSettings struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

func DefaultTransition() TransitionSettings {
	return TransitionSettings{Type: TransitionCut, Duration: 0}
}

// IsCut 是否不产生重叠
func (t TransitionSettings) IsCut() bool {
	return t.Type == "" || t.Type == TransitionCut || t.Duration <= 0
}

// AudioClip 场景挂载的音频片段
type AudioClip struct {
	ID        string  `json:"id"`
	MediaRef  string  `json:"mediaRef"`
	TrackType string  `json:"trackType"`
	StartTime float64 `json:"startTime"` // 相对场景本地时间轴
	Duration  float64 `json:"duration"`
	Volume    float64 `json:"volume"`
	FadeIn    float64 `json:"fadeIn"`
	FadeOut   float64 `json:"fadeOut"`
	Muted     bool    `json:"muted"`
}

// TextOverlay 场景文字叠加
type TextOverlay struct {
	ID       string  `json:"id"`
	Text     string  `json:"text"`
	X        float64 `json:"x"` // 归一化坐标 [0,1]
	Y        float64 `json:"y"`
	FontSize int     `json:"fontSize"`
	Color    string  `json:"color"`
}

// Scene 时间轴中的一个场景。Index 为 1 起始且与列表顺序一致，
// 任何插入/删除/交换之后由编辑器统一重排。
// ID 在场景整个生命周期内不变，异步任务写回时凭 ID 定位，
// 不受结构性编辑导致的下标漂移影响。
type Scene struct {
	ID     string `json:"id"`
	Index  int    `json:"index"`
	Prompt string `json:"prompt"`
	Style  string `json:"style"`

	RawDuration float64 `json:"rawDuration"`
	TrimStart   float64 `json:"trimStart"`
	TrimEnd     float64 `json:"trimEnd"`

	Motion MotionSettings `json:"motion"`
	Color  ColorSettings  `json:"color"`

	TransitionIn  TransitionSettings `json:"transitionIn"`
	TransitionOut TransitionSettings `json:"transitionOut"`

	Status       string `json:"status"`
	PreviewRef   string `json:"previewRef"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Locked       bool   `json:"locked"`

	NarrationText string        `json:"narrationText,omitempty"`
	AudioClips    []AudioClip   `json:"audioClips,omitempty"`
	TextOverlays  []TextOverlay `json:"textOverlays,omitempty"`

	// 派生字段，RecalculateTimings 维护
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`

	EditCount int `json:"editCount"`
}

// NewScene 按默认参数创建待生成场景
func NewScene(index int, prompt, style string, rawDuration float64) *Scene {
	return &Scene{
		ID:            uuid.NewString(),
		Index:         index,
		Prompt:        prompt,
		Style:         style,
		RawDuration:   rawDuration,
		Motion:        DefaultMotionSettings(),
		Color:         DefaultColorSettings(),
		TransitionIn:  DefaultTransition(),
		TransitionOut: DefaultTransition(),
		Status:        SceneStatusPending,
	}
}

// EffectiveDuration 剪裁与变速之后的可播放时长
func (s *Scene) EffectiveDuration() float64 {
	base := s.RawDuration - s.TrimStart - s.TrimEnd
	if s.Motion.Speed <= 0 {
		return base
	}
	return base / s.Motion.Speed
}

// Clone 深拷贝，子对象互不共享
func (s *Scene) Clone() *Scene {
	dup := *s
	if s.AudioClips != nil {
		dup.AudioClips = make([]AudioClip, len(s.AudioClips))
		copy(dup.AudioClips, s.AudioClips)
	}
	if s.TextOverlays != nil {
		dup.TextOverlays = make([]TextOverlay, len(s.TextOverlays))
		copy(dup.TextOverlays, s.TextOverlays)
	}
	return &dup
}
