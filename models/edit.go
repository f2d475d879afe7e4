package models

import "time"

// 编辑操作的封闭集合。每个操作有且只有一种强类型参数载荷，
// 统一经由编辑器的 Apply 入口分发。
const (
	OpAddScene      = "add_scene"
	OpTrimStart     = "trim_start"
	OpTrimEnd       = "trim_end"
	OpSplit         = "split"
	OpMergeNext     = "merge_next"
	OpDuplicate     = "duplicate"
	OpDelete        = "delete"
	OpSwap          = "swap"
	OpSetTransition = "set_transition"
	OpSetCamera     = "set_camera"
	OpSetKenBurns   = "set_ken_burns"
	OpSetSpeed      = "set_speed"
	OpSetReverse    = "set_reverse"
	OpRegenerate    = "regenerate"
	OpStyleTransfer = "style_transfer"
	OpLock          = "lock"
	OpUnlock        = "unlock"

	// 以下操作不进入编辑历史（不可撤销）
	OpColorGrade     = "color_grade"
	OpBrightness     = "brightness"
	OpContrast       = "contrast"
	OpSaturation     = "saturation"
	OpVignette       = "vignette"
	OpFilmGrain      = "film_grain"
	OpGlobalColor    = "global_color"
	OpAddNarration   = "add_narration"
	OpAddAudioClip   = "add_audio_clip"
	OpAddTextOverlay = "add_text_overlay"
	OpAddChapter     = "add_chapter"
)

type AddSceneParams struct {
	Prompt   string  `json:"prompt"`
	Style    string  `json:"style"`
	Duration float64 `json:"duration"`
	Position int     `json:"position"` // 0 表示追加到末尾，否则插入到该下标处
}

type TrimParams struct {
	Seconds float64 `json:"seconds"`
}

type SplitParams struct {
	AtTime float64 `json:"atTime"` // 相对场景有效时长
}

type SwapParams struct {
	OtherIndex int `json:"otherIndex"`
}

type TransitionParams struct {
	Type     string  `json:"type"`
	Duration float64 `json:"duration"`
}

type CameraParams struct {
	Movement  string  `json:"movement"`
	Intensity float64 `json:"intensity"`
}

type KenBurnsParams struct {
	StartZoom float64 `json:"startZoom"`
	EndZoom   float64 `json:"endZoom"`
}

type SpeedParams struct {
	Speed float64 `json:"speed"`
}

type ReverseParams struct {
	Reverse bool `json:"reverse"`
}

type RegenerateParams struct {
	Prompt string `json:"prompt,omitempty"` // 为空时沿用原 prompt
}

type StyleParams struct {
	Style string `json:"style"`
}

type ColorValueParams struct {
	Value float64 `json:"value"`
}

type GradeParams struct {
	Preset string `json:"preset"`
}

type NarrationParams struct {
	Text string `json:"text"`
}

type AudioClipParams struct {
	MediaRef  string  `json:"mediaRef"`
	TrackType string  `json:"trackType"`
	Volume    float64 `json:"volume"`
}

type TextOverlayParams struct {
	Text     string  `json:"text"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize int     `json:"fontSize"`
}

type ChapterParams struct {
	Time  float64 `json:"time"`
	Label string  `json:"label"`
}

// EditParams 操作参数载荷，同一时刻只有与 Op 对应的一个子结构非 nil
type EditParams struct {
	AddScene    *AddSceneParams    `json:"add_scene,omitempty"`
	Trim        *TrimParams        `json:"trim,omitempty"`
	Split       *SplitParams       `json:"split,omitempty"`
	Swap        *SwapParams        `json:"swap,omitempty"`
	Transition  *TransitionParams  `json:"transition,omitempty"`
	Camera      *CameraParams      `json:"camera,omitempty"`
	KenBurns    *KenBurnsParams    `json:"ken_burns,omitempty"`
	Speed       *SpeedParams       `json:"speed,omitempty"`
	Reverse     *ReverseParams     `json:"reverse,omitempty"`
	Regenerate  *RegenerateParams  `json:"regenerate,omitempty"`
	Style       *StyleParams       `json:"style,omitempty"`
	ColorValue  *ColorValueParams  `json:"color_value,omitempty"`
	Grade       *GradeParams       `json:"grade,omitempty"`
	Narration   *NarrationParams   `json:"narration,omitempty"`
	AudioClip   *AudioClipParams   `json:"audio_clip,omitempty"`
	TextOverlay *TextOverlayParams `json:"text_overlay,omitempty"`
	Chapter     *ChapterParams     `json:"chapter,omitempty"`
}

// EditOp 单次编辑请求
type EditOp struct {
	Op         string     `json:"op"`
	SceneIndex int        `json:"sceneIndex"`
	Params     EditParams `json:"params"`
}

// ProjectState 项目内容快照。只包含可被编辑操作改写的状态，
// 不含历史记录本身，因此可以安全嵌入 EditRecord。
type ProjectState struct {
	Scenes      []*Scene       `json:"scenes"`
	AudioTracks []AudioTrack   `json:"audioTracks"`
	Markers     []Marker       `json:"markers"`
	GlobalColor *ColorSettings `json:"globalColor,omitempty"`
}

// CaptureState 对当前项目内容做不可变快照
func (p *Project) CaptureState() ProjectState {
	st := ProjectState{Scenes: cloneScenes(p.Scenes)}
	if p.AudioTracks != nil {
		st.AudioTracks = make([]AudioTrack, len(p.AudioTracks))
		copy(st.AudioTracks, p.AudioTracks)
	}
	if p.Markers != nil {
		st.Markers = make([]Marker, len(p.Markers))
		copy(st.Markers, p.Markers)
	}
	if p.GlobalColor != nil {
		gc := *p.GlobalColor
		st.GlobalColor = &gc
	}
	return st
}

// RestoreState 把项目内容恢复到快照。快照自身保持不可变，
// 恢复时再拷贝一次，避免后续编辑污染历史。
func (p *Project) RestoreState(st ProjectState) {
	p.Scenes = cloneScenes(st.Scenes)
	p.AudioTracks = nil
	if st.AudioTracks != nil {
		p.AudioTracks = make([]AudioTrack, len(st.AudioTracks))
		copy(p.AudioTracks, st.AudioTracks)
	}
	p.Markers = nil
	if st.Markers != nil {
		p.Markers = make([]Marker, len(st.Markers))
		copy(p.Markers, st.Markers)
	}
	p.GlobalColor = nil
	if st.GlobalColor != nil {
		gc := *st.GlobalColor
		p.GlobalColor = &gc
	}
	p.UpdatedAt = time.Now().UTC()
}

// EditRecord 一条编辑历史。Before/After 为完整内容快照，
// 撤销/重做直接恢复快照而不是回放参数。
type EditRecord struct {
	ID         string       `json:"id"`
	Op         string       `json:"op"`
	SceneIndex int          `json:"sceneIndex"`
	Timestamp  time.Time    `json:"timestamp"`
	Params     EditParams   `json:"params"`
	Before     ProjectState `json:"before"`
	After      ProjectState `json:"after"`
}
