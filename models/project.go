package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// 编辑器模式
const (
	ModeSimple   = "simple"
	ModeAdvanced = "advanced"
)

// Resolution 画布分辨率
type Resolution struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

var (
	ResolutionPreview  = Resolution{Width: 854, Height: 480}
	ResolutionStandard = Resolution{Width: 1920, Height: 1080}
	ResolutionUHD      = Resolution{Width: 3840, Height: 2160}
)

// AudioTrack 项目级音轨（背景音乐/旁白等）
type AudioTrack struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	TrackType string  `json:"trackType"`
	MediaRef  string  `json:"mediaRef"`
	Volume    float64 `json:"volume"`
	Muted     bool    `json:"muted"`
}

// Marker 时间轴标记（章节等），按 Time 升序维护
type Marker struct {
	ID    string  `json:"id"`
	Time  float64 `json:"time"`
	Label string  `json:"label"`
	Kind  string  `json:"kind"`
}

// Project 时间轴项目。Scenes 的 Index 恒为 1..N 且与切片顺序一致。
type Project struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Mode       string     `json:"mode"`
	Resolution Resolution `json:"resolution"`
	FPS        int        `json:"fps"`

	Scenes      []*Scene       `json:"scenes"`
	AudioTracks []AudioTrack   `json:"audioTracks"`
	Markers     []Marker       `json:"markers"`
	GlobalColor *ColorSettings `json:"globalColor,omitempty"`

	History    []EditRecord `json:"history"`
	UndoCursor int          `json:"undoCursor"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SceneByIndex 按 1 起始下标取场景，不存在时返回 ErrNotFound
func (p *Project) SceneByIndex(index int) (*Scene, error) {
	if index < 1 || index > len(p.Scenes) {
		return nil, ErrNotFound
	}
	return p.Scenes[index-1], nil
}

// SceneByID 按稳定标识取场景，下标漂移后依然命中同一个场景
func (p *Project) SceneByID(id string) (*Scene, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	for _, s := range p.Scenes {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, ErrNotFound
}

// Reindex 把场景下标重排为 1..N
func (p *Project) Reindex() {
	for i, s := range p.Scenes {
		s.Index = i + 1
	}
}

// TransitionOverlap 相邻对 (i, i+1) 的转场重叠秒数，
// 不超过转场时长与两侧场景各自的有效时长
func (p *Project) TransitionOverlap(i int) float64 {
	if i < 0 || i+1 >= len(p.Scenes) {
		return 0
	}
	t := p.Scenes[i].TransitionOut
	if t.IsCut() {
		return 0
	}
	d := t.Duration
	d = math.Min(d, p.Scenes[i].EffectiveDuration())
	d = math.Min(d, p.Scenes[i+1].EffectiveDuration())
	return d
}

// RecalculateTimings 重算每个场景在编译时间轴上的起止点。
// 相邻有转场时下一个场景提前 overlap 秒进入。
// 同时按左邻居的出场转场重算每个场景的入场转场，
// 交换/删除之后相邻对依然两侧一致。
func (p *Project) RecalculateTimings() {
	current := 0.0
	for i, s := range p.Scenes {
		if i > 0 {
			s.TransitionIn = p.Scenes[i-1].TransitionOut
		}
		s.StartTime = current
		s.EndTime = current + s.EffectiveDuration()
		if i < len(p.Scenes)-1 {
			current = s.EndTime - p.TransitionOverlap(i)
		} else {
			current = s.EndTime
		}
	}
	p.UpdatedAt = time.Now().UTC()
}

// TotalDuration 项目总时长 = Σ有效时长 − Σ转场重叠
func (p *Project) TotalDuration() float64 {
	if len(p.Scenes) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range p.Scenes {
		total += s.EffectiveDuration()
	}
	for i := 0; i < len(p.Scenes)-1; i++ {
		total -= p.TransitionOverlap(i)
	}
	if total < 0 {
		return 0
	}
	return total
}

// SortMarkers 保持标记按时间升序
func (p *Project) SortMarkers() {
	sort.SliceStable(p.Markers, func(i, j int) bool {
		return p.Markers[i].Time < p.Markers[j].Time
	})
}

// UnapprovedIndices 未进入 approved 状态的场景下标
func (p *Project) UnapprovedIndices() []int {
	var out []int
	for _, s := range p.Scenes {
		if s.Status != SceneStatusApproved {
			out = append(out, s.Index)
		}
	}
	return out
}

// ApprovalFingerprint 渲染快照的乐观并发检查指纹：
// 各场景的 (下标, 状态, 预览引用, 编辑计数) 拼接
func (p *Project) ApprovalFingerprint() string {
	var b strings.Builder
	for _, s := range p.Scenes {
		fmt.Fprintf(&b, "%d:%s:%s:%d|", s.Index, s.Status, s.PreviewRef, s.EditCount)
	}
	return b.String()
}

// Clone 项目深拷贝（历史记录共享底层快照，快照本身不可变）
func (p *Project) Clone() *Project {
	dup := *p
	dup.Scenes = cloneScenes(p.Scenes)
	if p.AudioTracks != nil {
		dup.AudioTracks = make([]AudioTrack, len(p.AudioTracks))
		copy(dup.AudioTracks, p.AudioTracks)
	}
	if p.Markers != nil {
		dup.Markers = make([]Marker, len(p.Markers))
		copy(dup.Markers, p.Markers)
	}
	if p.GlobalColor != nil {
		gc := *p.GlobalColor
		dup.GlobalColor = &gc
	}
	if p.History != nil {
		dup.History = make([]EditRecord, len(p.History))
		copy(dup.History, p.History)
	}
	return &dup
}

func cloneScenes(scenes []*Scene) []*Scene {
	out := make([]*Scene, len(scenes))
	for i, s := range scenes {
		out[i] = s.Clone()
	}
	return out
}
