package service

import (
	"fmt"
	"sort"

	"TimelineStudio-server/models"
)

// CompositionGraph 渲染合成图。编译器的唯一输出，交给合成服务执行。
// 同一份项目快照编译两次必须得到相同的图。
type CompositionGraph struct {
	ProjectID   string                `json:"project_id"`
	Resolution  models.Resolution     `json:"resolution"`
	FPS         int                   `json:"fps"`
	Duration    float64               `json:"duration"`
	Clips       []ClipNode            `json:"clips"`
	Transitions []TransitionNode      `json:"transitions"`
	GlobalColor *models.ColorSettings `json:"global_color,omitempty"`
	Audio       AudioGraph            `json:"audio"`
	Summary     GraphSummary          `json:"summary"`
}

// ClipNode 时间轴上的一段视觉素材及其处理阶段
type ClipNode struct {
	SceneIndex int     `json:"scene_index"`
	MediaRef   string  `json:"media_ref"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	SourceIn   float64 `json:"source_in"`
	SourceOut  float64 `json:"source_out"`
	Speed      float64 `json:"speed"`
	Reverse    bool    `json:"reverse"`
	Stages     []Stage `json:"stages"`
}

// Stage 单个处理阶段，参数随 Kind 变化
type Stage struct {
	Kind   string                 `json:"kind"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// TransitionNode 两段素材的重叠转场
type TransitionNode struct {
	FromScene int     `json:"from_scene"`
	ToScene   int     `json:"to_scene"`
	Type      string  `json:"type"`
	Offset    float64 `json:"offset"`
	Duration  float64 `json:"duration"`
}

// AudioGraph 旁白顺排 + 音乐铺底 + 片段定点。
// Mode 为混音方式：layer 加权叠加，ducking 旁白期间压低音乐。
type AudioGraph struct {
	Mode      string      `json:"mode"`
	Narration []AudioNode `json:"narration"`
	Music     []AudioNode `json:"music"`
	Clips     []AudioNode `json:"clips"`
}

type AudioNode struct {
	SceneIndex int     `json:"scene_index,omitempty"`
	MediaRef   string  `json:"media_ref,omitempty"`
	Text       string  `json:"text,omitempty"`
	TrackType  string  `json:"track_type,omitempty"`
	Start      float64 `json:"start"`
	Duration   float64 `json:"duration"`
	Volume     float64 `json:"volume"`
}

type GraphSummary struct {
	SceneCount      int `json:"scene_count"`
	TransitionCount int `json:"transition_count"`
	OverlayCount    int `json:"overlay_count"`
	AudioClipCount  int `json:"audio_clip_count"`
	MarkerCount     int `json:"marker_count"`
}

// Compile 把已批准的项目快照编译为合成图。纯函数，不触碰存储。
func Compile(p *models.Project) (*CompositionGraph, error) {
	p = p.Clone()
	p.Reindex()
	p.RecalculateTimings()

	if unapproved := p.UnapprovedIndices(); len(unapproved) > 0 {
		return nil, &models.UnapprovedScenesError{Indices: unapproved}
	}
	for _, s := range p.Scenes {
		if s.PreviewRef == "" {
			return nil, fmt.Errorf("scene %d has no rendered media: %w", s.Index, models.ErrMissingMedia)
		}
	}

	graph := &CompositionGraph{
		ProjectID:  p.ID,
		Resolution: p.Resolution,
		FPS:        p.FPS,
		Duration:   p.TotalDuration(),
		Audio:      buildAudio(p),
	}
	if p.GlobalColor != nil {
		gc := *p.GlobalColor
		graph.GlobalColor = &gc
	}

	for _, s := range p.Scenes {
		graph.Clips = append(graph.Clips, buildClip(p, s))
	}
	for i := 0; i < len(p.Scenes)-1; i++ {
		s := p.Scenes[i]
		if s.TransitionOut.IsCut() {
			continue
		}
		// 重叠窗口与时间轴重算共用同一套夹取规则，
		// 转场比相邻场景还长时收缩到可用区间
		overlap := p.TransitionOverlap(i)
		if overlap <= 0 {
			continue
		}
		graph.Transitions = append(graph.Transitions, TransitionNode{
			FromScene: s.Index,
			ToScene:   p.Scenes[i+1].Index,
			Type:      s.TransitionOut.Type,
			Offset:    s.EndTime - overlap,
			Duration:  overlap,
		})
	}

	graph.Summary = summarize(p, graph)
	return graph, nil
}

func buildClip(p *models.Project, s *models.Scene) ClipNode {
	clip := ClipNode{
		SceneIndex: s.Index,
		MediaRef:   s.PreviewRef,
		Start:      s.StartTime,
		End:        s.EndTime,
		SourceIn:   s.TrimStart,
		SourceOut:  s.RawDuration - s.TrimEnd,
		Speed:      s.Motion.Speed,
		Reverse:    s.Motion.Reverse,
	}

	// 统一缩放到项目分辨率，比例不符时加黑边
	clip.Stages = append(clip.Stages, Stage{
		Kind: "scale_fit",
		Params: map[string]interface{}{
			"width":  p.Resolution.Width,
			"height": p.Resolution.Height,
			"pad":    true,
		},
	})

	if s.Motion.CameraMove != models.CameraStatic && s.Motion.CameraMove != "" {
		dx, dy, zoom := cameraVector(s.Motion.CameraMove, s.Motion.CameraIntensity)
		clip.Stages = append(clip.Stages, Stage{
			Kind: "camera_move",
			Params: map[string]interface{}{
				"movement":  s.Motion.CameraMove,
				"intensity": s.Motion.CameraIntensity,
				"pan_x":     dx,
				"pan_y":     dy,
				"zoom":      zoom,
			},
		})
	}

	if s.Motion.KenBurnsEnabled {
		clip.Stages = append(clip.Stages, Stage{
			Kind: "ken_burns",
			Params: map[string]interface{}{
				"start_zoom": s.Motion.KenBurnsStart,
				"end_zoom":   s.Motion.KenBurnsEnd,
			},
		})
	}

	if hasColorWork(s.Color) {
		clip.Stages = append(clip.Stages, Stage{
			Kind: "color",
			Params: map[string]interface{}{
				"preset":     s.Color.Preset,
				"brightness": s.Color.Brightness,
				"contrast":   s.Color.Contrast,
				"saturation": s.Color.Saturation,
				"vignette":   s.Color.Vignette,
				"grain":      s.Color.Grain,
			},
		})
	}

	for _, ov := range s.TextOverlays {
		clip.Stages = append(clip.Stages, Stage{
			Kind: "text_overlay",
			Params: map[string]interface{}{
				"text":      ov.Text,
				"x":         ov.X,
				"y":         ov.Y,
				"font_size": ov.FontSize,
				"color":     ov.Color,
			},
		})
	}
	return clip
}

// cameraVector 最大平移幅度为画面的 20%，按强度线性缩放
func cameraVector(movement string, intensity float64) (dx, dy, zoom float64) {
	amp := intensity / 100.0 * 0.2
	switch movement {
	case models.CameraPanLeft:
		dx = -amp
	case models.CameraPanRight:
		dx = amp
	case models.CameraTiltUp:
		dy = -amp
	case models.CameraTiltDown:
		dy = amp
	case models.CameraZoomIn, models.CameraDollyIn:
		zoom = amp
	case models.CameraZoomOut, models.CameraDollyOut:
		zoom = -amp
	case models.CameraHandheld:
		dx, dy = amp*0.5, amp*0.5
	}
	return dx, dy, zoom
}

func hasColorWork(c models.ColorSettings) bool {
	if c.Preset != "" && c.Preset != models.GradeNone {
		return true
	}
	return c.Brightness != 0 || c.Contrast != 0 || c.Saturation != 0 ||
		c.Vignette != 0 || c.Grain != 0
}

func buildAudio(p *models.Project) AudioGraph {
	audio := AudioGraph{}
	for _, s := range p.Scenes {
		if s.NarrationText != "" {
			audio.Narration = append(audio.Narration, AudioNode{
				SceneIndex: s.Index,
				Text:       s.NarrationText,
				Start:      s.StartTime,
				Duration:   s.EffectiveDuration(),
				Volume:     1.0,
			})
		}
		for _, c := range s.AudioClips {
			if c.Muted {
				continue
			}
			audio.Clips = append(audio.Clips, AudioNode{
				SceneIndex: s.Index,
				MediaRef:   c.MediaRef,
				TrackType:  c.TrackType,
				Start:      s.StartTime + c.StartTime,
				Duration:   c.Duration,
				Volume:     c.Volume,
			})
		}
	}
	// 项目级音轨铺满整条时间轴
	for _, t := range p.AudioTracks {
		if t.Muted {
			continue
		}
		audio.Music = append(audio.Music, AudioNode{
			MediaRef:  t.MediaRef,
			TrackType: t.TrackType,
			Start:     0,
			Duration:  p.TotalDuration(),
			Volume:    t.Volume,
		})
	}
	// 有旁白时音乐自动闪避
	if len(audio.Narration) > 0 && len(audio.Music) > 0 {
		audio.Mode = "ducking"
	} else {
		audio.Mode = "layer"
	}
	sort.SliceStable(audio.Clips, func(i, j int) bool {
		return audio.Clips[i].Start < audio.Clips[j].Start
	})
	return audio
}

func summarize(p *models.Project, g *CompositionGraph) GraphSummary {
	overlays, clips := 0, 0
	for _, s := range p.Scenes {
		overlays += len(s.TextOverlays)
		clips += len(s.AudioClips)
	}
	return GraphSummary{
		SceneCount:      len(p.Scenes),
		TransitionCount: len(g.Transitions),
		OverlayCount:    overlays,
		AudioClipCount:  clips,
		MarkerCount:     len(p.Markers),
	}
}
