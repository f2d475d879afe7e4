package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"TimelineStudio-server/config"
	"TimelineStudio-server/logger"
	"TimelineStudio-server/models"

	"github.com/hibiken/asynq"
)

// Processor 消费队列任务：场景预览生成与成片渲染
type Processor struct {
	store *models.Store
	tasks *models.TaskRegistry
	gen   *WorkerClient
	comp  *WorkerClient
	log   *logger.Logger
}

func NewProcessor(store *models.Store, tasks *models.TaskRegistry, log *logger.Logger) *Processor {
	retries := config.AppConfig.Editor.ExternalMaxRetries
	return &Processor{
		store: store,
		tasks: tasks,
		gen:   NewWorkerClient(config.AppConfig.Worker.Addr, retries, log),
		comp:  NewWorkerClient(config.AppConfig.Compositor.Addr, retries, log),
		log:   log.With("component", "processor"),
	}
}

// StartProcessor 启动任务消费者
func (p *Processor) StartProcessor(concurrency int) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     config.AppConfig.Redis.Addr,
			Password: config.AppConfig.Redis.Password,
		},
		asynq.Config{
			Concurrency: concurrency,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeScenePreview, p.HandleScenePreview)
	mux.HandleFunc(TypeProjectRender, p.HandleProjectRender)

	p.log.Info("启动任务处理器", "concurrency", concurrency)
	go func() {
		if err := srv.Run(mux); err != nil {
			p.log.Fatal("任务处理器启动失败", "err", err)
		}
	}()
}

// HandleScenePreview 单场景预览：提交生成、轮询、素材转存、写回场景
func (p *Processor) HandleScenePreview(ctx context.Context, t *asynq.Task) error {
	var payload PreviewPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	p.tasks.Update(payload.TaskID, models.TaskStatusProcessing, 0, "", "", "")

	// 取项目快照并把场景置为生成中。凭稳定标识定位，
	// 入队后场景下标可能已被结构性编辑改写
	var project *models.Project
	var scene *models.Scene
	err := p.store.WithProjectLock(payload.ProjectID, func() error {
		proj, err := p.store.GetProject(payload.ProjectID)
		if err != nil {
			return err
		}
		s, err := proj.SceneByID(payload.SceneID)
		if err != nil {
			return err
		}
		s.Status = models.SceneStatusGenerating
		s.ErrorMessage = ""
		if err := p.store.Persist(proj); err != nil {
			return err
		}
		project = proj.Clone()
		scene = s.Clone()
		return nil
	})
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return fmt.Errorf("scene not available: %v: %w", err, asynq.SkipRetry)
	}

	resourceURL, err := p.gen.GeneratePreview(ctx, project, scene, func(progress int) {
		p.tasks.Update(payload.TaskID, models.TaskStatusProcessing, progress, "", "", "")
	})
	if err == nil {
		objectName := fmt.Sprintf("projects/%s/scenes/%s/preview.mp4", payload.ProjectID, payload.SceneID)
		resourceURL, err = downloadAndUploadToMinIO(resourceURL, objectName)
	}

	// 写回结果。生成期间场景可能被删除，此时丢弃结果只记录任务态，
	// 绝不写到占了原下标的其他场景上。
	finalErr := err
	writeErr := p.store.WithProjectLock(payload.ProjectID, func() error {
		proj, err := p.store.GetProject(payload.ProjectID)
		if err != nil {
			return err
		}
		s, err := proj.SceneByID(payload.SceneID)
		if err != nil {
			return err
		}
		if finalErr != nil {
			s.Status = models.SceneStatusError
			s.ErrorMessage = finalErr.Error()
		} else {
			s.Status = models.SceneStatusReady
			s.PreviewRef = resourceURL
			s.ErrorMessage = ""
		}
		return p.store.Persist(proj)
	})
	if writeErr != nil {
		p.log.Warn("预览结果写回失败", "project_id", payload.ProjectID,
			"scene_id", payload.SceneID, "err", writeErr)
	}

	if finalErr != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", finalErr.Error())
		if errors.Is(finalErr, models.ErrExternalService) {
			return finalErr // 触发 asynq 重试
		}
		return nil
	}
	p.tasks.Update(payload.TaskID, models.TaskStatusSuccess, 100, "", resourceURL, "")
	p.log.Info("预览生成完成", "project_id", payload.ProjectID, "scene_id", payload.SceneID)
	return nil
}

// HandleProjectRender 成片渲染：校验快照指纹、编译合成图、上传、交给合成服务
func (p *Processor) HandleProjectRender(ctx context.Context, t *asynq.Task) error {
	var payload RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	p.tasks.Update(payload.TaskID, models.TaskStatusProcessing, 0, "", "", "")

	// 指纹校验与快照获取必须在同一把锁内完成
	var snapshot *models.Project
	err := p.store.WithProjectLock(payload.ProjectID, func() error {
		proj, err := p.store.GetProject(payload.ProjectID)
		if err != nil {
			return err
		}
		if proj.ApprovalFingerprint() != payload.Fingerprint {
			return fmt.Errorf("project %s changed since render requested: %w",
				payload.ProjectID, models.ErrStaleSnapshot)
		}
		snapshot = proj.Clone()
		return nil
	})
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return nil // 过期快照或项目不存在，不重试
	}

	graph, err := Compile(snapshot)
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return nil
	}

	graphJSON, err := json.Marshal(graph)
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return nil
	}
	graphURL, err := UploadJSON(graphJSON, fmt.Sprintf("renders/%s/%s/graph.json", payload.ProjectID, payload.TaskID))
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return err // 存储故障，交给 asynq 重试
	}

	videoURL, err := p.comp.ComposeVideo(ctx, graphURL, func(progress int) {
		p.tasks.Update(payload.TaskID, models.TaskStatusProcessing, progress, "", "", "")
	})
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		if errors.Is(err, models.ErrExternalService) {
			return err
		}
		return nil
	}

	objectName := fmt.Sprintf("renders/%s/%s/output.mp4", payload.ProjectID, payload.TaskID)
	finalURL, err := downloadAndUploadToMinIO(videoURL, objectName)
	if err != nil {
		p.tasks.Update(payload.TaskID, models.TaskStatusFailed, -1, "", "", err.Error())
		return err
	}

	p.tasks.Update(payload.TaskID, models.TaskStatusSuccess, 100, "", finalURL, "")
	p.log.Info("渲染完成", "project_id", payload.ProjectID, "url", objectName)
	return nil
}
