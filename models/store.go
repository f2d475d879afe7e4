package models

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"TimelineStudio-server/logger"

	"github.com/google/uuid"
)

// DocRepo 项目文档持久化后端。实现必须保证替换写入的原子性：
// 中途崩溃不能留下半写的文档。
type DocRepo interface {
	Save(id string, doc []byte) error
	Delete(id string) error
	// LoadAll 返回 id -> 原始文档，由 Store 负责解析与坏档过滤
	LoadAll() (map[string][]byte, error)
}

// Store 场景图仓库：内存索引 + 文档持久化，单写者串行化按项目粒度。
// 注意这里是显式注入的依赖，不做包级单例。
type Store struct {
	mu       sync.RWMutex
	projects map[string]*Project
	locks    map[string]*sync.Mutex

	repo DocRepo
	log  *logger.Logger
}

func NewStore(repo DocRepo, log *logger.Logger) *Store {
	return &Store{
		projects: make(map[string]*Project),
		locks:    make(map[string]*sync.Mutex),
		repo:     repo,
		log:      log.With("component", "store"),
	}
}

// LoadAll 启动时从持久化文档重建内存索引。
// 解析失败的文档跳过并记录，不中止启动。
func (s *Store) LoadAll() error {
	docs, err := s.repo.LoadAll()
	if err != nil {
		return fmt.Errorf("load project docs: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, raw := range docs {
		var p Project
		if err := json.Unmarshal(raw, &p); err != nil {
			s.log.Warn("跳过损坏的项目文档", "project_id", id, "err",
				fmt.Errorf("%w: %v", ErrCorruptDocument, err))
			continue
		}
		if p.ID == "" {
			s.log.Warn("跳过缺少 id 的项目文档", "doc_id", id)
			continue
		}
		// 早期文档的场景没有稳定标识，加载时补齐
		for _, sc := range p.Scenes {
			if sc.ID == "" {
				sc.ID = uuid.NewString()
			}
		}
		s.projects[p.ID] = &p
	}
	s.log.Info("项目索引已重建", "count", len(s.projects))
	return nil
}

// CreateProject 创建空项目并立即持久化
func (s *Store) CreateProject(title, mode string, resolution Resolution) (*Project, error) {
	if mode != ModeSimple && mode != ModeAdvanced {
		mode = ModeAdvanced
	}
	if resolution.Width <= 0 || resolution.Height <= 0 {
		resolution = ResolutionStandard
	}
	now := time.Now().UTC()
	p := &Project{
		ID:         uuid.NewString(),
		Title:      title,
		Mode:       mode,
		Resolution: resolution,
		FPS:        30,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Persist(p); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.projects[p.ID] = p
	s.mu.Unlock()
	return p, nil
}

func (s *Store) GetProject(id string) (*Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Store) GetScene(projectID string, index int) (*Scene, error) {
	p, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	sc, err := p.SceneByIndex(index)
	if err != nil {
		return nil, fmt.Errorf("scene %d of project %s: %w", index, projectID, ErrNotFound)
	}
	return sc, nil
}

func (s *Store) ListProjects() []*Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Project, 0, len(s.projects))
	for _, p := range s.projects {
		out = append(out, p)
	}
	return out
}

// SnapshotProject 在项目写锁内取深拷贝。读侧接口用它，
// 序列化期间不会看到并发编辑的中间态。
func (s *Store) SnapshotProject(id string) (*Project, error) {
	var snap *Project
	err := s.WithProjectLock(id, func() error {
		p, err := s.GetProject(id)
		if err != nil {
			return err
		}
		snap = p.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// SnapshotProjects 所有项目的深拷贝，逐项目加锁
func (s *Store) SnapshotProjects() []*Project {
	s.mu.RLock()
	ids := make([]string, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	out := make([]*Project, 0, len(ids))
	for _, id := range ids {
		snap, err := s.SnapshotProject(id)
		if err != nil {
			continue // 拿快照期间被删除
		}
		out = append(out, snap)
	}
	return out
}

// Persist 整份项目文档原子写入
func (s *Store) Persist(p *Project) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal project %s: %w", p.ID, err)
	}
	if err := s.repo.Save(p.ID, raw); err != nil {
		return fmt.Errorf("persist project %s: %w", p.ID, err)
	}
	return nil
}

// DeleteProject 显式删除持久化文档与内存索引。项目只会被显式删除。
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err := s.repo.Delete(id); err != nil {
		return fmt.Errorf("delete project %s: %w", id, err)
	}
	delete(s.projects, id)
	delete(s.locks, id)
	return nil
}

// Lock 返回项目的写锁，同一项目的编辑操作串行，不同项目并行
func (s *Store) Lock(projectID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[projectID] = l
	}
	return l
}

// WithProjectLock 在项目写锁内执行 fn
func (s *Store) WithProjectLock(projectID string, fn func() error) error {
	l := s.Lock(projectID)
	l.Lock()
	defer l.Unlock()
	return fn()
}
