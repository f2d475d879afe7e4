package models

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"TimelineStudio-server/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)
	return NewStore(repo, logger.Nop())
}

func TestCreateProjectDefaults(t *testing.T) {
	store := newTestStore(t)
	p, err := store.CreateProject("我的项目", "", Resolution{})
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, ModeAdvanced, p.Mode)
	assert.Equal(t, ResolutionStandard, p.Resolution)
	assert.Equal(t, 30, p.FPS)
	assert.Empty(t, p.Scenes)
}

func TestSnapshotProjectIsIsolated(t *testing.T) {
	store := newTestStore(t)
	p, err := store.CreateProject("快照隔离", "", Resolution{})
	require.NoError(t, err)
	p.Scenes = append(p.Scenes, NewScene(1, "开场", "", 5.0))
	require.NoError(t, store.Persist(p))

	snap, err := store.SnapshotProject(p.ID)
	require.NoError(t, err)
	require.NotSame(t, p, snap)
	require.Len(t, snap.Scenes, 1)

	// 改快照不影响仓库中的实体
	snap.Title = "改过的标题"
	snap.Scenes[0].Prompt = "改过的提示词"

	live, err := store.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "快照隔离", live.Title)
	assert.Equal(t, "开场", live.Scenes[0].Prompt)

	snaps := store.SnapshotProjects()
	require.Len(t, snaps, 1)
	assert.NotSame(t, live, snaps[0])

	_, err = store.SnapshotProject("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileRepoRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	store := NewStore(repo, logger.Nop())
	p, err := store.CreateProject("round trip", ModeSimple, ResolutionPreview)
	require.NoError(t, err)

	p.Scenes = append(p.Scenes, NewScene(1, "开场", "anime", 5.0))
	require.NoError(t, store.Persist(p))

	// 新 store 从同一目录重新装载
	reloaded := NewStore(repo, logger.Nop())
	require.NoError(t, reloaded.LoadAll())

	got, err := reloaded.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "round trip", got.Title)
	require.Len(t, got.Scenes, 1)
	assert.Equal(t, "开场", got.Scenes[0].Prompt)
}

func TestLoadAllSkipsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	store := NewStore(repo, logger.Nop())
	good, err := store.CreateProject("完好", "", Resolution{})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))

	reloaded := NewStore(repo, logger.Nop())
	require.NoError(t, reloaded.LoadAll())

	_, err = reloaded.GetProject(good.ID)
	assert.NoError(t, err)
	assert.Len(t, reloaded.ListProjects(), 1)
}

func TestDeleteProject(t *testing.T) {
	store := newTestStore(t)
	p, err := store.CreateProject("待删除", "", Resolution{})
	require.NoError(t, err)

	require.NoError(t, store.DeleteProject(p.ID))
	_, err = store.GetProject(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, store.DeleteProject("missing"), ErrNotFound)
}

func TestPersistWritesValidJSON(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	store := NewStore(repo, logger.Nop())
	p, err := store.CreateProject("json 检查", "", Resolution{})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, p.ID+".json"))
	require.NoError(t, err)

	var doc Project
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, p.ID, doc.ID)
}

func TestGetScene(t *testing.T) {
	store := newTestStore(t)
	p, err := store.CreateProject("场景查询", "", Resolution{})
	require.NoError(t, err)
	p.Scenes = append(p.Scenes, NewScene(1, "one", "", 5.0))
	require.NoError(t, store.Persist(p))

	s, err := store.GetScene(p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "one", s.Prompt)

	_, err = store.GetScene(p.ID, 9)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetScene("missing", 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
