package models

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRepo 把每个项目存成一个 JSON 文档。
// 写入先落到临时文件再 rename，崩溃不会留下半写文档。
type FileRepo struct {
	dir string
}

func NewFileRepo(dir string) (*FileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create project dir: %w", err)
	}
	return &FileRepo{dir: dir}, nil
}

func (r *FileRepo) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}

func (r *FileRepo) Save(id string, doc []byte) error {
	tmp, err := os.CreateTemp(r.dir, id+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, r.path(id))
}

func (r *FileRepo) Delete(id string) error {
	err := os.Remove(r.path(id))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (r *FileRepo) LoadAll() (map[string][]byte, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.dir, name))
		if err != nil {
			// 单个文件读取失败不影响其它文档
			continue
		}
		out[strings.TrimSuffix(name, ".json")] = raw
	}
	return out, nil
}
