package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProjectDoc 项目文档行，整份 JSON 存一列
type ProjectDoc struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Doc       []byte    `gorm:"type:json"`
	UpdatedAt time.Time
}

func (ProjectDoc) TableName() string {
	return "project_doc"
}

// GormRepo MySQL 文档仓库。单行 upsert 在事务内完成，
// 等价于原子替换整份文档。
type GormRepo struct {
	db *gorm.DB
}

func NewGormRepo(db *gorm.DB) *GormRepo {
	return &GormRepo{db: db}
}

func (r *GormRepo) Save(id string, doc []byte) error {
	row := ProjectDoc{ID: id, Doc: doc, UpdatedAt: time.Now()}
	return r.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"doc", "updated_at"}),
		}).Create(&row).Error
	})
}

func (r *GormRepo) Delete(id string) error {
	return r.db.Delete(&ProjectDoc{}, "id = ?", id).Error
}

func (r *GormRepo) LoadAll() (map[string][]byte, error) {
	var rows []ProjectDoc
	if err := r.db.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(rows))
	for _, row := range rows {
		out[row.ID] = row.Doc
	}
	return out, nil
}
