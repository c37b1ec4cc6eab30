package model

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
}

// HardModel 不做软删除的表（标签、任务关联等需要真正删除）
type HardModel struct {
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
}
