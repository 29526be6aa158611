package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// カタログに並ぶ契約書テンプレート
type ContractType struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Slug         string          `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug"`
	Description  string          `gorm:"type:text" json:"description"`
	Price        decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	Category     string          `gorm:"type:varchar(50)" json:"category"`
	Icon         string          `gorm:"type:varchar(50);default:'fas fa-file-contract'" json:"icon"`
	Color        string          `gorm:"type:varchar(7);default:'#f4623a'" json:"color"`
	DisplayOrder int             `gorm:"not null;default:0" json:"display_order"`
	IsActive     bool            `gorm:"not null;default:false" json:"is_active"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}
