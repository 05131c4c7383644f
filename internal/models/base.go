package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BaseModel struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt      time.Time `json:"createdOn"`
	UpdatedAt      time.Time `json:"lastModifiedOn"`
	CreatedBy      string    `json:"createdBy" gorm:"type:varchar(255)"`
	LastModifiedBy string    `json:"lastModifiedBy" gorm:"type:varchar(255)"`
}

func (b *BaseModel) BeforeCreate(_ *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
