package models

import "github.com/google/uuid"

type DocumentSpace struct {
	BaseModel
	Name string `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
}

func (DocumentSpace) TableName() string {
	return "document_spaces"
}

// DocumentSpaceMember grants a dashboard user space-level privileges.
// One row per (space, user).
type DocumentSpaceMember struct {
	BaseModel
	DocumentSpaceID uuid.UUID `json:"documentSpaceID" gorm:"type:uuid;not null;uniqueIndex:idx_space_member;index"`
	DashboardUserID uuid.UUID `json:"dashboardUserID" gorm:"type:uuid;not null;uniqueIndex:idx_space_member"`
	CanRead         bool      `json:"canRead" gorm:"not null;default:false"`
	CanWrite        bool      `json:"canWrite" gorm:"not null;default:false"`
	CanManage       bool      `json:"canManage" gorm:"not null;default:false"`

	DocumentSpace DocumentSpace `json:"-" gorm:"foreignKey:DocumentSpaceID;references:ID"`
	DashboardUser DashboardUser `json:"-" gorm:"foreignKey:DashboardUserID;references:ID"`
}

func (DocumentSpaceMember) TableName() string {
	return "document_space_members"
}
