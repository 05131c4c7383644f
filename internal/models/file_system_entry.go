package models

import "github.com/google/uuid"

// NilParent marks entries that live directly under the synthetic space
// root. The root itself is never persisted as a row; parent ids are
// stored as the nil UUID (not NULL) so the composite unique index
// applies to top-level siblings too.
var NilParent = uuid.Nil

// FileSystemEntry is one node of a document space's virtual filesystem:
// a folder marker or a file record. File bytes live in the object store
// under spaceID/ancestorFolderIDs.../name; folders are purely relational.
type FileSystemEntry struct {
	BaseModel
	DocumentSpaceID uuid.UUID `json:"documentSpaceID" gorm:"type:uuid;not null;uniqueIndex:idx_entry_space_parent_name;index"`
	ParentEntryID   uuid.UUID `json:"parentEntryID" gorm:"type:uuid;not null;uniqueIndex:idx_entry_space_parent_name;index"`
	ItemName        string    `json:"itemName" gorm:"type:varchar(255);not null;uniqueIndex:idx_entry_space_parent_name"`
	IsFolder        bool      `json:"isFolder" gorm:"not null;default:false;index"`
	Size            int64     `json:"size" gorm:"not null;default:0"`
}

func (FileSystemEntry) TableName() string {
	return "file_system_entries"
}
