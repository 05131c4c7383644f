package models

import (
	"time"

	"github.com/google/uuid"
)

// FavoritesCollectionName is the well-known per-user collection created
// lazily on the first "add to favorites" action.
const FavoritesCollectionName = "Favorites"

// DocumentSpaceUserCollection is a named, per-user set of filesystem
// entries within one space. At most one collection exists per
// (space, user, name).
type DocumentSpaceUserCollection struct {
	BaseModel
	DocumentSpaceID uuid.UUID `json:"documentSpaceID" gorm:"type:uuid;not null;uniqueIndex:idx_collection_space_user_name;index"`
	DashboardUserID uuid.UUID `json:"dashboardUserID" gorm:"type:uuid;not null;uniqueIndex:idx_collection_space_user_name;index"`
	Name            string    `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_collection_space_user_name"`
}

func (DocumentSpaceUserCollection) TableName() string {
	return "document_space_user_collections"
}

// CollectionEntry joins a collection to its member entries. Managed
// explicitly rather than through a gorm many2many so membership adds
// stay idempotent and delete cascades stay visible.
type CollectionEntry struct {
	CollectionID uuid.UUID `json:"collectionID" gorm:"type:uuid;primaryKey"`
	EntryID      uuid.UUID `json:"entryID" gorm:"type:uuid;primaryKey;index"`

	Collection DocumentSpaceUserCollection `json:"-" gorm:"foreignKey:CollectionID;references:ID"`
	Entry      FileSystemEntry             `json:"-" gorm:"foreignKey:EntryID;references:ID"`
}

func (CollectionEntry) TableName() string {
	return "collection_entries"
}

// FileSystemEntryMetadata tracks per-user activity for entries that are
// members of one of that user's collections. Metadata is opt-in via
// collection membership, not global.
type FileSystemEntryMetadata struct {
	BaseModel
	EntryID         uuid.UUID  `json:"entryID" gorm:"type:uuid;not null;uniqueIndex:idx_metadata_entry_user;index"`
	DashboardUserID uuid.UUID  `json:"dashboardUserID" gorm:"type:uuid;not null;uniqueIndex:idx_metadata_entry_user;index"`
	LastDownloaded  *time.Time `json:"lastDownloaded,omitempty"`

	Entry FileSystemEntry `json:"-" gorm:"foreignKey:EntryID;references:ID"`
}

func (FileSystemEntryMetadata) TableName() string {
	return "file_system_entry_metadata"
}
