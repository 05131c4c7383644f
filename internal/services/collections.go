package services

import (
	"context"
	"errors"
	"time"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FavoriteEntry is a favorites listing row: the entry decorated with
// the user's per-entry metadata.
type FavoriteEntry struct {
	models.FileSystemEntry
	LastDownloaded *time.Time `json:"lastDownloaded,omitempty"`
}

// CollectionService manages per-user entry collections ("Favorites")
// and the per-user metadata scoped to collection membership.
type CollectionService struct {
	DB *gorm.DB
}

func NewCollectionService(db *gorm.DB) *CollectionService {
	return &CollectionService{DB: db}
}

// favoritesCollection returns the user's Favorites collection in the
// space, creating it lazily when create is true.
func (s *CollectionService) favoritesCollection(ctx context.Context, spaceID, userID uuid.UUID, create bool) (*models.DocumentSpaceUserCollection, error) {
	var collection models.DocumentSpaceUserCollection
	err := s.DB.WithContext(ctx).
		Where("document_space_id = ? AND dashboard_user_id = ? AND name = ?", spaceID, userID, models.FavoritesCollectionName).
		First(&collection).Error
	if err == nil {
		return &collection, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !create {
		return nil, apperrors.NotFound("no favorites collection exists for this user in this space")
	}

	collection = models.DocumentSpaceUserCollection{
		DocumentSpaceID: spaceID,
		DashboardUserID: userID,
		Name:            models.FavoritesCollectionName,
	}
	if createErr := s.DB.WithContext(ctx).Create(&collection).Error; createErr != nil {
		if isDuplicateKey(createErr) {
			// Concurrent lazy creation; reload the winner.
			reloadErr := s.DB.WithContext(ctx).
				Where("document_space_id = ? AND dashboard_user_id = ? AND name = ?", spaceID, userID, models.FavoritesCollectionName).
				First(&collection).Error
			if reloadErr != nil {
				return nil, reloadErr
			}
			return &collection, nil
		}
		return nil, createErr
	}
	return &collection, nil
}

// AddToFavorites adds an entry to the user's Favorites collection,
// creating the collection on first use. Adding an existing member is a
// no-op.
func (s *CollectionService) AddToFavorites(ctx context.Context, spaceID, userID, entryID uuid.UUID) error {
	var entry models.FileSystemEntry
	err := s.DB.WithContext(ctx).
		Where("id = ? AND document_space_id = ?", entryID, spaceID).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("entry %s not found in this space", entryID)
		}
		return err
	}

	collection, err := s.favoritesCollection(ctx, spaceID, userID, true)
	if err != nil {
		return err
	}

	member := models.CollectionEntry{CollectionID: collection.ID, EntryID: entryID}
	if err := s.DB.WithContext(ctx).Create(&member).Error; err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return err
	}
	return nil
}

// RemoveFromFavorites drops the membership record. Removing an entry
// that is not a member is a no-op.
func (s *CollectionService) RemoveFromFavorites(ctx context.Context, spaceID, userID, entryID uuid.UUID) error {
	collection, err := s.favoritesCollection(ctx, spaceID, userID, false)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	return s.DB.WithContext(ctx).
		Delete(&models.CollectionEntry{}, "collection_id = ? AND entry_id = ?", collection.ID, entryID).Error
}

// ListFavorites returns the user's favorite entries in the space,
// decorated with last-downloaded metadata.
func (s *CollectionService) ListFavorites(ctx context.Context, spaceID, userID uuid.UUID) ([]FavoriteEntry, error) {
	collection, err := s.favoritesCollection(ctx, spaceID, userID, false)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return []FavoriteEntry{}, nil
		}
		return nil, err
	}

	var entries []models.FileSystemEntry
	err = s.DB.WithContext(ctx).
		Joins("JOIN collection_entries ON collection_entries.entry_id = file_system_entries.id").
		Where("collection_entries.collection_id = ?", collection.ID).
		Order("file_system_entries.is_folder DESC, file_system_entries.item_name ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	out := make([]FavoriteEntry, 0, len(entries))
	if len(entries) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(entries))
	for i, entry := range entries {
		ids[i] = entry.ID
	}

	var metadata []models.FileSystemEntryMetadata
	err = s.DB.WithContext(ctx).
		Where("dashboard_user_id = ? AND entry_id IN ?", userID, ids).
		Find(&metadata).Error
	if err != nil {
		return nil, err
	}

	lastDownloaded := make(map[uuid.UUID]*time.Time, len(metadata))
	for _, m := range metadata {
		lastDownloaded[m.EntryID] = m.LastDownloaded
	}

	for _, entry := range entries {
		out = append(out, FavoriteEntry{
			FileSystemEntry: entry,
			LastDownloaded:  lastDownloaded[entry.ID],
		})
	}
	return out, nil
}

// FavoriteIDs reports which of the given entries are members of the
// user's Favorites collection, for decorating listing endpoints.
func (s *CollectionService) FavoriteIDs(ctx context.Context, spaceID, userID uuid.UUID, entryIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(entryIDs))
	if len(entryIDs) == 0 {
		return out, nil
	}

	collection, err := s.favoritesCollection(ctx, spaceID, userID, false)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return out, nil
		}
		return nil, err
	}

	var memberIDs []uuid.UUID
	err = s.DB.WithContext(ctx).Model(&models.CollectionEntry{}).
		Where("collection_id = ? AND entry_id IN ?", collection.ID, entryIDs).
		Pluck("entry_id", &memberIDs).Error
	if err != nil {
		return nil, err
	}

	for _, id := range memberIDs {
		out[id] = true
	}
	return out, nil
}

// RecordDownloadMetadata upserts LastDownloaded for the given entries,
// but only where the entry is a member of one of the user's
// collections. Metadata tracking is opt-in via membership, not global.
func (s *CollectionService) RecordDownloadMetadata(ctx context.Context, userID uuid.UUID, entryIDs []uuid.UUID, downloadedAt time.Time) error {
	if len(entryIDs) == 0 {
		return nil
	}

	var tracked []uuid.UUID
	err := s.DB.WithContext(ctx).Model(&models.CollectionEntry{}).
		Joins("JOIN document_space_user_collections ON document_space_user_collections.id = collection_entries.collection_id").
		Where("document_space_user_collections.dashboard_user_id = ?", userID).
		Where("collection_entries.entry_id IN ?", entryIDs).
		Pluck("collection_entries.entry_id", &tracked).Error
	if err != nil {
		return err
	}

	for _, entryID := range tracked {
		metadata := models.FileSystemEntryMetadata{
			EntryID:         entryID,
			DashboardUserID: userID,
			LastDownloaded:  &downloadedAt,
		}
		err := s.DB.WithContext(ctx).
			Where("entry_id = ? AND dashboard_user_id = ?", entryID, userID).
			Assign(map[string]interface{}{"last_downloaded": downloadedAt}).
			FirstOrCreate(&metadata).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// RemoveEntriesFromAllCollections purges membership and metadata rows
// for deleted entries. Called inside the tree delete transaction so
// collection references never dangle.
func (s *CollectionService) RemoveEntriesFromAllCollections(tx *gorm.DB, entryIDs []uuid.UUID) error {
	if len(entryIDs) == 0 {
		return nil
	}
	if err := tx.Delete(&models.CollectionEntry{}, "entry_id IN ?", entryIDs).Error; err != nil {
		return err
	}
	return tx.Delete(&models.FileSystemEntryMetadata{}, "entry_id IN ?", entryIDs).Error
}
