package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/internal/apperrors"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/storage"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FilesystemElementTree is a materialized subtree of a document space:
// one entry plus its recursively dumped children.
type FilesystemElementTree struct {
	Entry    models.FileSystemEntry   `json:"entry"`
	Children []*FilesystemElementTree `json:"children"`
}

// TreeService owns every mutation of the virtual filesystem tree. The
// relational tree is the source of truth; object-store side effects are
// sequenced strictly after relational commits so partial failures only
// ever leave inert orphaned objects.
type TreeService struct {
	DB          *gorm.DB
	Store       ObjectStore
	Resolver    *PathResolver
	Collections *CollectionService
}

func NewTreeService(db *gorm.DB, store ObjectStore, resolver *PathResolver, collections *CollectionService) *TreeService {
	return &TreeService{DB: db, Store: store, Resolver: resolver, Collections: collections}
}

// siblingExists reports whether any entry, file or folder, with the
// given name lives under (space, parent). Folder and file names share
// one namespace.
func (s *TreeService) siblingExists(ctx context.Context, spaceID, parentID uuid.UUID, name string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.FileSystemEntry{}).
		Where("document_space_id = ? AND parent_entry_id = ? AND item_name = ?", spaceID, parentID, name).
		Count(&count).Error
	return count > 0, err
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique")
}

// AddFolder creates a folder under parentPath (space root when empty).
// The pre-check returns a clean conflict; the composite unique index is
// the final arbiter under concurrent creates.
func (s *TreeService) AddFolder(ctx context.Context, spaceID uuid.UUID, parentPath, name, actor string) (*models.FileSystemEntry, error) {
	trimmed, err := ValidateItemName(name)
	if err != nil {
		return nil, err
	}

	parentSpec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, parentPath)
	if err != nil {
		return nil, err
	}

	exists, err := s.siblingExists(ctx, spaceID, parentSpec.ItemID, trimmed)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.AlreadyExists("an item named %q already exists under %s", trimmed, parentSpec.FullPathSpec)
	}

	entry := models.FileSystemEntry{
		BaseModel:       models.BaseModel{CreatedBy: actor, LastModifiedBy: actor},
		DocumentSpaceID: spaceID,
		ParentEntryID:   parentSpec.ItemID,
		ItemName:        trimmed,
		IsFolder:        true,
	}

	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("an item named %q already exists under %s", trimmed, parentSpec.FullPathSpec)
		}
		return nil, err
	}

	return &entry, nil
}

// ListContents returns the direct children of the folder at path.
func (s *TreeService) ListContents(ctx context.Context, spaceID uuid.UUID, path string) ([]models.FileSystemEntry, *FilePathSpec, error) {
	spec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, path)
	if err != nil {
		return nil, nil, err
	}

	var children []models.FileSystemEntry
	err = s.DB.WithContext(ctx).
		Where("document_space_id = ? AND parent_entry_id = ?", spaceID, spec.ItemID).
		Order("is_folder DESC, item_name ASC").
		Find(&children).Error
	if err != nil {
		return nil, nil, err
	}
	return children, spec, nil
}

// RenameFolder mutates ItemName in place. The id and every descendant
// row are untouched: children reference the parent by id, not by path.
func (s *TreeService) RenameFolder(ctx context.Context, spaceID uuid.UUID, existingPath, newName, actor string) (*models.FileSystemEntry, error) {
	trimmed, err := ValidateItemName(newName)
	if err != nil {
		return nil, err
	}

	spec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, existingPath)
	if err != nil {
		return nil, err
	}
	if spec.ItemID == models.NilParent {
		return nil, apperrors.InvalidName("the space root cannot be renamed")
	}

	if spec.ItemName != trimmed {
		exists, err := s.siblingExists(ctx, spaceID, spec.ParentFolderID, trimmed)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperrors.AlreadyExists("an item named %q already exists under the same parent", trimmed)
		}
	}

	return s.renameEntry(ctx, spec.ItemID, trimmed, actor)
}

// RenameFile renames a file row and moves the underlying object to the
// new key, since the object key embeds the filename. Copy-then-delete;
// a stale source object left by a failed delete is inert.
func (s *TreeService) RenameFile(ctx context.Context, spaceID uuid.UUID, parentPath, existingName, newName, actor string) (*models.FileSystemEntry, error) {
	trimmed, err := ValidateItemName(newName)
	if err != nil {
		return nil, err
	}

	parentSpec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, parentPath)
	if err != nil {
		return nil, err
	}

	fileSpec, err := s.Resolver.ResolveFileInFolder(ctx, parentSpec, strings.TrimSpace(existingName))
	if err != nil {
		return nil, err
	}

	if fileSpec.ItemName == trimmed {
		return s.renameEntry(ctx, fileSpec.ItemID, trimmed, actor)
	}

	exists, err := s.siblingExists(ctx, spaceID, parentSpec.ItemID, trimmed)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.AlreadyExists("an item named %q already exists under %s", trimmed, parentSpec.FullPathSpec)
	}

	oldKey := fileSpec.ObjectKey()
	newKey := parentSpec.QualifiedPrefix() + trimmed
	if err := s.Store.Copy(ctx, oldKey, newKey); err != nil {
		return nil, apperrors.Storage("failed moving object to renamed key", err)
	}

	entry, err := s.renameEntry(ctx, fileSpec.ItemID, trimmed, actor)
	if err != nil {
		_ = s.Store.Remove(ctx, newKey)
		return nil, err
	}

	if err := s.Store.Remove(ctx, oldKey); err != nil {
		logger.Error("file_rename_orphaned_source_object", err, map[string]interface{}{
			"object_key": oldKey,
		})
	}
	return entry, nil
}

func (s *TreeService) renameEntry(ctx context.Context, entryID uuid.UUID, newName, actor string) (*models.FileSystemEntry, error) {
	err := s.DB.WithContext(ctx).Model(&models.FileSystemEntry{}).
		Where("id = ?", entryID).
		Updates(map[string]interface{}{
			"item_name":        newName,
			"last_modified_by": actor,
		}).Error
	if err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.AlreadyExists("an item named %q already exists under the same parent", newName)
		}
		return nil, err
	}

	var entry models.FileSystemEntry
	if err := s.DB.WithContext(ctx).First(&entry, "id = ?", entryID).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// UploadFile streams bytes to the object store and records the file
// row. Uploading an existing name overwrites the prior content; a
// folder occupying the name is a conflict.
func (s *TreeService) UploadFile(ctx context.Context, spaceID uuid.UUID, parentPath, filename string, reader io.Reader, size int64, contentType, actor string) (*models.FileSystemEntry, error) {
	trimmed, err := ValidateItemName(filename)
	if err != nil {
		return nil, err
	}

	parentSpec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, parentPath)
	if err != nil {
		return nil, err
	}

	var existing models.FileSystemEntry
	err = s.DB.WithContext(ctx).
		Where("document_space_id = ? AND parent_entry_id = ? AND item_name = ?", spaceID, parentSpec.ItemID, trimmed).
		First(&existing).Error
	switch {
	case err == nil && existing.IsFolder:
		return nil, apperrors.AlreadyExists("a folder named %q already exists under %s", trimmed, parentSpec.FullPathSpec)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}
	overwrite := err == nil

	key := parentSpec.QualifiedPrefix() + trimmed
	if err := s.Store.Upload(ctx, key, reader, size, contentType); err != nil {
		return nil, apperrors.Storage("failed uploading file content", err)
	}

	if overwrite {
		err := s.DB.WithContext(ctx).Model(&models.FileSystemEntry{}).
			Where("id = ?", existing.ID).
			Updates(map[string]interface{}{
				"size":             size,
				"last_modified_by": actor,
			}).Error
		if err != nil {
			return nil, err
		}
		existing.Size = size
		existing.LastModifiedBy = actor
		return &existing, nil
	}

	entry := models.FileSystemEntry{
		BaseModel:       models.BaseModel{CreatedBy: actor, LastModifiedBy: actor},
		DocumentSpaceID: spaceID,
		ParentEntryID:   parentSpec.ItemID,
		ItemName:        trimmed,
		IsFolder:        false,
		Size:            size,
	}
	if err := s.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if isDuplicateKey(err) {
			// A concurrent upload won the insert; its row references
			// the same key this upload just wrote. Do not remove it.
			return nil, apperrors.AlreadyExists("an item named %q already exists under %s", trimmed, parentSpec.FullPathSpec)
		}
		_ = s.Store.Remove(ctx, key)
		return nil, err
	}

	return &entry, nil
}

// DownloadFile resolves a file path and opens its object stream.
func (s *TreeService) DownloadFile(ctx context.Context, spaceID uuid.UUID, path string) (io.ReadCloser, *storage.ObjectInfo, *models.FileSystemEntry, error) {
	spec, err := s.Resolver.ResolveFilePath(ctx, spaceID, path)
	if err != nil {
		return nil, nil, nil, err
	}

	var entry models.FileSystemEntry
	if err := s.DB.WithContext(ctx).First(&entry, "id = ?", spec.ItemID).Error; err != nil {
		return nil, nil, nil, err
	}

	body, info, err := s.Store.Download(ctx, spec.ObjectKey())
	if err != nil {
		return nil, nil, nil, apperrors.Storage("failed downloading file content", err)
	}
	return body, info, &entry, nil
}

// DeleteFile removes the file row first, then the object bytes. A
// failed object delete leaves an orphan, never a dangling row.
func (s *TreeService) DeleteFile(ctx context.Context, spaceID uuid.UUID, path, actor string) error {
	spec, err := s.Resolver.ResolveFilePath(ctx, spaceID, path)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Collections.RemoveEntriesFromAllCollections(tx, []uuid.UUID{spec.ItemID}); err != nil {
			return err
		}
		return tx.Delete(&models.FileSystemEntry{}, "id = ?", spec.ItemID).Error
	})
	if err != nil {
		return err
	}

	if err := s.Store.Remove(ctx, spec.ObjectKey()); err != nil {
		logger.Error("file_delete_orphaned_object", err, map[string]interface{}{
			"object_key": spec.ObjectKey(),
			"actor":      actor,
		})
	}
	return nil
}

// DeleteFolder removes the folder and its entire subtree in one
// transaction, then best-effort deletes the underlying objects.
// Returned KeyErrors report objects that remain orphaned.
func (s *TreeService) DeleteFolder(ctx context.Context, spaceID uuid.UUID, path, actor string) ([]storage.KeyError, error) {
	spec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, path)
	if err != nil {
		return nil, err
	}
	if spec.ItemID == models.NilParent {
		return nil, apperrors.InvalidName("the space root cannot be deleted")
	}

	tree, err := s.dumpFromSpec(ctx, spec)
	if err != nil {
		return nil, err
	}

	ids := collectEntryIDs(tree)
	keys := s.FlattenTreeToObjectKeys(tree, parentPrefix(spec))

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.Collections.RemoveEntriesFromAllCollections(tx, ids); err != nil {
			return err
		}
		return tx.Delete(&models.FileSystemEntry{}, "id IN ?", ids).Error
	})
	if err != nil {
		return nil, err
	}

	objectKeys := make([]string, len(keys))
	for i, k := range keys {
		objectKeys[i] = k.Key
	}
	failures := s.Store.RemoveAll(ctx, objectKeys)
	if len(failures) > 0 {
		logger.Warn("folder_delete_orphaned_objects", map[string]interface{}{
			"path":     spec.FullPathSpec,
			"orphaned": len(failures),
			"actor":    actor,
		})
	}
	return failures, nil
}

// DumpElementTree materializes the full subtree under path.
func (s *TreeService) DumpElementTree(ctx context.Context, spaceID uuid.UUID, path string) (*FilesystemElementTree, *FilePathSpec, error) {
	spec, err := s.Resolver.ResolveFolderPath(ctx, spaceID, path)
	if err != nil {
		return nil, nil, err
	}
	tree, err := s.dumpFromSpec(ctx, spec)
	if err != nil {
		return nil, nil, err
	}
	return tree, spec, nil
}

// dumpFromSpec walks the subtree breadth-first. The visited set guards
// against cyclic parent references: the schema is designed to be
// acyclic, but corrupted data must not hang the walk.
func (s *TreeService) dumpFromSpec(ctx context.Context, spec *FilePathSpec) (*FilesystemElementTree, error) {
	root := &FilesystemElementTree{
		Entry: models.FileSystemEntry{
			BaseModel:       models.BaseModel{ID: spec.ItemID},
			DocumentSpaceID: spec.DocumentSpaceID,
			ParentEntryID:   spec.ParentFolderID,
			ItemName:        spec.ItemName,
			IsFolder:        true,
		},
	}
	if spec.ItemID != models.NilParent {
		var entry models.FileSystemEntry
		if err := s.DB.WithContext(ctx).First(&entry, "id = ?", spec.ItemID).Error; err != nil {
			return nil, err
		}
		root.Entry = entry
	}

	visited := map[uuid.UUID]bool{spec.ItemID: true}
	queue := []*FilesystemElementTree{root}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		if !node.Entry.IsFolder {
			continue
		}

		var children []models.FileSystemEntry
		err := s.DB.WithContext(ctx).
			Where("document_space_id = ? AND parent_entry_id = ?", spec.DocumentSpaceID, node.Entry.ID).
			Order("is_folder DESC, item_name ASC").
			Find(&children).Error
		if err != nil {
			return nil, err
		}

		for _, child := range children {
			if visited[child.ID] {
				logger.Warn("tree_dump_cycle_detected", map[string]interface{}{
					"entry_id": child.ID.String(),
					"space_id": spec.DocumentSpaceID.String(),
				})
				continue
			}
			visited[child.ID] = true

			childNode := &FilesystemElementTree{Entry: child}
			node.Children = append(node.Children, childNode)
			queue = append(queue, childNode)
		}
	}

	return root, nil
}

// FlattenTreeToObjectKeys walks a dumped tree and emits, for every file
// node, the fully qualified object key and the nested display path to
// use inside a zip archive. basePrefix is the object-key prefix of the
// tree root's parent chain.
func (s *TreeService) FlattenTreeToObjectKeys(tree *FilesystemElementTree, basePrefix string) []storage.ObjectKeyEntry {
	var out []storage.ObjectKeyEntry
	flattenNode(tree, basePrefix, "", &out)
	return out
}

func flattenNode(node *FilesystemElementTree, prefix, display string, out *[]storage.ObjectKeyEntry) {
	if !node.Entry.IsFolder {
		*out = append(*out, storage.ObjectKeyEntry{
			Key:         prefix + node.Entry.ItemName,
			DisplayPath: display + node.Entry.ItemName,
		})
		return
	}

	// The synthetic space root contributes neither a key segment nor a
	// display directory.
	if node.Entry.ID != models.NilParent {
		prefix += node.Entry.ID.String() + PathSeparator
		display += node.Entry.ItemName + PathSeparator
	}

	for _, child := range node.Children {
		flattenNode(child, prefix, display, out)
	}
}

// parentPrefix is the object-key prefix of the chain above spec's node.
func parentPrefix(spec *FilePathSpec) string {
	full := spec.QualifiedPrefix()
	if spec.ItemID == models.NilParent {
		return full
	}
	return strings.TrimSuffix(full, spec.ItemID.String()+PathSeparator)
}

// ZipFolderToWriter streams a zip of the subtree at path. When files is
// non-empty only those direct or nested display paths are included.
func (s *TreeService) ZipFolderToWriter(ctx context.Context, spaceID uuid.UUID, path string, files []string, w io.Writer) error {
	tree, spec, err := s.DumpElementTree(ctx, spaceID, path)
	if err != nil {
		return err
	}

	entries := s.FlattenTreeToObjectKeys(tree, parentPrefix(spec))

	if len(files) > 0 {
		wanted := make(map[string]bool, len(files))
		for _, f := range files {
			if trimmed := strings.TrimSpace(f); trimmed != "" {
				wanted[trimmed] = true
			}
		}

		// Display paths are rooted at the requested folder; strip its
		// own directory segment before matching caller-supplied names.
		strip := ""
		if spec.ItemID != models.NilParent {
			strip = spec.ItemName + PathSeparator
		}

		filtered := entries[:0]
		for _, entry := range entries {
			relative := strings.TrimPrefix(entry.DisplayPath, strip)
			if wanted[relative] || wanted[entry.DisplayPath] {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered

		if len(entries) == 0 {
			return apperrors.NotFound("none of the requested files exist under %s", spec.FullPathSpec)
		}
	}

	if err := s.Store.DownloadAndZip(ctx, entries, w); err != nil {
		return apperrors.Storage("failed streaming zip archive", err)
	}
	return nil
}

// PurgeSpace removes every entry row of a space and every object under
// its key prefix. Used when a document space is deleted.
func (s *TreeService) PurgeSpace(ctx context.Context, spaceID uuid.UUID) ([]storage.KeyError, error) {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []uuid.UUID
		if err := tx.Model(&models.FileSystemEntry{}).
			Where("document_space_id = ?", spaceID).
			Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := s.Collections.RemoveEntriesFromAllCollections(tx, ids); err != nil {
				return err
			}
		}
		return tx.Delete(&models.FileSystemEntry{}, "document_space_id = ?", spaceID).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Store.RemoveByPrefix(ctx, spaceID.String()+PathSeparator), nil
}

func collectEntryIDs(tree *FilesystemElementTree) []uuid.UUID {
	var ids []uuid.UUID
	var walk func(node *FilesystemElementTree)
	walk = func(node *FilesystemElementTree) {
		if node.Entry.ID != models.NilParent {
			ids = append(ids, node.Entry.ID)
		}
		for _, child := range node.Children {
			walk(child)
		}
	}
	walk(tree)
	return ids
}
